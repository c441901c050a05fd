package service

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"strconv"
	"strings"

	"github.com/SergeiKhy/linkshort-web/internal/metrics"
	"github.com/skip2/go-qrcode"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"github.com/vincent-petithory/dataurl"
	"go.uber.org/zap"
)

// ErrInvalidVector is returned for markup without a usable root <svg> size.
var ErrInvalidVector = errors.New("vector graphic has no intrinsic size")

const (
	qrForeground = "#0A0A0B"
	qrBackground = "#FFFFFF"

	svgMediaType = "image/svg+xml"
	pngMediaType = "image/png"

	defaultQRSize   = 192
	defaultFileName = "qr-code.png"
)

// VectorCode is a rendered QR code in vector form.
type VectorCode struct {
	Content string
	Size    int
	markup  string
}

// Markup serializes the code to SVG text.
func (v *VectorCode) Markup() string {
	if v == nil {
		return ""
	}
	return v.markup
}

// ExportableCode lives only for the duration of one export.
type ExportableCode struct {
	VectorMarkup   string
	TargetFileName string
}

// ExportedImage is the PNG produced by an export.
type ExportedImage struct {
	FileName string
	DataURI  string
	PNG      []byte
	Width    int
	Height   int
}

// Downloader hands an exported image to the user.
type Downloader interface {
	Deliver(ctx context.Context, img *ExportedImage) error
}

type QRExporter struct {
	size    int
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewQRExporter(size int, logger *zap.Logger, m *metrics.Metrics) *QRExporter {
	if size <= 0 {
		size = defaultQRSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QRExporter{size: size, logger: logger, metrics: m}
}

// Render draws content as a vector QR code at the exporter's size.
func (e *QRExporter) Render(content string) (*VectorCode, error) {
	return RenderCode(content, e.size)
}

// Export rasterizes code and delivers it. A nil or empty code is ignored and
// reported as not exported.
func (e *QRExporter) Export(ctx context.Context, code *VectorCode, shortCode string, dl Downloader) (bool, error) {
	img, ok, err := ExportPNG(code, shortCode)
	if err != nil {
		e.metrics.IncrementQRExport("failed")
		e.logger.Error("Failed to export QR code", zap.String("short_code", shortCode), zap.Error(err))
		return false, err
	}
	if !ok {
		e.metrics.IncrementQRExport("skipped")
		return false, nil
	}

	if err := dl.Deliver(ctx, img); err != nil {
		e.metrics.IncrementQRExport("failed")
		return false, fmt.Errorf("failed to deliver %s: %w", img.FileName, err)
	}

	e.metrics.IncrementQRExport("exported")
	e.logger.Info("QR code exported",
		zap.String("file", img.FileName),
		zap.Int("width", img.Width),
		zap.Int("height", img.Height),
	)
	return true, nil
}

// RenderCode builds the SVG for content: dark modules on a white square,
// no quiet zone, intrinsic size size x size.
func RenderCode(content string, size int) (*VectorCode, error) {
	if size <= 0 {
		size = defaultQRSize
	}

	q, err := qrcode.New(content, qrcode.High)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR content: %w", err)
	}
	q.DisableBorder = true
	bitmap := q.Bitmap()
	n := len(bitmap)

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`,
		size, size, n, n)
	fmt.Fprintf(&b, `<path fill="%s" d="M0 0 h%d v%d h-%d z"/>`, qrBackground, n, n, n)
	fmt.Fprintf(&b, `<path fill="%s" d="`, qrForeground)
	for y, row := range bitmap {
		for x, dark := range row {
			if dark {
				fmt.Fprintf(&b, "M%d %d h1 v1 h-1 z ", x, y)
			}
		}
	}
	b.WriteString(`"/></svg>`)

	return &VectorCode{Content: content, Size: size, markup: b.String()}, nil
}

// ExportPNG runs the vector-to-raster pipeline. ok is false when there is
// nothing to export.
func ExportPNG(code *VectorCode, shortCode string) (img *ExportedImage, ok bool, err error) {
	markup := code.Markup()
	if strings.TrimSpace(markup) == "" {
		return nil, false, nil
	}

	exportable := ExportableCode{
		VectorMarkup:   markup,
		TargetFileName: exportFileName(shortCode),
	}

	// base64 keeps non-ASCII text intact inside the URI
	svgURI := dataurl.New([]byte(exportable.VectorMarkup), svgMediaType).String()

	raster, err := rasterize(svgURI)
	if err != nil {
		return nil, false, err
	}

	flat := flattenOnWhite(raster)

	var buf bytes.Buffer
	if err := png.Encode(&buf, flat); err != nil {
		return nil, false, fmt.Errorf("failed to encode PNG: %w", err)
	}

	bounds := flat.Bounds()
	return &ExportedImage{
		FileName: exportable.TargetFileName,
		DataURI:  dataurl.New(buf.Bytes(), pngMediaType).String(),
		PNG:      buf.Bytes(),
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, true, nil
}

func exportFileName(shortCode string) string {
	if shortCode == "" {
		return defaultFileName
	}
	return "qr-" + shortCode + ".png"
}

// rasterize decodes an SVG data URI into an RGBA image at the graphic's
// intrinsic size. Uncovered pixels stay transparent.
func rasterize(uri string) (*image.RGBA, error) {
	decoded, err := dataurl.DecodeString(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to decode SVG data URI: %w", err)
	}

	w, h, err := intrinsicSize(decoded.Data)
	if err != nil {
		return nil, err
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(decoded.Data), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("failed to parse SVG: %w", err)
	}
	if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
		icon.ViewBox.W, icon.ViewBox.H = float64(w), float64(h)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)

	return rgba, nil
}

// flattenOnWhite composites src over an opaque white canvas.
func flattenOnWhite(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), src, bounds.Min, draw.Over)
	return out
}

// intrinsicSize reads width/height of the root <svg>, falling back to the viewBox.
func intrinsicSize(markup []byte) (int, int, error) {
	dec := xml.NewDecoder(bytes.NewReader(markup))
	for {
		tok, err := dec.Token()
		if err != nil {
			return 0, 0, fmt.Errorf("%w: %v", ErrInvalidVector, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "svg" {
			return 0, 0, fmt.Errorf("%w: root element is <%s>", ErrInvalidVector, start.Name.Local)
		}

		var w, h float64
		var viewBox []float64
		for _, attr := range start.Attr {
			switch attr.Name.Local {
			case "width":
				w = parseLength(attr.Value)
			case "height":
				h = parseLength(attr.Value)
			case "viewBox":
				viewBox = parseViewBox(attr.Value)
			}
		}
		if (w <= 0 || h <= 0) && len(viewBox) == 4 {
			w, h = viewBox[2], viewBox[3]
		}
		if w <= 0 || h <= 0 {
			return 0, 0, ErrInvalidVector
		}
		return int(math.Ceil(w)), int(math.Ceil(h)), nil
	}
}

func parseLength(s string) float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "px")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseViewBox(s string) []float64 {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) != 4 {
		return nil
	}
	out := make([]float64, 0, 4)
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil
		}
		out = append(out, v)
	}
	return out
}
