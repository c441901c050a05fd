package handler

import (
	"context"
	"mime"
	"net/http"
	"net/url"

	"github.com/SergeiKhy/linkshort-web/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type QRHandler struct {
	exporter   *service.QRExporter
	publicBase string
	logger     *zap.Logger
}

func NewQRHandler(exporter *service.QRExporter, publicBase string, logger *zap.Logger) *QRHandler {
	return &QRHandler{exporter: exporter, publicBase: publicBase, logger: logger}
}

// ShortURL is the address a QR code for code points at.
func ShortURL(publicBase, code string) string {
	return publicBase + "/r/" + url.PathEscape(code)
}

// Download renders the code for a short link and sends it as a PNG attachment.
// With ?format=svg the vector code is returned inline instead.
func (h *QRHandler) Download(c *gin.Context) {
	code := c.Param("code")

	vector, err := h.exporter.Render(ShortURL(h.publicBase, code))
	if err != nil {
		h.logger.Error("Failed to render QR code", zap.String("short_code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "qr_failed",
			Message: "Failed to render QR code",
		})
		return
	}

	if c.Query("format") == "svg" {
		c.Data(http.StatusOK, "image/svg+xml", []byte(vector.Markup()))
		return
	}

	exported, err := h.exporter.Export(c.Request.Context(), vector, code, &attachment{c: c})
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "qr_failed",
			Message: "Failed to export QR code",
		})
		return
	}
	if !exported {
		c.Status(http.StatusNoContent)
	}
}

// attachment delivers an exported image as the HTTP response.
type attachment struct {
	c *gin.Context
}

func (a *attachment) Deliver(ctx context.Context, img *service.ExportedImage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": img.FileName}))
	a.c.Data(http.StatusOK, "image/png", img.PNG)
	return nil
}
