// Command qrexport writes the QR code of a short link as a PNG file.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/SergeiKhy/linkshort-web/internal/config"
	"github.com/SergeiKhy/linkshort-web/internal/handler"
	"github.com/SergeiKhy/linkshort-web/internal/service"
	"go.uber.org/zap"
)

func main() {
	dir := flag.String("out", ".", "directory to write the PNG into")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: qrexport [-out dir] <short-code>")
	}
	code := flag.Arg(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exporter := service.NewQRExporter(cfg.QR.Size, logger, nil)
	vector, err := exporter.Render(handler.ShortURL(cfg.API.PublicBaseURL, code))
	if err != nil {
		logger.Fatal("Failed to render QR code", zap.Error(err))
	}

	dl := &service.FileDownloader{Dir: *dir}
	if _, err := exporter.Export(ctx, vector, code, dl); err != nil {
		logger.Fatal("Failed to export QR code", zap.Error(err))
	}

	logger.Info("QR code written", zap.String("path", dl.Saved))
}
