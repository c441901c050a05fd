package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileDownloader saves exported images into a directory, replacing any file
// of the same name.
type FileDownloader struct {
	Dir string
	// Saved is the path of the last delivered file.
	Saved string
}

func (d *FileDownloader) Deliver(ctx context.Context, img *ExportedImage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := d.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	path := filepath.Join(dir, filepath.Base(img.FileName))
	if err := os.WriteFile(path, img.PNG, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	d.Saved = path
	return nil
}
