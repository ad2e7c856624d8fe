package extract

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	log "github.com/sirupsen/logrus"
)

// Zip unpacks zip archives in-process
type Zip struct{}

func (Zip) Extract(ctx context.Context, archive, outDir string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrExtraction, archive, err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Warnf("failed to close archive %s: %v", archive, err)
		}
	}()

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("%w: create output directory: %v", ErrExtraction, err)
	}

	for _, f := range r.File {
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrExtraction, ctx.Err())
		}

		if f.FileInfo().IsDir() {
			continue
		}

		name := path.Base(strings.ReplaceAll(f.Name, `\`, "/"))
		if name == "." || name == ".." || name == "/" {
			return fmt.Errorf("%w: invalid entry name %q", ErrExtraction, f.Name)
		}

		if err := extractFile(f, filepath.Join(outDir, name)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrExtraction, f.Name, err)
		}
	}

	return nil
}

func extractFile(f *zip.File, dst string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() {
		if err := rc.Close(); err != nil {
			log.Warnf("failed to close entry %s: %v", f.Name, err)
		}
	}()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}
