// Package local provides an upload backend that copies export files to a
// local directory tree.
package local

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Options configures the local backend for one request.
type Options struct {
	// Root is the destination root directory (the "bucket").
	Root string
}

// Local copies export files under a destination root. Repeated uploads of
// the same object name overwrite the previous copy.
type Local struct {
	opts Options
}

// New creates a local backend with the provided options.
func New(opts Options) *Local {
	return &Local{opts: opts}
}

// Init ensures the destination root exists.
func (l *Local) Init(_ context.Context) error {
	if err := os.MkdirAll(l.opts.Root, 0750); err != nil {
		return fmt.Errorf("error creating destination root %s: %w", l.opts.Root, err)
	}
	return nil
}

// Name returns the name of the backend.
func (l *Local) Name() string {
	return fmt.Sprintf("local (%s)", l.opts.Root)
}

// Upload copies a local file under the destination root, creating
// intermediate directories as needed.
func (l *Local) Upload(ctx context.Context, localPath, objectName string) error {
	destPath := filepath.Join(l.opts.Root, filepath.FromSlash(objectName))
	if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
		return fmt.Errorf("error creating destination directory for %s: %w", destPath, err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", localPath, err)
	}
	defer src.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", destPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("error copying %s to %s: %w", localPath, destPath, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("error closing %s: %w", destPath, err)
	}

	slog.DebugContext(ctx, "Copied file to local destination", "file", localPath, "dest", destPath)
	return nil
}
