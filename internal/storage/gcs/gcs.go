// Package gcs provides an upload backend for Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	gstorage "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Options configures the GCS backend for one request.
type Options struct {
	Bucket string

	// CredentialsFile is a path to a service-account JSON key. Empty means
	// ambient application-default credentials.
	CredentialsFile string
}

// GCS uploads export files to a Google Cloud Storage bucket.
type GCS struct {
	client *gstorage.Client
	opts   Options
}

// New creates a GCS backend with the provided options.
func New(opts Options) *GCS {
	return &GCS{opts: opts}
}

// Init establishes the GCS client and verifies the bucket is reachable.
func (g *GCS) Init(ctx context.Context) error {
	var clientOpts []option.ClientOption
	if g.opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(g.opts.CredentialsFile))
	} else {
		slog.DebugContext(ctx, "Using application default credentials for GCS")
	}

	client, err := gstorage.NewClient(ctx, clientOpts...)
	if err != nil {
		return fmt.Errorf("error creating gcs client: %w", err)
	}
	g.client = client

	if _, err := g.client.Bucket(g.opts.Bucket).Attrs(ctx); err != nil {
		return fmt.Errorf("error checking bucket %s: %w", g.opts.Bucket, err)
	}
	return nil
}

// Name returns the name of the backend.
func (g *GCS) Name() string {
	return fmt.Sprintf("gcs (%s)", g.opts.Bucket)
}

// Upload transfers a local file into the bucket under the given object name.
func (g *GCS) Upload(ctx context.Context, localPath, objectName string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", localPath, err)
	}
	defer f.Close()

	slog.DebugContext(ctx, "Uploading file to GCS", "file", localPath, "bucket", g.opts.Bucket, "object", objectName)
	w := g.client.Bucket(g.opts.Bucket).Object(objectName).NewWriter(ctx)
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("error uploading %s to bucket %s: %w", localPath, g.opts.Bucket, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("error finalizing upload of %s to bucket %s: %w", localPath, g.opts.Bucket, err)
	}
	return nil
}
