// Package s3 provides an upload backend for S3-compatible object stores.
package s3

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	commonS3 "github.com/hibare/GoCommon/v2/pkg/aws/s3"
)

// Options configures the S3 backend for one request.
type Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
}

// S3 uploads export files to an S3-compatible bucket.
type S3 struct {
	s3   commonS3.ClientIface
	opts Options
}

// New creates an S3 backend with the provided options. Empty key material
// falls through to the SDK default credential chain.
func New(opts Options) *S3 {
	return &S3{opts: opts}
}

// Init establishes the S3 session and verifies the bucket is reachable.
func (s *S3) Init(ctx context.Context) error {
	client, err := commonS3.NewClient(ctx, commonS3.Options{
		Endpoint:  s.opts.Endpoint,
		Region:    s.opts.Region,
		AccessKey: s.opts.AccessKey,
		SecretKey: s.opts.SecretKey,
	})
	if err != nil {
		return fmt.Errorf("error creating s3 client: %w", err)
	}
	s.s3 = client

	// Listing the bucket root surfaces credential and bucket errors before
	// any real upload happens.
	if _, err := s.s3.ListObjectsAtPrefix(ctx, s.opts.Bucket, ""); err != nil {
		return fmt.Errorf("error checking bucket %s: %w", s.opts.Bucket, err)
	}
	return nil
}

// Name returns the name of the backend.
func (s *S3) Name() string {
	return fmt.Sprintf("s3 (%s)", s.opts.Bucket)
}

// Upload transfers a local file into the bucket under the given object name.
func (s *S3) Upload(ctx context.Context, localPath, objectName string) error {
	prefix := path.Dir(objectName)
	if prefix == "." {
		prefix = ""
	}

	slog.DebugContext(ctx, "Uploading file to S3", "file", localPath, "bucket", s.opts.Bucket, "key", objectName)
	key, err := s.s3.UploadFile(ctx, s.opts.Bucket, prefix, localPath)
	if err != nil {
		return fmt.Errorf("error uploading %s to bucket %s: %w", localPath, s.opts.Bucket, err)
	}
	slog.DebugContext(ctx, "Uploaded file to S3", "key", key)
	return nil
}
