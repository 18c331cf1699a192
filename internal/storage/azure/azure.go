// Package azure provides an upload backend for Azure Blob Storage.
package azure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// ErrMissingConnectionString is returned when no credential material was
// provided; the Azure backend has no ambient fallback.
var ErrMissingConnectionString = errors.New("azure storage connection string is required")

// Options configures the Azure backend for one request.
type Options struct {
	Container        string
	ConnectionString string
}

// Azure uploads export files to an Azure Blob Storage container.
type Azure struct {
	client *azblob.Client
	opts   Options
}

// New creates an Azure backend with the provided options.
func New(opts Options) *Azure {
	return &Azure{opts: opts}
}

// Init establishes the blob service client and ensures the container exists.
func (a *Azure) Init(ctx context.Context) error {
	if a.opts.ConnectionString == "" {
		return ErrMissingConnectionString
	}

	client, err := azblob.NewClientFromConnectionString(a.opts.ConnectionString, nil)
	if err != nil {
		return fmt.Errorf("error creating azure blob client: %w", err)
	}
	a.client = client

	if _, err := a.client.CreateContainer(ctx, a.opts.Container, nil); err != nil {
		if !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return fmt.Errorf("error ensuring container %s: %w", a.opts.Container, err)
		}
	}
	return nil
}

// Name returns the name of the backend.
func (a *Azure) Name() string {
	return fmt.Sprintf("azure (%s)", a.opts.Container)
}

// Upload transfers a local file into the container under the given blob name.
func (a *Azure) Upload(ctx context.Context, localPath, objectName string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("error opening %s: %w", localPath, err)
	}
	defer f.Close()

	slog.DebugContext(ctx, "Uploading file to Azure blob storage", "file", localPath, "container", a.opts.Container, "blob", objectName)
	if _, err := a.client.UploadFile(ctx, a.opts.Container, objectName, f, nil); err != nil {
		return fmt.Errorf("error uploading %s to container %s: %w", localPath, a.opts.Container, err)
	}
	return nil
}
