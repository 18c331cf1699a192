// Package storage defines the interface for upload destinations.
package storage

import (
	"context"
	"errors"
	"os"
)

// Provider kinds selecting the upload backend.
const (
	ProviderAWS   = "aws"
	ProviderGCP   = "gcp"
	ProviderAzure = "azure"
	ProviderLocal = "local"
)

// AmbientCredentials is the sentinel secret value meaning workload-identity
// or SDK-default credentials should be used instead of explicit key material.
const AmbientCredentials = "ambient"

// ErrUnsupportedProvider is returned for unknown provider kinds.
var ErrUnsupportedProvider = errors.New("unsupported provider; currently supported providers are aws, gcp, azure and local")

// UploaderIface defines an upload destination backend.
// revive:disable-next-line exported
type UploaderIface interface {
	// Init prepares the backend (e.g., establishes a session, ensures the
	// destination container exists).
	Init(ctx context.Context) error

	// Upload transfers a local file under the given object name.
	Upload(ctx context.Context, localPath, objectName string) error

	// Name returns the name of the backend (e.g., "s3", "gcs").
	Name() string
}

// Destination describes where one request's exports are uploaded.
// Constructed once per request and passed by value.
type Destination struct {
	// Provider selects the backend: aws, gcp, azure or local.
	Provider string

	// Bucket is the bucket/container name, or the destination root for the
	// local backend.
	Bucket string

	// ConnectionID names a configured storage connection holding explicit
	// credentials. Takes precedence over SecretEnvName.
	ConnectionID string

	// SecretEnvName names an environment variable holding credential
	// material (access keys, a credentials file path, or a connection
	// string depending on the provider).
	SecretEnvName string
}

// Credentials is the resolved credential source for a destination. The
// process environment is read once here and never mutated.
type Credentials struct {
	// Ambient indicates SDK-default or workload-identity credentials.
	Ambient bool

	// Secret holds the environment-sourced credential material when not
	// ambient and no connection ID applies.
	Secret string
}

// ResolveCredentials resolves the destination's credential source from the
// named environment variable. Connection-ID resolution happens in the
// factory, which has access to the configured connections.
func ResolveCredentials(dest Destination) Credentials {
	if dest.SecretEnvName == "" {
		return Credentials{Ambient: true}
	}
	secret := os.Getenv(dest.SecretEnvName)
	if secret == "" || secret == AmbientCredentials {
		return Credentials{Ambient: true}
	}
	return Credentials{Secret: secret}
}
