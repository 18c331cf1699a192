package storage

import (
	"fmt"
	"strings"

	"github.com/astronomer/airflow-dbcleanup-plugin/internal/config"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/storage/azure"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/storage/gcs"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/storage/local"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/storage/s3"
)

// NewUploader builds the backend for a destination, resolving credentials
// once. An explicit connection ID wins over the environment-sourced secret;
// with neither, cloud backends fall back to ambient SDK credentials.
func NewUploader(cfg *config.Config, dest Destination) (UploaderIface, error) {
	switch dest.Provider {
	case ProviderAWS:
		return newS3Uploader(cfg, dest), nil
	case ProviderGCP:
		return newGCSUploader(dest), nil
	case ProviderAzure:
		return newAzureUploader(dest), nil
	case ProviderLocal:
		return local.New(local.Options{Root: dest.Bucket}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, dest.Provider)
	}
}

func newS3Uploader(cfg *config.Config, dest Destination) UploaderIface {
	opts := s3.Options{Bucket: dest.Bucket}

	if conn, ok := cfg.Connection(dest.ConnectionID); dest.ConnectionID != "" && ok {
		opts.Endpoint = conn.Endpoint
		opts.Region = conn.Region
		opts.AccessKey = conn.AccessKey
		opts.SecretKey = conn.SecretKey
		return s3.New(opts)
	}

	// Secret env value carries "ACCESS_KEY:SECRET_KEY"; anything else
	// leaves the SDK default credential chain in charge.
	if creds := ResolveCredentials(dest); !creds.Ambient {
		if access, secret, ok := strings.Cut(creds.Secret, ":"); ok {
			opts.AccessKey = access
			opts.SecretKey = secret
		}
	}
	return s3.New(opts)
}

func newGCSUploader(dest Destination) UploaderIface {
	opts := gcs.Options{Bucket: dest.Bucket}

	// Secret env value is a path to a service-account JSON key.
	if creds := ResolveCredentials(dest); !creds.Ambient {
		opts.CredentialsFile = creds.Secret
	}
	return gcs.New(opts)
}

func newAzureUploader(dest Destination) UploaderIface {
	opts := azure.Options{Container: dest.Bucket}

	// Secret env value is a storage account connection string.
	if creds := ResolveCredentials(dest); !creds.Ambient {
		opts.ConnectionString = creds.Secret
	}
	return azure.New(opts)
}
