// Package constants holds shared defaults for the application.
package constants

const (
	// ProgramIdentifier is used in notifications and user agent strings.
	ProgramIdentifier = "airflow-dbcleanup"

	// Version is the application version.
	Version = "1.0.4"

	// ArchiveTablePrefix is the prefix the retention runner gives to
	// archive tables holding aged-out rows.
	ArchiveTablePrefix = "_airflow_deleted__"

	// DefaultBatchSize is the number of rows fetched and flushed per
	// batch while dumping an archive table.
	DefaultBatchSize = 5000

	// DefaultExportFormat is the only supported export format.
	DefaultExportFormat = "csv"

	// DefaultOutputPath is the staging directory for export files.
	DefaultOutputPath = "/tmp"

	// DefaultReleaseName is the final fallback for the deployment release
	// used as the object path prefix.
	DefaultReleaseName = "airflow"

	// VerifyFileName is the marker object uploaded by the pre-flight
	// connectivity probe.
	VerifyFileName = "verify.txt"

	// DefaultListenAddr is the HTTP server bind address.
	DefaultListenAddr = ":8080"
)
