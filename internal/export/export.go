// Package export orchestrates retention cleanup, archive table export and
// upload, and optional archive disposal.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/astronomer/airflow-dbcleanup-plugin/internal/cleanup"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/config"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/constants"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/dump"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/storage"
)

// Params is the immutable value bundle for one export request.
type Params struct {
	DryRun        bool
	OlderThanDays int
	ExportFormat  string
	OutputPath    string
	Destination   storage.Destination
	ReleaseName   string
	DropArchives  bool
	TableNames    []string
}

// Result is the uniform outcome propagated unchanged to the HTTP layer.
type Result struct {
	Success     bool
	ReleaseName string
	Provider    string
	Err         string
	Message     string
}

// UploaderFactory builds the upload backend for a destination.
type UploaderFactory func(dest storage.Destination) (storage.UploaderIface, error)

// ExporterIface defines the orchestration entry point.
// revive:disable-next-line exported
type ExporterIface interface {
	Run(ctx context.Context, params Params) Result
}

// Exporter drives the full pipeline: probe destination, run retention
// cleanup, then dump, upload and optionally drop each archive table.
type Exporter struct {
	cfg         *config.Config
	runner      cleanup.RunnerIface
	dumper      dump.DumperIface
	uploaderFor UploaderFactory
}

// NewExporter creates an Exporter with its collaborators.
func NewExporter(cfg *config.Config, runner cleanup.RunnerIface, dumper dump.DumperIface, uploaderFor UploaderFactory) *Exporter {
	return &Exporter{
		cfg:         cfg,
		runner:      runner,
		dumper:      dumper,
		uploaderFor: uploaderFor,
	}
}

// Run executes one export request synchronously. The first failure stops
// the pipeline; a table is only ever dropped after its own upload
// succeeded.
func (e *Exporter) Run(ctx context.Context, params Params) Result {
	release := params.ReleaseName
	if release == "" {
		release = e.cfg.Cleanup.ReleaseName
	}
	if release == "" {
		release = constants.DefaultReleaseName
	}
	provider := params.Destination.Provider

	fail := func(err error) Result {
		return Result{ReleaseName: release, Provider: provider, Err: err.Error()}
	}

	uploader, err := e.uploaderFor(params.Destination)
	if err != nil {
		return fail(err)
	}

	// The probe runs before any destructive work so credential and
	// connectivity errors are caught before a single table is dropped.
	if err := e.probeDestination(ctx, uploader, params.OutputPath, release); err != nil {
		return fail(fmt.Errorf("failed to verify provider credentials: %w", err))
	}

	scope, err := cleanup.ResolveScope(ctx, params.TableNames)
	if err != nil {
		return fail(err)
	}

	days := params.OlderThanDays
	if days < 0 {
		days = -days
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	if params.DryRun {
		slog.InfoContext(ctx, "Performing cleanup dry run", "release", release, "cutoff", cutoff)
		if _, err := e.runner.Run(ctx, scope, cutoff, true); err != nil {
			return fail(err)
		}
		return Result{
			Success:     true,
			ReleaseName: release,
			Provider:    provider,
			Err:         "skipping export",
			Message:     fmt.Sprintf("skipping export for %s as dry run is enabled", release),
		}
	}

	slog.InfoContext(ctx, "Cleanup initiated", "release", release, "cutoff", cutoff)
	stats, err := e.runner.Run(ctx, scope, cutoff, false)
	if err != nil {
		return fail(err)
	}
	slog.InfoContext(ctx, "Cleanup completed, proceeding with export selection", "tables", stats.TablesProcessed, "rows_archived", stats.RowsArchived)

	archiveTables, err := e.runner.DiscoverArchiveTables(ctx)
	if err != nil {
		return fail(err)
	}

	prefix := e.cfg.Cleanup.ArchivePrefix
	exportCount := 0
	droppedCount := 0
	for _, tableName := range archiveTables {
		if !cleanup.MatchesScope(prefix, tableName, scope) {
			continue
		}

		slog.InfoContext(ctx, "Exporting table", "table", tableName)
		filePath := filepath.Join(params.OutputPath, tableName+"."+params.ExportFormat)
		rows, err := e.dumper.DumpTable(ctx, tableName, filePath, params.ExportFormat)
		if err != nil {
			return fail(err)
		}
		exportCount++

		objectName := path.Join(release, tableName+"."+params.ExportFormat)
		if err := uploader.Upload(ctx, filePath, objectName); err != nil {
			return fail(fmt.Errorf("upload of table %s failed: %w", tableName, err))
		}
		slog.InfoContext(ctx, "Exported table", "table", tableName, "rows", rows, "object", objectName)

		if params.DropArchives {
			if err := os.Remove(filePath); err != nil {
				return fail(fmt.Errorf("error removing export file %s: %w", filePath, err))
			}
			slog.InfoContext(ctx, "Dropping archived table", "table", tableName)
			if err := e.runner.DropTable(ctx, tableName); err != nil {
				return fail(err)
			}
			droppedCount++
		}
	}

	slog.InfoContext(ctx, "Export run completed", "exported_tables", exportCount, "dropped_tables", droppedCount)
	return Result{
		Success:     true,
		ReleaseName: release,
		Provider:    provider,
		Message:     fmt.Sprintf("%s data exported to provider %s completed", release, provider),
	}
}

// probeDestination writes a small marker file and uploads it to verify the
// destination is reachable with the resolved credentials.
func (e *Exporter) probeDestination(ctx context.Context, uploader storage.UploaderIface, outputPath, release string) error {
	if err := uploader.Init(ctx); err != nil {
		return err
	}

	if err := os.MkdirAll(outputPath, 0750); err != nil {
		return fmt.Errorf("error creating staging directory %s: %w", outputPath, err)
	}

	markerPath := filepath.Join(outputPath, constants.VerifyFileName)
	content := fmt.Sprintf("Marker content for %s to verify bucket existence", release)
	if err := os.WriteFile(markerPath, []byte(content), 0640); err != nil {
		return fmt.Errorf("error writing marker file %s: %w", markerPath, err)
	}

	return uploader.Upload(ctx, markerPath, path.Join(release, constants.VerifyFileName))
}
