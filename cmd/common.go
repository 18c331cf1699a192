// Package cmd provides the command-line interface for the application.
package cmd

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/astronomer/airflow-dbcleanup-plugin/internal/cleanup"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/config"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/dump"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/export"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/notifiers"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/storage"
)

func newExporter(cfg *config.Config, db *sqlx.DB) *export.Exporter {
	runner := cleanup.NewRunner(db, cfg.Cleanup.ArchivePrefix)
	dumper := dump.NewDumper(db).WithBatchSize(cfg.Cleanup.BatchSize)
	factory := func(dest storage.Destination) (storage.UploaderIface, error) {
		return storage.NewUploader(cfg, dest)
	}
	return export.NewExporter(cfg, runner, dumper, factory)
}

func newNotifier(cfg *config.Config) notifiers.NotifierStoreIface {
	notify := notifiers.NewNotifier(cfg)
	if err := notify.InitStore(); err != nil {
		slog.Error("Failed to initialize notifiers", "error", err)
		return nil
	}
	return notify
}

// runExport executes one export run and sends notifications about the
// outcome. Used by both the one-shot command and the scheduler.
func runExport(ctx context.Context, exporter export.ExporterIface, notify notifiers.NotifierStoreIface, params export.Params) export.Result {
	result := exporter.Run(ctx, params)

	if notify != nil && notify.Enabled() {
		if result.Success {
			if err := notify.NotifyRunSuccess(ctx, result.ReleaseName, result.Provider, result.Message); err != nil {
				slog.ErrorContext(ctx, "Failed to send NotifyRunSuccess", "error", err)
			}
		} else {
			if err := notify.NotifyRunFailure(ctx, result.ReleaseName, result.Err); err != nil {
				slog.ErrorContext(ctx, "Failed to send NotifyRunFailure", "error", err)
			}
		}
	}

	return result
}
