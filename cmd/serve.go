package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/spf13/cobra"

	"github.com/astronomer/airflow-dbcleanup-plugin/internal/api"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/config"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/database"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/export"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/notifiers"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the cleanup HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, err := database.NewDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer database.CloseDB(ctx, db)

		exporter := newExporter(cfg, db)
		notify := newNotifier(cfg)
		handler := api.NewHandler(cfg, exporter, notify)
		server := api.NewServer(cfg, handler)

		var scheduler *gocron.Scheduler
		if cfg.Cleanup.Schedule.Enabled {
			scheduler, err = startScheduler(ctx, cfg, exporter, notify)
			if err != nil {
				return err
			}
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(ctx)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		slog.Info("Shutting down")
		if scheduler != nil {
			scheduler.Stop()
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Stop(shutdownCtx)
	},
}

// startScheduler runs recurring cleanup with the configured defaults.
func startScheduler(ctx context.Context, cfg *config.Config, exporter export.ExporterIface, notify notifiers.NotifierStoreIface) (*gocron.Scheduler, error) {
	sched := cfg.Cleanup.Schedule
	params := export.Params{
		DryRun:        sched.DryRun,
		OlderThanDays: sched.OlderThanDays,
		ExportFormat:  "csv",
		OutputPath:    cfg.Cleanup.OutputPath,
		ReleaseName:   cfg.Cleanup.ReleaseName,
		DropArchives:  sched.PurgeTables,
		TableNames:    sched.TableNames,
		Destination: storage.Destination{
			Provider:      sched.Provider,
			Bucket:        sched.BucketName,
			ConnectionID:  sched.ConnectionID,
			SecretEnvName: sched.ProviderSecretEnv,
		},
	}

	scheduler := gocron.NewScheduler(time.UTC)
	_, err := scheduler.Cron(sched.Cron).Do(func() {
		slog.InfoContext(ctx, "Running scheduled cleanup", "cron", sched.Cron)
		result := runExport(ctx, exporter, notify, params)
		if !result.Success {
			slog.ErrorContext(ctx, "Scheduled cleanup failed", "error", result.Err)
		}
	})
	if err != nil {
		return nil, err
	}

	scheduler.StartAsync()
	slog.InfoContext(ctx, "Cleanup schedule started", "cron", sched.Cron)
	return scheduler, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
