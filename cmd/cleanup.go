package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/astronomer/airflow-dbcleanup-plugin/internal/database"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/export"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/storage"
)

var cleanupFlags struct {
	dryRun        bool
	olderThanDays int
	exportFormat  string
	outputPath    string
	provider      string
	connectionID  string
	bucketName    string
	secretEnvName string
	purgeTables   bool
	release       string
	tableNames    []string
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Run one cleanup and export pass",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		db, err := database.NewDB(ctx, cfg)
		if err != nil {
			return err
		}
		defer database.CloseDB(ctx, db)

		outputPath := cleanupFlags.outputPath
		if outputPath == "" {
			outputPath = cfg.Cleanup.OutputPath
		}

		params := export.Params{
			DryRun:        cleanupFlags.dryRun,
			OlderThanDays: cleanupFlags.olderThanDays,
			ExportFormat:  cleanupFlags.exportFormat,
			OutputPath:    outputPath,
			ReleaseName:   cleanupFlags.release,
			DropArchives:  cleanupFlags.purgeTables,
			TableNames:    cleanupFlags.tableNames,
			Destination: storage.Destination{
				Provider:      cleanupFlags.provider,
				Bucket:        cleanupFlags.bucketName,
				ConnectionID:  cleanupFlags.connectionID,
				SecretEnvName: cleanupFlags.secretEnvName,
			},
		}

		result := runExport(ctx, newExporter(cfg, db), newNotifier(cfg), params)
		if !result.Success {
			return errors.New(result.Err)
		}

		cmd.Println(result.Message)
		return nil
	},
}

func init() {
	f := cleanupCmd.Flags()
	f.BoolVar(&cleanupFlags.dryRun, "dry-run", true, "evaluate what would be cleaned without mutating anything")
	f.IntVar(&cleanupFlags.olderThanDays, "older-than", 90, "age horizon in days")
	f.StringVar(&cleanupFlags.exportFormat, "export-format", "csv", "export file format")
	f.StringVar(&cleanupFlags.outputPath, "output-path", "", "staging directory for export files")
	f.StringVar(&cleanupFlags.provider, "provider", "local", "upload provider (aws, gcp, azure, local)")
	f.StringVar(&cleanupFlags.connectionID, "connection-id", "", "configured storage connection ID")
	f.StringVar(&cleanupFlags.bucketName, "bucket-name", "", "bucket/container name or local destination root")
	f.StringVar(&cleanupFlags.secretEnvName, "provider-secret-env", "", "environment variable holding provider credentials")
	f.BoolVar(&cleanupFlags.purgeTables, "purge-tables", false, "drop archive tables after successful upload")
	f.StringVar(&cleanupFlags.release, "deployment-name", "", "release name used as upload path prefix")
	f.StringSliceVar(&cleanupFlags.tableNames, "tables", nil, "logical table names to process (default: all)")

	rootCmd.AddCommand(cleanupCmd)
}
