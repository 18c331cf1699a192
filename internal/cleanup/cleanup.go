package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
)

// archiveTimestampLayout names archive tables uniquely per run.
const archiveTimestampLayout = "20060102T150405"

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RunnerIface defines the retention cleanup operations used by the export
// orchestrator.
// revive:disable-next-line exported
type RunnerIface interface {
	Run(ctx context.Context, scope map[string]RetentionConfig, cutoff time.Time, dryRun bool) (*RunStats, error)
	DiscoverArchiveTables(ctx context.Context) ([]string, error)
	DropTable(ctx context.Context, tableName string) error
}

// RunStats summarizes a retention cleanup run.
type RunStats struct {
	TablesProcessed int
	RowsArchived    int64
}

// Runner moves aged rows out of eligible metadata tables into prefixed
// archive tables.
type Runner struct {
	db     *sqlx.DB
	prefix string
}

// NewRunner creates a Runner using the given archive table prefix.
func NewRunner(db *sqlx.DB, prefix string) *Runner {
	return &Runner{db: db, prefix: prefix}
}

// Run ages out rows older than cutoff for every table in scope. Each table
// is handled in its own transaction: matching rows are copied into a fresh
// archive table and then deleted from the source. Tables with no matching
// rows get no archive table. In dry-run mode nothing is mutated; candidate
// rows are only counted.
func (r *Runner) Run(ctx context.Context, scope map[string]RetentionConfig, cutoff time.Time, dryRun bool) (*RunStats, error) {
	stats := &RunStats{}

	for _, tableName := range ScopeTableNames(scope) {
		if !identPattern.MatchString(tableName) {
			return nil, fmt.Errorf("invalid table name: %s", tableName)
		}
		retention := scope[tableName]
		if !identPattern.MatchString(retention.RecencyColumn) {
			return nil, fmt.Errorf("invalid recency column for table %s: %s", tableName, retention.RecencyColumn)
		}

		count, err := r.countCandidates(ctx, tableName, retention.RecencyColumn, cutoff)
		if err != nil {
			return nil, err
		}

		if dryRun {
			slog.InfoContext(ctx, "Dry run: rows eligible for archival", "table", tableName, "rows", count, "cutoff", cutoff)
			stats.TablesProcessed++
			stats.RowsArchived += count
			continue
		}

		if count == 0 {
			slog.DebugContext(ctx, "No rows to archive", "table", tableName, "cutoff", cutoff)
			stats.TablesProcessed++
			continue
		}

		archiveName := fmt.Sprintf("%s%s__%s", r.prefix, tableName, time.Now().UTC().Format(archiveTimestampLayout))
		if err := r.archiveTable(ctx, tableName, archiveName, retention.RecencyColumn, cutoff); err != nil {
			return nil, err
		}

		slog.InfoContext(ctx, "Archived aged rows", "table", tableName, "archive", archiveName, "rows", count)
		stats.TablesProcessed++
		stats.RowsArchived += count
	}

	return stats, nil
}

func (r *Runner) countCandidates(ctx context.Context, tableName, recencyColumn string, cutoff time.Time) (int64, error) {
	var count int64
	query := r.db.Rebind(fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s < ?", tableName, recencyColumn))
	if err := r.db.GetContext(ctx, &count, query, cutoff); err != nil {
		return 0, fmt.Errorf("error counting rows in %s: %w", tableName, err)
	}
	return count, nil
}

func (r *Runner) archiveTable(ctx context.Context, tableName, archiveName, recencyColumn string, cutoff time.Time) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction for %s: %w", tableName, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	create := tx.Rebind(fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s WHERE %s < ?", archiveName, tableName, recencyColumn))
	if _, err := tx.ExecContext(ctx, create, cutoff); err != nil {
		return fmt.Errorf("error archiving rows from %s: %w", tableName, err)
	}

	del := tx.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s < ?", tableName, recencyColumn))
	if _, err := tx.ExecContext(ctx, del, cutoff); err != nil {
		return fmt.Errorf("error deleting archived rows from %s: %w", tableName, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing archival of %s: %w", tableName, err)
	}
	return nil
}

// DropTable drops an archive table. The name comes from schema
// introspection, never from request input.
func (r *Runner) DropTable(ctx context.Context, tableName string) error {
	if !identPattern.MatchString(tableName) {
		return fmt.Errorf("invalid table name: %s", tableName)
	}
	if _, err := r.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE %s", tableName)); err != nil {
		return fmt.Errorf("error dropping table %s: %w", tableName, err)
	}
	return nil
}
