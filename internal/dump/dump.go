// Package dump streams database tables to delimited files in bounded-memory
// batches.
package dump

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/astronomer/airflow-dbcleanup-plugin/internal/constants"
)

// FormatCSV is the only supported export format.
const FormatCSV = "csv"

// ErrUnsupportedFormat is returned for any export format other than csv.
var ErrUnsupportedFormat = errors.New("unsupported export format; currently supported formats: csv")

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DumperIface defines table dumping as used by the export orchestrator.
// revive:disable-next-line exported
type DumperIface interface {
	DumpTable(ctx context.Context, tableName, filePath, format string) (int64, error)
}

// Dumper writes full table contents to files, flushing in fixed-size row
// batches so the whole table is never held in memory.
type Dumper struct {
	db        *sqlx.DB
	batchSize int
}

// NewDumper creates a Dumper with the default batch size.
func NewDumper(db *sqlx.DB) *Dumper {
	return &Dumper{db: db, batchSize: constants.DefaultBatchSize}
}

// WithBatchSize overrides the flush batch size.
func (d *Dumper) WithBatchSize(n int) *Dumper {
	if n > 0 {
		d.batchSize = n
	}
	return d
}

// DumpTable streams the named table into filePath. The column header is
// written exactly once, followed by every row. Returns the number of data
// rows written. The table name is sourced from schema introspection, not
// request input; it is still validated as a bare identifier.
func (d *Dumper) DumpTable(ctx context.Context, tableName, filePath, format string) (int64, error) {
	if format != FormatCSV {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if !identPattern.MatchString(tableName) {
		return 0, fmt.Errorf("invalid table name: %s", tableName)
	}

	rows, err := d.db.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %s", tableName))
	if err != nil {
		return 0, fmt.Errorf("error reading table %s: %w", tableName, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("error reading columns of %s: %w", tableName, err)
	}

	f, err := os.Create(filePath)
	if err != nil {
		return 0, fmt.Errorf("error creating export file %s: %w", filePath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return 0, fmt.Errorf("error writing header for %s: %w", tableName, err)
	}

	var written int64
	inBatch := 0
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return written, fmt.Errorf("error scanning row from %s: %w", tableName, err)
		}

		record := make([]string, len(values))
		for i, v := range values {
			record[i] = formatValue(v)
		}
		if err := w.Write(record); err != nil {
			return written, fmt.Errorf("error writing row from %s: %w", tableName, err)
		}

		written++
		inBatch++
		if inBatch >= d.batchSize {
			w.Flush()
			if err := w.Error(); err != nil {
				return written, fmt.Errorf("error flushing export file %s: %w", filePath, err)
			}
			inBatch = 0
		}
	}
	if err := rows.Err(); err != nil {
		return written, fmt.Errorf("error iterating rows of %s: %w", tableName, err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return written, fmt.Errorf("error flushing export file %s: %w", filePath, err)
	}
	if err := f.Close(); err != nil {
		return written, fmt.Errorf("error closing export file %s: %w", filePath, err)
	}

	return written, nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(val)
	}
}
