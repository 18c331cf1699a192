package dump

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T, rows int) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE archived (id INTEGER PRIMARY KEY, payload TEXT, note TEXT)`)
	require.NoError(t, err)

	tx, err := db.Beginx()
	require.NoError(t, err)
	stmt, err := tx.Prepare(`INSERT INTO archived (payload, note) VALUES (?, ?)`)
	require.NoError(t, err)
	for i := 0; i < rows; i++ {
		_, err := stmt.Exec(fmt.Sprintf("row-%d", i), "a,comma")
		require.NoError(t, err)
	}
	require.NoError(t, stmt.Close())
	require.NoError(t, tx.Commit())

	return db
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestDumpTable_RowCountsAcrossBatchBoundaries(t *testing.T) {
	header := []string{"id", "payload", "note"}

	for _, rows := range []int{0, 1, 4999, 5000, 5001, 12000} {
		t.Run(fmt.Sprintf("%d_rows", rows), func(t *testing.T) {
			db := newTestDB(t, rows)
			filePath := filepath.Join(t.TempDir(), "archived.csv")

			written, err := NewDumper(db).DumpTable(context.Background(), "archived", filePath, FormatCSV)
			require.NoError(t, err)
			assert.Equal(t, int64(rows), written)

			records := readCSV(t, filePath)
			require.Len(t, records, rows+1, "expected header plus %d data rows", rows)
			assert.Equal(t, header, records[0])

			// Header appears exactly once, regardless of batch count.
			headerCount := 0
			for _, rec := range records {
				if rec[0] == "id" {
					headerCount++
				}
			}
			assert.Equal(t, 1, headerCount)
		})
	}
}

func TestDumpTable_PreservesValues(t *testing.T) {
	db := newTestDB(t, 2)
	filePath := filepath.Join(t.TempDir(), "archived.csv")

	_, err := NewDumper(db).DumpTable(context.Background(), "archived", filePath, FormatCSV)
	require.NoError(t, err)

	records := readCSV(t, filePath)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"1", "row-0", "a,comma"}, records[1])
	assert.Equal(t, []string{"2", "row-1", "a,comma"}, records[2])
}

func TestDumpTable_UnsupportedFormat(t *testing.T) {
	db := newTestDB(t, 1)
	filePath := filepath.Join(t.TempDir(), "archived.json")

	_, err := NewDumper(db).DumpTable(context.Background(), "archived", filePath, "json")
	require.ErrorIs(t, err, ErrUnsupportedFormat)

	_, statErr := os.Stat(filePath)
	assert.True(t, os.IsNotExist(statErr), "no file should be created for an unsupported format")
}

func TestDumpTable_InvalidTableName(t *testing.T) {
	db := newTestDB(t, 0)

	_, err := NewDumper(db).DumpTable(context.Background(), "archived; DROP TABLE archived", filepath.Join(t.TempDir(), "x.csv"), FormatCSV)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")
}

func TestDumpTable_NullsBecomeEmptyFields(t *testing.T) {
	db := newTestDB(t, 0)
	_, err := db.Exec(`INSERT INTO archived (payload, note) VALUES (NULL, NULL)`)
	require.NoError(t, err)

	filePath := filepath.Join(t.TempDir(), "archived.csv")
	written, err := NewDumper(db).DumpTable(context.Background(), "archived", filePath, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, int64(1), written)

	records := readCSV(t, filePath)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"1", "", ""}, records[1])
}

func TestDumpTable_SmallBatchSize(t *testing.T) {
	db := newTestDB(t, 7)
	filePath := filepath.Join(t.TempDir(), "archived.csv")

	written, err := NewDumper(db).WithBatchSize(3).DumpTable(context.Background(), "archived", filePath, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, int64(7), written)

	records := readCSV(t, filePath)
	assert.Len(t, records, 8)
}
