package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astronomer/airflow-dbcleanup-plugin/internal/cleanup"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/config"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/dump"
	"github.com/astronomer/airflow-dbcleanup-plugin/internal/storage"
)

type runCall struct {
	dryRun bool
	cutoff time.Time
	tables []string
}

type fakeRunner struct {
	archives    []string
	runCalls    []runCall
	dropped     []string
	runErr      error
	discoverErr error
	dropErr     error
}

func (f *fakeRunner) Run(_ context.Context, scope map[string]cleanup.RetentionConfig, cutoff time.Time, dryRun bool) (*cleanup.RunStats, error) {
	f.runCalls = append(f.runCalls, runCall{dryRun: dryRun, cutoff: cutoff, tables: cleanup.ScopeTableNames(scope)})
	if f.runErr != nil {
		return nil, f.runErr
	}
	return &cleanup.RunStats{TablesProcessed: len(scope)}, nil
}

func (f *fakeRunner) DiscoverArchiveTables(_ context.Context) ([]string, error) {
	if f.discoverErr != nil {
		return nil, f.discoverErr
	}
	return f.archives, nil
}

func (f *fakeRunner) DropTable(_ context.Context, tableName string) error {
	if f.dropErr != nil {
		return f.dropErr
	}
	f.dropped = append(f.dropped, tableName)
	return nil
}

type fakeUploader struct {
	initErr error
	uploads []string
	failOn  map[string]error
}

func (f *fakeUploader) Init(_ context.Context) error { return f.initErr }

func (f *fakeUploader) Upload(_ context.Context, _ string, objectName string) error {
	if err, ok := f.failOn[objectName]; ok {
		return err
	}
	f.uploads = append(f.uploads, objectName)
	return nil
}

func (f *fakeUploader) Name() string { return "fake" }

type fakeDumper struct {
	dumps []string
	err   error
}

func (f *fakeDumper) DumpTable(_ context.Context, tableName, filePath, _ string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.dumps = append(f.dumps, tableName)
	if err := os.WriteFile(filePath, []byte("id\n1\n"), 0640); err != nil {
		return 0, err
	}
	return 1, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Cleanup: config.CleanupConfig{
			ReleaseName:   "airflow",
			ArchivePrefix: "_airflow_deleted__",
		},
	}
}

func newTestExporter(runner *fakeRunner, dumper dump.DumperIface, uploader storage.UploaderIface) *Exporter {
	factory := func(_ storage.Destination) (storage.UploaderIface, error) {
		return uploader, nil
	}
	return NewExporter(testConfig(), runner, dumper, factory)
}

func localParams(t *testing.T, dryRun, drop bool, tables ...string) Params {
	t.Helper()
	return Params{
		DryRun:        dryRun,
		OlderThanDays: 30,
		ExportFormat:  "csv",
		OutputPath:    t.TempDir(),
		ReleaseName:   "release-1",
		DropArchives:  drop,
		TableNames:    tables,
		Destination:   storage.Destination{Provider: storage.ProviderLocal, Bucket: t.TempDir()},
	}
}

func TestRun_DryRunSkipsExport(t *testing.T) {
	runner := &fakeRunner{archives: []string{"_airflow_deleted__dag__x"}}
	dumper := &fakeDumper{}
	uploader := &fakeUploader{}

	result := newTestExporter(runner, dumper, uploader).Run(context.Background(), localParams(t, true, true, "dag"))

	assert.True(t, result.Success)
	assert.Equal(t, "release-1", result.ReleaseName)
	assert.Equal(t, "skipping export", result.Err)
	assert.Contains(t, result.Message, "dry run")

	require.Len(t, runner.runCalls, 1)
	assert.True(t, runner.runCalls[0].dryRun)
	assert.Equal(t, []string{"dag"}, runner.runCalls[0].tables)

	// Only the connectivity marker is uploaded on a dry run.
	assert.Equal(t, []string{"release-1/verify.txt"}, uploader.uploads)
	assert.Empty(t, dumper.dumps)
	assert.Empty(t, runner.dropped)
}

func TestRun_ProbeInitFailureAbortsEverything(t *testing.T) {
	runner := &fakeRunner{}
	uploader := &fakeUploader{initErr: errors.New("bad credentials")}

	result := newTestExporter(runner, &fakeDumper{}, uploader).Run(context.Background(), localParams(t, false, true, "dag"))

	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "failed to verify provider credentials")
	assert.Empty(t, runner.runCalls, "cleanup must not run when the probe fails")
	assert.Empty(t, runner.dropped)
}

func TestRun_ProbeUploadFailureAbortsEverything(t *testing.T) {
	runner := &fakeRunner{}
	uploader := &fakeUploader{failOn: map[string]error{"release-1/verify.txt": errors.New("unreachable")}}

	result := newTestExporter(runner, &fakeDumper{}, uploader).Run(context.Background(), localParams(t, false, false, "dag"))

	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "failed to verify provider credentials")
	assert.Empty(t, runner.runCalls)
}

func TestRun_UnknownTablesFailBeforeCleanup(t *testing.T) {
	runner := &fakeRunner{}
	uploader := &fakeUploader{}

	result := newTestExporter(runner, &fakeDumper{}, uploader).Run(context.Background(), localParams(t, false, false, "nonexistent"))

	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "no tables selected")
	assert.Empty(t, runner.runCalls)
}

func TestRun_ExportsAndDropsMatchingArchives(t *testing.T) {
	runner := &fakeRunner{archives: []string{
		"_airflow_deleted__dag__20240101T000000",
		"_airflow_deleted__dag_run__20240101T000000",
		"_airflow_deleted__stranger__20240101T000000",
	}}
	dumper := &fakeDumper{}
	uploader := &fakeUploader{}

	result := newTestExporter(runner, dumper, uploader).Run(context.Background(), localParams(t, false, true, "dag", "dag_run"))

	assert.True(t, result.Success)
	assert.Contains(t, result.Message, "completed")

	require.Len(t, runner.runCalls, 1)
	assert.False(t, runner.runCalls[0].dryRun)

	assert.Equal(t, []string{
		"_airflow_deleted__dag__20240101T000000",
		"_airflow_deleted__dag_run__20240101T000000",
	}, dumper.dumps, "archive of an out-of-scope entity must be skipped")

	assert.Equal(t, []string{
		"release-1/verify.txt",
		"release-1/_airflow_deleted__dag__20240101T000000.csv",
		"release-1/_airflow_deleted__dag_run__20240101T000000.csv",
	}, uploader.uploads)

	assert.Equal(t, dumper.dumps, runner.dropped)
}

func TestRun_NoDropWhenNotRequested(t *testing.T) {
	runner := &fakeRunner{archives: []string{"_airflow_deleted__dag__x"}}
	dumper := &fakeDumper{}
	uploader := &fakeUploader{}
	params := localParams(t, false, false, "dag")

	result := newTestExporter(runner, dumper, uploader).Run(context.Background(), params)

	assert.True(t, result.Success)
	assert.Empty(t, runner.dropped)

	// The export file stays in the staging directory when drop is off.
	_, err := os.Stat(filepath.Join(params.OutputPath, "_airflow_deleted__dag__x.csv"))
	assert.NoError(t, err)
}

func TestRun_UploadFailureAbortsRemainingTables(t *testing.T) {
	runner := &fakeRunner{archives: []string{
		"_airflow_deleted__dag__a",
		"_airflow_deleted__log__b",
		"_airflow_deleted__xcom__c",
	}}
	dumper := &fakeDumper{}
	uploader := &fakeUploader{failOn: map[string]error{
		"release-1/_airflow_deleted__log__b.csv": errors.New("permission denied"),
	}}

	result := newTestExporter(runner, dumper, uploader).Run(context.Background(), localParams(t, false, true, "dag", "log", "xcom"))

	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "upload of table _airflow_deleted__log__b failed")

	// The failing table was dumped but the one after it was never touched.
	assert.Equal(t, []string{"_airflow_deleted__dag__a", "_airflow_deleted__log__b"}, dumper.dumps)

	// Tables before the failure keep their drop; the failed table and all
	// later tables are never dropped.
	assert.Equal(t, []string{"_airflow_deleted__dag__a"}, runner.dropped)
}

func TestRun_DropRemovesExportFileFirst(t *testing.T) {
	runner := &fakeRunner{archives: []string{"_airflow_deleted__dag__x"}}
	dumper := &fakeDumper{}
	uploader := &fakeUploader{}
	params := localParams(t, false, true, "dag")

	result := newTestExporter(runner, dumper, uploader).Run(context.Background(), params)

	assert.True(t, result.Success)
	_, err := os.Stat(filepath.Join(params.OutputPath, "_airflow_deleted__dag__x.csv"))
	assert.True(t, os.IsNotExist(err), "export file must be removed after a successful upload with drop requested")
}

func TestRun_CleanupErrorFailsRun(t *testing.T) {
	runner := &fakeRunner{runErr: errors.New("deadlock detected")}
	uploader := &fakeUploader{}

	result := newTestExporter(runner, &fakeDumper{}, uploader).Run(context.Background(), localParams(t, false, false, "dag"))

	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "deadlock detected")
}

func TestRun_ReleaseNameFallbacks(t *testing.T) {
	runner := &fakeRunner{}
	uploader := &fakeUploader{}
	exporter := newTestExporter(runner, &fakeDumper{}, uploader)

	params := localParams(t, true, false, "dag")
	params.ReleaseName = ""
	result := exporter.Run(context.Background(), params)
	assert.Equal(t, "airflow", result.ReleaseName, "falls back to the configured release name")
}

func TestRun_EndToEndLocalProvider(t *testing.T) {
	db, err := sqlx.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE _airflow_deleted__dag__runs (id INTEGER PRIMARY KEY, dag_id TEXT)`)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := db.Exec(`INSERT INTO _airflow_deleted__dag__runs (dag_id) VALUES (?)`, fmt.Sprintf("dag-%d", i))
		require.NoError(t, err)
	}

	destRoot := filepath.Join(t.TempDir(), "exp")
	cfg := testConfig()
	runner := &fakeRunner{archives: []string{"_airflow_deleted__dag__runs"}}
	factory := func(dest storage.Destination) (storage.UploaderIface, error) {
		return storage.NewUploader(cfg, dest)
	}
	exporter := NewExporter(cfg, runner, dump.NewDumper(db), factory)

	params := Params{
		DryRun:        false,
		OlderThanDays: 30,
		ExportFormat:  "csv",
		OutputPath:    t.TempDir(),
		ReleaseName:   "release-1",
		DropArchives:  true,
		TableNames:    []string{"dag"},
		Destination:   storage.Destination{Provider: storage.ProviderLocal, Bucket: destRoot},
	}

	result := exporter.Run(context.Background(), params)
	require.True(t, result.Success, "unexpected failure: %s", result.Err)

	content, err := os.ReadFile(filepath.Join(destRoot, "release-1", "_airflow_deleted__dag__runs.csv"))
	require.NoError(t, err)
	assert.Equal(t, "id,dag_id\n1,dag-0\n2,dag-1\n3,dag-2\n", string(content))

	assert.Equal(t, []string{"_airflow_deleted__dag__runs"}, runner.dropped)
}

func TestRun_EndToEndUnwritableDestination(t *testing.T) {
	// A regular file in place of the destination root makes the probe fail.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte(""), 0640))

	cfg := testConfig()
	runner := &fakeRunner{archives: []string{"_airflow_deleted__dag__runs"}}
	factory := func(dest storage.Destination) (storage.UploaderIface, error) {
		return storage.NewUploader(cfg, dest)
	}
	exporter := NewExporter(cfg, runner, &fakeDumper{}, factory)

	params := localParams(t, false, true, "dag")
	params.Destination = storage.Destination{Provider: storage.ProviderLocal, Bucket: filepath.Join(blocker, "exp")}

	result := exporter.Run(context.Background(), params)
	assert.False(t, result.Success)
	assert.Empty(t, runner.dropped, "nothing may be dropped when the destination is unwritable")
}

func TestRun_UnsupportedProviderFails(t *testing.T) {
	cfg := testConfig()
	factory := func(dest storage.Destination) (storage.UploaderIface, error) {
		return storage.NewUploader(cfg, dest)
	}
	exporter := NewExporter(cfg, &fakeRunner{}, &fakeDumper{}, factory)

	params := localParams(t, false, false, "dag")
	params.Destination.Provider = "ftp"

	result := exporter.Run(context.Background(), params)
	assert.False(t, result.Success)
	assert.Contains(t, result.Err, "unsupported provider")
}
