package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0640))
	return path
}

func TestLocal_Upload(t *testing.T) {
	root := filepath.Join(t.TempDir(), "exp")
	src := writeFile(t, t.TempDir(), "data.csv", "a,b\n1,2\n")

	store := New(Options{Root: root})
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))
	require.NoError(t, store.Upload(ctx, src, "airflow/data.csv"))

	got, err := os.ReadFile(filepath.Join(root, "airflow", "data.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(got))
}

func TestLocal_UploadIdempotent(t *testing.T) {
	root := t.TempDir()
	dir := t.TempDir()
	first := writeFile(t, dir, "first.csv", "old content")
	second := writeFile(t, dir, "second.csv", "new content")

	store := New(Options{Root: root})
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))

	require.NoError(t, store.Upload(ctx, first, "airflow/data.csv"))
	require.NoError(t, store.Upload(ctx, second, "airflow/data.csv"))

	got, err := os.ReadFile(filepath.Join(root, "airflow", "data.csv"))
	require.NoError(t, err)
	assert.Equal(t, "new content", string(got))
}

func TestLocal_InitExistingRoot(t *testing.T) {
	root := t.TempDir()
	store := New(Options{Root: root})

	require.NoError(t, store.Init(context.Background()))
	require.NoError(t, store.Init(context.Background()))
}

func TestLocal_InitUnwritableRoot(t *testing.T) {
	// A regular file in place of the destination root makes MkdirAll fail.
	blocker := writeFile(t, t.TempDir(), "blocker", "")
	store := New(Options{Root: filepath.Join(blocker, "exp")})

	err := store.Init(context.Background())
	require.Error(t, err)
}

func TestLocal_UploadMissingSource(t *testing.T) {
	store := New(Options{Root: t.TempDir()})
	ctx := context.Background()
	require.NoError(t, store.Init(ctx))

	err := store.Upload(ctx, filepath.Join(t.TempDir(), "missing.csv"), "airflow/data.csv")
	require.Error(t, err)
}

func TestLocal_Name(t *testing.T) {
	store := New(Options{Root: "/tmp/exp"})
	assert.Equal(t, "local (/tmp/exp)", store.Name())
}
