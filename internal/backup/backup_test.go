package backup

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bdmihai/pyphotodb/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fileSnapshot []byte

func (f fileSnapshot) Snapshot(_ context.Context, dst string) error {
	return os.WriteFile(dst, f, 0o644)
}

type failingSnapshot struct{}

func (failingSnapshot) Snapshot(context.Context, string) error {
	return errors.New("disk full")
}

func dirs(t *testing.T) (string, string) {
	t.Helper()

	root := t.TempDir()
	backups, scratch := filepath.Join(root, "backup"), filepath.Join(root, "cache")
	require.NoError(t, os.Mkdir(backups, 0o755))
	require.NoError(t, os.Mkdir(scratch, 0o755))

	return backups, scratch
}

func TestWriteAndExtract(t *testing.T) {
	backups, scratch := dirs(t)
	content := bytes.Repeat([]byte("catalog page "), 1000)
	now := time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local)

	path, err := NewWriter(backups, scratch, 0, nil).Write(context.Background(), fileSnapshot(content), now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(backups, "2024-05-06-07-08-09.000.s3db.zst"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(len(content)))

	staged, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, staged)

	dst := filepath.Join(t.TempDir(), "restored.s3db")
	require.NoError(t, Extract(path, dst))
	restored, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, content, restored)

	assert.Error(t, Extract(path, dst))
}

func TestWriteRefusesExistingBackup(t *testing.T) {
	backups, scratch := dirs(t)
	w := NewWriter(backups, scratch, 0, nil)
	now := time.Now()

	_, err := w.Write(context.Background(), fileSnapshot("a"), now)
	require.NoError(t, err)

	_, err = w.Write(context.Background(), fileSnapshot("b"), now)
	assert.Error(t, err)
}

func TestWriteSnapshotFailure(t *testing.T) {
	backups, scratch := dirs(t)

	_, err := NewWriter(backups, scratch, 0, nil).Write(context.Background(), failingSnapshot{}, time.Now())
	assert.ErrorContains(t, err, "disk full")

	names, err := List(backups)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestPruneKeepsNewest(t *testing.T) {
	backups, scratch := dirs(t)
	w := NewWriter(backups, scratch, 2, nil)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)

	for i := 0; i < 4; i++ {
		_, err := w.Write(context.Background(), fileSnapshot("x"), start.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(backups, "notes.txt"), nil, 0o644))

	names, err := List(backups)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01-02-00-00.000.s3db.zst", "2024-01-01-03-00-00.000.s3db.zst"}, names)
}

func TestBackupOfSQLiteCatalog(t *testing.T) {
	ctx := context.Background()
	backups, scratch := dirs(t)

	path := filepath.Join(t.TempDir(), catalog.Filename)
	require.NoError(t, catalog.Create(ctx, path))
	db, err := catalog.Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	written, err := NewWriter(backups, scratch, 0, nil).Write(ctx, db, time.Now())
	require.NoError(t, err)

	restored := filepath.Join(t.TempDir(), catalog.Filename)
	require.NoError(t, Extract(written, restored))

	copied, err := catalog.OpenReadOnly(ctx, restored)
	require.NoError(t, err)
	defer copied.Close()

	photos, links, err := copied.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, photos)
	assert.Zero(t, links)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	backups, scratch := dirs(t)
	w := NewWriter(backups, scratch, 1, nil)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)

	old, err := w.Write(ctx, fileSnapshot("old catalog"), start)
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "database.s3db")
	require.NoError(t, os.WriteFile(dst, []byte("current catalog"), 0o644))

	var verified string
	verify := func(path string) error {
		data, err := os.ReadFile(path)
		verified = string(data)
		return err
	}

	// keeping a single backup prunes the restored one only after extraction
	saved, err := w.Restore(ctx, fileSnapshot("current catalog"), old, dst, verify, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "old catalog", verified)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "old catalog", string(got))

	names, err := List(backups)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Base(saved)}, names)

	staged, err := os.ReadDir(scratch)
	require.NoError(t, err)
	assert.Empty(t, staged)
}

func TestRestoreRejectsUnverifiedBackup(t *testing.T) {
	ctx := context.Background()
	backups, scratch := dirs(t)
	w := NewWriter(backups, scratch, 0, nil)

	old, err := w.Write(ctx, fileSnapshot("garbage"), time.Now())
	require.NoError(t, err)

	dst := filepath.Join(t.TempDir(), "database.s3db")
	require.NoError(t, os.WriteFile(dst, []byte("current catalog"), 0o644))

	_, err = w.Restore(ctx, fileSnapshot("current catalog"), old, dst, func(string) error {
		return catalog.ErrNotCatalog
	}, time.Now().Add(time.Second))
	assert.ErrorIs(t, err, catalog.ErrNotCatalog)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "current catalog", string(got))

	names, err := List(backups)
	require.NoError(t, err)
	assert.Len(t, names, 1)
}
