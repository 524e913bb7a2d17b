package layout

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bdmihai/pyphotodb/internal/catalog"
	"github.com/bdmihai/pyphotodb/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	root, err := NewRoot(t.TempDir())
	require.NoError(t, err)

	var steps []string
	require.NoError(t, root.Create(context.Background(), func(s string) { steps = append(steps, s) }))
	assert.Equal(t, []string{"bulk", "sort", "log", "backup", "cache", catalog.Filename, config.Filename}, steps)

	for _, dir := range []string{root.Bulk(), root.Sort(), root.Log(), root.Backup(), root.Cache()} {
		assert.DirExists(t, dir)
	}
	assert.FileExists(t, root.Database())
	assert.FileExists(t, root.Config())

	require.NoError(t, root.CheckCatalog(true))
	require.NoError(t, root.CheckCatalog(false))

	db, err := catalog.Open(context.Background(), root.Database())
	require.NoError(t, err)
	defer db.Close()

	photos, links, err := db.Counts(context.Background())
	require.NoError(t, err)
	assert.Zero(t, photos)
	assert.Zero(t, links)
}

func TestCreateRequiresEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.txt"), nil, 0o644))

	err := Root(dir).Create(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotEmpty)

	var pe *PreconditionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "Directory "+dir+" is not empty! Please provide an empty directory.", pe.Error())

	assert.NoDirExists(t, filepath.Join(dir, "bulk"))
}

func TestCreateRequiresExistingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")

	err := Root(dir).Create(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotExist)
	assert.Equal(t, "Directory "+dir+" does not exist!", err.Error())
}

func TestCheckDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	assert.ErrorIs(t, CheckDir(file), ErrNotDir)
	assert.NoError(t, CheckDir(t.TempDir()))
}

func TestCheckCatalogWithoutDatabase(t *testing.T) {
	root := Root(t.TempDir())

	assert.ErrorIs(t, root.CheckCatalog(true), ErrNotWritable)
	assert.ErrorIs(t, root.CheckCatalog(false), ErrNotReadable)
}

func TestNewRoot(t *testing.T) {
	root, err := NewRoot("relative/../photos/")
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "photos"), string(root))
	assert.Equal(t, filepath.Join(wd, "photos", "database.s3db"), root.Database())
}
