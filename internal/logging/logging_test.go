package logging

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bdmihai/pyphotodb/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	at := time.Date(2020, 1, 2, 3, 4, 5, 0, time.Local)
	assert.Equal(t, "2020-01-02-03-04-05.import.log", FileName("import", at))
}

func TestNewWritesRunLog(t *testing.T) {
	dir := t.TempDir()

	run, err := New(dir, "link", config.Default().Log)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(run.Path, ".link.log"))

	run.Info("Database: /photos/database.s3db")
	run.Debug("hidden at info level")
	require.NoError(t, run.Close())

	data, err := os.ReadFile(run.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Database: /photos/database.s3db")
	assert.Contains(t, string(data), `"command": "link"`)
	assert.Contains(t, string(data), `"run": "`)
	assert.NotContains(t, string(data), "hidden")
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, err := New(t.TempDir(), "init", config.Log{Level: "loud"})
	assert.Error(t, err)
}

func TestCloseReleasesFile(t *testing.T) {
	run, err := New(t.TempDir(), "backup", config.Default().Log)
	require.NoError(t, err)

	run.Info("written before close")
	require.NoError(t, run.Close())
	require.NoError(t, run.Close())

	// a write after Close reopens the same file
	run.Info("written after close")
	require.NoError(t, run.Close())

	data, err := os.ReadFile(run.Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written before close")
	assert.Contains(t, string(data), "written after close")
}
