package link

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bdmihai/pyphotodb/internal/catalog"
	"github.com/bdmihai/pyphotodb/internal/event"
	"github.com/bdmihai/pyphotodb/internal/photo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, c interface {
	InsertPhoto(context.Context, *photo.Record) error
	InsertAlbumLink(context.Context, string, int64) error
}) {
	t.Helper()

	ctx := context.Background()
	taken := []time.Time{
		time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2020, 1, 1, 23, 59, 59, 0, time.UTC),
		time.Date(2021, 7, 4, 8, 0, 0, 0, time.UTC),
	}
	for i, tm := range taken {
		id := int64(i + 1)
		require.NoError(t, c.InsertPhoto(ctx, &photo.Record{
			ID:        id,
			Name:      photo.CanonicalName(tm, id, ".jpg"),
			Hash:      string(rune('a' + i)),
			Size:      1,
			DateTaken: tm,
		}))
	}
	require.NoError(t, c.InsertAlbumLink(ctx, "Holiday", 1))
	require.NoError(t, c.InsertAlbumLink(ctx, "Holiday", 2))
	require.NoError(t, c.InsertAlbumLink(ctx, "Family", 2))
}

func readlink(t *testing.T, path string) string {
	t.Helper()

	target, err := os.Readlink(path)
	require.NoError(t, err)
	return target
}

func TestProjectByDate(t *testing.T) {
	c := catalog.NewMemory()
	seed(t, c)

	root := t.TempDir()
	bulk := filepath.Join(root, "bulk")
	out := new(bytes.Buffer)
	p := NewProjector(c, bulk, filepath.Join(root, "sort"), event.NewConsole(out, nil), nil)

	stats, err := p.Project(context.Background(), ByDate)
	require.NoError(t, err)
	assert.Equal(t, Stats{Linked: 3}, stats)
	assert.Equal(t, "...", out.String())
	assert.Equal(t, 2, p.groups.Len())

	assert.Equal(t, filepath.Join(bulk, "2020-01-01-000001.jpg"),
		readlink(t, filepath.Join(root, "sort", "by_date", "2020-01-01", "2020-01-01-000001.jpg")))
	assert.Equal(t, filepath.Join(bulk, "2020-01-01-000002.jpg"),
		readlink(t, filepath.Join(root, "sort", "by_date", "2020-01-01", "2020-01-01-000002.jpg")))
	assert.Equal(t, filepath.Join(bulk, "2021-07-04-000003.jpg"),
		readlink(t, filepath.Join(root, "sort", "by_date", "2021-07-04", "2021-07-04-000003.jpg")))
}

func TestProjectByAlbumIsIdempotent(t *testing.T) {
	c := catalog.NewMemory()
	seed(t, c)

	root := t.TempDir()
	bulk := filepath.Join(root, "bulk")
	out := new(bytes.Buffer)
	p := NewProjector(c, bulk, filepath.Join(root, "sort"), event.NewConsole(out, nil), nil)

	stats, err := p.Project(context.Background(), ByAlbum)
	require.NoError(t, err)
	assert.Equal(t, Stats{Linked: 3}, stats)

	stats, err = p.Project(context.Background(), ByAlbum)
	require.NoError(t, err)
	assert.Equal(t, Stats{Existed: 3}, stats)
	assert.Equal(t, "...---", out.String())

	entries, err := os.ReadDir(filepath.Join(root, "sort", "by_album", "Holiday"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	assert.Equal(t, filepath.Join(bulk, "2020-01-01-000002.jpg"),
		readlink(t, filepath.Join(root, "sort", "by_album", "Family", "2020-01-01-000002.jpg")))
}

func TestProjectFromSQLiteCatalog(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	path := filepath.Join(root, catalog.Filename)
	require.NoError(t, catalog.Create(ctx, path))

	db, err := catalog.Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	tx, err := db.Begin(ctx)
	require.NoError(t, err)
	seed(t, tx)
	require.NoError(t, tx.Commit())

	p := NewProjector(db, filepath.Join(root, "bulk"), filepath.Join(root, "sort"), event.NewConsole(nil, nil), nil)
	stats, err := p.Project(ctx, ByDate)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Linked)

	_, err = os.Lstat(filepath.Join(root, "sort", "by_date", "2020-01-01", "2020-01-01-000001.jpg"))
	assert.NoError(t, err)
}

func TestProjectRecordsBadGroup(t *testing.T) {
	c := catalog.NewMemory()
	ctx := context.Background()
	require.NoError(t, c.InsertPhoto(ctx, &photo.Record{ID: 1, Name: "a.jpg", Hash: "a", Size: 1}))
	require.NoError(t, c.InsertAlbumLink(ctx, "..", 1))
	require.NoError(t, c.InsertAlbumLink(ctx, "ok", 1))

	root := t.TempDir()
	events := event.NewConsole(nil, nil)
	p := NewProjector(c, filepath.Join(root, "bulk"), filepath.Join(root, "sort"), events, nil)

	stats, err := p.Project(ctx, ByAlbum)
	require.NoError(t, err)
	assert.Equal(t, Stats{Linked: 1, Failed: 1}, stats)
	assert.Equal(t, 1, events.Count(event.Failed))
}

func TestParseCriterion(t *testing.T) {
	c, err := ParseCriterion("date")
	require.NoError(t, err)
	assert.Equal(t, ByDate, c)

	c, err = ParseCriterion("album")
	require.NoError(t, err)
	assert.Equal(t, ByAlbum, c)

	_, err = ParseCriterion("camera")
	assert.ErrorIs(t, err, ErrUnsupportedCriterion)

	p := NewProjector(catalog.NewMemory(), "", t.TempDir(), event.NewConsole(nil, nil), nil)
	_, err = p.Project(context.Background(), Criterion("size"))
	assert.ErrorIs(t, err, ErrUnsupportedCriterion)
}
