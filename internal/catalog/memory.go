package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bdmihai/pyphotodb/internal/photo"
)

type albumLink struct {
	album   string
	photoID int64
}

// Memory is an in-memory catalog with the same semantics as the SQLite
// one. The abstraction on the maps carries a lock so a Memory can be read
// from other goroutines while a run writes to it.
type Memory struct {
	sync.RWMutex
	photos   map[int64]photo.Record
	identity map[photo.Identity]int64
	names    map[string]bool
	links    []albumLink
	linkSet  map[albumLink]bool
}

// NewMemory returns an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{
		photos:   map[int64]photo.Record{},
		identity: map[photo.Identity]int64{},
		names:    map[string]bool{},
		linkSet:  map[albumLink]bool{},
	}
}

func (m *Memory) NextIdentity(ctx context.Context) (int64, error) {
	m.RLock()
	defer m.RUnlock()

	var max int64
	for id := range m.photos {
		if id > max {
			max = id
		}
	}

	return max + 1, nil
}

func (m *Memory) FindByFingerprintAndSize(ctx context.Context, id photo.Identity) (int64, bool, error) {
	m.RLock()
	defer m.RUnlock()

	photoID, ok := m.identity[id]
	return photoID, ok, nil
}

func (m *Memory) NameTaken(ctx context.Context, name string) (bool, error) {
	m.RLock()
	defer m.RUnlock()

	return m.names[name], nil
}

func (m *Memory) InsertPhoto(ctx context.Context, r *photo.Record) error {
	m.Lock()
	defer m.Unlock()

	if _, ok := m.photos[r.ID]; ok {
		return fmt.Errorf("%w: Photos.Id %d", ErrUniqueConstraint, r.ID)
	}
	if m.names[r.Name] {
		return fmt.Errorf("%w: Photos.Name %s", ErrUniqueConstraint, r.Name)
	}

	m.photos[r.ID] = *r
	m.identity[photo.Identity{Hash: r.Hash, Size: r.Size}] = r.ID
	m.names[r.Name] = true

	return nil
}

func (m *Memory) AlbumLinkExists(ctx context.Context, album string, photoID int64) (bool, error) {
	m.RLock()
	defer m.RUnlock()

	return m.linkSet[albumLink{album, photoID}], nil
}

func (m *Memory) InsertAlbumLink(ctx context.Context, album string, photoID int64) error {
	m.Lock()
	defer m.Unlock()

	l := albumLink{album, photoID}
	m.links = append(m.links, l)
	m.linkSet[l] = true

	return nil
}

// Atomically runs fn and restores the catalog to its prior state if fn
// fails.
func (m *Memory) Atomically(ctx context.Context, fn func() error) error {
	snap := m.snapshot()

	if err := fn(); err != nil {
		m.restore(snap)
		return err
	}

	return nil
}

func (m *Memory) snapshot() *Memory {
	m.RLock()
	defer m.RUnlock()

	c := NewMemory()
	for k, v := range m.photos {
		c.photos[k] = v
	}
	for k, v := range m.identity {
		c.identity[k] = v
	}
	for k := range m.names {
		c.names[k] = true
	}
	for k := range m.linkSet {
		c.linkSet[k] = true
	}
	c.links = append(c.links, m.links...)

	return c
}

func (m *Memory) restore(c *Memory) {
	m.Lock()
	defer m.Unlock()

	m.photos, m.identity, m.names = c.photos, c.identity, c.names
	m.links, m.linkSet = c.links, c.linkSet
}

// Photo returns the record with the given id.
func (m *Memory) Photo(ctx context.Context, id int64) (*photo.Record, error) {
	m.RLock()
	defer m.RUnlock()

	r, ok := m.photos[id]
	if !ok {
		return nil, fmt.Errorf("photo %d not found", id)
	}

	return &r, nil
}

// Counts returns the number of photos and album links.
func (m *Memory) Counts(ctx context.Context) (photos, links int, err error) {
	m.RLock()
	defer m.RUnlock()

	return len(m.photos), len(m.links), nil
}

func (m *Memory) PhotosByAlbum(ctx context.Context, fn func(name, album string) error) error {
	type entry struct{ name, album string }

	m.RLock()
	entries := make([]entry, 0, len(m.links))
	for _, l := range m.links {
		if r, ok := m.photos[l.photoID]; ok {
			entries = append(entries, entry{r.Name, l.album})
		}
	}
	m.RUnlock()

	for _, e := range entries {
		if err := fn(e.name, e.album); err != nil {
			return err
		}
	}

	return nil
}

func (m *Memory) PhotosByDate(ctx context.Context, fn func(name string, taken time.Time) error) error {
	m.RLock()
	records := make([]photo.Record, 0, len(m.photos))
	for _, r := range m.photos {
		records = append(records, r)
	}
	m.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	for _, r := range records {
		if err := fn(r.Name, r.DateTaken); err != nil {
			return err
		}
	}

	return nil
}
