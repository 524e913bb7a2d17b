// Package link materializes browsable views of the archive: symbolic links
// from sort/by_date/<date>/ or sort/by_album/<album>/ to the canonical copy
// in bulk/. Links that already exist are left alone, so running a
// projection again only adds what is missing.
package link

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bdmihai/pyphotodb/internal/event"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Criterion selects how photos are grouped.
type Criterion string

const (
	ByDate  Criterion = "date"
	ByAlbum Criterion = "album"
)

// ErrUnsupportedCriterion is returned for a criterion other than date or album.
var ErrUnsupportedCriterion = errors.New("unsupported link criterion")

// ParseCriterion validates s.
func ParseCriterion(s string) (Criterion, error) {
	switch c := Criterion(s); c {
	case ByDate, ByAlbum:
		return c, nil
	}

	return "", fmt.Errorf("%w: cannot link by %s", ErrUnsupportedCriterion, s)
}

// Source lists archived photos.
type Source interface {
	PhotosByAlbum(ctx context.Context, fn func(name, album string) error) error
	PhotosByDate(ctx context.Context, fn func(name string, taken time.Time) error) error
}

// Stats counts the outcomes of a projection.
type Stats struct {
	Linked  int
	Existed int
	Failed  int
}

// groupCacheSize bounds the number of group directories remembered as
// existing during one projection.
const groupCacheSize = 1024

// Projector creates the links.
type Projector struct {
	source  Source
	bulkDir string
	sortDir string
	events  event.Recorder
	log     *zap.Logger

	groups *lru.Cache[string, struct{}]
}

// NewProjector returns a Projector linking from sortDir into bulkDir.
func NewProjector(source Source, bulkDir, sortDir string, events event.Recorder, log *zap.Logger) *Projector {
	if log == nil {
		log = zap.NewNop()
	}

	groups, _ := lru.New[string, struct{}](groupCacheSize)

	return &Projector{
		source:  source,
		bulkDir: bulkDir,
		sortDir: sortDir,
		events:  events,
		log:     log,
		groups:  groups,
	}
}

// Dir returns the directory holding the groups for criterion c.
func (p *Projector) Dir(c Criterion) string {
	return filepath.Join(p.sortDir, "by_"+string(c))
}

// Project creates every missing link for criterion c. A link that cannot be
// created is recorded and skipped; only a failure to read the catalog or to
// create the criterion directory stops the projection.
func (p *Projector) Project(ctx context.Context, c Criterion) (Stats, error) {
	var stats Stats

	if _, err := ParseCriterion(string(c)); err != nil {
		return stats, err
	}

	dir := p.Dir(c)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return stats, err
	}

	p.log.Info("linking", zap.String("by", string(c)), zap.String("into", dir))

	place := func(group, name string) error {
		switch created, err := p.place(dir, group, name); {
		case err != nil:
			stats.Failed++
			p.events.RecordEvent(event.Failed, fmt.Sprintf("%s not linked in %s: %v", name, group, err))
		case created:
			stats.Linked++
			p.events.RecordEvent(event.Linked, name+" linked in "+group)
		default:
			stats.Existed++
			p.events.RecordEvent(event.LinkExists, name+" already linked in "+group)
		}
		return nil
	}

	var err error
	if c == ByAlbum {
		err = p.source.PhotosByAlbum(ctx, func(name, album string) error {
			return place(album, name)
		})
	} else {
		err = p.source.PhotosByDate(ctx, func(name string, taken time.Time) error {
			return place(taken.Format("2006-01-02"), name)
		})
	}

	p.log.Info("linking finished",
		zap.Int("linked", stats.Linked),
		zap.Int("existed", stats.Existed),
		zap.Int("failed", stats.Failed),
	)

	return stats, err
}

// place links dir/group/name to the bulk copy. It reports false when the
// link is already there.
func (p *Projector) place(dir, group, name string) (bool, error) {
	if group == "" || group == "." || group == ".." || filepath.Base(group) != group {
		return false, fmt.Errorf("invalid group name %q", group)
	}

	groupDir := filepath.Join(dir, group)
	if !p.groups.Contains(groupDir) {
		if err := os.MkdirAll(groupDir, 0o755); err != nil {
			return false, err
		}
		p.groups.Add(groupDir, struct{}{})
	}

	target := filepath.Join(groupDir, name)
	if _, err := os.Lstat(target); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}

	if err := os.Symlink(filepath.Join(p.bulkDir, name), target); err != nil {
		return false, err
	}

	return true, nil
}
