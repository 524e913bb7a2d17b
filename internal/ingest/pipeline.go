// Package ingest walks an import directory and archives every new photo in
// it: each candidate is identified by content, resolved against the
// catalog, copied into bulk storage under its canonical name, recorded and
// linked to the import's album.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bdmihai/pyphotodb/internal/archive"
	"github.com/bdmihai/pyphotodb/internal/event"
	"github.com/bdmihai/pyphotodb/internal/photo"
	"go.uber.org/zap"
)

// Catalog is the record store the pipeline reads and writes.
type Catalog interface {
	NextIdentity(ctx context.Context) (int64, error)
	FindByFingerprintAndSize(ctx context.Context, id photo.Identity) (int64, bool, error)
	NameTaken(ctx context.Context, name string) (bool, error)
	InsertPhoto(ctx context.Context, r *photo.Record) error
	AlbumLinkExists(ctx context.Context, album string, photoID int64) (bool, error)
	InsertAlbumLink(ctx context.Context, album string, photoID int64) error
	// Atomically runs fn so that either all or none of its writes persist.
	Atomically(ctx context.Context, fn func() error) error
}

// Archive stores the canonical copy of each photo.
type Archive interface {
	WriteCopy(name, src string) error
	Remove(name string) error
}

// Extractor reads embedded tags from photo content. A nil Metadata means
// the content has none.
type Extractor interface {
	Extract(r io.Reader) (*photo.Metadata, error)
}

// Result is the outcome for one candidate file.
type Result struct {
	Kind    event.Kind
	PhotoID int64
	Name    string
}

// Stats counts the outcomes of a run.
type Stats struct {
	Imported   int
	Duplicates int
	Filtered   int
	Failed     int
}

// Pipeline ingests candidate files one at a time.
type Pipeline struct {
	catalog   Catalog
	resolver  *Resolver
	archive   Archive
	extractor Extractor
	events    event.Recorder
	filter    photo.ExtensionFilter
	log       *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline's logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithExtensions replaces the default extension allow-list.
func WithExtensions(exts []string) Option {
	return func(p *Pipeline) { p.filter = photo.NewExtensionFilter(exts) }
}

// New returns a Pipeline.
func New(catalog Catalog, archive Archive, extractor Extractor, events event.Recorder, opts ...Option) *Pipeline {
	p := &Pipeline{
		catalog:   catalog,
		resolver:  NewResolver(catalog),
		archive:   archive,
		extractor: extractor,
		events:    events,
		filter:    photo.NewExtensionFilter(photo.DefaultExtensions),
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// AlbumLabel returns the album an import directory's photos are linked to.
func AlbumLabel(importDir string) string {
	return filepath.Base(filepath.Clean(importDir))
}

// Run ingests every file below importDir in walk order. Only an unusable
// import directory fails the run; per-file failures are recorded and
// skipped.
func (p *Pipeline) Run(ctx context.Context, importDir string) (Stats, error) {
	var stats Stats

	importDir = filepath.Clean(importDir)
	info, err := os.Stat(importDir)
	if err != nil {
		return stats, fmt.Errorf("%w: %v", ErrImportDir, err)
	}
	if !info.IsDir() {
		return stats, fmt.Errorf("%w: %s is not a directory", ErrImportDir, importDir)
	}
	if _, err := os.ReadDir(importDir); err != nil {
		return stats, fmt.Errorf("%w: %v", ErrImportDir, err)
	}

	album := AlbumLabel(importDir)
	p.log.Info("importing", zap.String("from", importDir), zap.String("album", album))

	err = filepath.WalkDir(importDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == importDir {
				return fmt.Errorf("%w: %v", ErrImportDir, err)
			}
			p.events.RecordEvent(event.Failed, (&FileError{Path: path, Stage: StageIdentify, Err: err}).Error())
			stats.Failed++
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := p.Ingest(ctx, path, album)
		if err != nil {
			stats.Failed++
			return nil
		}

		switch res.Kind {
		case event.Imported:
			stats.Imported++
		case event.Duplicate:
			stats.Duplicates++
		case event.Filtered:
			stats.Filtered++
		}

		return nil
	})

	p.log.Info("import finished",
		zap.Int("imported", stats.Imported),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("filtered", stats.Filtered),
		zap.Int("failed", stats.Failed),
	)

	return stats, err
}

// Ingest processes a single candidate file and links it to album. Every
// outcome, failures included, is reported to the event recorder.
func (p *Pipeline) Ingest(ctx context.Context, path, album string) (Result, error) {
	if !p.filter.Allows(path) {
		p.events.RecordEvent(event.Filtered, path)
		return Result{Kind: event.Filtered}, nil
	}

	res, err := p.ingest(ctx, path, album)
	if err != nil {
		p.events.RecordEvent(event.Failed, err.Error())
		return Result{Kind: event.Failed}, err
	}

	if res.Kind == event.Duplicate {
		p.events.RecordEvent(event.Duplicate, path+" duplicate. Not imported!")
	} else {
		p.events.RecordEvent(event.Imported, path+" imported as "+res.Name)
	}

	return res, nil
}

func (p *Pipeline) ingest(ctx context.Context, path, album string) (Result, error) {
	fail := func(stage Stage, err error) (Result, error) {
		return Result{}, &FileError{Path: path, Stage: stage, Err: err}
	}

	id, err := photo.IdentifyFile(path)
	if err != nil {
		return fail(StageIdentify, err)
	}

	resolution, err := p.resolver.Resolve(ctx, id)
	if err != nil {
		return fail(StageResolve, err)
	}

	if resolution.Duplicate {
		p.log.Debug("duplicate", zap.String("path", path), zap.Int64("photo", resolution.ExistingID))

		if err := p.link(ctx, album, resolution.ExistingID); err != nil {
			return fail(StageLink, err)
		}

		return Result{Kind: event.Duplicate, PhotoID: resolution.ExistingID}, nil
	}

	rec, stage, err := p.describe(ctx, path, id)
	if err != nil {
		return fail(stage, err)
	}

	if err := p.store(ctx, rec.Name, path); err != nil {
		return fail(StageStore, err)
	}

	err = p.catalog.Atomically(ctx, func() error {
		if err := p.catalog.InsertPhoto(ctx, rec); err != nil {
			return err
		}
		return p.link(ctx, album, rec.ID)
	})
	if err != nil {
		if rerr := p.archive.Remove(rec.Name); rerr != nil {
			err = errors.Join(err, rerr)
		}
		return fail(StageRecord, err)
	}

	p.log.Debug("recorded", zap.String("path", path), zap.Int64("photo", rec.ID), zap.String("name", rec.Name))

	return Result{Kind: event.Imported, PhotoID: rec.ID, Name: rec.Name}, nil
}

// store writes the archive copy of a new photo. A copy already stored under
// a name no PhotoRecord carries is left over from a run that never
// committed and is replaced.
func (p *Pipeline) store(ctx context.Context, name, path string) error {
	err := p.archive.WriteCopy(name, path)
	if !errors.Is(err, archive.ErrExists) {
		return err
	}

	taken, terr := p.catalog.NameTaken(ctx, name)
	if terr != nil || taken {
		return errors.Join(err, terr)
	}

	p.log.Warn("replacing unrecorded copy", zap.String("name", name))
	if err := p.archive.Remove(name); err != nil {
		return err
	}

	return p.archive.WriteCopy(name, path)
}

// describe builds the PhotoRecord of a new photo: its identity, tags,
// capture time and canonical name.
func (p *Pipeline) describe(ctx context.Context, path string, id photo.Identity) (*photo.Record, Stage, error) {
	seq, err := p.catalog.NextIdentity(ctx)
	if err != nil {
		return nil, StageResolve, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, StageExtract, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, StageExtract, err
	}

	meta, err := p.extractor.Extract(f)
	if err != nil {
		return nil, StageExtract, err
	}
	if meta == nil {
		meta = &photo.Metadata{}
	}

	taken := photo.CaptureTime(meta.DateTime, info.ModTime())

	return &photo.Record{
		ID:        seq,
		Name:      photo.CanonicalNameFor(taken, seq, path),
		Hash:      id.Hash,
		Size:      id.Size,
		DateTaken: taken,
		Metadata:  *meta,
	}, "", nil
}

// link adds photoID to album unless it is already there.
func (p *Pipeline) link(ctx context.Context, album string, photoID int64) error {
	exists, err := p.catalog.AlbumLinkExists(ctx, album, photoID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	return p.catalog.InsertAlbumLink(ctx, album, photoID)
}
