// Package backup keeps zstd compressed snapshots of the catalog database in
// the catalog's backup directory.
package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"
)

// Ext is the file extension of a backup.
const Ext = ".s3db.zst"

// Snapshotter writes a consistent copy of a database to a new file.
type Snapshotter interface {
	Snapshot(ctx context.Context, dst string) error
}

// Writer creates backups.
type Writer struct {
	dir     string
	scratch string
	keep    int
	log     *zap.Logger
}

// NewWriter returns a Writer storing backups in dir. Uncompressed snapshots
// are staged in scratch. When keep is positive only the newest keep backups
// are retained.
func NewWriter(dir, scratch string, keep int, log *zap.Logger) *Writer {
	if log == nil {
		log = zap.NewNop()
	}

	return &Writer{dir: dir, scratch: scratch, keep: keep, log: log}
}

// FileName returns the name of the backup taken at t.
func FileName(t time.Time) string {
	return t.Format("2006-01-02-15-04-05.000") + Ext
}

// Write snapshots db and stores it compressed. It returns the backup path.
func (w *Writer) Write(ctx context.Context, db Snapshotter, now time.Time) (string, error) {
	name := FileName(now)
	dst := filepath.Join(w.dir, name)
	if _, err := os.Lstat(dst); err == nil {
		return "", fmt.Errorf("backup %s already exists", name)
	}

	staged := filepath.Join(w.scratch, strings.TrimSuffix(name, ".zst"))
	os.Remove(staged)
	if err := db.Snapshot(ctx, staged); err != nil {
		return "", err
	}
	defer os.Remove(staged)

	if err := compress(staged, dst); err != nil {
		return "", fmt.Errorf("compressing %s: %w", name, err)
	}
	w.log.Info("backup written", zap.String("path", dst))

	if err := w.prune(); err != nil {
		return dst, err
	}

	return dst, nil
}

// Restore replaces the database at dst with the backup at src. The backup
// is extracted into the scratch directory and must pass verify; only then
// is the current database saved as a new backup of db and replaced. It
// returns the path of that new backup.
func (w *Writer) Restore(ctx context.Context, db Snapshotter, src, dst string, verify func(path string) error, now time.Time) (string, error) {
	staged := filepath.Join(w.scratch, "restore-"+strings.TrimSuffix(filepath.Base(src), ".zst"))
	os.Remove(staged)
	if err := Extract(src, staged); err != nil {
		return "", fmt.Errorf("extracting %s: %w", filepath.Base(src), err)
	}
	defer os.Remove(staged)

	if err := verify(staged); err != nil {
		return "", fmt.Errorf("%s: %w", filepath.Base(src), err)
	}

	saved, err := w.Write(ctx, db, now)
	if err != nil {
		return "", fmt.Errorf("saving current catalog: %w", err)
	}

	if err := os.Rename(staged, dst); err != nil {
		return saved, err
	}
	w.log.Info("backup restored", zap.String("from", src), zap.String("saved", saved))

	return saved, nil
}

// List returns the backups in dir, oldest first.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), Ext) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	return names, nil
}

func (w *Writer) prune() error {
	if w.keep <= 0 {
		return nil
	}

	names, err := List(w.dir)
	if err != nil {
		return err
	}

	for len(names) > w.keep {
		path := filepath.Join(w.dir, names[0])
		if err := os.Remove(path); err != nil {
			return err
		}
		w.log.Debug("backup removed", zap.String("path", path))
		names = names[1:]
	}

	return nil
}

// Extract decompresses the backup at src into a new file at dst.
func Extract(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	dec, err := zstd.NewReader(in)
	if err != nil {
		return err
	}
	defer dec.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, dec); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}

	return out.Close()
}

// compress writes src zstd compressed to dst through a temporary file that
// is synced and renamed into place.
func compress(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".backup-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc, err := zstd.NewWriter(tmp, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		tmp.Close()
		return err
	}

	if _, err := io.Copy(enc, in); err != nil {
		enc.Close()
		tmp.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), dst)
}
