// Package archive keeps the single canonical byte copy of every archived
// photo in the catalog's bulk directory.
package archive

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	// ErrStorageWrite is returned when a copy could not be written.
	ErrStorageWrite = errors.New("storage write failed")

	// ErrExists is returned when a copy with the same name is already stored.
	ErrExists = errors.New("copy already exists")
)

// Store is bulk storage on the local filesystem.
type Store struct {
	dir string
}

// New returns a Store writing into dir, which must already exist.
func New(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	return &Store{dir: dir}, nil
}

// Dir returns the bulk directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns where the copy named name is stored.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// WriteCopy copies the file at src into the store as name, keeping its
// modification time. The copy appears under its final name only once all
// bytes are on disk.
func (s *Store) WriteCopy(name, src string) error {
	dst := s.Path(name)
	if _, err := os.Lstat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, name)
	}

	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStorageWrite, name, err)
	}

	return nil
}

// Remove deletes the copy named name. A missing copy is not an error.
func (s *Store) Remove(name string) error {
	err := os.Remove(s.Path(name))
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	return nil
}

// copyFile copies src to dst through a temporary file that is synced and
// renamed into place.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}

	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}

	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Chtimes(tmp, info.ModTime(), info.ModTime()); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}

	return nil
}

// Discard accepts copies without storing them. Dry runs write through it.
type Discard struct {
	written map[string]bool
}

// NewDiscard returns an empty Discard.
func NewDiscard() *Discard {
	return &Discard{written: map[string]bool{}}
}

func (d *Discard) WriteCopy(name, src string) error {
	if d.written[name] {
		return fmt.Errorf("%w: %s", ErrExists, name)
	}
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrStorageWrite, name, err)
	}
	d.written[name] = true

	return nil
}

func (d *Discard) Remove(name string) error {
	delete(d.written, name)
	return nil
}

// Writer is an archive copies are written to.
type Writer interface {
	WriteCopy(name, src string) error
	Remove(name string) error
}

// Journal remembers the copies written through it during a run, so that a
// run whose catalog writes are rolled back can remove them again.
type Journal struct {
	w       Writer
	written []string
}

// NewJournal returns a Journal writing through w.
func NewJournal(w Writer) *Journal {
	return &Journal{w: w}
}

func (j *Journal) WriteCopy(name, src string) error {
	if err := j.w.WriteCopy(name, src); err != nil {
		return err
	}
	j.written = append(j.written, name)

	return nil
}

func (j *Journal) Remove(name string) error {
	if err := j.w.Remove(name); err != nil {
		return err
	}

	for i, n := range j.written {
		if n == name {
			j.written = append(j.written[:i], j.written[i+1:]...)
			break
		}
	}

	return nil
}

// Written returns the names written and not removed since the last Undo.
func (j *Journal) Written() []string {
	return append([]string(nil), j.written...)
}

// Undo removes every copy written since the last Undo, newest first.
func (j *Journal) Undo() error {
	var errs []error
	for i := len(j.written) - 1; i >= 0; i-- {
		if err := j.w.Remove(j.written[i]); err != nil {
			errs = append(errs, err)
		}
	}
	j.written = nil

	return errors.Join(errs...)
}
