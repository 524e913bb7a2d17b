// Package layout describes the directory structure of a catalog root and
// creates new catalogs.
package layout

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bdmihai/pyphotodb/internal/catalog"
	"github.com/bdmihai/pyphotodb/internal/config"
	"golang.org/x/sys/unix"
)

// Subdirectories created in every catalog root, in creation order.
var Subdirectories = []string{"bulk", "sort", "log", "backup", "cache"}

var (
	ErrNotExist    = errors.New("does not exist")
	ErrNotDir      = errors.New("is not a directory")
	ErrNotReadable = errors.New("not readable")
	ErrNotWritable = errors.New("not writable")
	ErrNotEmpty    = errors.New("is not empty")
)

// PreconditionError reports bad input detected before any work is done.
type PreconditionError struct {
	What string
	Path string
	Err  error
	Hint string
}

func (e *PreconditionError) Error() string {
	msg := fmt.Sprintf("%s %s %v!", e.What, e.Path, e.Err)
	if e.Hint != "" {
		msg += " " + e.Hint
	}
	return msg
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

// Root is a catalog root directory.
type Root string

// NewRoot returns the cleaned absolute form of dir.
func NewRoot(dir string) (Root, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	return Root(filepath.Clean(abs)), nil
}

func (r Root) join(elem ...string) string {
	return filepath.Join(append([]string{string(r)}, elem...)...)
}

func (r Root) Bulk() string     { return r.join("bulk") }
func (r Root) Sort() string     { return r.join("sort") }
func (r Root) Log() string      { return r.join("log") }
func (r Root) Backup() string   { return r.join("backup") }
func (r Root) Cache() string    { return r.join("cache") }
func (r Root) Database() string { return r.join(catalog.Filename) }
func (r Root) Config() string   { return r.join(config.Filename) }

// CheckDir verifies that path is a readable directory.
func CheckDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &PreconditionError{What: "Directory", Path: path, Err: ErrNotExist}
		}
		return &PreconditionError{What: "Directory", Path: path, Err: err}
	}
	if !info.IsDir() {
		return &PreconditionError{What: "Directory", Path: path, Err: ErrNotDir}
	}

	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return &PreconditionError{What: "Directory", Path: path, Err: ErrNotReadable}
	}

	return nil
}

// CheckCatalog verifies that the root exists and its database can be
// opened for writing, or only reading when writable is false.
func (r Root) CheckCatalog(writable bool) error {
	if err := CheckDir(string(r)); err != nil {
		return err
	}

	mode, problem := uint32(unix.R_OK|unix.W_OK), ErrNotWritable
	if !writable {
		mode, problem = unix.R_OK, ErrNotReadable
	}

	if err := unix.Access(r.Database(), mode); err != nil {
		return &PreconditionError{What: "Database from", Path: string(r), Err: problem}
	}

	return nil
}

// Create initializes a new catalog in an existing, empty directory: the
// subdirectories, the empty database and a default settings file. progress
// is called after each step.
func (r Root) Create(ctx context.Context, progress func(step string)) error {
	if err := CheckDir(string(r)); err != nil {
		return err
	}

	entries, err := os.ReadDir(string(r))
	if err != nil {
		return &PreconditionError{What: "Directory", Path: string(r), Err: ErrNotReadable}
	}
	if len(entries) != 0 {
		return &PreconditionError{What: "Directory", Path: string(r), Err: ErrNotEmpty, Hint: "Please provide an empty directory."}
	}

	if progress == nil {
		progress = func(string) {}
	}

	for _, dir := range Subdirectories {
		if err := os.Mkdir(r.join(dir), 0o755); err != nil {
			return err
		}
		progress(dir)
	}

	if err := catalog.Create(ctx, r.Database()); err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	progress(catalog.Filename)

	if err := config.Write(r.Config(), config.Default()); err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	progress(config.Filename)

	return nil
}
