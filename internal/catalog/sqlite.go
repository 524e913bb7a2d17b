// Package catalog stores PhotoRecords and album links. DB is the SQLite
// catalog used by the commands; Memory is an in-memory equivalent.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/bdmihai/pyphotodb/internal/photo"
	"github.com/mattn/go-sqlite3"
)

var (
	// ErrUniqueConstraint is returned when a photo's identity or canonical
	// name is already taken.
	ErrUniqueConstraint = errors.New("unique constraint violated")

	// ErrNotCatalog is returned when a database file lacks the catalog schema.
	ErrNotCatalog = errors.New("not a photo catalog")
)

// Create writes a new, empty catalog database at path. It fails if path
// already exists.
func Create(ctx context.Context, path string) error {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	file.Close()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	return tx.Commit()
}

// DB is an open catalog database.
type DB struct {
	store
	db   *sql.DB
	path string
}

// Open opens the catalog at path for reading and writing.
func Open(ctx context.Context, path string) (*DB, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	f.Close()

	return open(ctx, path, path)
}

// OpenReadOnly opens the catalog at path for reading only.
func OpenReadOnly(ctx context.Context, path string) (*DB, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	f.Close()

	return open(ctx, path, "file:"+path+"?mode=ro")
}

func open(ctx context.Context, path, dsn string) (*DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	var tables int
	err = db.QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('Photos', 'Albums')`).Scan(&tables)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if tables != 2 {
		db.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNotCatalog)
	}

	return &DB{store: store{q: db}, db: db, path: path}, nil
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Snapshot writes a consistent copy of the catalog to dst, which must not
// exist yet.
func (d *DB) Snapshot(ctx context.Context, dst string) error {
	if _, err := d.db.ExecContext(ctx, `VACUUM INTO ?`, dst); err != nil {
		return fmt.Errorf("snapshot %s: %w", dst, err)
	}

	return nil
}

// Begin starts the transaction an import run writes through.
func (d *DB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &Tx{store: store{q: tx}, tx: tx}, nil
}

// Tx is a catalog transaction. Nothing written through it is durable until
// Commit.
type Tx struct {
	store
	tx         *sql.Tx
	savepoints int
}

// Commit makes the transaction's writes durable.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback discards the transaction's writes.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// Atomically runs fn under a savepoint. If fn fails, every write it made is
// rolled back and the transaction stays usable.
func (t *Tx) Atomically(ctx context.Context, fn func() error) error {
	t.savepoints++
	name := fmt.Sprintf("unit_%d", t.savepoints)

	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return err
	}

	if err := fn(); err != nil {
		if _, rerr := t.tx.ExecContext(ctx, "ROLLBACK TO "+name); rerr != nil {
			return errors.Join(err, fmt.Errorf("rolling back %s: %w", name, rerr))
		}
		if _, rerr := t.tx.ExecContext(ctx, "RELEASE "+name); rerr != nil {
			return errors.Join(err, fmt.Errorf("releasing %s: %w", name, rerr))
		}
		return err
	}

	_, err := t.tx.ExecContext(ctx, "RELEASE "+name)
	return err
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// store holds the catalog queries shared by DB and Tx.
type store struct {
	q querier
}

// NextIdentity returns one more than the highest photo id, or 1 for an
// empty catalog.
func (s store) NextIdentity(ctx context.Context) (int64, error) {
	var max sql.NullInt64

	err := s.q.QueryRowContext(ctx, `SELECT max(Photos.Id) FROM Photos`).Scan(&max)
	if err != nil {
		return 0, err
	}
	if !max.Valid {
		return 1, nil
	}

	return max.Int64 + 1, nil
}

// FindByFingerprintAndSize returns the id of the photo with the given
// content identity.
func (s store) FindByFingerprintAndSize(ctx context.Context, id photo.Identity) (int64, bool, error) {
	var photoID int64

	err := s.q.QueryRowContext(ctx,
		`SELECT Photos.Id FROM Photos WHERE Photos.Hash = ? AND Photos.Size = ?`,
		id.Hash, id.Size).Scan(&photoID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	return photoID, true, nil
}

// NameTaken reports whether a photo is recorded under the canonical name.
func (s store) NameTaken(ctx context.Context, name string) (bool, error) {
	var taken bool

	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM Photos WHERE Photos.Name = ?)`, name).Scan(&taken)
	if err != nil {
		return false, err
	}

	return taken, nil
}

// InsertPhoto writes a new PhotoRecord.
func (s store) InsertPhoto(ctx context.Context, r *photo.Record) error {
	_, err := s.q.ExecContext(ctx, `
	INSERT INTO Photos (
		Id, Name, Hash, Size, DateTime,
		Make, Model, Software, Width, Height, Orientation,
		Latitude, Longitude, Altitude
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.Hash, r.Size, r.DateTaken.Format(DateTimeLayout),
		r.Make, r.Model, r.Software, r.Width, r.Height, r.Orientation,
		r.Latitude, r.Longitude, r.Altitude,
	)

	return translate(err)
}

// AlbumLinkExists reports whether photoID is already in album.
func (s store) AlbumLinkExists(ctx context.Context, album string, photoID int64) (bool, error) {
	var exists int

	err := s.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM Albums WHERE Albums.Name = ? AND Albums.PhotoId = ?)`,
		album, photoID).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists == 1, nil
}

// InsertAlbumLink adds photoID to album.
func (s store) InsertAlbumLink(ctx context.Context, album string, photoID int64) error {
	_, err := s.q.ExecContext(ctx, `INSERT INTO Albums (Name, PhotoId) VALUES (?, ?)`, album, photoID)

	return translate(err)
}

// Photo returns the record with the given id.
func (s store) Photo(ctx context.Context, id int64) (*photo.Record, error) {
	var (
		r                   photo.Record
		taken               time.Time
		mk, model, software sql.NullString
		orientation         sql.NullString
		width, height       sql.NullInt64
		latitude, longitude sql.NullFloat64
		altitude            sql.NullFloat64
	)

	err := s.q.QueryRowContext(ctx, `
	SELECT Id, Name, Hash, Size, DateTime,
		Make, Model, Software, Width, Height, Orientation,
		Latitude, Longitude, Altitude
	FROM Photos WHERE Id = ?`, id).Scan(
		&r.ID, &r.Name, &r.Hash, &r.Size, &taken,
		&mk, &model, &software, &width, &height, &orientation,
		&latitude, &longitude, &altitude,
	)
	if err != nil {
		return nil, err
	}

	r.DateTaken = taken
	r.Make = nullString(mk)
	r.Model = nullString(model)
	r.Software = nullString(software)
	r.Orientation = nullString(orientation)
	r.Width = nullInt(width)
	r.Height = nullInt(height)
	r.Latitude = nullFloat(latitude)
	r.Longitude = nullFloat(longitude)
	r.Altitude = nullFloat(altitude)

	return &r, nil
}

// Counts returns the number of photos and album links in the catalog.
func (s store) Counts(ctx context.Context) (photos, links int, err error) {
	err = s.q.QueryRowContext(ctx,
		`SELECT (SELECT count(*) FROM Photos), (SELECT count(*) FROM Albums)`).Scan(&photos, &links)

	return photos, links, err
}

// PhotosByAlbum calls fn with the canonical name and album label of every
// album link, stopping at the first error fn returns.
func (s store) PhotosByAlbum(ctx context.Context, fn func(name, album string) error) error {
	rows, err := s.q.QueryContext(ctx, `
	SELECT Photos.Name, Albums.Name
	FROM Photos INNER JOIN Albums ON Photos.Id = Albums.PhotoId
	ORDER BY Albums.Id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var name, album string
		if err := rows.Scan(&name, &album); err != nil {
			return err
		}
		if err := fn(name, album); err != nil {
			return err
		}
	}

	return rows.Err()
}

// PhotosByDate calls fn with the canonical name and capture timestamp of
// every photo, stopping at the first error fn returns.
func (s store) PhotosByDate(ctx context.Context, fn func(name string, taken time.Time) error) error {
	rows, err := s.q.QueryContext(ctx, `SELECT Photos.Name, Photos.DateTime FROM Photos ORDER BY Photos.Id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name  string
			taken time.Time
		)
		if err := rows.Scan(&name, &taken); err != nil {
			return err
		}
		if err := fn(name, taken); err != nil {
			return err
		}
	}

	return rows.Err()
}

func translate(err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint &&
		(se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %v", ErrUniqueConstraint, err)
	}

	return err
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
