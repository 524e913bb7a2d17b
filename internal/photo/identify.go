package photo

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrIO is returned when a candidate file cannot be read.
var ErrIO = errors.New("unable to read file")

// Identity is the content fingerprint and byte size of a file. Together
// they form the deduplication key.
type Identity struct {
	Hash string
	Size int64
}

// Identify streams r once and returns its SHA-256 hex digest and length.
func Identify(r io.Reader) (Identity, error) {
	h := sha256.New()

	n, err := io.Copy(h, r)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrIO, err)
	}

	return Identity{Hash: fmt.Sprintf("%x", h.Sum(nil)), Size: n}, nil
}

// IdentifyFile opens path and identifies its content.
func IdentifyFile(path string) (Identity, error) {
	f, err := os.Open(path)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrIO, err)
	}
	defer f.Close()

	id, err := Identify(f)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w", path, err)
	}

	return id, nil
}
