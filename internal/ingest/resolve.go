package ingest

import (
	"context"

	"github.com/bdmihai/pyphotodb/internal/photo"
)

// Resolution is the DuplicateResolver's verdict on a candidate.
type Resolution struct {
	// Duplicate is true when a photo with the same identity is archived.
	Duplicate bool
	// ExistingID is the archived photo's id when Duplicate is true.
	ExistingID int64
}

// Resolver decides whether a candidate is new or already archived.
type Resolver struct {
	catalog Catalog
}

// NewResolver returns a Resolver backed by catalog.
func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve looks up the candidate's exact (hash, size) pair. Hash collisions
// between different contents of equal size are not considered.
func (r *Resolver) Resolve(ctx context.Context, id photo.Identity) (Resolution, error) {
	existing, found, err := r.catalog.FindByFingerprintAndSize(ctx, id)
	if err != nil {
		return Resolution{}, err
	}
	if !found {
		return Resolution{}, nil
	}

	return Resolution{Duplicate: true, ExistingID: existing}, nil
}
