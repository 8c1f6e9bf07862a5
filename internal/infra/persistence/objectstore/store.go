// Package objectstore keeps the graph document as a single JSON blob.
package objectstore

import (
	"context"
	"errors"
	"fmt"

	"pathwaycore/internal/blob"
	"pathwaycore/pkg/domain"
)

var _ domain.GraphStore = (*Store)(nil)

// Store reads and writes the document under one key of a blob store.
type Store struct {
	blobs blob.Store
	key   string
}

// NewStore returns a graph store writing to key in blobs.
func NewStore(blobs blob.Store, key string) *Store {
	return &Store{blobs: blobs, key: key}
}

// Key returns the blob key of the document.
func (s *Store) Key() string { return s.key }

// Load returns the stored document or domain.ErrGraphNotStored.
func (s *Store) Load(ctx context.Context) (domain.GraphDocument, error) {
	var doc domain.GraphDocument
	if _, err := blob.GetJSON(ctx, s.blobs, s.key, &doc); err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return domain.GraphDocument{}, fmt.Errorf("%w: %s", domain.ErrGraphNotStored, s.key)
		}
		return domain.GraphDocument{}, err
	}
	return doc.Normalize(), nil
}

// Store replaces the blob. The document version is recorded as blob metadata.
func (s *Store) Store(ctx context.Context, doc domain.GraphDocument) error {
	doc = doc.Normalize()
	_, err := blob.PutJSON(ctx, s.blobs, s.key, doc, map[string]string{"version": doc.Version})
	return err
}
