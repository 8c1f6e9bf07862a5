// Package memory implements an in-process graph store. Stored documents are
// kept in encoded form so callers never share state with the store.
package memory

import (
	"context"
	"sync"

	"pathwaycore/internal/infra/persistence/state"
	"pathwaycore/pkg/domain"
)

var _ domain.GraphStore = (*Store)(nil)

// Store holds at most one graph document in memory.
type Store struct {
	mu      sync.RWMutex
	buckets map[string][]byte
}

// NewStore returns an empty store.
func NewStore() *Store { return &Store{} }

// Load returns the stored document or domain.ErrGraphNotStored.
func (s *Store) Load(ctx context.Context) (domain.GraphDocument, error) {
	if err := ctx.Err(); err != nil {
		return domain.GraphDocument{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return state.Decode(s.buckets)
}

// Store replaces the stored document.
func (s *Store) Store(ctx context.Context, doc domain.GraphDocument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buckets, err := state.Encode(doc)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.buckets = buckets
	s.mu.Unlock()
	return nil
}
