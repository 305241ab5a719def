// Package persist implements the durable-storage collaborator: snapshot
// blobs keyed by handbook id, with sqlite, postgres, file and in-memory
// backends. Absence of a record is a normal not-found outcome, not an
// error condition callers should treat as fatal.
package persist

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Load when no snapshot exists for the id.
var ErrNotFound = errors.New("snapshot not found")

// Store reads and writes serialized handbook snapshots.
type Store interface {
	Save(ctx context.Context, id string, blob []byte) error
	Load(ctx context.Context, id string) ([]byte, error)
	Close() error
}

// MemoryStore keeps snapshots in memory. Used by tests and as a fallback
// when no durable backend is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Save stores a copy of the blob.
func (s *MemoryStore) Save(_ context.Context, id string, blob []byte) error {
	dup := make([]byte, len(blob))
	copy(dup, blob)
	s.mu.Lock()
	s.blobs[id] = dup
	s.mu.Unlock()
	return nil
}

// Load returns a copy of the stored blob or ErrNotFound.
func (s *MemoryStore) Load(_ context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	blob, ok := s.blobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	dup := make([]byte, len(blob))
	copy(dup, blob)
	return dup, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
