// Package snapshot keeps the last successfully fetched showcase lists so a
// failed refresh can fall back to them.
package snapshot

import (
	"context"
	"sync"
)

// Store holds opaque snapshots by key.
type Store interface {
	// Get returns the stored value; ok is false when nothing is stored.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Put replaces the stored value.
	Put(ctx context.Context, key string, value []byte) error
}

// MemoryStore is an in-process Store for single-replica deployments.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)
	return nil
}

var _ Store = (*MemoryStore)(nil)
