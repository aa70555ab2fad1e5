// Package store implements port.KVStore, the client-side persistence that
// holds the auth token and serialized user.
package store

import (
	"context"
	"time"

	"github.com/nexora/nexora-bfa-go/internal/infra/cache"
)

// MemoryStore keeps values in process memory. Values live for ttl; zero
// keeps them until deleted.
type MemoryStore struct {
	items *cache.InMemory[string]
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{items: cache.New[string](ttl)}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.items.Get(key)
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.items.Set(key, value)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.items.Delete(k)
	}
	return nil
}

// Close stops background eviction.
func (s *MemoryStore) Close() {
	s.items.Close()
}
