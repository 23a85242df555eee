package store

import (
	"context"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps the slot in process memory. Nothing survives a restart.
type MemoryStore struct {
	cache *cache.Cache
	key   string
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		cache: cache.New(cache.NoExpiration, 0),
		key:   DefaultKey,
	}
}

func (s *MemoryStore) Read(_ context.Context) (string, bool) {
	v, found := s.cache.Get(s.key)
	if !found {
		return "", false
	}
	raw, ok := v.(string)
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}

func (s *MemoryStore) Write(_ context.Context, raw string) error {
	s.cache.Set(s.key, raw, cache.NoExpiration)
	return nil
}
