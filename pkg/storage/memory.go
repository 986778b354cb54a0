package storage

import (
	"context"

	"GuardianAngel/pkg/cache"
)

// MemoryStore keeps keys for the life of the process. Used by tests and SESSION_STORE=memory.
type MemoryStore struct {
	c cache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: cache.NewGoCache(cache.LocalConfig{DefaultExpiration: cache.NoExpiration})}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.c.Get(ctx, key)
	if !ok {
		return "", ErrNotFound
	}
	s, _ := v.(string)
	return s, nil
}

func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	return m.c.Set(ctx, key, value, cache.NoExpiration)
}

func (m *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		if err := m.c.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) Close() error { return m.c.Close() }
