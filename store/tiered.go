package store

import (
	"context"
	"time"
)

// Compile-time interface check.
var _ TokenStore = (*TieredStore)(nil)

// TieredStore wraps an in-memory store (fast path) with a persistent backend
// (durable path). Writes go to both stores; reads check memory first and fall
// back to the persistent store on a miss.
type TieredStore struct {
	memory     *MemoryStore
	persistent TokenStore
}

// NewTieredStore creates a TieredStore backed by the given persistent store.
// An internal MemoryStore is created automatically.
func NewTieredStore(persistent TokenStore) *TieredStore {
	return &TieredStore{
		memory:     NewMemoryStore(),
		persistent: persistent,
	}
}

// Save writes to the persistent backend first, then to memory.
func (t *TieredStore) Save(ctx context.Context, key string, rec Record, ttl time.Duration) error {
	if err := t.persistent.Save(ctx, key, rec, ttl); err != nil {
		return err
	}
	return t.memory.Save(ctx, key, rec, ttl)
}

// Load reads from memory first. On a miss it falls back to the persistent
// store and backfills memory.
func (t *TieredStore) Load(ctx context.Context, key string) (Record, bool, error) {
	rec, ok, err := t.memory.Load(ctx, key)
	if err != nil || ok {
		return rec, ok, err
	}

	rec, ok, err = t.persistent.Load(ctx, key)
	if err != nil || !ok {
		return Record{}, false, err
	}

	// The persistent backend enforces expiry; memory keeps the copy until
	// the next write or delete.
	_ = t.memory.Save(ctx, key, rec, 0) // MemoryStore.Save cannot fail
	return rec, true, nil
}

// Delete removes the record from both stores.
func (t *TieredStore) Delete(ctx context.Context, key string) error {
	_ = t.memory.Delete(ctx, key) // MemoryStore.Delete cannot fail
	return t.persistent.Delete(ctx, key)
}

// Close closes the persistent backend. The in-memory store needs no cleanup.
func (t *TieredStore) Close() error {
	return t.persistent.Close()
}
