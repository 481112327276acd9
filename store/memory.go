package store

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	rec       Record
	expiresAt time.Time // zero means no expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Compile-time interface check.
var _ TokenStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory TokenStore.
// It is safe for concurrent use. Records are lost on process restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]entry
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]entry),
	}
}

// Load returns the record for key unless it is missing or expired.
func (m *MemoryStore) Load(_ context.Context, key string) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return Record{}, false, nil
	}
	if e.expired(time.Now()) {
		delete(m.entries, key)
		return Record{}, false, nil
	}
	return e.rec, true, nil
}

// Save replaces the record for key.
func (m *MemoryStore) Save(_ context.Context, key string, rec Record, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{rec: rec, expiresAt: expiry(time.Now(), ttl)}
	return nil
}

// Delete removes the record for key.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
