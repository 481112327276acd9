package store

import (
	"context"
	"time"
)

// Record is one bearer token and the moment it was obtained. Records are
// replaced wholesale on refresh, never modified in place.
type Record struct {
	Value    string
	IssuedAt time.Time
}

// Fresh reports whether the record holds a token younger than lifespan at now.
func (r Record) Fresh(now time.Time, lifespan time.Duration) bool {
	return r.Value != "" && now.Sub(r.IssuedAt) < lifespan
}

// TokenStore defines the interface for token record backends.
type TokenStore interface {
	// Load returns the record stored under key. ok is false when there is
	// no record or it has outlived the ttl it was saved with.
	Load(ctx context.Context, key string) (rec Record, ok bool, err error)

	// Save replaces the record under key. A positive ttl lets the backend
	// drop the record once it can no longer be fresh.
	Save(ctx context.Context, key string, rec Record, ttl time.Duration) error

	// Delete removes the record under key.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
