package apigate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ryhazerus/apigate/store"
)

// DefaultTokenLifespan is how long a bearer token is reused before the
// provider is asked for a new one.
const DefaultTokenLifespan = 600 * time.Minute

const defaultTokenKey = "default"

// TokenProvider obtains a fresh bearer token. How it does so (credentials,
// signatures, another HTTP call) is up to the implementation.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenProviderFunc adapts a function to TokenProvider.
type TokenProviderFunc func(ctx context.Context) (string, error)

// Token calls f(ctx).
func (f TokenProviderFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// RefreshEvent describes one call to the token provider.
type RefreshEvent struct {
	Took time.Duration
	Err  error
}

// TokenCacheOption configures a TokenCache.
type TokenCacheOption func(*TokenCache)

// WithStore sets where the token record is kept.
// If not provided, an in-memory store is used.
func WithStore(s store.TokenStore) TokenCacheOption {
	return func(c *TokenCache) {
		c.store = s
	}
}

// WithStoreKey sets the key the record is stored under, so several caches
// can share one persistent store.
func WithStoreKey(key string) TokenCacheOption {
	return func(c *TokenCache) {
		c.key = key
	}
}

// WithClock replaces time.Now for freshness checks. Records are then saved
// without a store-side ttl, since stores expire entries by wall-clock time
// and would disagree with the injected clock.
func WithClock(now func() time.Time) TokenCacheOption {
	return func(c *TokenCache) {
		c.now = now
		c.ttl = 0
	}
}

// WithOnRefresh sets a callback fired after every provider call.
func WithOnRefresh(fn func(RefreshEvent)) TokenCacheOption {
	return func(c *TokenCache) {
		c.onRefresh = fn
	}
}

// TokenCache serves a bearer token until it is older than its lifespan, then
// asks the provider for a new one. Concurrent callers that find the token
// stale share a single provider call.
type TokenCache struct {
	provider  TokenProvider
	lifespan  time.Duration
	ttl       time.Duration // passed to store.Save; zero disables store expiry
	store     store.TokenStore
	key       string
	now       func() time.Time
	onRefresh func(RefreshEvent)
	group     singleflight.Group

	mu         sync.Mutex
	lastIssued time.Time
}

// NewTokenCache creates a cache around provider.
func NewTokenCache(provider TokenProvider, lifespan time.Duration, opts ...TokenCacheOption) (*TokenCache, error) {
	if provider == nil {
		return nil, &ConfigError{Field: "TokenProvider", Reason: "must not be nil"}
	}
	if lifespan <= 0 {
		return nil, &ConfigError{Field: "TokenLifespan", Reason: fmt.Sprintf("must be positive, got %s", lifespan)}
	}

	c := &TokenCache{
		provider: provider,
		lifespan: lifespan,
		ttl:      lifespan,
		key:      defaultTokenKey,
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.store == nil {
		c.store = store.NewMemoryStore()
	}
	return c, nil
}

// Valid returns a token that is younger than the lifespan, refreshing it
// through the provider if needed. A failed refresh is returned as
// *AuthError and nothing is cached.
func (c *TokenCache) Valid(ctx context.Context) (string, error) {
	rec, ok, err := c.store.Load(ctx, c.key)
	if err != nil {
		return "", &AuthError{Err: fmt.Errorf("load token: %w", err)}
	}
	if ok && rec.Fresh(c.now(), c.lifespan) {
		return rec.Value, nil
	}

	// The shared refresh must not die with whichever caller started it.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(c.key, func() (any, error) {
		return c.refresh(shared)
	})

	select {
	case <-ctx.Done():
		return "", cancelled(ctx)
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *TokenCache) refresh(ctx context.Context) (string, error) {
	// A flight that just finished may already have stored a fresh token.
	if rec, ok, err := c.store.Load(ctx, c.key); err == nil && ok && rec.Fresh(c.now(), c.lifespan) {
		return rec.Value, nil
	}

	start := c.now()
	value, err := c.provider.Token(ctx)
	if err == nil && value == "" {
		err = errors.New("provider returned an empty token")
	}
	if err != nil {
		err = &AuthError{Err: err}
		c.notify(RefreshEvent{Took: c.now().Sub(start), Err: err})
		return "", err
	}

	issued := c.issuedAt()
	if err := c.store.Save(ctx, c.key, store.Record{Value: value, IssuedAt: issued}, c.ttl); err != nil {
		err = &AuthError{Err: fmt.Errorf("save token: %w", err)}
		c.notify(RefreshEvent{Took: c.now().Sub(start), Err: err})
		return "", err
	}

	c.notify(RefreshEvent{Took: c.now().Sub(start)})
	return value, nil
}

// issuedAt never goes backwards, even if the clock does.
func (c *TokenCache) issuedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Before(c.lastIssued) {
		now = c.lastIssued
	}
	c.lastIssued = now
	return now
}

func (c *TokenCache) notify(ev RefreshEvent) {
	if c.onRefresh != nil {
		c.onRefresh(ev)
	}
}

// Invalidate drops the cached token so the next Valid call refreshes it.
// Use it after the API rejects a token before its lifespan is over.
func (c *TokenCache) Invalidate(ctx context.Context) error {
	return c.store.Delete(ctx, c.key)
}

// Close closes the underlying store.
func (c *TokenCache) Close() error {
	return c.store.Close()
}
