package apigate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ryhazerus/apigate/store"
)

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// countingProvider hands out "tok-1", "tok-2", ... and counts calls.
type countingProvider struct {
	calls atomic.Int32
}

func (p *countingProvider) Token(context.Context) (string, error) {
	n := p.calls.Add(1)
	return fmt.Sprintf("tok-%d", n), nil
}

func TestNewTokenCacheValidation(t *testing.T) {
	if _, err := NewTokenCache(nil, time.Hour); !errors.Is(err, ErrConfiguration) {
		t.Errorf("nil provider: expected ErrConfiguration, got %v", err)
	}
	if _, err := NewTokenCache(&countingProvider{}, 0); !errors.Is(err, ErrConfiguration) {
		t.Errorf("zero lifespan: expected ErrConfiguration, got %v", err)
	}
}

func TestTokenCacheLifespan(t *testing.T) {
	const lifespan = time.Hour
	clock := newFakeClock()
	issued := clock.Now()
	p := &countingProvider{}

	c, err := NewTokenCache(p, lifespan, WithClock(clock.Now))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	tok, err := c.Valid(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tok != "tok-1" || p.calls.Load() != 1 {
		t.Fatalf("first call: token=%q calls=%d, want tok-1 after 1 call", tok, p.calls.Load())
	}

	clock.Set(issued.Add(lifespan - time.Millisecond))
	tok, err = c.Valid(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tok != "tok-1" || p.calls.Load() != 1 {
		t.Errorf("before expiry: token=%q calls=%d, want cached tok-1", tok, p.calls.Load())
	}

	clock.Set(issued.Add(lifespan + time.Millisecond))
	tok, err = c.Valid(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tok != "tok-2" || p.calls.Load() != 2 {
		t.Errorf("after expiry: token=%q calls=%d, want tok-2 after exactly one more call", tok, p.calls.Load())
	}
}

func TestTokenCacheInjectedClockDecidesExpiry(t *testing.T) {
	clock := newFakeClock()
	p := &countingProvider{}

	c, err := NewTokenCache(p, 50*time.Millisecond, WithClock(clock.Now))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	c.Valid(ctx)
	// Real time passes the lifespan; the injected clock does not move.
	time.Sleep(80 * time.Millisecond)

	tok, err := c.Valid(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tok != "tok-1" || p.calls.Load() != 1 {
		t.Errorf("token=%q calls=%d, want cached tok-1 while the clock is frozen", tok, p.calls.Load())
	}

	clock.Set(clock.Now().Add(time.Second))
	if tok, _ := c.Valid(ctx); tok != "tok-2" {
		t.Errorf("token after injected clock passes lifespan = %q, want tok-2", tok)
	}
}

func TestTokenCacheSingleFlight(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32

	provider := TokenProviderFunc(func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return "shared", nil
	})

	c, err := NewTokenCache(provider, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	const callers = 20
	tokens := make(chan string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := c.Valid(context.Background())
			if err != nil {
				t.Errorf("valid: %v", err)
				return
			}
			tokens <- tok
		}()
	}

	<-started
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(tokens)

	if n := calls.Load(); n != 1 {
		t.Errorf("provider calls = %d, want 1", n)
	}
	for tok := range tokens {
		if tok != "shared" {
			t.Errorf("token = %q, want %q", tok, "shared")
		}
	}
}

func TestTokenCacheProviderFailureIsNotCached(t *testing.T) {
	var calls atomic.Int32
	boom := errors.New("sso unavailable")
	provider := TokenProviderFunc(func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", boom
		}
		return "recovered", nil
	})

	c, err := NewTokenCache(provider, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	_, err = c.Valid(ctx)
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Errorf("expected provider error in chain, got %v", err)
	}
	var authErr *AuthError
	if !errors.As(err, &authErr) {
		t.Errorf("expected *AuthError, got %T", err)
	}

	tok, err := c.Valid(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tok != "recovered" || calls.Load() != 2 {
		t.Errorf("token=%q calls=%d, want recovered after 2 calls", tok, calls.Load())
	}
}

func TestTokenCacheRejectsEmptyToken(t *testing.T) {
	c, err := NewTokenCache(TokenProviderFunc(func(context.Context) (string, error) {
		return "", nil
	}), time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Valid(context.Background()); !errors.Is(err, ErrAuthentication) {
		t.Errorf("expected ErrAuthentication for empty token, got %v", err)
	}
}

func TestTokenCacheWaiterCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	c, err := NewTokenCache(TokenProviderFunc(func(context.Context) (string, error) {
		<-release
		return "slow", nil
	}), time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := c.Valid(ctx); !errors.Is(err, ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
}

func TestTokenCacheIssuedAtNeverGoesBackwards(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now()
	s := store.NewMemoryStore()

	c, err := NewTokenCache(&countingProvider{}, time.Minute, WithClock(clock.Now), WithStore(s))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	clock.Set(start.Add(2 * time.Minute))
	c.Valid(ctx)

	// Clock steps back, but the record is gone, forcing a refresh.
	clock.Set(start)
	c.Invalidate(ctx)
	c.Valid(ctx)

	rec, ok, err := s.Load(ctx, defaultTokenKey)
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if rec.IssuedAt.Before(start.Add(2 * time.Minute)) {
		t.Errorf("issued at %s went backwards", rec.IssuedAt)
	}
}

func TestTokenCacheInvalidate(t *testing.T) {
	p := &countingProvider{}
	c, err := NewTokenCache(p, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	c.Valid(ctx)
	if err := c.Invalidate(ctx); err != nil {
		t.Fatal(err)
	}

	tok, _ := c.Valid(ctx)
	if tok != "tok-2" {
		t.Errorf("token after invalidate = %q, want tok-2", tok)
	}
}

func TestTokenCacheSharesPersistentStore(t *testing.T) {
	persistent, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer persistent.Close()

	p := &countingProvider{}
	ctx := context.Background()

	first, _ := NewTokenCache(p, time.Hour, WithStore(persistent), WithStoreKey("crpt"))
	first.Valid(ctx)

	// A second cache over the same store, as after a restart.
	second, _ := NewTokenCache(p, time.Hour, WithStore(persistent), WithStoreKey("crpt"))
	tok, err := second.Valid(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tok != "tok-1" || p.calls.Load() != 1 {
		t.Errorf("token=%q calls=%d, want reused tok-1", tok, p.calls.Load())
	}
}

func TestTokenCacheRefreshHook(t *testing.T) {
	var events []RefreshEvent
	c, err := NewTokenCache(&countingProvider{}, time.Hour, WithOnRefresh(func(ev RefreshEvent) {
		events = append(events, ev)
	}))
	if err != nil {
		t.Fatal(err)
	}

	c.Valid(context.Background())
	c.Valid(context.Background())

	if len(events) != 1 || events[0].Err != nil {
		t.Errorf("events = %+v, want one successful refresh", events)
	}
}
