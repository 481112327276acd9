package apigate

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LimiterStats is a point-in-time view of a WindowLimiter.
type LimiterStats struct {
	Capacity int    // permits per window
	InUse    int    // permits consumed in the current window
	Waiting  int    // callers blocked in Acquire
	Resets   uint64 // windows completed since construction
}

// LimiterOption configures a WindowLimiter.
type LimiterOption func(*WindowLimiter)

// WithOnReset registers a callback invoked after every replenishment. It
// receives the stats of the window that just ended, so InUse is the number
// of permits that window admitted. The callback runs on the reset goroutine
// and must not block.
func WithOnReset(fn func(LimiterStats)) LimiterOption {
	return func(l *WindowLimiter) {
		l.onReset = fn
	}
}

// WindowLimiter admits at most capacity callers per fixed window. Permits are
// never released individually: the whole pool is restored at each window
// boundary, which keeps the external ceiling intact even for callers that
// never report completion.
type WindowLimiter struct {
	capacity int
	window   time.Duration
	onReset  func(LimiterStats)

	mu      sync.Mutex
	used    int
	waiting int
	resets  uint64
	resetAt time.Time
	wake    chan struct{} // closed and replaced on every reset
	closed  bool

	closing chan struct{} // closed once by Close
	stop    chan struct{}
	done    chan struct{}
}

// NewWindowLimiter creates a limiter and starts its reset ticker. The caller
// owns the limiter and must Close it to stop the ticker.
func NewWindowLimiter(capacity int, window time.Duration, opts ...LimiterOption) (*WindowLimiter, error) {
	if capacity < 1 {
		return nil, &ConfigError{Field: "RequestsPerWindow", Reason: fmt.Sprintf("must be at least 1, got %d", capacity)}
	}
	if window <= 0 {
		return nil, &ConfigError{Field: "Window", Reason: fmt.Sprintf("must be positive, got %s", window)}
	}

	l := &WindowLimiter{
		capacity: capacity,
		window:   window,
		resetAt:  time.Now().Add(window),
		wake:     make(chan struct{}),
		closing:  make(chan struct{}),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}

	go l.run()
	return l, nil
}

func (l *WindowLimiter) run() {
	defer close(l.done)

	t := time.NewTicker(l.window)
	defer t.Stop()

	for {
		select {
		case <-l.stop:
			return
		case now := <-t.C:
			l.replenish(now.Add(l.window))
		}
	}
}

// Acquire blocks until a permit is available in the current window or ctx
// is done. A cancelled caller never holds a permit.
func (l *WindowLimiter) Acquire(ctx context.Context) error {
	if ctx.Err() != nil {
		return cancelled(ctx)
	}

	for {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return ErrClosed
		}
		if l.used < l.capacity {
			l.used++
			l.mu.Unlock()
			return nil
		}
		l.waiting++
		wake := l.wake
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.waiting--
			l.mu.Unlock()
			return cancelled(ctx)
		case <-l.closing:
			l.mu.Lock()
			l.waiting--
			l.mu.Unlock()
			return ErrClosed
		case <-wake:
			l.mu.Lock()
			l.waiting--
			l.mu.Unlock()
		}
	}
}

// TryAcquire takes a permit without blocking. When the window is used up it
// returns a *LimitExceededError whose Wait method blocks until the next reset.
func (l *WindowLimiter) TryAcquire() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if l.used < l.capacity {
		l.used++
		return nil
	}
	return &LimitExceededError{
		Capacity: l.capacity,
		resetAt:  l.resetAt,
		reset:    l.wake,
		closed:   l.closing,
	}
}

// reset restores the full pool immediately without moving the ticker schedule.
func (l *WindowLimiter) reset() {
	l.mu.Lock()
	next := l.resetAt
	l.mu.Unlock()
	l.replenish(next)
}

func (l *WindowLimiter) replenish(next time.Time) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	ended := l.statsLocked()
	l.used = 0
	l.resets++
	l.resetAt = next
	close(l.wake)
	l.wake = make(chan struct{})
	fn := l.onReset
	l.mu.Unlock()

	if fn != nil {
		fn(ended)
	}
}

// Stats returns the current pool state.
func (l *WindowLimiter) Stats() LimiterStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statsLocked()
}

func (l *WindowLimiter) statsLocked() LimiterStats {
	return LimiterStats{
		Capacity: l.capacity,
		InUse:    l.used,
		Waiting:  l.waiting,
		Resets:   l.resets,
	}
}

// Close stops the reset ticker and fails every blocked and future Acquire
// with ErrClosed. It is safe to call more than once.
func (l *WindowLimiter) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.closing)
	l.mu.Unlock()

	close(l.stop)
	<-l.done
	return nil
}
