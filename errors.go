package apigate

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Sentinel errors. Every error returned by Invoke, Call and InvalidateToken
// matches one of these with errors.Is, so callers can build their own retry
// policy. Wrapped causes stay reachable too, so a foreign executor error may
// also match its own sentinels.
var (
	// ErrConfiguration reports invalid construction arguments or an unknown endpoint.
	ErrConfiguration = errors.New("apigate: invalid configuration")
	// ErrCancelled reports that the caller's context ended while waiting for a permit.
	ErrCancelled = errors.New("apigate: cancelled")
	// ErrAuthentication reports that the token provider failed.
	ErrAuthentication = errors.New("apigate: authentication failed")
	// ErrTransport reports URL construction, connection or response-read failures.
	ErrTransport = errors.New("apigate: transport failure")
	// ErrUnexpectedStatus reports an HTTP status other than 200.
	ErrUnexpectedStatus = errors.New("apigate: unexpected response status")
	// ErrDecoding reports a body that could not be encoded or decoded.
	ErrDecoding = errors.New("apigate: decoding failed")
	// ErrLimitExceeded is returned by non-blocking admission when the window is used up.
	ErrLimitExceeded = errors.New("apigate: rate limit exceeded")
	// ErrClosed is returned once the client or limiter has been closed.
	ErrClosed = errors.New("apigate: closed")
)

// ConfigError describes a rejected configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("apigate: invalid configuration: %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// AuthError wraps a token provider failure.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("apigate: authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() []error {
	return []error{ErrAuthentication, e.Err}
}

// TransportError wraps a failure to build, send or read an HTTP exchange.
type TransportError struct {
	Op  string // "build url", "send", "read"
	URL string
	Err error
}

func (e *TransportError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("apigate: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("apigate: %s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// StatusError is returned when the API answers with a status other than 200.
// Body holds the raw response entity, which usually carries the API's own
// error payload.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("apigate: unexpected response from %s: %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUnexpectedStatus
}

// DecodeError wraps a JSON encoding or decoding failure.
type DecodeError struct {
	Op  string // "encode" or "decode"
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("apigate: %s: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecoding, e.Err}
}

// LimitExceededError is returned by non-blocking admission. It supports
// waiting for the window to reset.
type LimitExceededError struct {
	Capacity int
	resetAt  time.Time
	reset    <-chan struct{}
	closed   <-chan struct{}
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("apigate: rate limit exceeded (%d per window)", e.Capacity)
}

func (e *LimitExceededError) Unwrap() error {
	return ErrLimitExceeded
}

// ResetAt reports when the window that rejected the request ends.
func (e *LimitExceededError) ResetAt() time.Time {
	return e.resetAt
}

// Wait blocks until the window that rejected the request has been replenished
// or the context is cancelled. It does not reserve a permit. If the limiter
// is closed first, Wait returns ErrClosed.
func (e *LimitExceededError) Wait(ctx context.Context) error {
	if e.reset == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return cancelled(ctx)
	case <-e.closed:
		return ErrClosed
	case <-e.reset:
		return nil
	}
}

func cancelled(ctx context.Context) error {
	return fmt.Errorf("%w: %w", ErrCancelled, context.Cause(ctx))
}
