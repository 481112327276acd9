package apigate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ryhazerus/apigate/store"
)

// Client is the entry point of the package. It admits calls through a
// WindowLimiter, attaches a bearer token from a TokenCache and sends them
// through an Executor. It is safe for concurrent use.
type Client struct {
	cfg       Config
	limiter   *WindowLimiter
	tokens    *TokenCache
	exec      Executor
	metrics   *metrics
	closeOnce sync.Once
	closeErr  error

	// set by options
	httpClient *http.Client
	tokenStore store.TokenStore
	tokenKey   string
	log        *zap.Logger
	registerer prometheus.Registerer
	scope      []string
}

// New validates cfg and creates a Client. On any error nothing is started.
// The caller must Close the client to stop its window ticker.
func New(cfg Config, provider TokenProvider, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, &ConfigError{Field: "TokenProvider", Reason: "must not be nil"}
	}
	if cfg.TokenLifespan == 0 {
		cfg.TokenLifespan = DefaultTokenLifespan
	}
	if cfg.Admission == "" {
		cfg.Admission = AdmissionWait
	}
	endpoints := make(map[string]string, len(cfg.Endpoints))
	for name, u := range cfg.Endpoints {
		endpoints[name] = u
	}
	cfg.Endpoints = endpoints

	c := &Client{cfg: cfg, tokenKey: defaultTokenKey}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.exec == nil {
		c.exec = &HTTPExecutor{Client: c.httpClient}
	}
	if c.scope == nil {
		c.scope = scopeOf(cfg.Endpoints)
	}

	m, err := newMetrics(c.registerer)
	if err != nil {
		return nil, err
	}
	c.metrics = m

	tokens, err := NewTokenCache(provider, cfg.TokenLifespan,
		WithStore(c.tokenStore),
		WithStoreKey(c.tokenKey),
		WithOnRefresh(c.onRefresh),
	)
	if err != nil {
		m.unregister()
		return nil, err
	}
	c.tokens = tokens

	// Started last: the ticker goroutine is the only thing New must undo.
	limiter, err := NewWindowLimiter(cfg.RequestsPerWindow, cfg.Window, WithOnReset(c.onReset))
	if err != nil {
		m.unregister()
		return nil, err
	}
	c.limiter = limiter

	c.log.Debug("client created",
		zap.Int("requests_per_window", cfg.RequestsPerWindow),
		zap.Duration("window", cfg.Window),
		zap.Stringer("admission", cfg.Admission),
		zap.Int("endpoints", len(cfg.Endpoints)),
	)
	return c, nil
}

// Invoke admits the call, obtains a valid token, resolves endpoint and POSTs
// body to it with params appended to the URL. It returns the response only
// for status 200; any other status is a *StatusError carrying the raw body.
// Invoke never retries.
func (c *Client) Invoke(ctx context.Context, endpoint string, params Params, body []byte) (*Response, error) {
	log := c.log.With(zap.String("call_id", uuid.NewString()), zap.String("endpoint", endpoint))

	resp, err := c.invoke(ctx, log, endpoint, params, body)

	label := endpoint
	if _, ok := c.cfg.Endpoints[endpoint]; !ok {
		label = "unknown"
	}
	c.metrics.request(label, err)
	return resp, err
}

func (c *Client) invoke(ctx context.Context, log *zap.Logger, endpoint string, params Params, body []byte) (*Response, error) {
	if err := c.admit(ctx); err != nil {
		log.Debug("not admitted", zap.Error(err))
		return nil, err
	}

	token, err := c.tokens.Valid(ctx)
	if err != nil {
		log.Warn("no valid token", zap.Error(err))
		return nil, err
	}

	base, ok := c.cfg.Endpoints[endpoint]
	if !ok {
		return nil, &ConfigError{Field: "endpoint", Reason: fmt.Sprintf("unknown endpoint %q", endpoint)}
	}

	resp, err := c.exec.Send(ctx, &Request{URL: base, Query: params, Token: token, Body: body})
	if err == nil && resp == nil {
		err = errors.New("executor returned no response")
	}
	if err != nil {
		if !errors.Is(err, ErrTransport) {
			err = &TransportError{Op: "send", URL: base, Err: err}
		}
		log.Warn("request failed", zap.Error(err))
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		log.Warn("unexpected response status",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", resp.Body),
		)
		return nil, &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: resp.Body}
	}

	log.Debug("request completed", zap.Int("bytes", len(resp.Body)))
	return resp, nil
}

func (c *Client) admit(ctx context.Context) error {
	start := time.Now()

	var err error
	if c.cfg.Admission == AdmissionFailFast {
		err = c.limiter.TryAcquire()
	} else {
		err = c.limiter.Acquire(ctx)
	}
	if err != nil {
		return err
	}

	c.metrics.admitted(time.Since(start))
	return nil
}

func (c *Client) onReset(ended LimiterStats) {
	c.metrics.resets.Inc()
	c.log.Debug("window reset",
		zap.Int("admitted", ended.InUse),
		zap.Int("waiting", ended.Waiting),
		zap.Uint64("window", ended.Resets+1),
	)
}

func (c *Client) onRefresh(ev RefreshEvent) {
	c.metrics.refreshed(ev.Err)
	if ev.Err != nil {
		c.log.Warn("token refresh failed", zap.Duration("took", ev.Took), zap.Error(ev.Err))
		return
	}
	c.log.Debug("token refreshed", zap.Duration("took", ev.Took))
}

// Call JSON-encodes in, invokes endpoint and decodes the 200 response into T.
// Encoding and decoding failures are returned as *DecodeError.
func Call[T any](ctx context.Context, c *Client, endpoint string, params Params, in any) (T, error) {
	var out T

	body, err := json.Marshal(in)
	if err != nil {
		return out, &DecodeError{Op: "encode", Err: err}
	}

	resp, err := c.Invoke(ctx, endpoint, params, body)
	if err != nil {
		return out, err
	}

	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return out, &DecodeError{Op: "decode", Err: err}
	}
	return out, nil
}

// InvalidateToken drops the cached token so the next call fetches a new one.
// A store failure is returned as *AuthError.
func (c *Client) InvalidateToken(ctx context.Context) error {
	if err := c.tokens.Invalidate(ctx); err != nil {
		return &AuthError{Err: fmt.Errorf("delete token: %w", err)}
	}
	return nil
}

// Transport wraps an http.RoundTripper so that requests to the client's
// scope share its rate limit and carry its bearer token. Requests outside
// the scope are passed to base untouched.
func (c *Client) Transport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &transport{client: c, base: base}
}

// Stats returns the limiter's current state.
func (c *Client) Stats() LimiterStats {
	return c.limiter.Stats()
}

// Endpoints returns the sorted names of the configured endpoints.
func (c *Client) Endpoints() []string {
	out := make([]string, 0, len(c.cfg.Endpoints))
	for name := range c.cfg.Endpoints {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Close stops the window ticker, fails blocked callers with ErrClosed and
// closes the token store. The store's Close error is returned as is.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.limiter.Close()
		c.metrics.unregister()
		c.closeErr = c.tokens.Close()
	})
	return c.closeErr
}
