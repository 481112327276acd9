package apigate

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ryhazerus/apigate/store"
)

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets the http.Client used by the default executor.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithExecutor replaces the HTTP executor entirely, for example with a fake
// in tests.
func WithExecutor(e Executor) Option {
	return func(c *Client) {
		c.exec = e
	}
}

// WithTokenStore sets the backing store for the bearer token.
// If not provided, an in-memory store is used. The Client closes it on Close.
func WithTokenStore(s store.TokenStore) Option {
	return func(c *Client) {
		c.tokenStore = s
	}
}

// WithTokenKey sets the key the token is stored under. Clients that share
// a persistent store but talk to different APIs need distinct keys.
func WithTokenKey(key string) Option {
	return func(c *Client) {
		c.tokenKey = key
	}
}

// WithLogger sets the logger. If not provided, nothing is logged.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithMetrics registers the client's collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.registerer = reg
	}
}

// WithScope sets the URL patterns that Transport authenticates and limits.
// Patterns use the same syntax as "api.example.com/v1/*". By default the
// scope is every host in the endpoint table.
func WithScope(patterns ...string) Option {
	return func(c *Client) {
		c.scope = patterns
	}
}
