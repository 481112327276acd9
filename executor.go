package apigate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"
)

// Param is one query parameter.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered list of query parameters. Order is preserved on the
// wire, unlike url.Values.
type Params []Param

// Add returns p with key=value appended.
func (p Params) Add(key, value string) Params {
	return append(p, Param{Key: key, Value: value})
}

// Request is one outbound API call.
type Request struct {
	URL   string // base URL, without the query parameters in Query
	Query Params
	Token string
	Body  []byte
}

// Response is the raw outcome of one exchange.
type Response struct {
	StatusCode int
	Body       []byte
}

// Executor performs a single HTTP exchange. Implementations must not retry.
type Executor interface {
	Send(ctx context.Context, req *Request) (*Response, error)
}

// BuildURL appends params, in order, to base. base must be an absolute URL;
// parameter names must be non-empty and names and values valid UTF-8.
func BuildURL(base string, params Params) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", &TransportError{Op: "build url", URL: base, Err: err}
	}
	if !u.IsAbs() || u.Host == "" {
		return "", &TransportError{Op: "build url", URL: base, Err: errors.New("base URL must be absolute")}
	}

	var q strings.Builder
	q.WriteString(u.RawQuery)
	for _, p := range params {
		if p.Key == "" {
			return "", &TransportError{Op: "build url", URL: base, Err: errors.New("empty query parameter name")}
		}
		if !utf8.ValidString(p.Key) || !utf8.ValidString(p.Value) {
			return "", &TransportError{Op: "build url", URL: base, Err: fmt.Errorf("query parameter %q is not valid UTF-8", p.Key)}
		}
		if q.Len() > 0 {
			q.WriteByte('&')
		}
		q.WriteString(url.QueryEscape(p.Key))
		q.WriteByte('=')
		q.WriteString(url.QueryEscape(p.Value))
	}
	u.RawQuery = q.String()

	return u.String(), nil
}

// HTTPExecutor sends requests as JSON POSTs with a bearer token.
type HTTPExecutor struct {
	// Client is used for every exchange. If nil, http.DefaultClient is used.
	Client *http.Client
}

// Compile-time interface check.
var _ Executor = (*HTTPExecutor)(nil)

// Send POSTs req.Body to req.URL plus req.Query and reads the whole response.
// Any status code is returned as-is; classifying it is the caller's job.
func (e *HTTPExecutor) Send(ctx context.Context, req *Request) (*Response, error) {
	target, err := BuildURL(req.URL, req.Query)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(req.Body))
	if err != nil {
		return nil, &TransportError{Op: "build request", URL: target, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.Token)

	client := e.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "send", URL: target, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read", URL: target, Err: err}
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
