package apigate

import "net/http"

// transport implements http.RoundTripper. In-scope requests are admitted by
// the client's limiter and get its bearer token before being forwarded.
type transport struct {
	client *Client
	base   http.RoundTripper
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !inScope(req.URL, t.client.scope) {
		return t.base.RoundTrip(req)
	}

	ctx := req.Context()
	if err := t.client.admit(ctx); err != nil {
		closeBody(req)
		return nil, err
	}

	token, err := t.client.tokens.Valid(ctx)
	if err != nil {
		closeBody(req)
		return nil, err
	}

	// RoundTrippers must not modify the caller's request.
	out := req.Clone(ctx)
	out.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(out)
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		req.Body.Close()
	}
}
