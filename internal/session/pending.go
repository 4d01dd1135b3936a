package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
)

// PendingRequest is the immutable description of an outbound call, captured
// before dispatch so it can be replayed once after a successful refresh.
type PendingRequest struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte

	retried atomic.Bool
}

// capturePending reads and closes req.Body. With a jar the Cookie header is
// left out: cookies are ambient and resolved from the jar on every dispatch.
func capturePending(req *http.Request, jar http.CookieJar) (*PendingRequest, error) {
	p := &PendingRequest{
		Method: req.Method,
		URL:    cloneURL(req.URL),
		Header: req.Header.Clone(),
	}
	if p.Header == nil {
		p.Header = make(http.Header)
	}
	if jar != nil {
		p.Header.Del("Cookie")
	}

	if req.Body != nil && req.Body != http.NoBody {
		defer req.Body.Close()
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		p.Body = body
	}
	return p, nil
}

// markRetried flags the call as replayed. It returns false if it already was.
func (p *PendingRequest) markRetried() bool {
	return p.retried.CompareAndSwap(false, true)
}

// Retried reports whether the call has been replayed.
func (p *PendingRequest) Retried() bool {
	return p.retried.Load()
}

// build creates a fresh *http.Request for one dispatch of the call, with the
// jar's current cookies attached.
func (p *PendingRequest) build(ctx context.Context, jar http.CookieJar) (*http.Request, error) {
	var body io.Reader
	if p.Body != nil {
		body = bytes.NewReader(p.Body)
	}
	req, err := http.NewRequestWithContext(ctx, p.Method, p.URL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header = p.Header.Clone()
	if jar != nil {
		for _, c := range jar.Cookies(p.URL) {
			req.AddCookie(c)
		}
	}
	return req, nil
}

func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	u2 := *u
	if u.User != nil {
		user := *u.User
		u2.User = &user
	}
	return &u2
}
