package session

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

// Refresher renews the access token. A nil error means the backend accepted
// the refresh credential and rotated the cookies.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshFunc adapts a plain function to Refresher.
type RefreshFunc func(ctx context.Context) error

func (f RefreshFunc) Refresh(ctx context.Context) error {
	return f(ctx)
}

// RefreshClient performs a single POST to the refresh endpoint. It knows
// nothing about the Store; its http.Client must not run the interceptors.
type RefreshClient struct {
	httpClient *http.Client
	url        string
	logger     zerolog.Logger
}

// NewRefreshClient creates a RefreshClient posting to refreshURL.
func NewRefreshClient(httpClient *http.Client, refreshURL string, logger zerolog.Logger) *RefreshClient {
	return &RefreshClient{
		httpClient: httpClient,
		url:        refreshURL,
		logger:     logger,
	}
}

// Refresh returns nil on 2xx, an ErrRefreshDenied StatusError on any other
// status and an ErrTransport error when the endpoint cannot be reached.
func (c *RefreshClient) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, nil)
	if err != nil {
		return transportError("refresh", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("url", c.url).Msg("Token refresh unreachable")
		return transportError("refresh", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug().Int("status", resp.StatusCode).Msg("Token refresh denied")
		return &StatusError{Op: "refresh", Status: resp.StatusCode, Err: ErrRefreshDenied}
	}

	c.logger.Debug().Msg("Token refreshed")
	return nil
}
