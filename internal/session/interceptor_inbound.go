package session

import (
	"context"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

// IsUnauthorized is the default authorization failure check.
func IsUnauthorized(resp *http.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusUnauthorized
}

// inbound runs after a response arrives. On an authorization failure it
// refreshes and replays the call once on the base transport.
type inbound struct {
	refresher     Refresher
	store         *Store
	escape        *Escape
	base          http.RoundTripper
	jar           http.CookieJar
	isAuthFailure func(*http.Response) bool
	logger        zerolog.Logger
}

func (in *inbound) after(ctx context.Context, p *PendingRequest, resp *http.Response, err error) (*http.Response, Outcome, error) {
	if err != nil {
		return nil, OutcomeTransportFailed, err
	}
	if !in.isAuthFailure(resp) {
		return resp, OutcomeOK, nil
	}

	// A replayed call is never refreshed again.
	if !p.markRetried() {
		return resp, OutcomeRetriedFailed, nil
	}

	if rerr := in.refresher.Refresh(ctx); rerr != nil {
		// The caller gave up, which says nothing about the session.
		if cerr := ctx.Err(); cerr != nil {
			in.logger.Debug().Err(rerr).Str("url", p.URL.String()).Msg("Refresh after 401 abandoned by caller")
			drain(resp)
			return nil, OutcomeRefreshFailed, cerr
		}
		if invalidate(in.store, in.escape) {
			in.logger.Warn().Err(rerr).Str("url", p.URL.String()).Msg("Refresh after 401 failed, session cleared")
		}
		return resp, OutcomeRefreshFailed, nil
	}

	retry, berr := p.build(ctx, in.jar)
	if berr != nil {
		return resp, OutcomeRetriedFailed, nil
	}

	drain(resp)
	rresp, rerr := in.base.RoundTrip(retry)
	if rerr != nil {
		return nil, OutcomeRetriedFailed, rerr
	}
	if in.isAuthFailure(rresp) || rresp.StatusCode >= 400 {
		return rresp, OutcomeRetriedFailed, nil
	}
	return rresp, OutcomeRetriedOK, nil
}

func drain(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
