package session

import (
	"net/http"

	"github.com/rs/zerolog"
)

// Transport is the authenticated client's http.RoundTripper. Every call runs
// the outbound refresh, the base transport, then the inbound 401 handling.
//
// For a single call the proactive refresh always precedes dispatch and the
// reactive refresh always follows the response. Calls do not wait on each
// other.
//
// Redirect hops followed by http.Client re-enter RoundTrip. Only the first hop
// runs the proactive refresh.
type Transport struct {
	base   http.RoundTripper
	jar    http.CookieJar
	out    *outbound
	in     *inbound
	logger zerolog.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	pending, err := capturePending(req, t.jar)
	if err != nil {
		return nil, err
	}

	if req.Response == nil {
		t.out.before(ctx)
	}

	dispatch, err := pending.build(ctx, t.jar)
	if err != nil {
		return nil, err
	}
	resp, err := t.base.RoundTrip(dispatch)

	resp, outcome, err := t.in.after(ctx, pending, resp, err)

	evt := t.logger.Debug()
	if outcome == OutcomeRefreshFailed || outcome == OutcomeRetriedFailed {
		evt = t.logger.Info()
	}
	evt.Str("method", pending.Method).
		Str("url", pending.URL.String()).
		Str("outcome", outcome.String()).
		Msg("Authenticated request")

	return resp, err
}
