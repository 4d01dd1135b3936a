// Package session keeps the client-side notion of "who is signed in" in step
// with the backend's short-lived access token.
//
// A Manager owns four pieces:
//
//   - Store: the single current-user slot plus its subscribers.
//   - RefreshClient: one POST to the token refresh endpoint, optionally
//     wrapped in a Coordinator so concurrent callers share one refresh.
//   - Transport: an http.RoundTripper that refreshes before every request
//     and, on a 401, refreshes and replays the request exactly once.
//   - Escape: the redirect to the sign-in route, fired only when a session
//     that was present becomes invalid.
//
// Callers use Manager.Client() like any *http.Client and never see tokens.
// Credentials travel as cookies in the client's jar.
package session
