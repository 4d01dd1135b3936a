package session

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// recordedCall is one request seen by the fake API endpoint.
type recordedCall struct {
	Method string
	Path   string
	Body   string
	Header http.Header
	Access string
}

// fakeBackend mimics the black-box auth API: an identity endpoint, a refresh
// endpoint that rotates the access cookie, and a /data endpoint answering
// from a scripted list of statuses.
type fakeBackend struct {
	t      *testing.T
	server *httptest.Server

	mu         sync.Mutex
	signedIn   bool
	refreshOK  bool
	statuses   []int
	calls      []recordedCall
	generation int

	refreshCalls atomic.Int32
	userCalls    atomic.Int32
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	b := &fakeBackend{t: t, signedIn: true, refreshOK: true}
	mux := http.NewServeMux()
	mux.HandleFunc("/dj-rest-auth/user/", b.handleUser)
	mux.HandleFunc("/dj-rest-auth/token/refresh/", b.handleRefresh)
	mux.HandleFunc("/dj-rest-auth/login/", b.handleLogin)
	mux.HandleFunc("/dj-rest-auth/logout/", b.handleLogout)
	mux.HandleFunc("/data", b.handleData)
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/data", http.StatusFound)
	})

	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *fakeBackend) setRefreshOK(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refreshOK = ok
}

func (b *fakeBackend) setSignedIn(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.signedIn = ok
}

// script queues the statuses /data returns, one per call. Once exhausted it
// answers 200.
func (b *fakeBackend) script(statuses ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = append(b.statuses, statuses...)
}

func (b *fakeBackend) dataCalls() []recordedCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]recordedCall, len(b.calls))
	copy(out, b.calls)
	return out
}

func (b *fakeBackend) handleUser(w http.ResponseWriter, r *http.Request) {
	b.userCalls.Add(1)
	b.mu.Lock()
	signedIn := b.signedIn
	b.mu.Unlock()

	if !signedIn {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Authentication credentials were not provided."}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"pk":1,"username":"ada","email":"ada@example.com","profile_id":7}`))
}

func (b *fakeBackend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		b.t.Errorf("unexpected refresh method: %s", r.Method)
	}
	b.refreshCalls.Add(1)

	b.mu.Lock()
	ok := b.refreshOK
	if ok {
		b.generation++
	}
	gen := b.generation
	b.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Token is invalid or expired"}`))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "access", Value: fmt.Sprintf("v%d", gen), Path: "/"})
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{}`))
}

func (b *fakeBackend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password != "secret" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"non_field_errors":["Unable to log in with provided credentials."]}`))
		return
	}
	b.setSignedIn(true)
	http.SetCookie(w, &http.Cookie{Name: "access", Value: "v0", Path: "/"})
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"user":{"pk":1,"username":%q}}`, req.Username)
}

func (b *fakeBackend) handleLogout(w http.ResponseWriter, r *http.Request) {
	b.setSignedIn(false)
	http.SetCookie(w, &http.Cookie{Name: "access", Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusOK)
}

func (b *fakeBackend) handleData(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	call := recordedCall{
		Method: r.Method,
		Path:   r.URL.Path,
		Body:   string(body),
		Header: r.Header.Clone(),
	}
	if c, err := r.Cookie("access"); err == nil {
		call.Access = c.Value
	}

	b.mu.Lock()
	b.calls = append(b.calls, call)
	status := http.StatusOK
	if len(b.statuses) > 0 {
		status = b.statuses[0]
		b.statuses = b.statuses[1:]
	}
	b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status == http.StatusOK {
		_, _ = w.Write([]byte(`{"data":"ok"}`))
		return
	}
	_, _ = fmt.Fprintf(w, `{"status":%d}`, status)
}

// navRecorder counts navigations.
type navRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (n *navRecorder) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *navRecorder) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.paths)
}

func newTestManager(t *testing.T, b *fakeBackend, mutate func(*Config), opts ...Option) (*Manager, *navRecorder) {
	t.Helper()

	cfg := DefaultConfig(b.server.URL)
	if mutate != nil {
		mutate(&cfg)
	}
	nav := &navRecorder{}
	m, err := New(cfg, append([]Option{WithNavigator(nav)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(m.Close)
	return m, nav
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
