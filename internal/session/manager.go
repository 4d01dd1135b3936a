package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Config describes the backend's auth endpoints and the interceptor policy.
type Config struct {
	BaseURL      string `validate:"required,url"`
	UserInfoPath string `validate:"required"`
	RefreshPath  string `validate:"required"`
	LoginPath    string `validate:"required"`
	LogoutPath   string `validate:"required"`
	SignInRoute  string `validate:"required"`

	// ProactiveRefresh renews the token before every request.
	ProactiveRefresh bool
	// CoordinateRefresh makes concurrent refreshes share one backend call.
	// When false every caller issues its own refresh.
	CoordinateRefresh bool

	Timeout time.Duration `validate:"gte=0"`
}

// DefaultConfig returns the dj-rest-auth endpoint layout for baseURL.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:           baseURL,
		UserInfoPath:      "dj-rest-auth/user/",
		RefreshPath:       "dj-rest-auth/token/refresh/",
		LoginPath:         "dj-rest-auth/login/",
		LogoutPath:        "dj-rest-auth/logout/",
		SignInRoute:       "/signin/",
		ProactiveRefresh:  true,
		CoordinateRefresh: true,
		Timeout:           30 * time.Second,
	}
}

// Validate checks required fields.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithNavigator sets where the escape sends the application.
func WithNavigator(nav Navigator) Option {
	return func(m *Manager) {
		m.nav = nav
	}
}

// WithJar sets the cookie jar holding the ambient credentials.
func WithJar(jar http.CookieJar) Option {
	return func(m *Manager) {
		m.jar = jar
	}
}

// WithBaseTransport sets the transport that actually sends requests.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(m *Manager) {
		m.baseTransport = rt
	}
}

// WithRefresher replaces the HTTP refresh call.
func WithRefresher(r Refresher) Option {
	return func(m *Manager) {
		m.refresher = r
	}
}

// WithAuthFailure replaces the 401 check used by the inbound interceptor.
func WithAuthFailure(fn func(*http.Response) bool) Option {
	return func(m *Manager) {
		m.isAuthFailure = fn
	}
}

// Manager wires the Store, the refresher, the escape and the authenticated
// client together.
type Manager struct {
	cfg     Config
	baseURL *url.URL
	logger  zerolog.Logger

	jar           http.CookieJar
	baseTransport http.RoundTripper
	nav           Navigator
	refresher     Refresher
	isAuthFailure func(*http.Response) bool

	store  *Store
	escape *Escape

	// raw skips the interceptors; used for refresh, login and logout.
	raw    *http.Client
	client *http.Client

	startOnce sync.Once
	unwatch   func()
}

// New creates a Manager for cfg.
func New(cfg Config, opts ...Option) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("%w: base url: %v", ErrInvalidConfig, err)
	}

	m := &Manager{
		cfg:           cfg,
		baseURL:       base,
		logger:        zerolog.Nop(),
		isAuthFailure: IsUnauthorized,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		m.jar = jar
	}
	rt := http.DefaultTransport
	if m.baseTransport != nil {
		rt = m.baseTransport
	}

	m.raw = &http.Client{Jar: m.jar, Transport: rt, Timeout: cfg.Timeout}
	if m.refresher == nil {
		m.refresher = NewRefreshClient(m.raw, m.resolve(cfg.RefreshPath), m.logger)
	}
	if cfg.CoordinateRefresh {
		m.refresher = NewCoordinator(m.refresher)
	}

	m.store = NewStore()
	m.escape = NewEscape(m.nav, cfg.SignInRoute, m.logger)
	m.unwatch = m.escape.Watch(m.store)

	transport := &Transport{
		base:   rt,
		jar:    m.jar,
		logger: m.logger,
		out: &outbound{
			refresher: m.refresher,
			store:     m.store,
			escape:    m.escape,
			enabled:   cfg.ProactiveRefresh,
			logger:    m.logger,
		},
		in: &inbound{
			refresher:     m.refresher,
			store:         m.store,
			escape:        m.escape,
			base:          rt,
			jar:           m.jar,
			isAuthFailure: m.isAuthFailure,
			logger:        m.logger,
		},
	}
	m.client = &http.Client{Jar: m.jar, Transport: transport, Timeout: cfg.Timeout}

	return m, nil
}

// Client returns the authenticated HTTP client.
func (m *Manager) Client() *http.Client {
	return m.client
}

// Store returns the current-user store.
func (m *Manager) Store() *Store {
	return m.store
}

// Escape returns the sign-in redirect.
func (m *Manager) Escape() *Escape {
	return m.escape
}

// Jar returns the cookie jar holding the ambient credentials.
func (m *Manager) Jar() http.CookieJar {
	return m.jar
}

// BaseURL returns the backend root.
func (m *Manager) BaseURL() *url.URL {
	return cloneURL(m.baseURL)
}

// URL resolves path against the backend root.
func (m *Manager) URL(path string) string {
	return m.resolve(path)
}

func (m *Manager) resolve(path string) string {
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return m.baseURL.String() + strings.TrimLeft(path, "/")
	}
	return m.baseURL.ResolveReference(ref).String()
}

// Start runs the identity query once per Manager and seeds the Store.
// Later calls return the current user without touching the network.
func (m *Manager) Start(ctx context.Context) *User {
	m.startOnce.Do(func() {
		Bootstrap(ctx, m.client, m.resolve(m.cfg.UserInfoPath), m.store, m.logger)
	})
	return m.store.Current()
}

// Do sends req on the authenticated client.
func (m *Manager) Do(req *http.Request) (*http.Response, error) {
	return m.client.Do(req)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User *User `json:"user"`
}

// Login posts credentials to the login endpoint. The backend sets the token
// cookies; the returned profile (or a follow-up identity query) seeds the Store.
func (m *Manager) Login(ctx context.Context, username, password string) (*User, error) {
	payload, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.resolve(m.cfg.LoginPath), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.raw.Do(req)
	if err != nil {
		return nil, transportError("login", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("login failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	user := out.User
	if user == nil {
		user, err = FetchUser(ctx, m.raw, m.resolve(m.cfg.UserInfoPath))
		if err != nil {
			return nil, err
		}
	}

	m.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("Signed in")
	m.store.Set(user)
	return user, nil
}

// Logout tells the backend to drop the credentials and marks the session
// absent. This is user initiated, so no redirect happens.
func (m *Manager) Logout(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.resolve(m.cfg.LogoutPath), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.raw.Do(req)
	if err != nil {
		m.store.Set(nil)
		return transportError("logout", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	m.store.Set(nil)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("logout failed (status %d)", resp.StatusCode)
	}

	m.logger.Info().Msg("Signed out")
	return nil
}

// Close tears the Manager down. Refreshes or retries still running can no
// longer change the Store or redirect.
func (m *Manager) Close() {
	if m.unwatch != nil {
		m.unwatch()
	}
	m.store.Close()
}
