// Package servertest runs the development auth server on a loopback listener
// for tests of packages that talk to it over HTTP.
package servertest

import (
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/branchd-dev/authsession/internal/auth"
	"github.com/branchd-dev/authsession/internal/config"
	"github.com/branchd-dev/authsession/internal/server"
)

// Seed user credentials
const (
	Username = "ada"
	Password = "correct-horse"
)

// Clock is a settable time source for the token issuer
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward, expiring tokens
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Instance is a running development server
type Instance struct {
	*httptest.Server
	Clock *Clock
	App   *server.Server
}

// New starts a server with a fresh SQLite database and a seeded user.
// Access tokens live five minutes and refresh tokens a day.
func New(t testing.TB) *Instance {
	t.Helper()

	cfg := &config.Config{
		Database: config.DatabaseConfig{URL: filepath.Join(t.TempDir(), "test.sqlite")},
		Server:   config.ServerConfig{Address: "127.0.0.1:0", AllowedOrigins: []string{"http://localhost:3000"}},
		Auth: config.AuthConfig{
			JWTSecret:    "0123456789abcdef0123456789abcdef",
			AccessTTL:    5 * time.Minute,
			RefreshTTL:   24 * time.Hour,
			SeedUsername: Username,
			SeedPassword: Password,
		},
	}

	clock := &Clock{now: time.Now()}
	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL, auth.WithClock(clock.Now))
	require.NoError(t, err)

	app, err := server.New(cfg, zerolog.Nop(), "test", server.WithIssuer(issuer))
	require.NoError(t, err)

	ts := httptest.NewServer(app.Handler())
	t.Cleanup(func() {
		ts.Close()
		if sqlDB, err := app.GetDB().DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return &Instance{Server: ts, Clock: clock, App: app}
}
