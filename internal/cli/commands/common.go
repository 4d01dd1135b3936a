package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/branchd-dev/authsession/internal/cli/auth"
	"github.com/branchd-dev/authsession/internal/cli/client"
	"github.com/branchd-dev/authsession/internal/cli/config"
	"github.com/branchd-dev/authsession/internal/cli/serverselect"
	"github.com/branchd-dev/authsession/internal/session"
)

// ErrSignInRequired is returned when the session was lost during a command
var ErrSignInRequired = errors.New("session expired, sign in again with 'authsession login'")

// Runtime carries what commands need from the outside world
type Runtime struct {
	Out    io.Writer
	ErrOut io.Writer

	Cookies auth.CookieStore
	Prompt  serverselect.Prompter

	// ServerAlias is set by the --server flag
	ServerAlias string

	// ReadPassword reads a password interactively
	ReadPassword func() (string, error)

	Logger zerolog.Logger
}

// NewRuntime returns a Runtime wired to the terminal and the OS keyring
func NewRuntime() *Runtime {
	return &Runtime{
		Out:          os.Stdout,
		ErrOut:       os.Stderr,
		Cookies:      auth.Default,
		Prompt:       serverselect.PromptServerSelection,
		ReadPassword: readPasswordFromTerminal,
		Logger:       log.Logger,
	}
}

func (rt *Runtime) printf(format string, args ...any) {
	fmt.Fprintf(rt.Out, format, args...)
}

// getSelectedServer loads the project config and returns the selected server
func (rt *Runtime) getSelectedServer() (*config.Config, *config.Server, error) {
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w\nRun 'authsession init <url>' to create a configuration file", err)
	}

	server, err := serverselect.ResolveServer(cfg, rt.ServerAlias, rt.Prompt)
	if err != nil {
		return nil, nil, err
	}

	if server.URL == "" {
		return nil, nil, fmt.Errorf("server URL is empty. Please edit %s and add a valid URL", config.ConfigFileName)
	}

	return cfg, server, nil
}

// cliNavigator stands in for the sign-in page: it prints a hint and
// remembers that the session was lost so the command can exit non-zero.
type cliNavigator struct {
	out   io.Writer
	fired atomic.Bool
}

func (n *cliNavigator) Navigate(path string) {
	n.fired.Store(true)
	fmt.Fprintf(n.out, "Your session has expired. Run 'authsession login' to sign in again (%s).\n", path)
}

func (n *cliNavigator) Fired() bool {
	return n.fired.Load()
}

// apiSession is an open API client for the selected server
type apiSession struct {
	*client.Client
	server *config.Server
	nav    *cliNavigator
}

// openSession builds a client for the selected server with stored cookies loaded
func (rt *Runtime) openSession() (*apiSession, error) {
	cfg, server, err := rt.getSelectedServer()
	if err != nil {
		return nil, err
	}

	sessionCfg, err := cfg.SessionConfig(server)
	if err != nil {
		return nil, err
	}

	nav := &cliNavigator{out: rt.ErrOut}
	c, err := client.New(sessionCfg, rt.Cookies, rt.Logger, session.WithNavigator(nav))
	if err != nil {
		return nil, err
	}

	return &apiSession{Client: c, server: server, nav: nav}, nil
}

// openStartedSession opens a session and resolves the current user first
func (rt *Runtime) openStartedSession(ctx context.Context) (*apiSession, *session.User, error) {
	s, err := rt.openSession()
	if err != nil {
		return nil, nil, err
	}
	return s, s.Start(ctx), nil
}

// finish persists cookies and turns a lost session into ErrSignInRequired
func (s *apiSession) finish(err error) error {
	if closeErr := s.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if s.nav.Fired() {
		return ErrSignInRequired
	}
	return err
}
