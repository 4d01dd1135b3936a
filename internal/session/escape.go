package session

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Navigator moves the application to another route.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a plain function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) {
	f(path)
}

// Escape sends the application to the sign-in route when a session that was
// present becomes invalid. It latches after the first redirect and re-arms
// only once a user is present again, so simultaneous failures navigate once.
type Escape struct {
	nav    Navigator
	path   string
	fired  atomic.Bool
	count  atomic.Int64
	logger zerolog.Logger
}

// NewEscape creates an Escape navigating to signInPath.
func NewEscape(nav Navigator, signInPath string, logger zerolog.Logger) *Escape {
	return &Escape{
		nav:    nav,
		path:   signInPath,
		logger: logger,
	}
}

// RedirectToSignIn navigates to the sign-in route unless a redirect is
// already pending. It reports whether this call navigated.
func (e *Escape) RedirectToSignIn() bool {
	if !e.fired.CompareAndSwap(false, true) {
		return false
	}
	e.count.Add(1)
	e.logger.Info().Str("path", e.path).Msg("Session expired, redirecting to sign in")
	if e.nav != nil {
		e.nav.Navigate(e.path)
	}
	return true
}

// Rearm allows the next RedirectToSignIn to navigate again.
func (e *Escape) Rearm() {
	e.fired.Store(false)
}

// Count returns how many redirects have been issued.
func (e *Escape) Count() int64 {
	return e.count.Load()
}

// Watch re-arms the escape whenever store gains a user.
func (e *Escape) Watch(store *Store) func() {
	return store.Subscribe(func(u *User) {
		if u != nil {
			e.Rearm()
		}
	})
}

// invalidate clears a present session and redirects. An absent or closed
// store produces no redirect.
func invalidate(store *Store, escape *Escape) bool {
	if !store.ClearIfPresent() {
		return false
	}
	escape.RedirectToSignIn()
	return true
}
