package session

import (
	"errors"
	"fmt"
)

var (
	// ErrRefreshDenied is returned when the refresh endpoint rejects the refresh credential.
	ErrRefreshDenied = errors.New("refresh denied")
	// ErrTransport wraps network level failures (unreachable host, timeout).
	ErrTransport = errors.New("transport fault")
	// ErrUnauthenticated is returned when the identity query reports no session.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrInvalidConfig is returned by New when Config fails validation.
	ErrInvalidConfig = errors.New("invalid session config")
)

// StatusError carries the HTTP status of a rejected auth call.
type StatusError struct {
	Op     string
	Status int
	Err    error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %v (status %d)", e.Op, e.Err, e.Status)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

func transportError(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrTransport, err)
}
