package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel conditions callers branch on with errors.Is.
var (
	// ErrAuthRequired means no usable bearer token; nothing was sent.
	ErrAuthRequired = errors.New("authentication required")
	// ErrAccessDenied maps a backend 403. Never retried.
	ErrAccessDenied = errors.New("access denied")
	// ErrNotFound maps a backend 404 on resource lookups.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyRunning maps the 422 conflict on timer start: another
	// session is already active for this user.
	ErrAlreadyRunning = errors.New("another timer is already running")
)

// StatusError wraps any other non-2xx response, keeping the original
// status and backend-provided detail so the message reaches the user
// untranslated.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("request failed (%d %s)", e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap lets errors.Is match the sentinel for the underlying class.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusForbidden:
		return ErrAccessDenied
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// IsTransient reports whether an error is the generic fetch failure
// rather than one of the actionable conditions.
func IsTransient(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode != http.StatusForbidden && se.StatusCode != http.StatusNotFound
	}
	return err != nil &&
		!errors.Is(err, ErrAuthRequired) &&
		!errors.Is(err, ErrAccessDenied) &&
		!errors.Is(err, ErrNotFound) &&
		!errors.Is(err, ErrAlreadyRunning)
}
