// Package render drives a headless browser for pages that only produce
// their content after client-side script runs.
package render

import (
	"context"
	"errors"
	"time"
)

// ErrWaitTimeout is returned when an element did not appear within the
// allowed wait.
var ErrWaitTimeout = errors.New("timed out waiting for element")

// Identity is the browser fingerprint presented to the target site
type Identity struct {
	UserAgent      string
	AcceptLanguage string
}

// Session is one isolated rendering context. It must be closed by the
// caller on every path.
type Session interface {
	// Navigate loads url and returns once the initial document is parsed.
	// It does not wait for network idle.
	Navigate(ctx context.Context, url string) error

	// Attribute waits up to wait for selector to match and returns the
	// named attribute ("" when the attribute is missing). Returns
	// ErrWaitTimeout when nothing matched in time.
	Attribute(ctx context.Context, selector, name string, wait time.Duration) (string, error)

	// Text returns the text of the first element matching selector, or ""
	// when nothing matches. It does not wait.
	Text(ctx context.Context, selector string) (string, error)

	// Close tears down the session. Safe to call more than once.
	Close() error
}

// Driver hands out rendering sessions
type Driver interface {
	NewSession(ctx context.Context, identity Identity) (Session, error)
	Close() error
}
