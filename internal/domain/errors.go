package domain

import (
	"errors"
	"fmt"
)

// NotFoundMessage is returned when every strategy came back empty
const NotFoundMessage = "Caption not found. The post may be private, restricted, or the page structure has changed."

// ErrJobNotFound is returned by the queue when a job id is unknown or expired
var ErrJobNotFound = errors.New("job not found")

// InvalidInputError reports a malformed or off-platform URL
type InvalidInputError struct {
	Platform string
	Reason   string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("Invalid %s URL", e.Platform)
}

// NotFoundError reports that all strategies were exhausted without a caption
type NotFoundError struct {
	URL string
}

func (e *NotFoundError) Error() string {
	return NotFoundMessage
}

// UpstreamError wraps a network, render or resolver failure from the
// strategy that ended the chain.
type UpstreamError struct {
	Strategy string
	Err      error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("strategy %s failed", e.Strategy)
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsInvalidInput reports whether err is an InvalidInputError
func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsUpstream reports whether err is an UpstreamError
func IsUpstream(err error) bool {
	var target *UpstreamError
	return errors.As(err, &target)
}
