package scrobble

import (
	"context"
	"errors"
)

// Backend failure classes. Backend implementations wrap their service errors
// with one of these sentinels so the coordinator can classify without
// knowing the wire protocol.
var (
	// ErrAuth marks rejected or missing credentials. The backend surfaces
	// the condition through its auth state; queued entries stay put.
	ErrAuth = errors.New("backend authentication failed")

	// ErrUnavailable marks a transient service condition (rate limit,
	// maintenance, 5xx). Retried on the next flush cycle.
	ErrUnavailable = errors.New("backend temporarily unavailable")

	// ErrMalformed marks a response the client could not decode.
	ErrMalformed = errors.New("malformed backend response")

	// ErrRequest marks a network-level failure before any response.
	ErrRequest = errors.New("backend request failed")
)

// IsAuthError reports whether err is an authentication failure
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsTransient reports whether err is worth retrying on a later cycle
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrRequest)
}

// IsMalformed reports whether err is an undecodable response
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}

// isCanceled reports whether err stems from context cancellation. Canceled
// work is shutdown noise, never a failure.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
