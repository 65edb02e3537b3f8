package lastfm

import (
	"fmt"
)

// Error represents a Last.fm API error.
//
// The Error type provides structured error information including
// the Last.fm error code and message. It implements error, and
// provides additional methods for retry logic.
type Error struct {
	Code    int    // Last.fm error code
	Message string // error message from Last.fm
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("lastfm: error %d: %s", e.Code, e.Message)
}

// Is checks if the target error is a Last.fm error with the same code.
//
// This allows errors.Is() to work with *Error types.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Temporary returns true if the error is temporary and the request
// should be retried.
//
// The following Last.fm error codes are considered temporary:
//   - 11: Service Offline
//   - 16: Service Temporarily Unavailable
//   - 29: Rate Limit Exceeded
func (e *Error) Temporary() bool {
	switch e.Code {
	case ErrCodeServiceOffline, ErrCodeTempUnavailable, ErrCodeRateLimitExceeded:
		return true
	default:
		return false
	}
}

// AuthFailure returns true if the error means the credentials are bad and
// the caller must re-authenticate rather than retry.
func (e *Error) AuthFailure() bool {
	switch e.Code {
	case ErrCodeAuthenticationFailed, ErrCodeInvalidSessionKey, ErrCodeUnauthorizedToken,
		ErrCodeExpiredToken, ErrCodeSuspendedAPIKey:
		return true
	default:
		return false
	}
}

// Common Last.fm error codes.
const (
	ErrCodeInvalidService       = 2
	ErrCodeInvalidMethod        = 3
	ErrCodeAuthenticationFailed = 4
	ErrCodeInvalidFormat        = 5
	ErrCodeInvalidParameters    = 6
	ErrCodeInvalidResourceSpec  = 7
	ErrCodeOperationFailed      = 8
	ErrCodeInvalidSessionKey    = 9
	ErrCodeInvalidAPIKey        = 10
	ErrCodeServiceOffline       = 11
	ErrCodeSubscribersOnly      = 12
	ErrCodeInvalidSignature     = 13
	ErrCodeUnauthorizedToken    = 14
	ErrCodeExpiredToken         = 15
	ErrCodeTempUnavailable      = 16
	ErrCodeSuspendedAPIKey      = 26
	ErrCodeRateLimitExceeded    = 29
)

// ErrNoSessionKey is returned when an operation requires authentication
// but no session key has been set.
var ErrNoSessionKey = fmt.Errorf("lastfm: session key required")
