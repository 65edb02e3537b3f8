package listenbrainz

import (
	"fmt"
	"net/http"
)

// ErrNoToken is returned when an operation requires authentication but no
// user token has been set.
var ErrNoToken = fmt.Errorf("listenbrainz: user token required")

// Error represents a ListenBrainz API error response.
type Error struct {
	StatusCode int    // HTTP status of the response
	Message    string // error message from the service, if any
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("listenbrainz: status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("listenbrainz: status %d", e.StatusCode)
}

// Temporary returns true if the request should be retried later. Rate
// limiting and server-side failures qualify.
func (e *Error) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// AuthFailure returns true if the token was rejected and the caller must
// re-authenticate rather than retry.
func (e *Error) AuthFailure() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}
