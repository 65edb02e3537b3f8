package scrobble

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		auth      bool
		transient bool
		malformed bool
	}{
		{
			name: "bare auth sentinel",
			err:  ErrAuth,
			auth: true,
		},
		{
			name: "wrapped auth error",
			err:  fmt.Errorf("lastfm: invalid session key (9): %w", ErrAuth),
			auth: true,
		},
		{
			name:      "service unavailable",
			err:       fmt.Errorf("listenbrainz: status 503: %w", ErrUnavailable),
			transient: true,
		},
		{
			name:      "request failure",
			err:       fmt.Errorf("post listens: %w", ErrRequest),
			transient: true,
		},
		{
			name:      "malformed response",
			err:       fmt.Errorf("decode response: %w", ErrMalformed),
			malformed: true,
		},
		{
			name: "unrelated error",
			err:  errors.New("something else"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAuthError(tt.err); got != tt.auth {
				t.Errorf("IsAuthError() = %v, want %v", got, tt.auth)
			}
			if got := IsTransient(tt.err); got != tt.transient {
				t.Errorf("IsTransient() = %v, want %v", got, tt.transient)
			}
			if got := IsMalformed(tt.err); got != tt.malformed {
				t.Errorf("IsMalformed() = %v, want %v", got, tt.malformed)
			}
		})
	}
}

func TestIsCanceled(t *testing.T) {
	if !isCanceled(context.Canceled) {
		t.Error("isCanceled(context.Canceled) = false")
	}
	if !isCanceled(fmt.Errorf("poll: %w", context.DeadlineExceeded)) {
		t.Error("isCanceled(wrapped deadline) = false")
	}
	if isCanceled(errors.New("boom")) {
		t.Error("isCanceled(unrelated) = true")
	}
	if isCanceled(nil) {
		t.Error("isCanceled(nil) = true")
	}
}
