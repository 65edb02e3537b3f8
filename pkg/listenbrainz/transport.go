package listenbrainz

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

const (
	maxAttempts    = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// do performs one API request and decodes a successful JSON response into
// out (when non-nil).
//
// Transient failures (network errors, 5xx responses, 429 rate limits) are
// retried with exponential backoff. Context cancellation aborts both the
// request and the backoff wait.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	token := c.Token()
	if token == "" {
		return ErrNoToken
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		c.logDebugf("listenbrainz: %s %s (attempt %d/%d)", method, path, attempt, maxAttempts)

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Token "+token)
		req.Header.Set("User-Agent", "scrobd/1.0")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if retryableNetworkError(err) && attempt < maxAttempts {
				c.logDebugf("listenbrainz: network error, retrying: %v", err)
				if !sleep(ctx, backoff) {
					return ctx.Err()
				}
				backoff = nextBackoff(backoff)
				continue
			}
			return fmt.Errorf("http request failed: %w", err)
		}

		respBody, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			apiErr := &Error{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
			if apiErr.Temporary() && attempt < maxAttempts {
				c.logDebugf("listenbrainz: temporary error, retrying: %v", apiErr)
				lastErr = apiErr
				if !sleep(ctx, backoff) {
					return ctx.Err()
				}
				backoff = nextBackoff(backoff)
				continue
			}
			return apiErr
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
		}

		c.logDebugf("listenbrainz: %s %s succeeded", method, path)
		return nil
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// errorMessage extracts the error string from an API error body.
func errorMessage(body []byte) string {
	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	return resp.Error
}

// retryableNetworkError checks if a transport-level error is worth retrying.
func retryableNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

// sleep waits for the duration or until ctx ends. Returns false when the
// context ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// nextBackoff doubles the backoff, capped at maxBackoff.
func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}
