package lastfm

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// envelope is the root XML response from the Last.fm API.
type envelope struct {
	XMLName xml.Name `xml:"lfm"`
	Status  string   `xml:"status,attr"`
	Inner   []byte   `xml:",innerxml"`
}

// apiError is the error payload inside a failed envelope.
type apiError struct {
	Code    int    `xml:"code,attr"`
	Message string `xml:",chardata"`
}

const (
	apiStatusOK     = "ok"
	apiStatusFailed = "failed"

	maxAttempts    = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// call posts one API method and returns the inner XML of a successful
// envelope.
//
// It signs the request, adds the session key when needed, and retries
// transient failures (network errors, 5xx responses, temporary API errors)
// with exponential backoff. Context cancellation aborts both the request
// and the backoff wait.
func (c *Client) call(ctx context.Context, method string, params map[string]string, needsSession bool) ([]byte, error) {
	reqParams := make(map[string]string, len(params)+3)
	for k, v := range params {
		reqParams[k] = v
	}
	reqParams["method"] = method
	reqParams["api_key"] = c.apiKey

	if needsSession {
		sk := c.SessionKey()
		if sk == "" {
			return nil, ErrNoSessionKey
		}
		reqParams["sk"] = sk
	}

	// The signature covers every parameter except api_sig itself.
	form := url.Values{}
	for k, v := range reqParams {
		form.Set(k, v)
	}
	form.Set("api_sig", signParams(reqParams, c.apiSecret))
	body := form.Encode()

	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		c.logDebugf("lastfm: calling %s (attempt %d/%d)", method, attempt, maxAttempts)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", "scrobd/1.0")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			if retryableNetworkError(err) && attempt < maxAttempts {
				c.logDebugf("lastfm: network error, retrying: %v", err)
				if !sleep(ctx, backoff) {
					return nil, ctx.Err()
				}
				backoff = nextBackoff(backoff)
				continue
			}
			return nil, fmt.Errorf("http request failed: %w", err)
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: %s", resp.Status)
			if attempt < maxAttempts {
				c.logDebugf("lastfm: server error, retrying: %v", lastErr)
				if !sleep(ctx, backoff) {
					return nil, ctx.Err()
				}
				backoff = nextBackoff(backoff)
				continue
			}
			return nil, lastErr
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}

		var env envelope
		if err := xml.Unmarshal(payload, &env); err != nil {
			return nil, fmt.Errorf("failed to parse XML response: %w", err)
		}

		if env.Status == apiStatusFailed {
			var ae apiError
			if err := xml.Unmarshal(env.Inner, &ae); err != nil {
				return nil, fmt.Errorf("failed to parse error response: %w", err)
			}
			apiErr := &Error{Code: ae.Code, Message: strings.TrimSpace(ae.Message)}

			if apiErr.Temporary() && attempt < maxAttempts {
				c.logDebugf("lastfm: temporary error, retrying: %v", apiErr)
				lastErr = apiErr
				if !sleep(ctx, backoff) {
					return nil, ctx.Err()
				}
				backoff = nextBackoff(backoff)
				continue
			}
			return nil, apiErr
		}

		c.logDebugf("lastfm: %s succeeded", method)
		return env.Inner, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
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
