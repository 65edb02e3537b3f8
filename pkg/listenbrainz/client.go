// Package listenbrainz provides a client for the ListenBrainz API.
//
// It covers the submission side of the API: token validation, playing-now
// notifications, and listen submission. Requests authenticate with a user
// token from https://listenbrainz.org/settings/.
//
// Example:
//
//	client, _ := listenbrainz.NewClient(listenbrainz.Config{
//	    Token: "your-user-token",
//	})
//
//	info, err := client.ValidateToken(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Submitting as", info.UserName)
//
//	err = client.SubmitListens(ctx, []listenbrainz.Listen{
//	    {
//	        Track:      listenbrainz.Track{Artist: "The Beatles", Title: "Yesterday"},
//	        ListenedAt: time.Now().Add(-2 * time.Minute),
//	    },
//	})
package listenbrainz

import (
	"net/http"
	"sync"
)

// DefaultBaseURL is the ListenBrainz API endpoint.
const DefaultBaseURL = "https://api.listenbrainz.org"

// Config holds client configuration.
type Config struct {
	Token      string       // Optional at construction: user token for authenticated requests
	HTTPClient *http.Client // Optional: HTTP client (defaults to http.DefaultClient)
	BaseURL    string       // Optional: API endpoint override, used for testing
	Logger     Logger       // Optional: logger for request-level debug output
}

// Logger is an optional interface for logging. It keeps the package free of
// any particular logging dependency.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Client talks to the ListenBrainz API. The token may be replaced at any
// time with SetToken; all other fields are fixed at construction.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     Logger

	mu    sync.RWMutex
	token string
}

// NewClient creates a new ListenBrainz API client.
func NewClient(cfg Config) (*Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     cfg.Logger,
		token:      cfg.Token,
	}, nil
}

// SetToken installs the user token used for authenticated requests.
// Safe to call while requests are in flight.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current user token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
