package lastfm

import (
	"fmt"
	"net/http"
	"sync"
)

const (
	// DefaultBaseURL is the Last.fm API endpoint.
	DefaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

	// AuthBaseURL is where users authorize an authentication token.
	AuthBaseURL = "https://www.last.fm/api/auth/"
)

// Config holds client configuration.
type Config struct {
	APIKey     string       // Required: Last.fm API key
	APISecret  string       // Required: Last.fm API secret
	SessionKey string       // Optional: session key from a previous GetSession
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

// Client talks to the Last.fm API. The session key may be replaced at any
// time with SetSessionKey; all other fields are fixed at construction.
type Client struct {
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	baseURL    string
	logger     Logger

	mu         sync.RWMutex
	sessionKey string
}

// NewClient creates a new Last.fm API client.
//
// Returns an error if required configuration (APIKey, APISecret) is missing.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("lastfm: APIKey is required")
	}
	if cfg.APISecret == "" {
		return nil, fmt.Errorf("lastfm: APISecret is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		sessionKey: cfg.SessionKey,
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     cfg.Logger,
	}, nil
}

// SetSessionKey installs the session key used for authenticated requests.
// Safe to call while requests are in flight.
func (c *Client) SetSessionKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionKey = key
}

// SessionKey returns the current session key.
func (c *Client) SessionKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionKey
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
