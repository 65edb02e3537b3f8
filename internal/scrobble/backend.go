package scrobble

import (
	"context"
	"fmt"
	"sync"
)

// AuthStatus enumerates the authentication lifecycle of a backend
type AuthStatus int

const (
	// StatusDisconnected means no credentials are held
	StatusDisconnected AuthStatus = iota
	// StatusAuthenticating means an authentication flow is in progress
	StatusAuthenticating
	// StatusConnected means credentials are held and presumed valid
	StatusConnected
	// StatusError means the last authentication or submission was rejected
	StatusError
)

// String returns a human-readable representation of the auth status
func (s AuthStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusAuthenticating:
		return "authenticating"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// AuthState is a backend's current authentication state. Identity is set
// while connected; Err carries the message while in the error state.
type AuthState struct {
	Status   AuthStatus
	Identity string
	Err      string
}

// String formats the state for logs and the auth command
func (s AuthState) String() string {
	switch s.Status {
	case StatusConnected:
		if s.Identity != "" {
			return fmt.Sprintf("connected (%s)", s.Identity)
		}
		return "connected"
	case StatusError:
		if s.Err != "" {
			return fmt.Sprintf("error (%s)", s.Err)
		}
		return "error"
	default:
		return s.Status.String()
	}
}

// Backend is one scrobbling service. Implementations own their credential
// lifecycle and translate service failures into the package's error
// sentinels.
type Backend interface {
	// Name is the stable identifier used in config and logs.
	Name() string

	// Authenticate runs the service's authentication flow. Interactive
	// flows block until the user completes or ctx ends. On success the
	// backend persists credentials and reports StatusConnected.
	Authenticate(ctx context.Context) error

	// RestoreSession loads previously persisted credentials without
	// touching the network.
	RestoreSession() error

	// Disconnect clears held and persisted credentials.
	Disconnect() error

	// ValidateSession checks the restored credentials against the service.
	// It returns (false, nil) when the service definitively rejected them
	// and an error when the check itself failed.
	ValidateSession(ctx context.Context) (bool, error)

	// UpdateNowPlaying tells the service what is playing right now. Best
	// effort; the coordinator swallows failures.
	UpdateNowPlaying(ctx context.Context, track Track) error

	// Scrobble submits up to MaxBatch plays and returns one Result per
	// track, in submission order.
	Scrobble(ctx context.Context, tracks []Track) ([]Result, error)

	// State reports the current authentication state.
	State() AuthState
}

// Registry holds the configured backends in registration order. The order
// fixes the sequential submission order during a flush.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
	order    []string
}

// NewRegistry creates an empty backend registry
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds a backend. Registering the same name twice is a wiring bug.
func (r *Registry) Register(b Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := b.Name()
	if _, exists := r.backends[name]; exists {
		return fmt.Errorf("backend %q is already registered", name)
	}
	r.backends[name] = b
	r.order = append(r.order, name)
	return nil
}

// Get returns the named backend
func (r *Registry) Get(name string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.backends[name]
	return b, ok
}

// All returns every backend in registration order
func (r *Registry) All() []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]Backend, 0, len(r.order))
	for _, name := range r.order {
		all = append(all, r.backends[name])
	}
	return all
}

// Names returns the registered names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.order...)
}
