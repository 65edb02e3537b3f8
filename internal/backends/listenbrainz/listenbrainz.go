// Package listenbrainz adapts the ListenBrainz client to the scrobbling
// coordinator. Authentication is a token check rather than an authorization
// flow, and listen submission is all or nothing.
package listenbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/scrobd/scrobd/internal/scrobble"
	api "github.com/scrobd/scrobd/pkg/listenbrainz"
)

// Name is the backend identifier used in config and logs.
const Name = "listenbrainz"

// Config holds everything the backend needs to talk to ListenBrainz.
type Config struct {
	// Token is a previously persisted user token, installed by
	// RestoreSession. SetToken replaces it for first-time authentication.
	Token string

	// Username is the previously persisted identity for the token.
	Username string

	// BaseURL overrides the API endpoint, used for testing.
	BaseURL string

	// Persist saves validated credentials. Called with empty strings on
	// Disconnect.
	Persist func(token, username string) error

	Logger zerolog.Logger
}

// Backend implements scrobble.Backend for ListenBrainz.
type Backend struct {
	client  *api.Client
	persist func(token, username string) error
	logger  zerolog.Logger

	mu    sync.Mutex
	state scrobble.AuthState

	restoreToken    string
	restoreUsername string
}

// New creates the ListenBrainz backend. The token is not installed until
// RestoreSession or SetToken is called.
func New(cfg Config) (*Backend, error) {
	logger := cfg.Logger.With().Str("backend", Name).Logger()

	client, err := api.NewClient(api.Config{
		BaseURL: cfg.BaseURL,
		Logger:  debugLogger{logger},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create listenbrainz client: %w", err)
	}

	return &Backend{
		client:          client,
		persist:         cfg.Persist,
		logger:          logger,
		state:           scrobble.AuthState{Status: scrobble.StatusDisconnected},
		restoreToken:    cfg.Token,
		restoreUsername: cfg.Username,
	}, nil
}

// Name returns the backend identifier.
func (b *Backend) Name() string { return Name }

// State returns the current authentication state.
func (b *Backend) State() scrobble.AuthState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Backend) setState(state scrobble.AuthState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = state
}

// SetToken installs a new user token ahead of Authenticate.
func (b *Backend) SetToken(token string) {
	b.client.SetToken(token)
}

// RestoreSession installs previously persisted credentials without touching
// the network. With no stored token the backend stays disconnected.
func (b *Backend) RestoreSession() error {
	if b.restoreToken == "" {
		b.setState(scrobble.AuthState{Status: scrobble.StatusDisconnected})
		return nil
	}

	b.client.SetToken(b.restoreToken)
	b.setState(scrobble.AuthState{Status: scrobble.StatusConnected, Identity: b.restoreUsername})
	b.logger.Debug().Str("username", b.restoreUsername).Msg("restored session")
	return nil
}

// Authenticate validates the installed token and records the account it
// belongs to.
func (b *Backend) Authenticate(ctx context.Context) error {
	if b.client.Token() == "" {
		return fmt.Errorf("listenbrainz: no user token configured: %w", scrobble.ErrAuth)
	}

	b.setState(scrobble.AuthState{Status: scrobble.StatusAuthenticating})

	info, err := b.client.ValidateToken(ctx)
	if err != nil {
		if isCanceled(err) {
			b.setState(scrobble.AuthState{Status: scrobble.StatusDisconnected})
			return err
		}
		b.setState(scrobble.AuthState{Status: scrobble.StatusError, Err: err.Error()})
		return fmt.Errorf("failed to validate token: %w", classify(err))
	}
	if !info.Valid {
		b.setState(scrobble.AuthState{Status: scrobble.StatusError, Err: "token rejected"})
		return fmt.Errorf("token rejected by listenbrainz: %w", scrobble.ErrAuth)
	}

	b.setState(scrobble.AuthState{Status: scrobble.StatusConnected, Identity: info.UserName})
	b.logger.Info().Str("username", info.UserName).Msg("Authenticated with ListenBrainz")

	if b.persist != nil {
		if err := b.persist(b.client.Token(), info.UserName); err != nil {
			return fmt.Errorf("failed to persist credentials: %w", err)
		}
	}
	return nil
}

// Disconnect clears held and persisted credentials.
func (b *Backend) Disconnect() error {
	b.client.SetToken("")
	b.setState(scrobble.AuthState{Status: scrobble.StatusDisconnected})

	if b.persist != nil {
		if err := b.persist("", ""); err != nil {
			return fmt.Errorf("failed to clear credentials: %w", err)
		}
	}
	return nil
}

// ValidateSession checks the restored token against the service. A
// definitive rejection flips the backend into the error state and returns
// (false, nil); a failed check returns the error with the state untouched.
func (b *Backend) ValidateSession(ctx context.Context) (bool, error) {
	info, err := b.client.ValidateToken(ctx)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.AuthFailure() {
			b.setState(scrobble.AuthState{Status: scrobble.StatusError, Err: apiErr.Message})
			return false, nil
		}
		return false, classify(err)
	}
	if !info.Valid {
		b.setState(scrobble.AuthState{Status: scrobble.StatusError, Err: "token rejected"})
		return false, nil
	}

	b.setState(scrobble.AuthState{Status: scrobble.StatusConnected, Identity: info.UserName})
	return true, nil
}

// UpdateNowPlaying announces the track as playing now.
func (b *Backend) UpdateNowPlaying(ctx context.Context, track scrobble.Track) error {
	if err := b.client.PlayingNow(ctx, apiTrack(track)); err != nil {
		return b.submitError(err)
	}
	return nil
}

// Scrobble submits the batch as listens. ListenBrainz acknowledges the
// submission as a whole, so acceptance is reported for every track or none.
func (b *Backend) Scrobble(ctx context.Context, tracks []scrobble.Track) ([]scrobble.Result, error) {
	listens := make([]api.Listen, len(tracks))
	for i, t := range tracks {
		listens[i] = api.Listen{Track: apiTrack(t), ListenedAt: t.StartedAt}
	}

	if err := b.client.SubmitListens(ctx, listens); err != nil {
		return nil, b.submitError(err)
	}

	results := make([]scrobble.Result, len(tracks))
	for i, t := range tracks {
		results[i] = scrobble.Result{Track: t, Accepted: true}
	}
	return results, nil
}

// submitError classifies a submission failure and records auth failures in
// the backend state so the coordinator stops routing traffic here.
func (b *Backend) submitError(err error) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.AuthFailure() {
		b.setState(scrobble.AuthState{Status: scrobble.StatusError, Err: apiErr.Message})
	}
	return classify(err)
}

// classify maps client errors onto the coordinator's error classes.
func classify(err error) error {
	if err == nil || isCanceled(err) {
		return err
	}

	if errors.Is(err, api.ErrNoToken) {
		return fmt.Errorf("%v: %w", err, scrobble.ErrAuth)
	}

	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.AuthFailure():
			return fmt.Errorf("%v: %w", apiErr, scrobble.ErrAuth)
		case apiErr.Temporary():
			return fmt.Errorf("%v: %w", apiErr, scrobble.ErrUnavailable)
		default:
			// Permanent rejection, retrying will not help.
			return err
		}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return fmt.Errorf("%v: %w", err, scrobble.ErrMalformed)
	}

	return fmt.Errorf("%v: %w", err, scrobble.ErrRequest)
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// apiTrack converts a coordinator track to the client's representation.
func apiTrack(t scrobble.Track) api.Track {
	return api.Track{
		Artist:   t.Artist,
		Title:    t.Title,
		Album:    t.Album,
		Duration: t.Duration,
	}
}

// debugLogger adapts zerolog to the client's logging interface.
type debugLogger struct {
	logger zerolog.Logger
}

func (l debugLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}
