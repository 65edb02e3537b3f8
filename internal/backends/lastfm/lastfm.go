// Package lastfm adapts the Last.fm client to the scrobbling coordinator:
// it owns the credential lifecycle and translates service failures into the
// coordinator's error classes.
package lastfm

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/scrobd/scrobd/internal/scrobble"
	api "github.com/scrobd/scrobd/pkg/lastfm"
)

// Name is the backend identifier used in config and logs.
const Name = "lastfm"

// Config holds everything the backend needs to talk to Last.fm.
type Config struct {
	APIKey    string
	APISecret string

	// SessionKey and Username are previously persisted credentials,
	// installed by RestoreSession.
	SessionKey string
	Username   string

	// BaseURL overrides the API endpoint, used for testing.
	BaseURL string

	// Prompt is called during Authenticate with the authorization URL. It
	// must return once the user has approved the token, or with an error
	// to abort the flow.
	Prompt func(ctx context.Context, authURL string) error

	// Persist saves freshly obtained credentials. Called with empty
	// strings on Disconnect.
	Persist func(sessionKey, username string) error

	Logger zerolog.Logger
}

// Backend implements scrobble.Backend for Last.fm.
type Backend struct {
	client  *api.Client
	prompt  func(ctx context.Context, authURL string) error
	persist func(sessionKey, username string) error
	logger  zerolog.Logger

	mu    sync.Mutex
	state scrobble.AuthState

	restoreKey      string
	restoreUsername string
}

// New creates the Last.fm backend. Credentials are not restored until
// RestoreSession is called.
func New(cfg Config) (*Backend, error) {
	logger := cfg.Logger.With().Str("backend", Name).Logger()

	client, err := api.NewClient(api.Config{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		BaseURL:   cfg.BaseURL,
		Logger:    debugLogger{logger},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lastfm client: %w", err)
	}

	return &Backend{
		client:          client,
		prompt:          cfg.Prompt,
		persist:         cfg.Persist,
		logger:          logger,
		state:           scrobble.AuthState{Status: scrobble.StatusDisconnected},
		restoreKey:      cfg.SessionKey,
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

// RestoreSession installs previously persisted credentials without touching
// the network. With no stored session key the backend stays disconnected.
func (b *Backend) RestoreSession() error {
	if b.restoreKey == "" {
		b.setState(scrobble.AuthState{Status: scrobble.StatusDisconnected})
		return nil
	}

	b.client.SetSessionKey(b.restoreKey)
	b.setState(scrobble.AuthState{Status: scrobble.StatusConnected, Identity: b.restoreUsername})
	b.logger.Debug().Str("username", b.restoreUsername).Msg("restored session")
	return nil
}

// Authenticate runs the interactive token authorization flow: request a
// token, send the user to the authorization page, then exchange the token
// for a session key once they approve.
func (b *Backend) Authenticate(ctx context.Context) error {
	if b.prompt == nil {
		return fmt.Errorf("lastfm: authentication requires an interactive prompt")
	}

	b.setState(scrobble.AuthState{Status: scrobble.StatusAuthenticating})

	token, err := b.client.GetToken(ctx)
	if err != nil {
		return b.authFailed("failed to request token", err)
	}

	if err := b.prompt(ctx, b.client.AuthURL(token)); err != nil {
		b.setState(scrobble.AuthState{Status: scrobble.StatusDisconnected})
		return fmt.Errorf("authorization aborted: %w", err)
	}

	session, err := b.client.GetSession(ctx, token)
	if err != nil {
		return b.authFailed("failed to exchange token", err)
	}

	b.client.SetSessionKey(session.Key)
	b.setState(scrobble.AuthState{Status: scrobble.StatusConnected, Identity: session.Username})
	b.logger.Info().Str("username", session.Username).Msg("Authenticated with Last.fm")

	if b.persist != nil {
		if err := b.persist(session.Key, session.Username); err != nil {
			return fmt.Errorf("failed to persist credentials: %w", err)
		}
	}
	return nil
}

func (b *Backend) authFailed(msg string, err error) error {
	if isCanceled(err) {
		b.setState(scrobble.AuthState{Status: scrobble.StatusDisconnected})
		return err
	}
	b.setState(scrobble.AuthState{Status: scrobble.StatusError, Err: err.Error()})
	return fmt.Errorf("%s: %w", msg, classify(err))
}

// Disconnect clears held and persisted credentials.
func (b *Backend) Disconnect() error {
	b.client.SetSessionKey("")
	b.setState(scrobble.AuthState{Status: scrobble.StatusDisconnected})

	if b.persist != nil {
		if err := b.persist("", ""); err != nil {
			return fmt.Errorf("failed to clear credentials: %w", err)
		}
	}
	return nil
}

// ValidateSession checks the restored session key against the service. A
// definitive rejection flips the backend into the error state and returns
// (false, nil); a failed check returns the error with the state untouched.
func (b *Backend) ValidateSession(ctx context.Context) (bool, error) {
	username, err := b.client.ValidateSession(ctx)
	if err != nil {
		var apiErr *api.Error
		if errors.As(err, &apiErr) && apiErr.AuthFailure() {
			b.setState(scrobble.AuthState{Status: scrobble.StatusError, Err: apiErr.Message})
			return false, nil
		}
		return false, classify(err)
	}

	b.setState(scrobble.AuthState{Status: scrobble.StatusConnected, Identity: username})
	return true, nil
}

// UpdateNowPlaying announces the track as currently playing.
func (b *Backend) UpdateNowPlaying(ctx context.Context, track scrobble.Track) error {
	_, err := b.client.UpdateNowPlaying(ctx, apiTrack(track))
	if err != nil {
		return b.submitError(err)
	}
	return nil
}

// Scrobble submits the batch and reports per-track acceptance in
// submission order, including any corrections the service applied.
func (b *Backend) Scrobble(ctx context.Context, tracks []scrobble.Track) ([]scrobble.Result, error) {
	scrobbles := make([]api.Scrobble, len(tracks))
	for i, t := range tracks {
		scrobbles[i] = api.Scrobble{Track: apiTrack(t), Timestamp: t.StartedAt}
	}

	resp, err := b.client.Scrobble(ctx, scrobbles)
	if err != nil {
		return nil, b.submitError(err)
	}

	results := make([]scrobble.Result, len(tracks))
	for i, t := range tracks {
		results[i] = scrobble.Result{Track: t}
		if i < len(resp.Scrobbles) {
			item := resp.Scrobbles[i]
			results[i].Accepted = item.Accepted()
			results[i].Reason = item.Ignored.Text
			if item.ArtistCorrected {
				results[i].CorrectedArtist = item.Artist
			}
			if item.TrackCorrected {
				results[i].CorrectedTitle = item.Track
			}
			continue
		}
		// The service sometimes omits per-track acknowledgements; trust
		// the batch counter then.
		results[i].Accepted = resp.Ignored == 0
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

	if errors.Is(err, api.ErrNoSessionKey) {
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

	var syntaxErr *xml.SyntaxError
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
		Track:    t.Title,
		Album:    t.Album,
		Duration: int(t.Duration / time.Second),
	}
}

// debugLogger adapts zerolog to the client's logging interface.
type debugLogger struct {
	logger zerolog.Logger
}

func (l debugLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}
