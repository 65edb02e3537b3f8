package lastfm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/scrobd/scrobd/internal/scrobble"
)

const (
	tokenResponse = `<?xml version="1.0" encoding="utf-8"?>
<lfm status="ok">
<token>test-token</token>
</lfm>`

	sessionResponse = `<?xml version="1.0" encoding="utf-8"?>
<lfm status="ok">
<session>
	<name>souplover</name>
	<key>session-key-123</key>
	<subscriber>0</subscriber>
</session>
</lfm>`

	userResponse = `<?xml version="1.0" encoding="utf-8"?>
<lfm status="ok">
<user>
	<name>souplover</name>
</user>
</lfm>`

	nowPlayingResponse = `<?xml version="1.0" encoding="utf-8"?>
<lfm status="ok">
<nowplaying>
	<artist corrected="0">Radiohead</artist>
	<track corrected="0">Paranoid Android</track>
	<ignoredMessage code="0"></ignoredMessage>
</nowplaying>
</lfm>`
)

func errorResponse(code int, message string) string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
<lfm status="failed">
<error code="%d">%s</error>
</lfm>`, code, message)
}

// recorder captures prompt and persist calls from the backend.
type recorder struct {
	mu        sync.Mutex
	promptURL string
	key       string
	username  string
	persists  int
}

func (r *recorder) prompt(ctx context.Context, authURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.promptURL = authURL
	return nil
}

func (r *recorder) persist(key, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.key = key
	r.username = username
	r.persists++
	return nil
}

func newTestBackend(t *testing.T, baseURL string, rec *recorder) *Backend {
	t.Helper()

	cfg := Config{
		APIKey:    "test-api-key",
		APISecret: "test-secret",
		BaseURL:   baseURL,
		Logger:    zerolog.Nop(),
	}
	if rec != nil {
		cfg.Prompt = rec.prompt
		cfg.Persist = rec.persist
	}

	b, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	return b
}

func TestAuthenticate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
			return
		}

		switch r.FormValue("method") {
		case "auth.getToken":
			fmt.Fprint(w, tokenResponse)
		case "auth.getSession":
			if token := r.FormValue("token"); token != "test-token" {
				t.Errorf("expected token test-token, got %s", token)
			}
			fmt.Fprint(w, sessionResponse)
		default:
			t.Errorf("unexpected method %s", r.FormValue("method"))
		}
	}))
	defer server.Close()

	rec := &recorder{}
	b := newTestBackend(t, server.URL, rec)

	if err := b.Authenticate(context.Background()); err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}

	state := b.State()
	if state.Status != scrobble.StatusConnected {
		t.Errorf("expected connected state, got %v", state.Status)
	}
	if state.Identity != "souplover" {
		t.Errorf("expected identity souplover, got %s", state.Identity)
	}

	if !strings.Contains(rec.promptURL, "token=test-token") {
		t.Errorf("expected authorization URL to carry the token, got %s", rec.promptURL)
	}
	if rec.key != "session-key-123" {
		t.Errorf("expected persisted key session-key-123, got %s", rec.key)
	}
	if rec.username != "souplover" {
		t.Errorf("expected persisted username souplover, got %s", rec.username)
	}
}

func TestAuthenticatePromptAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, tokenResponse)
	}))
	defer server.Close()

	b := newTestBackend(t, server.URL, nil)
	b.prompt = func(ctx context.Context, authURL string) error {
		return errors.New("user gave up")
	}

	err := b.Authenticate(context.Background())
	if err == nil {
		t.Fatal("expected error when the prompt aborts")
	}
	if state := b.State(); state.Status != scrobble.StatusDisconnected {
		t.Errorf("expected disconnected state after abort, got %v", state.Status)
	}
}

func TestAuthenticateTokenNotAuthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
			return
		}

		switch r.FormValue("method") {
		case "auth.getToken":
			fmt.Fprint(w, tokenResponse)
		case "auth.getSession":
			fmt.Fprint(w, errorResponse(14, "This token has not been authorized"))
		}
	}))
	defer server.Close()

	rec := &recorder{}
	b := newTestBackend(t, server.URL, rec)

	err := b.Authenticate(context.Background())
	if err == nil {
		t.Fatal("expected error for unauthorized token")
	}
	if !scrobble.IsAuthError(err) {
		t.Errorf("expected auth error, got %v", err)
	}
	if state := b.State(); state.Status != scrobble.StatusError {
		t.Errorf("expected error state, got %v", state.Status)
	}
	if rec.persists != 0 {
		t.Errorf("expected no persisted credentials, got %d calls", rec.persists)
	}
}

func TestRestoreSession(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer server.Close()

	b := newTestBackend(t, server.URL, nil)
	b.restoreKey = "stored-key"
	b.restoreUsername = "souplover"

	if err := b.RestoreSession(); err != nil {
		t.Fatalf("failed to restore session: %v", err)
	}

	state := b.State()
	if state.Status != scrobble.StatusConnected {
		t.Errorf("expected connected state, got %v", state.Status)
	}
	if state.Identity != "souplover" {
		t.Errorf("expected identity souplover, got %s", state.Identity)
	}
	if requests != 0 {
		t.Errorf("expected no network requests, got %d", requests)
	}
}

func TestRestoreSessionWithoutCredentials(t *testing.T) {
	b := newTestBackend(t, "http://localhost:0", nil)

	if err := b.RestoreSession(); err != nil {
		t.Fatalf("failed to restore session: %v", err)
	}
	if state := b.State(); state.Status != scrobble.StatusDisconnected {
		t.Errorf("expected disconnected state, got %v", state.Status)
	}
}

func TestValidateSession(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		wantValid  bool
		wantErr    bool
		wantStatus scrobble.AuthStatus
	}{
		{
			name:       "valid session",
			response:   userResponse,
			wantValid:  true,
			wantStatus: scrobble.StatusConnected,
		},
		{
			name:       "rejected session",
			response:   errorResponse(9, "Invalid session key - Please re-authenticate"),
			wantValid:  false,
			wantStatus: scrobble.StatusError,
		},
		{
			name:       "undecodable response",
			response:   "not xml at all",
			wantValid:  false,
			wantErr:    true,
			wantStatus: scrobble.StatusConnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.response)
			}))
			defer server.Close()

			b := newTestBackend(t, server.URL, nil)
			b.restoreKey = "stored-key"
			b.restoreUsername = "souplover"
			if err := b.RestoreSession(); err != nil {
				t.Fatalf("failed to restore session: %v", err)
			}

			valid, err := b.ValidateSession(context.Background())
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if valid != tt.wantValid {
				t.Errorf("expected valid=%v, got %v", tt.wantValid, valid)
			}
			if state := b.State(); state.Status != tt.wantStatus {
				t.Errorf("expected status %v, got %v", tt.wantStatus, state.Status)
			}
		})
	}
}

func TestScrobble(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
			return
		}

		if method := r.FormValue("method"); method != "track.scrobble" {
			t.Errorf("expected method track.scrobble, got %s", method)
		}
		if artist := r.FormValue("artist[0]"); artist != "Radiohead" {
			t.Errorf("expected artist[0] Radiohead, got %s", artist)
		}
		if ts := r.FormValue("timestamp[0]"); ts != "1700000000" {
			t.Errorf("expected timestamp[0] 1700000000, got %s", ts)
		}
		if duration := r.FormValue("duration[0]"); duration != "387" {
			t.Errorf("expected duration[0] 387, got %s", duration)
		}
		if album := r.FormValue("album[1]"); album != "" {
			t.Errorf("expected no album[1], got %s", album)
		}

		fmt.Fprint(w, `<?xml version="1.0" encoding="utf-8"?>
<lfm status="ok">
<scrobbles accepted="1" ignored="1">
	<scrobble>
		<track corrected="1">Paranoid Android</track>
		<artist corrected="0">Radiohead</artist>
		<ignoredMessage code="0"></ignoredMessage>
	</scrobble>
	<scrobble>
		<track corrected="0">Buy Followers</track>
		<artist corrected="0">Spammer</artist>
		<ignoredMessage code="1">Artist was ignored</ignoredMessage>
	</scrobble>
</scrobbles>
</lfm>`)
	}))
	defer server.Close()

	b := newTestBackend(t, server.URL, nil)
	b.restoreKey = "stored-key"
	if err := b.RestoreSession(); err != nil {
		t.Fatalf("failed to restore session: %v", err)
	}

	started := time.Unix(1700000000, 0)
	tracks := []scrobble.Track{
		{
			Artist:    "Radiohead",
			Title:     "Paranoid Androyd",
			Album:     "OK Computer",
			Duration:  387 * time.Second,
			StartedAt: started,
		},
		{
			Artist:    "Spammer",
			Title:     "Buy Followers",
			StartedAt: started.Add(7 * time.Minute),
		},
	}

	results, err := b.Scrobble(context.Background(), tracks)
	if err != nil {
		t.Fatalf("failed to scrobble: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	if !results[0].Accepted {
		t.Error("expected first track to be accepted")
	}
	if results[0].CorrectedTitle != "Paranoid Android" {
		t.Errorf("expected corrected title Paranoid Android, got %s", results[0].CorrectedTitle)
	}
	if results[0].CorrectedArtist != "" {
		t.Errorf("expected no corrected artist, got %s", results[0].CorrectedArtist)
	}

	if results[1].Accepted {
		t.Error("expected second track to be ignored")
	}
	if results[1].Reason != "Artist was ignored" {
		t.Errorf("expected ignore reason, got %q", results[1].Reason)
	}
}

func TestScrobbleAuthErrorFlipsState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, errorResponse(9, "Invalid session key - Please re-authenticate"))
	}))
	defer server.Close()

	b := newTestBackend(t, server.URL, nil)
	b.restoreKey = "stored-key"
	if err := b.RestoreSession(); err != nil {
		t.Fatalf("failed to restore session: %v", err)
	}

	_, err := b.Scrobble(context.Background(), []scrobble.Track{
		{Artist: "Radiohead", Title: "Airbag", StartedAt: time.Unix(1700000000, 0)},
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !scrobble.IsAuthError(err) {
		t.Errorf("expected auth error, got %v", err)
	}

	state := b.State()
	if state.Status != scrobble.StatusError {
		t.Errorf("expected error state, got %v", state.Status)
	}
	if state.Err == "" {
		t.Error("expected error state to carry a message")
	}
}

func TestScrobbleWithoutSession(t *testing.T) {
	b := newTestBackend(t, "http://localhost:0", nil)

	_, err := b.Scrobble(context.Background(), []scrobble.Track{
		{Artist: "Radiohead", Title: "Airbag", StartedAt: time.Unix(1700000000, 0)},
	})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !scrobble.IsAuthError(err) {
		t.Errorf("expected auth error, got %v", err)
	}
}

func TestUpdateNowPlaying(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
			return
		}

		if method := r.FormValue("method"); method != "track.updateNowPlaying" {
			t.Errorf("expected method track.updateNowPlaying, got %s", method)
		}
		if ts := r.FormValue("timestamp"); ts != "" {
			t.Errorf("expected no timestamp for now playing, got %s", ts)
		}
		fmt.Fprint(w, nowPlayingResponse)
	}))
	defer server.Close()

	b := newTestBackend(t, server.URL, nil)
	b.restoreKey = "stored-key"
	if err := b.RestoreSession(); err != nil {
		t.Fatalf("failed to restore session: %v", err)
	}

	track := scrobble.Track{
		Artist:    "Radiohead",
		Title:     "Paranoid Android",
		Album:     "OK Computer",
		Duration:  387 * time.Second,
		StartedAt: time.Unix(1700000000, 0),
	}
	if err := b.UpdateNowPlaying(context.Background(), track); err != nil {
		t.Fatalf("failed to update now playing: %v", err)
	}
}

func TestDisconnect(t *testing.T) {
	rec := &recorder{}
	b := newTestBackend(t, "http://localhost:0", rec)
	b.restoreKey = "stored-key"
	b.restoreUsername = "souplover"
	if err := b.RestoreSession(); err != nil {
		t.Fatalf("failed to restore session: %v", err)
	}

	if err := b.Disconnect(); err != nil {
		t.Fatalf("failed to disconnect: %v", err)
	}

	if state := b.State(); state.Status != scrobble.StatusDisconnected {
		t.Errorf("expected disconnected state, got %v", state.Status)
	}
	if rec.key != "" || rec.username != "" {
		t.Errorf("expected cleared credentials, got %q/%q", rec.key, rec.username)
	}
	if rec.persists != 1 {
		t.Errorf("expected one persist call, got %d", rec.persists)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		transient bool
		auth      bool
	}{
		{
			name:      "rate limited",
			response:  errorResponse(29, "Rate limit exceeded"),
			transient: true,
		},
		{
			name:     "suspended key",
			response: errorResponse(26, "API key suspended"),
			auth:     true,
		},
		{
			name:     "invalid parameters",
			response: errorResponse(6, "Artist not found"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.response)
			}))
			defer server.Close()

			b := newTestBackend(t, server.URL, nil)
			b.restoreKey = "stored-key"
			if err := b.RestoreSession(); err != nil {
				t.Fatalf("failed to restore session: %v", err)
			}

			track := scrobble.Track{Artist: "Radiohead", Title: "Airbag", StartedAt: time.Unix(1700000000, 0)}
			err := b.UpdateNowPlaying(context.Background(), track)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if got := scrobble.IsTransient(err); got != tt.transient {
				t.Errorf("expected transient=%v, got %v", tt.transient, got)
			}
			if got := scrobble.IsAuthError(err); got != tt.auth {
				t.Errorf("expected auth=%v, got %v", tt.auth, got)
			}
		})
	}
}
