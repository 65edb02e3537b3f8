package listenbrainz

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		Token:   "test-token",
		BaseURL: server.URL,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client, server
}

// TestValidateToken tests the ValidateToken method.
func TestValidateToken(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		wantValid bool
		wantUser  string
	}{
		{
			name:      "valid token",
			response:  `{"code": 200, "message": "Token valid.", "valid": true, "user_name": "testuser"}`,
			wantValid: true,
			wantUser:  "testuser",
		},
		{
			name:      "invalid token",
			response:  `{"code": 200, "message": "Token invalid.", "valid": false}`,
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET request, got %s", r.Method)
				}
				if r.URL.Path != "/1/validate-token" {
					t.Errorf("expected path /1/validate-token, got %s", r.URL.Path)
				}
				if auth := r.Header.Get("Authorization"); auth != "Token test-token" {
					t.Errorf("expected Authorization 'Token test-token', got %q", auth)
				}
				w.WriteHeader(http.StatusOK)
				if _, err := w.Write([]byte(tt.response)); err != nil {
					t.Fatalf("failed to write response body: %v", err)
				}
			})

			info, err := client.ValidateToken(context.Background())
			if err != nil {
				t.Fatalf("ValidateToken() error = %v", err)
			}
			if info.Valid != tt.wantValid {
				t.Errorf("Valid = %v, want %v", info.Valid, tt.wantValid)
			}
			if info.UserName != tt.wantUser {
				t.Errorf("UserName = %q, want %q", info.UserName, tt.wantUser)
			}
		})
	}
}

// TestPlayingNow tests the PlayingNow method.
func TestPlayingNow(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST request, got %s", r.Method)
		}
		if r.URL.Path != "/1/submit-listens" {
			t.Errorf("expected path /1/submit-listens, got %s", r.URL.Path)
		}

		var req struct {
			ListenType string `json:"listen_type"`
			Payload    []struct {
				ListenedAt    int64 `json:"listened_at"`
				TrackMetadata struct {
					ArtistName     string `json:"artist_name"`
					TrackName      string `json:"track_name"`
					ReleaseName    string `json:"release_name"`
					AdditionalInfo struct {
						DurationMS       int64  `json:"duration_ms"`
						SubmissionClient string `json:"submission_client"`
					} `json:"additional_info"`
				} `json:"track_metadata"`
			} `json:"payload"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		if req.ListenType != "playing_now" {
			t.Errorf("listen_type = %q, want playing_now", req.ListenType)
		}
		if len(req.Payload) != 1 {
			t.Fatalf("payload length = %d, want 1", len(req.Payload))
		}
		p := req.Payload[0]
		if p.ListenedAt != 0 {
			t.Errorf("playing_now carries listened_at %d, want none", p.ListenedAt)
		}
		if p.TrackMetadata.ArtistName != "The Beatles" || p.TrackMetadata.TrackName != "Yesterday" {
			t.Errorf("track metadata = %+v", p.TrackMetadata)
		}
		if p.TrackMetadata.AdditionalInfo.DurationMS != 125000 {
			t.Errorf("duration_ms = %d, want 125000", p.TrackMetadata.AdditionalInfo.DurationMS)
		}
		if p.TrackMetadata.AdditionalInfo.SubmissionClient == "" {
			t.Error("submission_client missing")
		}

		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status": "ok"}`)); err != nil {
			t.Fatalf("failed to write response body: %v", err)
		}
	})

	track := Track{
		Artist:   "The Beatles",
		Title:    "Yesterday",
		Album:    "Help!",
		Duration: 125 * time.Second,
	}
	if err := client.PlayingNow(context.Background(), track); err != nil {
		t.Fatalf("PlayingNow() error = %v", err)
	}
}

// TestSubmitListens tests batch listen submission.
func TestSubmitListens(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ListenType string `json:"listen_type"`
			Payload    []struct {
				ListenedAt    int64 `json:"listened_at"`
				TrackMetadata struct {
					ArtistName string `json:"artist_name"`
					TrackName  string `json:"track_name"`
				} `json:"track_metadata"`
			} `json:"payload"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		if req.ListenType != "import" {
			t.Errorf("listen_type = %q, want import", req.ListenType)
		}
		if len(req.Payload) != 2 {
			t.Fatalf("payload length = %d, want 2", len(req.Payload))
		}
		if req.Payload[0].ListenedAt != 1234567890 {
			t.Errorf("listened_at = %d, want 1234567890", req.Payload[0].ListenedAt)
		}
		if req.Payload[1].TrackMetadata.TrackName != "Let It Be" {
			t.Errorf("second track = %q, want Let It Be", req.Payload[1].TrackMetadata.TrackName)
		}

		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status": "ok"}`)); err != nil {
			t.Fatalf("failed to write response body: %v", err)
		}
	})

	listens := []Listen{
		{
			Track:      Track{Artist: "The Beatles", Title: "Yesterday"},
			ListenedAt: time.Unix(1234567890, 0),
		},
		{
			Track:      Track{Artist: "The Beatles", Title: "Let It Be"},
			ListenedAt: time.Unix(1234567950, 0),
		},
	}
	if err := client.SubmitListens(context.Background(), listens); err != nil {
		t.Fatalf("SubmitListens() error = %v", err)
	}
}

// TestSubmitListensSingle tests that a one-listen batch uses listen_type
// single.
func TestSubmitListensSingle(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ListenType string `json:"listen_type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.ListenType != "single" {
			t.Errorf("listen_type = %q, want single", req.ListenType)
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status": "ok"}`)); err != nil {
			t.Fatalf("failed to write response body: %v", err)
		}
	})

	listens := []Listen{
		{
			Track:      Track{Artist: "The Beatles", Title: "Yesterday"},
			ListenedAt: time.Unix(1234567890, 0),
		},
	}
	if err := client.SubmitListens(context.Background(), listens); err != nil {
		t.Fatalf("SubmitListens() error = %v", err)
	}
}

// TestSubmitListensEmpty tests that an empty batch makes no request.
func TestSubmitListensEmpty(t *testing.T) {
	requests := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	})

	if err := client.SubmitListens(context.Background(), nil); err != nil {
		t.Fatalf("SubmitListens() error = %v", err)
	}
	if requests != 0 {
		t.Errorf("empty batch made %d requests, want 0", requests)
	}
}

// TestAPIError tests parsing and classification of API errors.
func TestAPIError(t *testing.T) {
	tests := []struct {
		name        string
		statusCode  int
		response    string
		wantAuth    bool
		wantTemp    bool
		wantMessage string
	}{
		{
			name:        "unauthorized",
			statusCode:  http.StatusUnauthorized,
			response:    `{"code": 401, "error": "Invalid authorization token."}`,
			wantAuth:    true,
			wantMessage: "Invalid authorization token.",
		},
		{
			name:       "bad request",
			statusCode: http.StatusBadRequest,
			response:   `{"code": 400, "error": "Invalid JSON."}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				if _, err := w.Write([]byte(tt.response)); err != nil {
					t.Fatalf("failed to write response body: %v", err)
				}
			})

			err := client.PlayingNow(context.Background(), Track{Artist: "A", Title: "T"})
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %T: %v", err, err)
			}
			if apiErr.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.statusCode)
			}
			if apiErr.AuthFailure() != tt.wantAuth {
				t.Errorf("AuthFailure() = %v, want %v", apiErr.AuthFailure(), tt.wantAuth)
			}
			if apiErr.Temporary() != tt.wantTemp {
				t.Errorf("Temporary() = %v, want %v", apiErr.Temporary(), tt.wantTemp)
			}
			if tt.wantMessage != "" && apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
		})
	}
}

// TestRetryRateLimit tests retry on 429 responses.
func TestRetryRateLimit(t *testing.T) {
	attempts := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			if _, err := w.Write([]byte(`{"code": 429, "error": "Rate limit exceeded."}`)); err != nil {
				t.Fatalf("failed to write response body: %v", err)
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"status": "ok"}`)); err != nil {
			t.Fatalf("failed to write response body: %v", err)
		}
	})

	err := client.PlayingNow(context.Background(), Track{Artist: "A", Title: "T"})
	if err != nil {
		t.Fatalf("expected success after retries, got error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

// TestNoToken tests that authenticated calls require a token.
func TestNoToken(t *testing.T) {
	client, err := NewClient(Config{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.ValidateToken(context.Background()); err != ErrNoToken {
		t.Errorf("ValidateToken without token = %v, want ErrNoToken", err)
	}
	if err := client.PlayingNow(context.Background(), Track{Artist: "A", Title: "T"}); err != ErrNoToken {
		t.Errorf("PlayingNow without token = %v, want ErrNoToken", err)
	}
}

// TestSetToken tests token replacement.
func TestSetToken(t *testing.T) {
	client, err := NewClient(Config{Token: "first"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if got := client.Token(); got != "first" {
		t.Errorf("Token() = %q, want %q", got, "first")
	}
	client.SetToken("second")
	if got := client.Token(); got != "second" {
		t.Errorf("Token() = %q, want %q", got, "second")
	}
}
