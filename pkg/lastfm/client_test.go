package lastfm

import (
	"testing"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid config",
			cfg:     Config{APIKey: "key", APISecret: "secret"},
			wantErr: false,
		},
		{
			name:    "missing api key",
			cfg:     Config{APISecret: "secret"},
			wantErr: true,
		},
		{
			name:    "missing api secret",
			cfg:     Config{APIKey: "key"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewClient() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClientSessionKey(t *testing.T) {
	client, err := NewClient(Config{APIKey: "key", APISecret: "secret", SessionKey: "initial"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if got := client.SessionKey(); got != "initial" {
		t.Errorf("SessionKey() = %q, want %q", got, "initial")
	}

	client.SetSessionKey("replaced")
	if got := client.SessionKey(); got != "replaced" {
		t.Errorf("SessionKey() = %q, want %q", got, "replaced")
	}
}

func TestSignParams(t *testing.T) {
	// Known-answer check: md5("api_keykeymethodauth.getTokensecret").
	got := signParams(map[string]string{
		"method":  "auth.getToken",
		"api_key": "key",
	}, "secret")
	want := "b4705499705a550b07ca058a15bde9b0"
	if got != want {
		t.Errorf("signParams() = %q, want %q", got, want)
	}
}
