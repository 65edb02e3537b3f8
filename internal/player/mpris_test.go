package player

import (
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
)

// TestParsePlaybackStatus tests the MPRIS status string mapping
func TestParsePlaybackStatus(t *testing.T) {
	tests := []struct {
		status string
		want   PlayState
	}{
		{"Playing", StatePlaying},
		{"Paused", StatePaused},
		{"Stopped", StateStopped},
		{"", StateStopped},
		{"garbage", StateStopped},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := parsePlaybackStatus(tt.status); got != tt.want {
				t.Errorf("parsePlaybackStatus(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

// TestParseMetadata tests metadata extraction across the type variants
// different players emit
func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]dbus.Variant
		want Track
	}{
		{
			name: "spec-conformant player",
			meta: map[string]dbus.Variant{
				"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath("/org/mpd/Tracks/12")),
				"mpris:length":  dbus.MakeVariant(int64(254_000_000)),
				"xesam:title":   dbus.MakeVariant("Paranoid Android"),
				"xesam:artist":  dbus.MakeVariant([]string{"Radiohead"}),
				"xesam:album":   dbus.MakeVariant("OK Computer"),
			},
			want: Track{
				ID:       "/org/mpd/Tracks/12",
				Title:    "Paranoid Android",
				Artist:   "Radiohead",
				Album:    "OK Computer",
				Duration: 254 * time.Second,
			},
		},
		{
			name: "artist as bare string, length as uint64",
			meta: map[string]dbus.Variant{
				"mpris:trackid": dbus.MakeVariant("/track/7"),
				"mpris:length":  dbus.MakeVariant(uint64(180_000_000)),
				"xesam:title":   dbus.MakeVariant("Song"),
				"xesam:artist":  dbus.MakeVariant("Solo Artist"),
			},
			want: Track{
				ID:       "/track/7",
				Title:    "Song",
				Artist:   "Solo Artist",
				Duration: 180 * time.Second,
			},
		},
		{
			name: "multiple artists joined",
			meta: map[string]dbus.Variant{
				"xesam:title":  dbus.MakeVariant("Duet"),
				"xesam:artist": dbus.MakeVariant([]string{"First", "Second"}),
			},
			want: Track{
				Title:  "Duet",
				Artist: "First, Second",
			},
		},
		{
			name: "NoTrack placeholder yields empty id",
			meta: map[string]dbus.Variant{
				"mpris:trackid": dbus.MakeVariant(dbus.ObjectPath(noTrackPath)),
				"xesam:title":   dbus.MakeVariant("Phantom"),
			},
			want: Track{
				Title: "Phantom",
			},
		},
		{
			name: "missing everything",
			meta: map[string]dbus.Variant{},
			want: Track{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseMetadata(dbus.MakeVariant(tt.meta))
			if got.ID != tt.want.ID {
				t.Errorf("ID = %q, want %q", got.ID, tt.want.ID)
			}
			if got.Title != tt.want.Title {
				t.Errorf("Title = %q, want %q", got.Title, tt.want.Title)
			}
			if got.Artist != tt.want.Artist {
				t.Errorf("Artist = %q, want %q", got.Artist, tt.want.Artist)
			}
			if got.Album != tt.want.Album {
				t.Errorf("Album = %q, want %q", got.Album, tt.want.Album)
			}
			if got.Duration != tt.want.Duration {
				t.Errorf("Duration = %v, want %v", got.Duration, tt.want.Duration)
			}
		})
	}
}

// TestParseMetadata_NotAMap tests that a malformed Metadata property
// degrades to an empty track instead of panicking
func TestParseMetadata_NotAMap(t *testing.T) {
	got := parseMetadata(dbus.MakeVariant("not a map"))
	if got.Title != "" || got.Artist != "" || got.ID != "" {
		t.Errorf("expected empty track, got %+v", got)
	}
}

// TestAsMicroseconds tests numeric coercion for length/position fields
func TestAsMicroseconds(t *testing.T) {
	tests := []struct {
		name   string
		value  interface{}
		want   int64
		wantOK bool
	}{
		{"int64", int64(42), 42, true},
		{"uint64", uint64(42), 42, true},
		{"int32", int32(42), 42, true},
		{"uint32", uint32(42), 42, true},
		{"int", int(42), 42, true},
		{"float64", float64(42.9), 42, true},
		{"string", "42", 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := asMicroseconds(tt.value)
			if ok != tt.wantOK {
				t.Fatalf("asMicroseconds(%v) ok = %v, want %v", tt.value, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("asMicroseconds(%v) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}
