// Package player provides read access to the local music player.
//
// Two implementations exist: an MPRIS D-Bus client for Linux desktops and an
// AppleScript client for Apple Music on macOS. The scrobbling coordinator
// consumes only the read-only Source interface; playback control is a
// separate capability used by the CLI passthrough commands and the TUI.
package player

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog"
)

// PlayState represents the playback state of the player
type PlayState int

const (
	// StateStopped indicates no track is loaded or playback is stopped
	StateStopped PlayState = iota
	// StatePlaying indicates a track is currently playing
	StatePlaying
	// StatePaused indicates a track is loaded but paused
	StatePaused
)

// String returns a human-readable representation of the play state
func (s PlayState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Track represents a single observation of the player's current track.
type Track struct {
	// ID is the player-assigned track identifier. May be empty when the
	// player does not expose one.
	ID       string
	Title    string
	Artist   string
	Album    string
	Duration time.Duration // zero when the player does not report one
	Position time.Duration
	State    PlayState
}

// Source reads the player's current track.
type Source interface {
	// Name identifies the source implementation for logging.
	Name() string

	// Now returns the current track, or (nil, nil) when the player is not
	// running or playback is stopped.
	Now(ctx context.Context) (*Track, error)
}

// Controller drives playback. Both built-in sources implement it.
type Controller interface {
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	PlayPause(ctx context.Context) error
	NextTrack(ctx context.Context) error
	PreviousTrack(ctx context.Context) error
	SetShuffle(ctx context.Context, enabled bool) error
	SetVolume(ctx context.Context, level int) error
}

// New builds a Source by kind. "auto" picks Apple Music on darwin and MPRIS
// everywhere else; "mpris" and "applemusic" force an implementation. bus
// pins the MPRIS bus name, or leaves discovery on when empty.
func New(kind, bus string, logger zerolog.Logger) (Source, error) {
	if kind == "" || kind == "auto" {
		if runtime.GOOS == "darwin" {
			kind = "applemusic"
		} else {
			kind = "mpris"
		}
	}

	switch kind {
	case "applemusic":
		return NewAppleScriptSource(), nil
	case "mpris":
		return NewMPRISSource(bus, logger)
	default:
		return nil, fmt.Errorf("unknown player source %q (want auto, mpris or applemusic)", kind)
	}
}

// NewController builds a Controller by the same kind selection as New.
func NewController(kind, bus string, logger zerolog.Logger) (Controller, error) {
	src, err := New(kind, bus, logger)
	if err != nil {
		return nil, err
	}
	ctrl, ok := src.(Controller)
	if !ok {
		return nil, fmt.Errorf("player source %q does not support playback control", src.Name())
	}
	return ctrl, nil
}
