package player

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// AppleScriptSource reads Apple Music on macOS via osascript.
type AppleScriptSource struct{}

// NewAppleScriptSource creates an AppleScript-based player source
func NewAppleScriptSource() *AppleScriptSource {
	return &AppleScriptSource{}
}

// Name identifies this source
func (c *AppleScriptSource) Name() string {
	return "applemusic"
}

// nowScript checks that Music is running and reads the current track in a
// single osascript invocation, avoiding two subprocess spawns per poll. The
// persistent ID gives change detection a stable identifier that survives
// identically-titled tracks.
const nowScript = `
tell application "System Events"
	if not ((name of processes) contains "Music") then
		return "not_running"
	end if
end tell
tell application "Music"
	if player state is stopped then
		return "stopped"
	else
		set trackID to persistent ID of current track
		set trackName to name of current track
		set trackArtist to artist of current track
		set trackAlbum to album of current track
		set trackDuration to duration of current track
		set playerPos to player position
		set playerState to player state as string

		return trackID & "|||" & trackName & "|||" & trackArtist & "|||" & trackAlbum & "|||" & trackDuration & "|||" & playerPos & "|||" & playerState
	end if
end tell`

// Now returns the currently playing or paused track from Apple Music.
// It returns (nil, nil) when the Music app is not running or stopped.
func (c *AppleScriptSource) Now(ctx context.Context) (*Track, error) {
	cmd := exec.CommandContext(ctx, "osascript", "-e", nowScript)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("osascript error: %s", string(exitErr.Stderr))
		}
		return nil, fmt.Errorf("failed to execute osascript: %w", err)
	}

	result := strings.TrimSpace(string(output))
	if result == "not_running" || result == "stopped" {
		return nil, nil
	}

	track, err := parseNowOutput(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse track output: %w", err)
	}
	return track, nil
}

// parseNowOutput parses the delimited record produced by nowScript
func parseNowOutput(output string) (*Track, error) {
	parts := strings.Split(output, "|||")
	if len(parts) != 7 {
		return nil, fmt.Errorf("expected 7 parts, got %d: %q", len(parts), output)
	}

	id := strings.TrimSpace(parts[0])
	title := strings.TrimSpace(parts[1])
	artist := strings.TrimSpace(parts[2])
	album := strings.TrimSpace(parts[3])
	durationStr := strings.TrimSpace(parts[4])
	positionStr := strings.TrimSpace(parts[5])
	stateStr := strings.TrimSpace(parts[6])

	// AppleScript reports duration and position in seconds as floats, with
	// a comma decimal separator under some locales.
	durationSec, err := strconv.ParseFloat(strings.Replace(durationStr, ",", ".", 1), 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration %q: %w", durationStr, err)
	}

	positionSec, err := strconv.ParseFloat(strings.Replace(positionStr, ",", ".", 1), 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse position %q: %w", positionStr, err)
	}

	var state PlayState
	switch stateStr {
	case "playing":
		state = StatePlaying
	case "paused":
		state = StatePaused
	case "stopped":
		state = StateStopped
	default:
		return nil, fmt.Errorf("unknown player state: %q", stateStr)
	}

	return &Track{
		ID:       id,
		Title:    title,
		Artist:   artist,
		Album:    album,
		Duration: secondsToDuration(durationSec),
		Position: secondsToDuration(positionSec),
		State:    state,
	}, nil
}

// secondsToDuration converts seconds (as float) to time.Duration
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func (c *AppleScriptSource) tell(ctx context.Context, command string) error {
	script := `tell application "Music" to ` + command
	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to %s: %w", command, err)
	}
	return nil
}

// Play resumes playback in Apple Music
func (c *AppleScriptSource) Play(ctx context.Context) error {
	return c.tell(ctx, "play")
}

// Pause pauses playback in Apple Music
func (c *AppleScriptSource) Pause(ctx context.Context) error {
	return c.tell(ctx, "pause")
}

// PlayPause toggles between play and pause in Apple Music
func (c *AppleScriptSource) PlayPause(ctx context.Context) error {
	return c.tell(ctx, "playpause")
}

// NextTrack skips to the next track in Apple Music
func (c *AppleScriptSource) NextTrack(ctx context.Context) error {
	return c.tell(ctx, "next track")
}

// PreviousTrack goes back to the previous track in Apple Music
func (c *AppleScriptSource) PreviousTrack(ctx context.Context) error {
	return c.tell(ctx, "back track")
}

// SetShuffle enables or disables shuffle mode in Apple Music
func (c *AppleScriptSource) SetShuffle(ctx context.Context, enabled bool) error {
	return c.tell(ctx, fmt.Sprintf("set shuffle enabled to %t", enabled))
}

// SetVolume sets the playback volume in Apple Music (0-100)
func (c *AppleScriptSource) SetVolume(ctx context.Context, level int) error {
	if level < 0 || level > 100 {
		return fmt.Errorf("volume level must be between 0 and 100, got %d", level)
	}
	return c.tell(ctx, fmt.Sprintf("set sound volume to %d", level))
}
