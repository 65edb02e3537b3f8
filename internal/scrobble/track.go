// Package scrobble implements the scrobbling core: the play-time session
// state machine, the durable retry queue, the backend capability interface,
// and the coordinator that ties them to a player source.
package scrobble

import (
	"fmt"
	"time"
)

// Track is a single play of a track, ready to be recorded to a backend.
// StartedAt marks when playback of this particular play began; a replayed
// track produces a new Track with a new StartedAt.
type Track struct {
	Artist string
	Title  string
	Album  string
	// Duration is zero when the player does not report one. Tracks without
	// a known duration never reach the scrobble threshold.
	Duration  time.Duration
	StartedAt time.Time
}

// String formats the track for logs
func (t Track) String() string {
	if t.Album == "" {
		return fmt.Sprintf("%s - %s", t.Artist, t.Title)
	}
	return fmt.Sprintf("%s - %s (%s)", t.Artist, t.Title, t.Album)
}

// Result reports a backend's verdict on one submitted Track.
type Result struct {
	Track    Track
	Accepted bool
	// CorrectedArtist and CorrectedTitle carry the service's canonical
	// metadata when it corrected the submission.
	CorrectedArtist string
	CorrectedTitle  string
	// Reason explains a rejection when the service provides one.
	Reason string
}

// Entry is a queued Track awaiting submission.
type Entry struct {
	// ID is the stable identifier minted at enqueue time.
	ID         string
	Track      Track
	EnqueuedAt time.Time
	// Attempts counts flush cycles in which no backend accepted the entry.
	Attempts  int
	LastError string
}
