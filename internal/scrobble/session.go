package scrobble

import (
	"time"

	"github.com/scrobd/scrobd/internal/player"
)

const (
	// maxStep bounds a single accumulation step. Progress jumps at or above
	// it are seeks, not listening; wall gaps at or above it mean missed
	// polls (sleep, player hiccups) whose listening time cannot be trusted.
	maxStep = 2 * time.Second

	// replayRewind is how far progress must jump backwards on an already
	// scrobbled track before the jump counts as a fresh play.
	replayRewind = 5 * time.Second
)

// session tracks one continuous play of one track. It accumulates listening
// time from successive player observations and remembers whether the play
// has been announced (now playing) and scrobbled. All access is serialized
// by the monitor's mutex.
type session struct {
	trackID  string
	title    string
	artist   string
	album    string
	duration time.Duration

	// startedAt is the wall time the session began; it becomes the
	// scrobble timestamp.
	startedAt time.Time

	// progress is the last reported playback position.
	progress time.Duration

	// observedAt is the wall time of the last observation made while
	// playing. It is zeroed on pause so the first observation after a
	// resume has no reference and accumulates nothing.
	observedAt time.Time

	// played is the accumulated listening time.
	played time.Duration

	playing   bool
	announced bool
	scrobbled bool
}

// newSession starts a session from the first observation of a track
func newSession(t *player.Track, now time.Time) *session {
	s := &session{
		trackID:   t.ID,
		title:     t.Title,
		artist:    t.Artist,
		album:     t.Album,
		duration:  t.Duration,
		startedAt: now,
		progress:  t.Position,
		playing:   t.State == player.StatePlaying,
	}
	if s.playing {
		s.observedAt = now
	}
	return s
}

// changedFrom reports whether the observation belongs to a different play
// than this session. In order:
//
//  1. both sides carry a player identifier and they differ;
//  2. title or artist differ;
//  3. the track was already scrobbled and progress jumped backwards by more
//     than replayRewind, which means the same track is being played again.
func (s *session) changedFrom(t *player.Track) bool {
	if s.trackID != "" && t.ID != "" && s.trackID != t.ID {
		return true
	}
	if s.title != t.Title || s.artist != t.Artist {
		return true
	}
	if s.scrobbled && s.progress-t.Position > replayRewind {
		return true
	}
	return false
}

// advance folds one observation of the same track into the session.
//
// The progress delta is credited only when it is positive, below maxStep,
// and backed by a wall-clock gap below maxStep. Seeks in either direction
// and observations after missed polls therefore never inflate the count; at
// the normal poll cadence every delta passes.
func (s *session) advance(t *player.Track, now time.Time) {
	playing := t.State == player.StatePlaying

	if playing && !s.observedAt.IsZero() {
		progressDelta := t.Position - s.progress
		wallDelta := now.Sub(s.observedAt)
		if progressDelta > 0 && progressDelta < maxStep && wallDelta < maxStep {
			s.played += progressDelta
		}
	}

	s.progress = t.Position
	s.playing = playing
	if playing {
		s.observedAt = now
	} else {
		s.observedAt = time.Time{}
	}

	// Some players fill in metadata late (streams resolving titles).
	if s.duration == 0 && t.Duration > 0 {
		s.duration = t.Duration
	}
	if s.album == "" && t.Album != "" {
		s.album = t.Album
	}
}

// record snapshots the session as a scrobble-ready Track
func (s *session) record() Track {
	return Track{
		Artist:    s.artist,
		Title:     s.title,
		Album:     s.album,
		Duration:  s.duration,
		StartedAt: s.startedAt,
	}
}
