package scrobble

import (
	"testing"
	"time"

	"github.com/scrobd/scrobd/internal/player"
)

func playingTrack(id, title, artist string, duration, position time.Duration) *player.Track {
	return &player.Track{
		ID:       id,
		Title:    title,
		Artist:   artist,
		Album:    "Album",
		Duration: duration,
		Position: position,
		State:    player.StatePlaying,
	}
}

func TestSessionChangedFrom(t *testing.T) {
	base := playingTrack("id-1", "Title", "Artist", 3*time.Minute, 10*time.Second)

	tests := []struct {
		name      string
		scrobbled bool
		progress  time.Duration
		next      *player.Track
		want      bool
	}{
		{
			name: "same observation",
			next: playingTrack("id-1", "Title", "Artist", 3*time.Minute, 11*time.Second),
			want: false,
		},
		{
			name: "identifier changed",
			next: playingTrack("id-2", "Title", "Artist", 3*time.Minute, 0),
			want: true,
		},
		{
			name: "identifier missing on one side same metadata",
			next: playingTrack("", "Title", "Artist", 3*time.Minute, 12*time.Second),
			want: false,
		},
		{
			name: "title changed under same identifier",
			next: playingTrack("id-1", "Other Title", "Artist", 3*time.Minute, 0),
			want: true,
		},
		{
			name: "artist changed without identifiers",
			next: playingTrack("", "Title", "Other Artist", 3*time.Minute, 0),
			want: true,
		},
		{
			name:      "replay after scrobble",
			scrobbled: true,
			progress:  150 * time.Second,
			next:      playingTrack("id-1", "Title", "Artist", 3*time.Minute, 2*time.Second),
			want:      true,
		},
		{
			name:      "small rewind after scrobble",
			scrobbled: true,
			progress:  150 * time.Second,
			next:      playingTrack("id-1", "Title", "Artist", 3*time.Minute, 145*time.Second),
			want:      false,
		},
		{
			name:     "rewind before scrobble is a seek",
			progress: 150 * time.Second,
			next:     playingTrack("id-1", "Title", "Artist", 3*time.Minute, 2*time.Second),
			want:     false,
		},
		{
			name:      "forward jump after scrobble",
			scrobbled: true,
			progress:  60 * time.Second,
			next:      playingTrack("id-1", "Title", "Artist", 3*time.Minute, 170*time.Second),
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(base, time.Now())
			s.scrobbled = tt.scrobbled
			if tt.progress > 0 {
				s.progress = tt.progress
			}
			if got := s.changedFrom(tt.next); got != tt.want {
				t.Errorf("changedFrom() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionAccumulation(t *testing.T) {
	start := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	duration := 3 * time.Minute

	t.Run("steady playback accrues", func(t *testing.T) {
		s := newSession(playingTrack("id-1", "Title", "Artist", duration, 0), start)
		for i := 1; i <= 10; i++ {
			tick := playingTrack("id-1", "Title", "Artist", duration, time.Duration(i)*time.Second)
			s.advance(tick, start.Add(time.Duration(i)*time.Second))
		}
		if s.played != 10*time.Second {
			t.Errorf("played = %v, want %v", s.played, 10*time.Second)
		}
	})

	t.Run("forward seek not credited", func(t *testing.T) {
		s := newSession(playingTrack("id-1", "Title", "Artist", duration, 10*time.Second), start)
		s.advance(playingTrack("id-1", "Title", "Artist", duration, 70*time.Second), start.Add(time.Second))
		if s.played != 0 {
			t.Errorf("played = %v after seek, want 0", s.played)
		}
		if s.progress != 70*time.Second {
			t.Errorf("progress = %v, want %v", s.progress, 70*time.Second)
		}
	})

	t.Run("backward seek not credited", func(t *testing.T) {
		s := newSession(playingTrack("id-1", "Title", "Artist", duration, 70*time.Second), start)
		s.advance(playingTrack("id-1", "Title", "Artist", duration, 10*time.Second), start.Add(time.Second))
		if s.played != 0 {
			t.Errorf("played = %v after rewind, want 0", s.played)
		}
	})

	t.Run("wall clock gap not credited", func(t *testing.T) {
		s := newSession(playingTrack("id-1", "Title", "Artist", duration, 0), start)
		s.advance(playingTrack("id-1", "Title", "Artist", duration, time.Second), start.Add(30*time.Second))
		if s.played != 0 {
			t.Errorf("played = %v after missed polls, want 0", s.played)
		}
	})

	t.Run("paused wall time not credited", func(t *testing.T) {
		s := newSession(playingTrack("id-1", "Title", "Artist", duration, 0), start)

		now := start
		pos := time.Duration(0)
		for i := 0; i < 5; i++ {
			now = now.Add(time.Second)
			pos += time.Second
			s.advance(playingTrack("id-1", "Title", "Artist", duration, pos), now)
		}

		// Ten minutes paused at a fixed position.
		paused := playingTrack("id-1", "Title", "Artist", duration, pos)
		paused.State = player.StatePaused
		for i := 0; i < 600; i++ {
			now = now.Add(time.Second)
			s.advance(paused, now)
		}

		// Resume. The first observation re-establishes the wall reference,
		// the following ones accrue again.
		for i := 0; i < 3; i++ {
			now = now.Add(time.Second)
			pos += time.Second
			s.advance(playingTrack("id-1", "Title", "Artist", duration, pos), now)
		}

		if s.played != 7*time.Second {
			t.Errorf("played = %v across a pause, want %v", s.played, 7*time.Second)
		}
	})

	t.Run("session started paused has no wall reference", func(t *testing.T) {
		first := playingTrack("id-1", "Title", "Artist", duration, 10*time.Second)
		first.State = player.StatePaused
		s := newSession(first, start)

		s.advance(playingTrack("id-1", "Title", "Artist", duration, 11*time.Second), start.Add(time.Second))
		if s.played != 0 {
			t.Errorf("played = %v on first observation after start, want 0", s.played)
		}
		s.advance(playingTrack("id-1", "Title", "Artist", duration, 12*time.Second), start.Add(2*time.Second))
		if s.played != time.Second {
			t.Errorf("played = %v, want %v", s.played, time.Second)
		}
	})
}

func TestSessionLateMetadata(t *testing.T) {
	start := time.Now()
	first := &player.Track{ID: "id-1", Title: "Title", Artist: "Artist", State: player.StatePlaying}
	s := newSession(first, start)

	next := playingTrack("id-1", "Title", "Artist", 4*time.Minute, time.Second)
	s.advance(next, start.Add(time.Second))

	if s.duration != 4*time.Minute {
		t.Errorf("duration = %v, want %v", s.duration, 4*time.Minute)
	}
	if s.album != "Album" {
		t.Errorf("album = %q, want %q", s.album, "Album")
	}
}

func TestSessionRecord(t *testing.T) {
	start := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	s := newSession(playingTrack("id-1", "Title", "Artist", 3*time.Minute, 0), start)

	rec := s.record()
	if rec.Artist != "Artist" || rec.Title != "Title" || rec.Album != "Album" {
		t.Errorf("record() = %+v, wrong metadata", rec)
	}
	if !rec.StartedAt.Equal(start) {
		t.Errorf("record().StartedAt = %v, want %v", rec.StartedAt, start)
	}
	if rec.Duration != 3*time.Minute {
		t.Errorf("record().Duration = %v, want %v", rec.Duration, 3*time.Minute)
	}
}
