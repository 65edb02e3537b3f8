package scrobble

import "time"

const (
	// MinTrackLength is the shortest track that can ever be scrobbled.
	MinTrackLength = 30 * time.Second

	// DefaultPercent is the fraction of a track that must be listened to.
	DefaultPercent = 0.5

	// DefaultMinPlay caps the listening requirement for long tracks.
	DefaultMinPlay = 4 * time.Minute
)

// Thresholds decides when accumulated play time qualifies a track for
// scrobbling. A track qualifies once its duration reaches MinTrackLength and
// the accumulated play time reaches either Percent of the duration or
// MinPlay, whichever is lower.
type Thresholds struct {
	Percent float64
	MinPlay time.Duration
}

// DefaultThresholds returns the standard 50% / 4 minute rule
func DefaultThresholds() Thresholds {
	return Thresholds{Percent: DefaultPercent, MinPlay: DefaultMinPlay}
}

// norm substitutes defaults for unset or out-of-range fields, so a zero
// Thresholds behaves like DefaultThresholds instead of firing instantly.
func (t Thresholds) norm() Thresholds {
	if t.Percent <= 0 || t.Percent > 1 {
		t.Percent = DefaultPercent
	}
	if t.MinPlay <= 0 {
		t.MinPlay = DefaultMinPlay
	}
	return t
}

// Met reports whether played time qualifies a track of the given duration.
// Tracks shorter than MinTrackLength, including tracks with an unknown
// (zero) duration, never qualify.
func (t Thresholds) Met(duration, played time.Duration) bool {
	if duration < MinTrackLength {
		return false
	}
	t = t.norm()

	percentPoint := time.Duration(float64(duration) * t.Percent)
	return played >= percentPoint || played >= t.MinPlay
}

// Required returns the play time at which a track of the given duration
// qualifies, and false for tracks that can never qualify.
func (t Thresholds) Required(duration time.Duration) (time.Duration, bool) {
	if duration < MinTrackLength {
		return 0, false
	}
	t = t.norm()

	required := time.Duration(float64(duration) * t.Percent)
	if t.MinPlay < required {
		required = t.MinPlay
	}
	return required, true
}
