package lastfm

import (
	"time"
)

// Track represents a music track for scrobbling or now playing updates.
type Track struct {
	Artist      string // Required: artist name
	Track       string // Required: track name
	Album       string // Optional: album name
	AlbumArtist string // Optional: album artist, if different from track artist
	Duration    int    // Optional: track duration in seconds
	TrackNumber int    // Optional: track number on album
	MBTrackID   string // Optional: MusicBrainz track ID
}

// Scrobble represents a single scrobble with its play timestamp.
type Scrobble struct {
	Track     Track
	Timestamp time.Time // when the track started playing
}

// Session represents an authenticated session from auth.getSession.
type Session struct {
	Key        string // session key for authenticated requests
	Username   string // Last.fm username
	Subscriber bool   // whether the user is a subscriber
}

// IgnoredMessage explains why the service ignored a submission. Code zero
// means the submission was accepted.
type IgnoredMessage struct {
	Code int
	Text string
}

// NowPlayingResponse represents the response from track.updateNowPlaying,
// including any corrections the service applied.
type NowPlayingResponse struct {
	Artist      string
	Track       string
	Album       string
	AlbumArtist string
	Ignored     IgnoredMessage
}

// ScrobbleItem is the per-track acknowledgement inside a scrobble response.
type ScrobbleItem struct {
	Artist          string
	ArtistCorrected bool
	Track           string
	TrackCorrected  bool
	Album           string
	Timestamp       int64
	Ignored         IgnoredMessage
}

// Accepted reports whether this scrobble was accepted by the service.
func (s ScrobbleItem) Accepted() bool {
	return s.Ignored.Code == 0
}

// ScrobbleResponse represents the response from track.scrobble. Scrobbles
// holds one item per submitted track, in submission order.
type ScrobbleResponse struct {
	Accepted  int
	Ignored   int
	Scrobbles []ScrobbleItem
}
