package lastfm

import (
	"context"
	"fmt"
	"strconv"
)

// MaxBatchSize is the maximum number of scrobbles allowed in a single
// track.scrobble request.
const MaxBatchSize = 50

// UpdateNowPlaying updates the "now playing" status on Last.fm.
//
// This should be called when a track starts playing. It does not count
// as a scrobble and does not affect play counts.
//
// Requires a session key.
func (c *Client) UpdateNowPlaying(ctx context.Context, track Track) (*NowPlayingResponse, error) {
	params := map[string]string{
		"artist": track.Artist,
		"track":  track.Track,
	}
	addTrackParams(params, "", track)

	inner, err := c.call(ctx, "track.updateNowPlaying", params, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		NowPlaying struct {
			Artist      corrected `xml:"artist"`
			Track       corrected `xml:"track"`
			Album       corrected `xml:"album"`
			AlbumArtist corrected `xml:"albumArtist"`
			Ignored     ignored   `xml:"ignoredMessage"`
		} `xml:"nowplaying"`
	}
	if err := unmarshalInner(inner, &resp); err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse now playing response: %w", err)
	}

	return &NowPlayingResponse{
		Artist:      resp.NowPlaying.Artist.Value,
		Track:       resp.NowPlaying.Track.Value,
		Album:       resp.NowPlaying.Album.Value,
		AlbumArtist: resp.NowPlaying.AlbumArtist.Value,
		Ignored:     resp.NowPlaying.Ignored.message(),
	}, nil
}

// Scrobble submits a batch of scrobbles in a single track.scrobble request.
//
// A track should only be scrobbled once it is longer than 30 seconds and
// has been played for at least half its duration or 4 minutes, whichever
// comes first. At most MaxBatchSize scrobbles are submitted; a longer slice
// is truncated.
//
// The response carries one ScrobbleItem per submitted track, in submission
// order, so callers can see which entries the service ignored or corrected.
//
// Requires a session key.
func (c *Client) Scrobble(ctx context.Context, scrobbles []Scrobble) (*ScrobbleResponse, error) {
	if len(scrobbles) == 0 {
		return &ScrobbleResponse{}, nil
	}
	if len(scrobbles) > MaxBatchSize {
		scrobbles = scrobbles[:MaxBatchSize]
	}

	params := make(map[string]string, len(scrobbles)*4)
	for i, s := range scrobbles {
		idx := fmt.Sprintf("[%d]", i)
		params["artist"+idx] = s.Track.Artist
		params["track"+idx] = s.Track.Track
		params["timestamp"+idx] = strconv.FormatInt(s.Timestamp.Unix(), 10)
		addTrackParams(params, idx, s.Track)
	}

	inner, err := c.call(ctx, "track.scrobble", params, true)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Scrobbles struct {
			Accepted string `xml:"accepted,attr"`
			Ignored  string `xml:"ignored,attr"`
			Items    []struct {
				Artist    corrected `xml:"artist"`
				Track     corrected `xml:"track"`
				Album     corrected `xml:"album"`
				Timestamp string    `xml:"timestamp"`
				Ignored   ignored   `xml:"ignoredMessage"`
			} `xml:"scrobble"`
		} `xml:"scrobbles"`
	}
	if err := unmarshalInner(inner, &resp); err != nil {
		return nil, fmt.Errorf("lastfm: failed to parse scrobble response: %w", err)
	}

	result := &ScrobbleResponse{
		Accepted:  atoi(resp.Scrobbles.Accepted),
		Ignored:   atoi(resp.Scrobbles.Ignored),
		Scrobbles: make([]ScrobbleItem, len(resp.Scrobbles.Items)),
	}
	for i, item := range resp.Scrobbles.Items {
		result.Scrobbles[i] = ScrobbleItem{
			Artist:          item.Artist.Value,
			ArtistCorrected: item.Artist.Corrected == "1",
			Track:           item.Track.Value,
			TrackCorrected:  item.Track.Corrected == "1",
			Album:           item.Album.Value,
			Timestamp:       int64(atoi(item.Timestamp)),
			Ignored:         item.Ignored.message(),
		}
	}
	return result, nil
}

// addTrackParams fills in the optional track parameters, with an index
// suffix for batch requests.
func addTrackParams(params map[string]string, idx string, track Track) {
	if track.Album != "" {
		params["album"+idx] = track.Album
	}
	if track.AlbumArtist != "" {
		params["albumArtist"+idx] = track.AlbumArtist
	}
	if track.Duration > 0 {
		params["duration"+idx] = strconv.Itoa(track.Duration)
	}
	if track.TrackNumber > 0 {
		params["trackNumber"+idx] = strconv.Itoa(track.TrackNumber)
	}
	if track.MBTrackID != "" {
		params["mbid"+idx] = track.MBTrackID
	}
}

// corrected is a text element carrying Last.fm's corrected attribute.
type corrected struct {
	Corrected string `xml:"corrected,attr"`
	Value     string `xml:",chardata"`
}

// ignored is the ignoredMessage element. Last.fm sends code="0" with empty
// text for accepted submissions.
type ignored struct {
	Code string `xml:"code,attr"`
	Text string `xml:",chardata"`
}

func (i ignored) message() IgnoredMessage {
	return IgnoredMessage{Code: atoi(i.Code), Text: i.Text}
}

// atoi parses service-sent numbers, which may be absent or empty.
func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
