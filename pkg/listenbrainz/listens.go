package listenbrainz

import (
	"context"
	"net/http"
	"time"
)

// Track represents a music track for listen submission.
type Track struct {
	Artist   string        // Required: artist name
	Title    string        // Required: track name
	Album    string        // Optional: release name
	Duration time.Duration // Optional: track length
}

// Listen represents a single completed listen with its play timestamp.
type Listen struct {
	Track      Track
	ListenedAt time.Time // when the track started playing
}

// submissionClient identifies this library in submitted listens, as the
// ListenBrainz guidelines ask.
const submissionClient = "scrobd"

type submitRequest struct {
	ListenType string          `json:"listen_type"`
	Payload    []listenPayload `json:"payload"`
}

type listenPayload struct {
	ListenedAt    int64         `json:"listened_at,omitempty"`
	TrackMetadata trackMetadata `json:"track_metadata"`
}

type trackMetadata struct {
	ArtistName     string          `json:"artist_name"`
	TrackName      string          `json:"track_name"`
	ReleaseName    string          `json:"release_name,omitempty"`
	AdditionalInfo *additionalInfo `json:"additional_info,omitempty"`
}

type additionalInfo struct {
	DurationMS       int64  `json:"duration_ms,omitempty"`
	SubmissionClient string `json:"submission_client,omitempty"`
}

// PlayingNow tells ListenBrainz what is playing right now. Playing-now
// notifications carry no timestamp and do not count as listens.
//
// Requires a user token.
func (c *Client) PlayingNow(ctx context.Context, track Track) error {
	req := submitRequest{
		ListenType: "playing_now",
		Payload:    []listenPayload{{TrackMetadata: metadataFor(track)}},
	}
	return c.do(ctx, http.MethodPost, "/1/submit-listens", req, nil)
}

// SubmitListens submits a batch of completed listens. ListenBrainz has no
// per-request acceptance report; a successful response means the whole
// batch was accepted.
//
// Requires a user token.
func (c *Client) SubmitListens(ctx context.Context, listens []Listen) error {
	if len(listens) == 0 {
		return nil
	}

	payload := make([]listenPayload, len(listens))
	for i, l := range listens {
		payload[i] = listenPayload{
			ListenedAt:    l.ListenedAt.Unix(),
			TrackMetadata: metadataFor(l.Track),
		}
	}

	listenType := "import"
	if len(listens) == 1 {
		listenType = "single"
	}

	req := submitRequest{ListenType: listenType, Payload: payload}
	return c.do(ctx, http.MethodPost, "/1/submit-listens", req, nil)
}

func metadataFor(track Track) trackMetadata {
	md := trackMetadata{
		ArtistName:  track.Artist,
		TrackName:   track.Title,
		ReleaseName: track.Album,
	}
	info := additionalInfo{SubmissionClient: submissionClient}
	if track.Duration > 0 {
		info.DurationMS = track.Duration.Milliseconds()
	}
	md.AdditionalInfo = &info
	return md
}
