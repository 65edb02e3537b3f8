package player

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
)

const (
	mprisPrefix      = "org.mpris.MediaPlayer2."
	mprisObjectPath  = "/org/mpris/MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
	propsIface       = "org.freedesktop.DBus.Properties"

	// noTrackPath is the reserved trackid players report when nothing is
	// loaded.
	noTrackPath = "/org/mpris/MediaPlayer2/TrackList/NoTrack"
)

// MPRISSource reads the current track from an MPRIS-capable player over the
// session D-Bus.
type MPRISSource struct {
	conn   *dbus.Conn
	bus    string // pinned bus name; empty enables discovery
	logger zerolog.Logger
}

// NewMPRISSource connects to the session bus. When bus is empty the source
// discovers a running MPRIS player on every poll, so players can come and go
// while the daemon runs.
func NewMPRISSource(bus string, logger zerolog.Logger) (*MPRISSource, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	if bus != "" && !strings.HasPrefix(bus, mprisPrefix) {
		bus = mprisPrefix + bus
	}

	return &MPRISSource{
		conn:   conn,
		bus:    bus,
		logger: logger.With().Str("component", "mpris").Logger(),
	}, nil
}

// Name identifies this source
func (s *MPRISSource) Name() string {
	return "mpris"
}

// Close releases the bus connection
func (s *MPRISSource) Close() error {
	return s.conn.Close()
}

// Now returns the current track from the first available MPRIS player, or
// (nil, nil) when no player is running or playback is stopped.
func (s *MPRISSource) Now(ctx context.Context) (*Track, error) {
	name, err := s.player(ctx)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, nil
	}

	var props map[string]dbus.Variant
	obj := s.conn.Object(name, mprisObjectPath)
	call := obj.CallWithContext(ctx, propsIface+".GetAll", 0, mprisPlayerIface)
	if call.Err != nil {
		return nil, fmt.Errorf("failed to read player properties from %s: %w", name, call.Err)
	}
	if err := call.Store(&props); err != nil {
		return nil, fmt.Errorf("failed to decode player properties: %w", err)
	}

	state := parsePlaybackStatus(variantString(props["PlaybackStatus"]))
	if state == StateStopped {
		return nil, nil
	}

	track := parseMetadata(props["Metadata"])
	if pos, ok := asMicroseconds(props["Position"].Value()); ok {
		track.Position = time.Duration(pos) * time.Microsecond
	}
	track.State = state
	return track, nil
}

// player resolves the bus name to talk to. A pinned name is used as-is;
// otherwise the lexically first org.mpris.MediaPlayer2.* name wins, which
// keeps the choice stable across polls.
func (s *MPRISSource) player(ctx context.Context) (string, error) {
	if s.bus != "" {
		var owner string
		err := s.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.GetNameOwner", 0, s.bus).Store(&owner)
		if err != nil {
			// Name not currently owned: the player is not running.
			return "", nil
		}
		return s.bus, nil
	}

	var names []string
	err := s.conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.ListNames", 0).Store(&names)
	if err != nil {
		return "", fmt.Errorf("failed to list bus names: %w", err)
	}

	var players []string
	for _, n := range names {
		if strings.HasPrefix(n, mprisPrefix) {
			players = append(players, n)
		}
	}
	if len(players) == 0 {
		return "", nil
	}
	sort.Strings(players)
	return players[0], nil
}

// parsePlaybackStatus maps the MPRIS PlaybackStatus string to a PlayState
func parsePlaybackStatus(status string) PlayState {
	switch status {
	case "Playing":
		return StatePlaying
	case "Paused":
		return StatePaused
	default:
		return StateStopped
	}
}

// parseMetadata extracts track fields from the MPRIS Metadata property.
// Players are sloppy about metadata types, so every field tolerates the
// variants seen in the wild.
func parseMetadata(v dbus.Variant) *Track {
	track := &Track{}

	meta, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return track
	}

	if id, ok := meta["mpris:trackid"]; ok {
		switch p := id.Value().(type) {
		case dbus.ObjectPath:
			if string(p) != noTrackPath {
				track.ID = string(p)
			}
		case string:
			if p != noTrackPath {
				track.ID = p
			}
		}
	}

	track.Title = variantString(meta["xesam:title"])
	track.Album = variantString(meta["xesam:album"])
	track.Artist = joinArtists(meta["xesam:artist"])

	if length, ok := meta["mpris:length"]; ok {
		if us, ok := asMicroseconds(length.Value()); ok {
			track.Duration = time.Duration(us) * time.Microsecond
		}
	}

	return track
}

// joinArtists flattens the xesam:artist value, which is a string list per
// the MPRIS spec but a bare string in some players.
func joinArtists(v dbus.Variant) string {
	switch a := v.Value().(type) {
	case []string:
		return strings.Join(a, ", ")
	case []interface{}:
		parts := make([]string, 0, len(a))
		for _, e := range a {
			if s, ok := e.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	case string:
		return a
	default:
		return ""
	}
}

// variantString returns the string held by a variant, or ""
func variantString(v dbus.Variant) string {
	s, _ := v.Value().(string)
	return s
}

// asMicroseconds coerces the numeric types players use for microsecond
// fields (mpris:length, Position)
func asMicroseconds(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

func (s *MPRISSource) call(ctx context.Context, method string) error {
	name, err := s.player(ctx)
	if err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("no MPRIS player is running")
	}

	obj := s.conn.Object(name, mprisObjectPath)
	if call := obj.CallWithContext(ctx, mprisPlayerIface+"."+method, 0); call.Err != nil {
		return fmt.Errorf("failed to call %s on %s: %w", method, name, call.Err)
	}
	return nil
}

func (s *MPRISSource) setProperty(ctx context.Context, prop string, value interface{}) error {
	name, err := s.player(ctx)
	if err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("no MPRIS player is running")
	}

	obj := s.conn.Object(name, mprisObjectPath)
	call := obj.CallWithContext(ctx, propsIface+".Set", 0, mprisPlayerIface, prop, dbus.MakeVariant(value))
	if call.Err != nil {
		return fmt.Errorf("failed to set %s on %s: %w", prop, name, call.Err)
	}
	return nil
}

// Play resumes playback
func (s *MPRISSource) Play(ctx context.Context) error {
	return s.call(ctx, "Play")
}

// Pause pauses playback
func (s *MPRISSource) Pause(ctx context.Context) error {
	return s.call(ctx, "Pause")
}

// PlayPause toggles between play and pause
func (s *MPRISSource) PlayPause(ctx context.Context) error {
	return s.call(ctx, "PlayPause")
}

// NextTrack skips to the next track
func (s *MPRISSource) NextTrack(ctx context.Context) error {
	return s.call(ctx, "Next")
}

// PreviousTrack goes back to the previous track
func (s *MPRISSource) PreviousTrack(ctx context.Context) error {
	return s.call(ctx, "Previous")
}

// SetShuffle enables or disables shuffle mode
func (s *MPRISSource) SetShuffle(ctx context.Context, enabled bool) error {
	return s.setProperty(ctx, "Shuffle", enabled)
}

// SetVolume sets the playback volume (0-100, mapped to MPRIS 0.0-1.0)
func (s *MPRISSource) SetVolume(ctx context.Context, level int) error {
	if level < 0 || level > 100 {
		return fmt.Errorf("volume level must be between 0 and 100, got %d", level)
	}
	return s.setProperty(ctx, "Volume", float64(level)/100.0)
}
