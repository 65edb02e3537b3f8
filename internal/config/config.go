package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"

	"github.com/scrobd/scrobd/internal/scrobble"
)

// Config holds application configuration
type Config struct {
	// Output format template for the now command
	// Default: "{{.Artist}} - {{.Title}}"
	OutputFormat string

	// Fixed display width for the now command (0 = disabled)
	OutputWidth int

	// Marquee scrolling for now output that exceeds OutputWidth
	MarqueeEnabled bool

	// Marquee scroll speed in characters per second
	MarqueeSpeed int

	// Separator inserted between loop iterations of the marquee
	MarqueeSeparator string

	// Poll interval for playback monitoring
	PollInterval time.Duration

	// Flush interval for queued scrobble submission
	FlushInterval time.Duration

	// DataDir overrides the directory for the scrobble queue
	DataDir string

	Player       PlayerConfig
	Scrobble     ScrobbleConfig
	LastFM       LastFMConfig
	ListenBrainz ListenBrainzConfig
}

// PlayerConfig selects the playback source
type PlayerConfig struct {
	// Source is auto, mpris or applemusic
	Source string

	// MPRISBus pins a player bus name, e.g. org.mpris.MediaPlayer2.spotify.
	// Empty means discover the first available player.
	MPRISBus string
}

// ScrobbleConfig holds the scrobble eligibility thresholds
type ScrobbleConfig struct {
	// Percent of the track that must be played, 0 < percent <= 1
	Percent float64

	// MinPlay is the play time that qualifies a track regardless of percent
	MinPlay time.Duration
}

// LastFMConfig holds Last.fm specific configuration
type LastFMConfig struct {
	Enabled    bool
	APIKey     string
	APISecret  string
	SessionKey string
	Username   string
}

// ListenBrainzConfig holds ListenBrainz specific configuration
type ListenBrainzConfig struct {
	Enabled  bool
	URL      string
	Token    string
	Username string
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	v.AddConfigPath(configDir())
	v.AddConfigPath(".")

	// Set defaults
	v.SetDefault("output_format", "{{.Artist}} - {{.Title}}")
	v.SetDefault("output_width", 0)
	v.SetDefault("marquee_enabled", false)
	v.SetDefault("marquee_speed", 2)
	v.SetDefault("marquee_separator", "   ")
	v.SetDefault("poll_interval", "500ms")
	v.SetDefault("flush_interval", "30s")
	v.SetDefault("scrobble.percent", 0.5)
	v.SetDefault("scrobble.min_play", "4m")
	v.SetDefault("player.source", "auto")
	v.SetDefault("lastfm.enabled", true)
	v.SetDefault("listenbrainz.enabled", false)

	// Read config file (optional - don't fail if missing)
	_ = v.ReadInConfig()

	// Read from environment variables, e.g. SCROBD_LASTFM_API_KEY
	v.SetEnvPrefix("SCROBD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Map config to struct
	cfg := &Config{
		OutputFormat:     v.GetString("output_format"),
		OutputWidth:      v.GetInt("output_width"),
		MarqueeEnabled:   v.GetBool("marquee_enabled"),
		MarqueeSpeed:     v.GetInt("marquee_speed"),
		MarqueeSeparator: v.GetString("marquee_separator"),
		PollInterval:     v.GetDuration("poll_interval"),
		FlushInterval:    v.GetDuration("flush_interval"),
		DataDir:          v.GetString("data_dir"),
		Player: PlayerConfig{
			Source:   v.GetString("player.source"),
			MPRISBus: v.GetString("player.mpris_bus"),
		},
		Scrobble: ScrobbleConfig{
			Percent: v.GetFloat64("scrobble.percent"),
			MinPlay: v.GetDuration("scrobble.min_play"),
		},
		LastFM: LastFMConfig{
			Enabled:    v.GetBool("lastfm.enabled"),
			APIKey:     v.GetString("lastfm.api_key"),
			APISecret:  v.GetString("lastfm.api_secret"),
			SessionKey: v.GetString("lastfm.session_key"),
			Username:   v.GetString("lastfm.username"),
		},
		ListenBrainz: ListenBrainzConfig{
			Enabled:  v.GetBool("listenbrainz.enabled"),
			URL:      v.GetString("listenbrainz.url"),
			Token:    v.GetString("listenbrainz.token"),
			Username: v.GetString("listenbrainz.username"),
		},
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save() error {
	v := viper.New()

	configFile := filepath.Join(configDir(), "config.yaml")

	// Set values in viper
	v.Set("output_format", c.OutputFormat)
	v.Set("output_width", c.OutputWidth)
	v.Set("marquee_enabled", c.MarqueeEnabled)
	v.Set("marquee_speed", c.MarqueeSpeed)
	v.Set("marquee_separator", c.MarqueeSeparator)
	v.Set("poll_interval", c.PollInterval.String())
	v.Set("flush_interval", c.FlushInterval.String())
	if c.DataDir != "" {
		v.Set("data_dir", c.DataDir)
	}
	v.Set("player.source", c.Player.Source)
	v.Set("player.mpris_bus", c.Player.MPRISBus)
	v.Set("scrobble.percent", c.Scrobble.Percent)
	v.Set("scrobble.min_play", c.Scrobble.MinPlay.String())
	v.Set("lastfm.enabled", c.LastFM.Enabled)
	v.Set("lastfm.api_key", c.LastFM.APIKey)
	v.Set("lastfm.api_secret", c.LastFM.APISecret)
	v.Set("lastfm.session_key", c.LastFM.SessionKey)
	v.Set("lastfm.username", c.LastFM.Username)
	v.Set("listenbrainz.enabled", c.ListenBrainz.Enabled)
	v.Set("listenbrainz.url", c.ListenBrainz.URL)
	v.Set("listenbrainz.token", c.ListenBrainz.Token)
	v.Set("listenbrainz.username", c.ListenBrainz.Username)

	// Write to file
	return v.WriteConfigAs(configFile)
}

// BackendEnabled reports whether the named backend should receive scrobbles
func (c *Config) BackendEnabled(name string) bool {
	switch name {
	case "lastfm":
		return c.LastFM.Enabled
	case "listenbrainz":
		return c.ListenBrainz.Enabled
	default:
		return false
	}
}

// Thresholds returns the scrobble eligibility thresholds
func (c *Config) Thresholds() scrobble.Thresholds {
	return scrobble.Thresholds{
		Percent: c.Scrobble.Percent,
		MinPlay: c.Scrobble.MinPlay,
	}
}

// QueuePath returns the scrobble queue database path, creating the data
// directory if it doesn't exist
func (c *Config) QueuePath() (string, error) {
	dir := c.DataDir
	if dir == "" {
		dir = filepath.Join(xdg.DataHome, "scrobd")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return filepath.Join(dir, "queue.db"), nil
}

// configDir returns the configuration directory path
// Creates the directory if it doesn't exist
func configDir() string {
	dir := filepath.Join(xdg.ConfigHome, "scrobd")
	_ = os.MkdirAll(dir, 0755)
	return dir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return configDir()
}

// SocketPath returns the control socket path used by the daemon and the
// status command
func SocketPath() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, "scrobd.sock")
	}
	return filepath.Join(os.TempDir(), "scrobd.sock")
}
