package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/scrobd/scrobd/internal/backends/lastfm"
	"github.com/scrobd/scrobd/internal/backends/listenbrainz"
	"github.com/scrobd/scrobd/internal/config"
	"github.com/scrobd/scrobd/internal/daemon"
	"github.com/scrobd/scrobd/internal/player"
	"github.com/scrobd/scrobd/internal/scrobble"
	"github.com/scrobd/scrobd/internal/tui"
)

var (
	daemonLogFile  string
	daemonLogLevel string
	daemonDataDir  string
	daemonTUI      bool
)

// daemonCmd represents the daemon command
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the scrobbling daemon",
	Long: `Run the scrobbling daemon that monitors your music player and records
plays to the configured scrobbling services.

The daemon will:
- Poll the player twice a second to detect track changes
- Track playback time and handle pause, seek and replay correctly
- Scrobble tracks once they meet the threshold (50% or 4 minutes by default)
- Queue every qualifying play locally and retry failed submissions
- Expose a control socket for the status, queue and tui commands
- Handle graceful shutdown on SIGINT/SIGTERM

The daemon runs in the foreground and logs to stderr by default.
Use the --log-file flag to log to a file (useful for launchd/systemd).
With --tui the daemon runs behind an interactive dashboard instead.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	// Command-line flags
	daemonCmd.Flags().StringVar(&daemonLogFile, "log-file", "", "Log file path (default: stderr)")
	daemonCmd.Flags().StringVar(&daemonLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	daemonCmd.Flags().StringVar(&daemonDataDir, "data-dir", "", "Data directory for the scrobble queue (default: ~/.local/share/scrobd)")
	daemonCmd.Flags().BoolVar(&daemonTUI, "tui", false, "Run with an interactive dashboard in the foreground")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if daemonDataDir != "" {
		cfg.DataDir = daemonDataDir
	}

	// Enabled backends must be configured before the daemon is useful
	if cfg.LastFM.Enabled && (cfg.LastFM.APIKey == "" || cfg.LastFM.APISecret == "") {
		return fmt.Errorf("lastfm is enabled but has no API credentials. Run 'scrobd auth lastfm' first")
	}
	if cfg.ListenBrainz.Enabled && cfg.ListenBrainz.Token == "" {
		return fmt.Errorf("listenbrainz is enabled but has no user token. Run 'scrobd auth listenbrainz' first")
	}

	// With --tui the terminal belongs to the dashboard, so logs go to a
	// file unless the caller already picked one
	logFile := daemonLogFile
	if daemonTUI && logFile == "" {
		logDir := daemon.GetDefaultLogPath()
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		logFile = filepath.Join(logDir, "scrobd.log")
	}

	// Set up logging
	logger := setupLogger(logFile, daemonLogLevel)

	logger.Info().
		Str("version", version).
		Msg("Starting scrobd daemon")

	// Create player source
	source, err := player.New(cfg.Player.Source, cfg.Player.MPRISBus, logger)
	if err != nil {
		return fmt.Errorf("failed to create player source: %w", err)
	}

	// Open the scrobble queue
	queuePath, err := cfg.QueuePath()
	if err != nil {
		return err
	}
	logger.Info().Str("queue", queuePath).Msg("Using scrobble queue")

	queue, err := scrobble.NewQueue(queuePath)
	if err != nil {
		return fmt.Errorf("failed to open scrobble queue: %w", err)
	}

	// Register the enabled backends
	registry, err := buildRegistry(cfg, logger)
	if err != nil {
		return err
	}
	if len(registry.All()) == 0 {
		logger.Warn().Msg("No backends enabled, plays will be queued but not submitted")
	}

	// Create daemon
	d, err := daemon.New(daemon.Config{
		PollInterval:  cfg.PollInterval,
		FlushInterval: cfg.FlushInterval,
		SocketPath:    config.SocketPath(),
		Version:       version,
	}, source, queue, registry, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	// Run daemon (blocks until shutdown signal or dashboard exit)
	if daemonTUI {
		err = runDaemonTUI(d, cfg, logger)
	} else {
		err = d.Run()
	}
	if err != nil {
		return fmt.Errorf("daemon error: %w", err)
	}

	// Graceful shutdown
	if err := d.Shutdown(); err != nil {
		logger.Error().Err(err).Msg("Error during shutdown")
		return err
	}
	return nil
}

// buildRegistry constructs and registers the enabled backends. Persist
// callbacks write refreshed credentials back to the config file.
func buildRegistry(cfg *config.Config, logger zerolog.Logger) (*scrobble.Registry, error) {
	registry := scrobble.NewRegistry()

	if cfg.LastFM.Enabled {
		backend, err := lastfm.New(lastfm.Config{
			APIKey:     cfg.LastFM.APIKey,
			APISecret:  cfg.LastFM.APISecret,
			SessionKey: cfg.LastFM.SessionKey,
			Username:   cfg.LastFM.Username,
			Persist: func(sessionKey, username string) error {
				cfg.LastFM.SessionKey = sessionKey
				cfg.LastFM.Username = username
				return cfg.Save()
			},
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create lastfm backend: %w", err)
		}
		if err := registry.Register(backend); err != nil {
			return nil, fmt.Errorf("failed to register lastfm backend: %w", err)
		}
	}

	if cfg.ListenBrainz.Enabled {
		backend, err := listenbrainz.New(listenbrainz.Config{
			Token:    cfg.ListenBrainz.Token,
			Username: cfg.ListenBrainz.Username,
			BaseURL:  cfg.ListenBrainz.URL,
			Persist: func(token, username string) error {
				cfg.ListenBrainz.Token = token
				cfg.ListenBrainz.Username = username
				return cfg.Save()
			},
			Logger: logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create listenbrainz backend: %w", err)
		}
		if err := registry.Register(backend); err != nil {
			return nil, fmt.Errorf("failed to register listenbrainz backend: %w", err)
		}
	}

	return registry, nil
}

// runDaemonTUI runs the daemon in the background with the dashboard in the
// foreground. Quitting the dashboard stops the daemon.
func runDaemonTUI(d *daemon.Daemon, cfg *config.Config, logger zerolog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := tui.NewWithConfig(tui.Config{
		RefreshRate: 500 * time.Millisecond,
		Thresholds:  cfg.Thresholds(),
	}, d.Status)

	// Playback keys are best effort, the dashboard works without them
	if ctrl, err := player.NewController(cfg.Player.Source, cfg.Player.MPRISBus, logger); err == nil {
		app.SetController(ctrl)
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- d.RunContext(ctx)
		// Bring the dashboard down when the daemon stops first
		app.Stop()
	}()

	tuiErr := app.Run(ctx)
	cancel()

	if err := <-runErr; err != nil && err != context.Canceled {
		return err
	}
	return tuiErr
}

// setupLogger creates a logger with the specified configuration
func setupLogger(logFile, logLevel string) zerolog.Logger {
	// Parse log level
	level := zerolog.InfoLevel
	switch logLevel {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	// Set up output
	var output *os.File
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			output = os.Stderr
		} else {
			output = f
		}
	} else {
		output = os.Stderr
	}

	// Create logger
	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	// Use pretty console output if logging to stderr
	if output == os.Stderr {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	return logger
}
