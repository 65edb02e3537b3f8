// Package daemon ties the player source, the scrobbling coordinator, the
// backends and the control socket into one supervised process.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/scrobd/scrobd/internal/ipc"
	"github.com/scrobd/scrobd/internal/player"
	"github.com/scrobd/scrobd/internal/scrobble"
)

// Config holds daemon configuration
type Config struct {
	PollInterval  time.Duration // how often to poll the player
	FlushInterval time.Duration // how often to submit queued scrobbles
	SocketPath    string        // control socket path, empty disables it
	Version       string        // reported over the control socket
}

// Daemon coordinates the playback monitor, backends and control socket
type Daemon struct {
	config    Config
	source    player.Source
	queue     *scrobble.Queue
	backends  *scrobble.Registry
	settings  scrobble.Settings
	monitor   *scrobble.Monitor
	server    *ipc.Server
	logger    zerolog.Logger
	startedAt time.Time
}

// New creates a new Daemon instance
func New(cfg Config, source player.Source, queue *scrobble.Queue, backends *scrobble.Registry, settings scrobble.Settings, logger zerolog.Logger) (*Daemon, error) {
	monitor := scrobble.NewMonitor(scrobble.Config{
		PollInterval:  cfg.PollInterval,
		FlushInterval: cfg.FlushInterval,
	}, source, queue, backends, settings, logger)

	d := &Daemon{
		config:    cfg,
		source:    source,
		queue:     queue,
		backends:  backends,
		settings:  settings,
		monitor:   monitor,
		logger:    logger.With().Str("component", "daemon").Logger(),
		startedAt: time.Now(),
	}

	if cfg.SocketPath != "" {
		d.server = ipc.NewServer(cfg.SocketPath, d.Status, logger)
	}
	return d, nil
}

// Run starts the daemon and blocks until shutdown signal received
func (d *Daemon) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle first signal gracefully, second signal forces exit
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		d.logger.Info().Msg("Shutdown signal received, initiating graceful shutdown")
		cancel()

		<-sigChan
		d.logger.Warn().Msg("Second shutdown signal received, forcing exit")
		os.Exit(1)
	}()

	if err := d.RunContext(ctx); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// RunContext is the main daemon loop. It blocks until ctx is cancelled,
// for callers that manage their own lifecycle instead of signals.
func (d *Daemon) RunContext(ctx context.Context) error {
	d.logger.Info().Str("player", d.source.Name()).Msg("Starting daemon")

	// Install persisted credentials, then sweep the sessions in the
	// background so startup never blocks on the network.
	for _, backend := range d.backends.All() {
		if err := backend.RestoreSession(); err != nil {
			d.logger.Warn().Str("backend", backend.Name()).Err(err).Msg("Failed to restore session")
		}
	}
	go d.validateSessions(ctx)

	if d.server != nil {
		if err := d.server.Start(); err != nil {
			// The daemon is still useful without a status socket
			d.logger.Warn().Err(err).Msg("Failed to start control socket")
			d.server = nil
		}
	}

	err := d.monitor.Run(ctx)

	if d.server != nil {
		if closeErr := d.server.Close(); closeErr != nil {
			d.logger.Warn().Err(closeErr).Msg("Failed to close control socket")
		}
	}

	d.logger.Info().Msg("Daemon stopped")
	return err
}

// validateSessions checks each restored session against its service. A
// rejection flips the backend into the error state so the monitor stops
// submitting to it; inconclusive checks leave the session in place.
func (d *Daemon) validateSessions(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	for _, backend := range d.backends.All() {
		if backend.State().Status != scrobble.StatusConnected {
			continue
		}

		valid, err := backend.ValidateSession(ctx)
		switch {
		case err != nil:
			d.logger.Debug().Str("backend", backend.Name()).Err(err).Msg("Session validation inconclusive")
		case !valid:
			d.logger.Warn().Str("backend", backend.Name()).Msg("Stored session rejected, re-authentication required")
		default:
			state := backend.State()
			d.logger.Info().
				Str("backend", backend.Name()).
				Str("username", state.Identity).
				Msg("Session validated")
		}
	}
}

// Status reports the daemon state for the control socket and the dashboard.
func (d *Daemon) Status() (*ipc.Status, error) {
	st := &ipc.Status{
		Version:   d.config.Version,
		StartedAt: d.startedAt,
		Player:    d.source.Name(),
	}

	if snap, ok := d.monitor.Snapshot(); ok {
		st.Track = &ipc.TrackStatus{
			Artist:          snap.Track.Artist,
			Title:           snap.Track.Title,
			Album:           snap.Track.Album,
			Playing:         snap.Playing,
			PositionSeconds: int(snap.Position / time.Second),
			DurationSeconds: int(snap.Track.Duration / time.Second),
			PlayedSeconds:   int(snap.Played / time.Second),
			Scrobbled:       snap.Scrobbled,
		}
	}

	count, err := d.queue.Count(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to count queue: %w", err)
	}
	st.Queue.Pending = count

	for _, backend := range d.backends.All() {
		state := backend.State()
		st.Backends = append(st.Backends, ipc.BackendStatus{
			Name:     backend.Name(),
			Enabled:  d.settings.BackendEnabled(backend.Name()),
			Status:   state.Status.String(),
			Identity: state.Identity,
			Error:    state.Err,
		})
	}
	return st, nil
}

// Shutdown gracefully shuts down the daemon
func (d *Daemon) Shutdown() error {
	d.logger.Info().Msg("Shutting down daemon")

	if err := d.queue.Close(); err != nil {
		return fmt.Errorf("failed to close queue: %w", err)
	}
	return nil
}
