package scrobble

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/scrobd/scrobd/internal/player"
)

const (
	// DefaultPollInterval is the player polling cadence.
	DefaultPollInterval = 500 * time.Millisecond

	// DefaultFlushInterval is the queue submission cadence.
	DefaultFlushInterval = 30 * time.Second

	// MaxBatch is the largest number of entries submitted per flush, which
	// matches the Last.fm batch limit.
	MaxBatch = 50
)

// Settings supplies the tunables the coordinator consults at decision time.
// Injecting them keeps the coordinator free of config-file knowledge.
type Settings interface {
	// BackendEnabled reports whether the named backend should receive
	// now-playing updates and scrobbles.
	BackendEnabled(name string) bool

	// Thresholds returns the current scrobble qualification rule.
	Thresholds() Thresholds
}

// Config holds the coordinator's loop cadences
type Config struct {
	PollInterval  time.Duration
	FlushInterval time.Duration
}

// Status is a point-in-time view of the current session for the status
// socket and the dashboard.
type Status struct {
	Track     Track
	Playing   bool
	Position  time.Duration
	Played    time.Duration
	Scrobbled bool
	Announced bool
}

// Monitor is the scrobbling coordinator. It polls the player, maintains the
// per-track session, announces now-playing, enqueues qualifying plays, and
// periodically flushes the queue to every eligible backend.
//
// Session state is confined behind mu and touched only by the poll path,
// Snapshot, and shutdown finalization; no network call runs while mu is
// held. The flush path owns no session state and relies on the queue's own
// serialization.
type Monitor struct {
	cfg      Config
	source   player.Source
	queue    *Queue
	backends *Registry
	settings Settings
	logger   zerolog.Logger

	mu   sync.Mutex
	sess *session

	// npCtx scopes all now-playing dispatches of the current session.
	// Replacing the pair under mu cancels the previous session's in-flight
	// dispatches atomically with the session transition.
	runCtx   context.Context
	npCtx    context.Context
	npCancel context.CancelFunc
}

// NewMonitor wires a coordinator. Zero intervals fall back to the defaults.
func NewMonitor(cfg Config, source player.Source, queue *Queue, backends *Registry, settings Settings, logger zerolog.Logger) *Monitor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}

	m := &Monitor{
		cfg:      cfg,
		source:   source,
		queue:    queue,
		backends: backends,
		settings: settings,
		logger:   logger.With().Str("component", "monitor").Logger(),
		runCtx:   context.Background(),
	}
	m.npCtx, m.npCancel = context.WithCancel(m.runCtx)
	return m
}

// Run drives the poll and flush loops until ctx is cancelled, then closes
// the in-progress session so a qualifying play is not lost on shutdown.
func (m *Monitor) Run(ctx context.Context) error {
	m.mu.Lock()
	m.runCtx = ctx
	m.npCancel()
	m.npCtx, m.npCancel = context.WithCancel(ctx)
	m.mu.Unlock()

	m.logger.Info().
		Dur("poll_interval", m.cfg.PollInterval).
		Dur("flush_interval", m.cfg.FlushInterval).
		Str("source", m.source.Name()).
		Msg("Coordinator started")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.pollLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		m.flushLoop(ctx)
	}()
	wg.Wait()

	// ctx is done here; the final queue write gets its own deadline.
	finCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	m.mu.Lock()
	m.finalizeLocked(finCtx)
	m.mu.Unlock()

	m.logger.Info().Msg("Coordinator stopped")
	return nil
}

// pollLoop reads the player on a fixed cadence, starting immediately
func (m *Monitor) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	m.poll(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx, time.Now())
		}
	}
}

// flushLoop submits queued plays on a fixed cadence. The first flush runs
// immediately so a restart drains its backlog without waiting a cycle.
func (m *Monitor) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.FlushInterval)
	defer ticker.Stop()

	m.flush(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.flush(ctx)
		}
	}
}

// poll folds one player observation into the session state machine
func (m *Monitor) poll(ctx context.Context, now time.Time) {
	t, err := m.source.Now(ctx)
	if err != nil {
		// A flaky player is not a session boundary; the wall-clock guard
		// in the accumulator absorbs the gap.
		if !isCanceled(err) {
			m.logger.Debug().Err(err).Msg("player poll failed")
		}
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if t == nil {
		if m.sess != nil {
			m.finalizeLocked(ctx)
		}
		return
	}

	switch {
	case m.sess == nil:
		m.startLocked(t, now)
	case m.sess.changedFrom(t):
		m.finalizeLocked(ctx)
		m.startLocked(t, now)
	default:
		m.sess.advance(t, now)
	}

	if t.State == player.StatePlaying && !m.sess.announced {
		m.sess.announced = true
		m.announceLocked(m.sess.record())
	}

	if !m.sess.scrobbled && m.settings.Thresholds().Met(m.sess.duration, m.sess.played) {
		m.enqueueLocked(ctx)
	}
}

// startLocked opens a session for a newly observed track
func (m *Monitor) startLocked(t *player.Track, now time.Time) {
	m.sess = newSession(t, now)
	m.logger.Info().
		Str("track", m.sess.record().String()).
		Str("state", t.State.String()).
		Dur("duration", t.Duration).
		Msg("Session started")
}

// finalizeLocked closes the current session: cancels its in-flight
// now-playing dispatches and runs the last threshold evaluation, enqueueing
// a qualifying play that was cut short before the poll path caught it.
func (m *Monitor) finalizeLocked(ctx context.Context) {
	if m.sess == nil {
		return
	}

	m.npCancel()
	m.npCtx, m.npCancel = context.WithCancel(m.runCtx)

	if !m.sess.scrobbled && m.settings.Thresholds().Met(m.sess.duration, m.sess.played) {
		m.enqueueLocked(ctx)
	}

	m.logger.Info().
		Str("track", m.sess.record().String()).
		Dur("played", m.sess.played).
		Bool("scrobbled", m.sess.scrobbled).
		Msg("Session closed")
	m.sess = nil
}

// enqueueLocked records the current session's play in the durable queue.
// On a failed write the scrobbled flag stays clear so a later evaluation
// retries.
func (m *Monitor) enqueueLocked(ctx context.Context) {
	rec := m.sess.record()
	if err := m.queue.Enqueue(ctx, rec); err != nil {
		if !isCanceled(err) {
			m.logger.Error().Err(err).Str("track", rec.String()).Msg("Failed to enqueue scrobble")
		}
		return
	}
	m.sess.scrobbled = true
	m.logger.Info().
		Str("track", rec.String()).
		Dur("played", m.sess.played).
		Msg("Track queued for scrobbling")
}

// announceLocked fans the now-playing notification out to every eligible
// backend. Each dispatch runs in its own goroutine under the session's
// cancellation context; failures are logged and swallowed.
func (m *Monitor) announceLocked(track Track) {
	ctx := m.npCtx
	for _, b := range m.eligible() {
		b := b
		go func() {
			err := b.UpdateNowPlaying(ctx, track)
			switch {
			case err == nil:
				m.logger.Debug().Str("backend", b.Name()).Str("track", track.String()).Msg("now playing updated")
			case isCanceled(err):
				m.logger.Debug().Str("backend", b.Name()).Msg("now playing update canceled")
			default:
				m.logger.Warn().Err(err).Str("backend", b.Name()).Str("track", track.String()).Msg("now playing update failed")
			}
		}()
	}
}

// eligible returns the backends that may receive traffic right now:
// enabled in settings and currently authenticated.
func (m *Monitor) eligible() []Backend {
	var out []Backend
	for _, b := range m.backends.All() {
		if !m.settings.BackendEnabled(b.Name()) {
			continue
		}
		if b.State().Status != StatusConnected {
			continue
		}
		out = append(out, b)
	}
	return out
}

// flush prunes expired entries, then submits the oldest batch to each
// eligible backend in turn. A failure on one backend never blocks the
// others; an entry accepted by any backend is completed; everything else
// stays queued for the next cycle.
func (m *Monitor) flush(ctx context.Context) {
	if removed, err := m.queue.PruneExpired(ctx); err != nil {
		if !isCanceled(err) {
			m.logger.Error().Err(err).Msg("Failed to prune queue")
		}
	} else if removed > 0 {
		m.logger.Info().Int64("removed", removed).Msg("Pruned expired queue entries")
	}

	backends := m.eligible()
	if len(backends) == 0 {
		return
	}

	entries, err := m.queue.Dequeue(ctx, MaxBatch)
	if err != nil {
		if !isCanceled(err) {
			m.logger.Error().Err(err).Msg("Failed to read queue")
		}
		return
	}
	if len(entries) == 0 {
		return
	}

	batch := make([]Track, len(entries))
	for i, e := range entries {
		batch[i] = e.Track
	}

	completed := make(map[string]struct{})
	var lastFailure string

	for _, b := range backends {
		results, err := b.Scrobble(ctx, batch)
		if err != nil {
			if isCanceled(err) {
				return
			}
			lastFailure = err.Error()
			switch {
			case IsAuthError(err):
				m.logger.Warn().Err(err).Str("backend", b.Name()).Msg("Scrobble submission rejected, re-authentication required")
			case IsTransient(err):
				m.logger.Warn().Err(err).Str("backend", b.Name()).Int("tracks", len(batch)).Msg("Scrobble submission failed, will retry")
			default:
				m.logger.Error().Err(err).Str("backend", b.Name()).Int("tracks", len(batch)).Msg("Scrobble submission failed")
			}
			continue
		}

		accepted := 0
		for i := 0; i < len(results) && i < len(entries); i++ {
			r := results[i]
			if r.Accepted {
				completed[entries[i].ID] = struct{}{}
				accepted++
				continue
			}
			if r.Reason != "" {
				m.logger.Warn().
					Str("backend", b.Name()).
					Str("track", r.Track.String()).
					Str("reason", r.Reason).
					Msg("Scrobble ignored by service")
			}
		}
		m.logger.Info().
			Str("backend", b.Name()).
			Int("accepted", accepted).
			Int("submitted", len(batch)).
			Msg("Scrobbles submitted")
	}

	if len(completed) > 0 {
		ids := make([]string, 0, len(completed))
		for id := range completed {
			ids = append(ids, id)
		}
		if err := m.queue.MarkCompleted(ctx, ids); err != nil {
			m.logger.Error().Err(err).Msg("Failed to remove completed entries")
		}
	}

	var remaining []string
	for _, e := range entries {
		if _, ok := completed[e.ID]; !ok {
			remaining = append(remaining, e.ID)
		}
	}
	if len(remaining) > 0 {
		if lastFailure == "" {
			lastFailure = "not accepted by any backend"
		}
		if err := m.queue.MarkFailed(ctx, remaining, lastFailure); err != nil {
			m.logger.Error().Err(err).Msg("Failed to record submission failures")
		}
	}
}

// Snapshot returns the current session state, or false when idle
func (m *Monitor) Snapshot() (Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sess == nil {
		return Status{}, false
	}
	return Status{
		Track:     m.sess.record(),
		Playing:   m.sess.playing,
		Position:  m.sess.progress,
		Played:    m.sess.played,
		Scrobbled: m.sess.scrobbled,
		Announced: m.sess.announced,
	}, true
}
