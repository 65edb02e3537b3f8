package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/scrobd/scrobd/internal/ipc"
	"github.com/scrobd/scrobd/internal/player"
	"github.com/scrobd/scrobd/internal/scrobble"
)

const maxRecentTracks = 5

// StatusFunc fetches the daemon status. In-process dashboards read the
// daemon directly; the standalone tui command queries the control socket.
type StatusFunc func() (*ipc.Status, error)

// Config holds TUI configuration options
type Config struct {
	RefreshRate time.Duration       // How often to refresh the display
	Thresholds  scrobble.Thresholds // For the progress-to-scrobble gauge
}

// DefaultConfig returns the default TUI configuration
func DefaultConfig() Config {
	return Config{
		RefreshRate: 500 * time.Millisecond,
		Thresholds:  scrobble.DefaultThresholds(),
	}
}

// RecentTrack stores info about a recently played track
type RecentTrack struct {
	Title     string
	Artist    string
	Scrobbled bool
	PlayedAt  time.Time
}

// App is the TUI application for displaying playback and scrobbling state
type App struct {
	app        *tview.Application
	nowPlaying *tview.TextView
	progress   *tview.TextView
	scrobble   *tview.TextView
	recent     *tview.TextView
	statusBar  *tview.TextView

	// Configuration
	config Config
	status StatusFunc

	// Controller for playback keys, optional
	controller player.Controller

	// Mutex protects shared state accessed by the ticker goroutine and the
	// draw callbacks.
	mu sync.Mutex

	// Current state (guarded by mu)
	current   *ipc.Status
	statusErr error

	// Session stats (guarded by mu)
	sessionStart    time.Time
	tracksPlayed    int
	scrobblesSubmit int
	lastTitle       string
	lastScrobbled   bool // tracks scrobble transition for accurate counting

	// Ring buffer for recent tracks (avoids allocation on every track change)
	recentBuf   [maxRecentTracks]RecentTrack
	recentCount int // total tracks added (recentCount % maxRecentTracks = next write index)

	// Last-rendered content for change detection
	lastNowPlaying string
	lastProgress   string
	lastScrobble   string
	lastRecent     string

	// Cached progress bar width to stabilize change detection.
	// Updated only when GetInnerRect returns a positive value.
	lastBarWidth int

	// Context cancel function
	cancelFunc context.CancelFunc
}

// New creates a new TUI application with default config
func New(status StatusFunc) *App {
	return NewWithConfig(DefaultConfig(), status)
}

// NewWithConfig creates a new TUI application with the given config
func NewWithConfig(cfg Config, status StatusFunc) *App {
	a := &App{
		app:          tview.NewApplication(),
		config:       cfg,
		status:       status,
		sessionStart: time.Now(),
	}
	a.setupUI()
	return a
}

// SetController sets the playback controller for keyboard controls
func (a *App) SetController(ctrl player.Controller) {
	a.controller = ctrl
}

// setupUI creates the UI layout
func (a *App) setupUI() {
	// Now playing panel
	a.nowPlaying = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.nowPlaying.SetBorder(true).
		SetTitle(" Now Playing ").
		SetTitleAlign(tview.AlignLeft)

	// Progress bar
	a.progress = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.progress.SetBorder(true)

	// Scrobble status
	a.scrobble = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.scrobble.SetBorder(true).
		SetTitle(" Scrobble ").
		SetTitleAlign(tview.AlignLeft)

	// Recent tracks
	a.recent = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.recent.SetBorder(true).
		SetTitle(" Recent ").
		SetTitleAlign(tview.AlignLeft)

	// Status bar
	a.statusBar = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]q:quit  space:play/pause  n:next  p:prev[-]")

	// Create layout
	// Top row: now playing (takes most space)
	// Middle row: progress bar
	// Bottom row: scrobble status | recent tracks
	// Footer: status bar

	bottomRow := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(a.scrobble, 0, 1, false).
		AddItem(a.recent, 0, 1, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.nowPlaying, 0, 3, false).
		AddItem(a.progress, 3, 1, false).
		AddItem(bottomRow, 9, 1, false).
		AddItem(a.statusBar, 1, 1, false)

	// Handle keyboard input
	a.app.SetInputCapture(a.handleKeyEvent)

	a.app.SetRoot(flex, true)
}

// handleKeyEvent processes keyboard input
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	switch event.Rune() {
	case 'q', 'Q':
		a.app.Stop()
		return nil
	case ' ':
		// Play/pause toggle
		if a.controller != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = a.controller.PlayPause(ctx)
		}
		return nil
	case 'n', 'N':
		// Next track
		if a.controller != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = a.controller.NextTrack(ctx)
		}
		return nil
	case 'p', 'P':
		// Previous track
		if a.controller != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = a.controller.PreviousTrack(ctx)
		}
		return nil
	}
	return event
}

// Run starts the TUI and blocks until it is stopped
func (a *App) Run(ctx context.Context) error {
	// Create cancellable context
	ctx, a.cancelFunc = context.WithCancel(ctx)

	// Start update goroutine
	go a.pollLoop(ctx)

	// Run application
	if err := a.app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// pollLoop fetches the daemon status on a ticker and drives all redraws.
// A single ticker is the sole source of redraws to prevent queued redraw
// buildup. All shared App fields are protected by a.mu.
func (a *App) pollLoop(ctx context.Context) {
	refreshRate := a.config.RefreshRate
	if refreshRate <= 0 {
		refreshRate = 500 * time.Millisecond
	}

	a.fetch()
	a.refresh()

	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.app.Stop()
			return
		case <-ticker.C:
			a.fetch()
			a.refresh()
		}
	}
}

// fetch pulls a fresh status snapshot and folds it into the session stats.
func (a *App) fetch() {
	st, err := a.status()

	a.mu.Lock()
	defer a.mu.Unlock()

	if err != nil {
		a.statusErr = err
		return
	}
	a.statusErr = nil

	// Check for track change
	if st.Track != nil && st.Track.Title != a.lastTitle {
		// Add previous track to recent list
		if a.current != nil && a.current.Track != nil && a.lastTitle != "" {
			a.addToRecentTracks(a.current.Track)
			a.tracksPlayed++
		}
		a.lastTitle = st.Track.Title
		a.lastScrobbled = false
	}

	// Increment scrobble count on transition from not-scrobbled to scrobbled
	if st.Track != nil {
		if st.Track.Scrobbled && !a.lastScrobbled {
			a.scrobblesSubmit++
		}
		a.lastScrobbled = st.Track.Scrobbled
	}

	a.current = st
}

// addToRecentTracks adds a track to the ring buffer of recent tracks.
// Must be called with a.mu held.
func (a *App) addToRecentTracks(track *ipc.TrackStatus) {
	if track == nil {
		return
	}

	// Write into ring buffer at the current position
	idx := a.recentCount % maxRecentTracks
	a.recentBuf[idx] = RecentTrack{
		Title:     track.Title,
		Artist:    track.Artist,
		Scrobbled: track.Scrobbled,
		PlayedAt:  time.Now(),
	}
	a.recentCount++
}

// getRecentTracks returns recent tracks in most-recent-first order.
// Must be called with a.mu held.
func (a *App) getRecentTracks() []RecentTrack {
	n := a.recentCount
	if n > maxRecentTracks {
		n = maxRecentTracks
	}
	result := make([]RecentTrack, n)
	for i := 0; i < n; i++ {
		// Walk backwards from the most recently written slot
		idx := (a.recentCount - 1 - i) % maxRecentTracks
		result[i] = a.recentBuf[idx]
	}
	return result
}

// refresh updates all UI components
func (a *App) refresh() {
	a.app.QueueUpdateDraw(func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		a.updateNowPlaying()
		a.updateProgress()
		a.updateScrobbleStatus()
		a.updateRecentTracks()
	})
}

// track returns the current track, or nil when idle or unreachable.
// Must be called with a.mu held.
func (a *App) track() *ipc.TrackStatus {
	if a.statusErr != nil || a.current == nil {
		return nil
	}
	return a.current.Track
}

// updateNowPlaying updates the now playing panel
func (a *App) updateNowPlaying() {
	var text string

	track := a.track()
	switch {
	case a.statusErr != nil:
		text = "\n\n[red]Daemon unreachable[-]"
	case track == nil:
		text = "\n\n[gray]No track playing[-]"
	default:
		var sb strings.Builder
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("[white::b]%s[-:-:-]\n", tview.Escape(track.Title)))
		sb.WriteString(fmt.Sprintf("[yellow]%s[-]\n", tview.Escape(track.Artist)))
		sb.WriteString(fmt.Sprintf("[gray]%s[-]", tview.Escape(track.Album)))

		// Play state indicator
		stateIcon := "[green]▶[-]" // Play triangle
		if !track.Playing {
			stateIcon = "[yellow]⏸[-]" // Pause icon
		}
		sb.WriteString(fmt.Sprintf("\n\n%s", stateIcon))
		text = sb.String()
	}

	if text != a.lastNowPlaying {
		a.lastNowPlaying = text
		a.nowPlaying.SetText(text)
	}
}

// updateProgress updates the progress bar
func (a *App) updateProgress() {
	var text string

	if track := a.track(); track != nil {
		position := time.Duration(track.PositionSeconds) * time.Second
		duration := time.Duration(track.DurationSeconds) * time.Second

		_, _, width, _ := a.progress.GetInnerRect()
		barWidth := width - 14 // Account for time display
		// Only update cached width when GetInnerRect returns a positive value,
		// avoiding flicker from transient zero-width during layout.
		if barWidth > 0 {
			a.lastBarWidth = barWidth
		}
		if a.lastBarWidth < 10 {
			a.lastBarWidth = 10
		}

		progressBar := buildProgressBar(position, duration, a.lastBarWidth)
		posStr := formatDuration(position)
		durStr := formatDuration(duration)
		text = fmt.Sprintf("%s %s %s", posStr, progressBar, durStr)
	}

	if text != a.lastProgress {
		a.lastProgress = text
		a.progress.SetText(text)
	}
}

// updateScrobbleStatus updates the scrobble status panel
func (a *App) updateScrobbleStatus() {
	var sb strings.Builder

	track := a.track()
	if track == nil {
		sb.WriteString("[gray]No track[-]\n")
	} else if track.Scrobbled {
		sb.WriteString("[green]✓ Scrobbled[-]\n")
	} else {
		duration := time.Duration(track.DurationSeconds) * time.Second
		played := time.Duration(track.PlayedSeconds) * time.Second

		if need, ok := a.config.Thresholds.Required(duration); ok {
			progress := float64(played) / float64(need) * 100
			if progress > 100 {
				progress = 100
			}

			// Visual progress indicator
			barWidth := 10
			filled := int(progress / 100 * float64(barWidth))
			bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
			sb.WriteString(fmt.Sprintf("[yellow]%s %.0f%%[-]\n", bar, progress))
		} else {
			sb.WriteString("[gray]Too short to scrobble[-]\n")
		}
	}

	if a.statusErr == nil && a.current != nil {
		sb.WriteString(fmt.Sprintf("Pending: %d\n", a.current.Queue.Pending))
	} else {
		sb.WriteString("Pending: ?\n")
	}
	sb.WriteString(fmt.Sprintf("Session: %s\n", formatDuration(time.Since(a.sessionStart))))

	// One line per backend
	if a.statusErr == nil && a.current != nil {
		for _, backend := range a.current.Backends {
			if !backend.Enabled {
				continue
			}
			switch backend.Status {
			case "connected":
				sb.WriteString(fmt.Sprintf("[green]✓[-] %s (%s)\n", backend.Name, tview.Escape(backend.Identity)))
			case "error":
				sb.WriteString(fmt.Sprintf("[red]✗[-] %s\n", backend.Name))
			default:
				sb.WriteString(fmt.Sprintf("[gray]○[-] %s\n", backend.Name))
			}
		}
	}

	text := sb.String()
	if text != a.lastScrobble {
		a.lastScrobble = text
		a.scrobble.SetText(text)
	}
}

// updateRecentTracks updates the recent tracks panel
func (a *App) updateRecentTracks() {
	var sb strings.Builder

	tracks := a.getRecentTracks()
	if len(tracks) == 0 {
		sb.WriteString("[gray]No recent tracks[-]")
	} else {
		for i, track := range tracks {
			if i > 0 {
				sb.WriteString("\n")
			}

			// Scrobble indicator
			if track.Scrobbled {
				sb.WriteString("[green]✓[-] ")
			} else {
				sb.WriteString("[red]✗[-] ")
			}

			// Truncate title if too long
			title := track.Title
			if len(title) > 20 {
				title = title[:17] + "..."
			}
			sb.WriteString(fmt.Sprintf("[white]%s[-]", tview.Escape(title)))
		}
	}

	text := sb.String()
	if text != a.lastRecent {
		a.lastRecent = text
		a.recent.SetText(text)
	}
}

// Stop stops the TUI application
func (a *App) Stop() {
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	a.app.Stop()
}

// buildProgressBar creates a text-based progress bar
func buildProgressBar(position, duration time.Duration, width int) string {
	if duration == 0 || width <= 0 {
		return strings.Repeat("-", width)
	}

	progress := float64(position) / float64(duration)
	if progress > 1 {
		progress = 1
	}
	if progress < 0 {
		progress = 0
	}

	filled := int(progress * float64(width))
	empty := width - filled

	bar := "[green]" + strings.Repeat("█", filled) + "[-]" +
		"[gray]" + strings.Repeat("░", empty) + "[-]"

	return bar
}

// formatDuration formats a duration as MM:SS or HH:MM:SS for longer durations
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
