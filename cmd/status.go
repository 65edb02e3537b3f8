package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scrobd/scrobd/internal/config"
	"github.com/scrobd/scrobd/internal/ipc"
)

var statusJSON bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the state of the running daemon",
	Long: `Query the running daemon over its control socket and display the
current track, accumulated play time, queue depth and per-backend
authentication state.

Use --json for machine-readable output.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print the status as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, err := ipc.Query(config.SocketPath(), 2*time.Second)
	if err != nil {
		return fmt.Errorf("scrobd daemon is not reachable (is it running?): %w", err)
	}

	if statusJSON {
		data, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode status: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	printStatus(st)
	return nil
}

func printStatus(st *ipc.Status) {
	uptime := time.Since(st.StartedAt).Round(time.Second)
	fmt.Printf("scrobd %s (up %s)\n", st.Version, uptime)
	fmt.Printf("Player: %s\n", st.Player)
	fmt.Println()

	if st.Track == nil {
		fmt.Println("No track playing")
	} else {
		line := fmt.Sprintf("Now playing: %s - %s", st.Track.Artist, st.Track.Title)
		if !st.Track.Playing {
			line += " (paused)"
		}
		fmt.Println(line)
		if st.Track.Album != "" {
			fmt.Printf("  Album:    %s\n", st.Track.Album)
		}
		fmt.Printf("  Position: %s / %s\n",
			formatSeconds(st.Track.PositionSeconds), formatSeconds(st.Track.DurationSeconds))
		played := formatSeconds(st.Track.PlayedSeconds)
		if st.Track.Scrobbled {
			fmt.Printf("  Played:   %s (scrobbled)\n", played)
		} else {
			fmt.Printf("  Played:   %s\n", played)
		}
	}

	fmt.Println()
	fmt.Printf("Queue: %d pending\n", st.Queue.Pending)
	fmt.Println()

	fmt.Println("Backends:")
	if len(st.Backends) == 0 {
		fmt.Println("  (none enabled)")
	}
	for _, b := range st.Backends {
		desc := b.Status
		if !b.Enabled {
			desc = "disabled"
		}
		if b.Identity != "" {
			desc = fmt.Sprintf("%s (%s)", desc, b.Identity)
		}
		if b.Error != "" {
			desc = fmt.Sprintf("%s: %s", desc, b.Error)
		}
		fmt.Printf("  %-13s %s\n", b.Name, desc)
	}
}

// formatSeconds renders a whole second count as M:SS
func formatSeconds(s int) string {
	if s < 0 {
		s = 0
	}
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
