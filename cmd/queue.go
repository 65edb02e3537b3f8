package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/scrobd/scrobd/internal/config"
	"github.com/scrobd/scrobd/internal/scrobble"
)

// queueCmd represents the queue command
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the scrobble queue",
	Long: `Inspect and maintain the local scrobble queue.

Every qualifying play is queued here until a backend accepts it. Entries
older than the retention period (14 days) are dropped automatically by
the daemon; 'queue prune' does the same on demand.`,
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued scrobbles",
	RunE:  runQueueList,
}

var queueCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of queued scrobbles",
	RunE:  runQueueCount,
}

var queuePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop queued scrobbles past the retention period",
	RunE:  runQueuePrune,
}

func init() {
	rootCmd.AddCommand(queueCmd)
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueCountCmd)
	queueCmd.AddCommand(queuePruneCmd)
}

// openQueue opens the same queue database the daemon uses. The queue runs
// in WAL mode, so reading from a second process is safe.
func openQueue() (*scrobble.Queue, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	path, err := cfg.QueuePath()
	if err != nil {
		return nil, err
	}

	queue, err := scrobble.NewQueue(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open scrobble queue: %w", err)
	}
	return queue, nil
}

func runQueueList(cmd *cobra.Command, args []string) error {
	queue, err := openQueue()
	if err != nil {
		return err
	}
	defer queue.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, err := queue.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to list queue: %w", err)
	}

	if len(entries) == 0 {
		fmt.Println("Queue is empty")
		return nil
	}

	for _, e := range entries {
		line := fmt.Sprintf("%s  %s", e.EnqueuedAt.Local().Format("2006-01-02 15:04"), e.Track)
		if e.Attempts > 0 {
			line += fmt.Sprintf("  (%d attempts", e.Attempts)
			if e.LastError != "" {
				line += ", last error: " + e.LastError
			}
			line += ")"
		}
		fmt.Println(line)
	}
	fmt.Printf("\n%d pending\n", len(entries))

	return nil
}

func runQueueCount(cmd *cobra.Command, args []string) error {
	queue, err := openQueue()
	if err != nil {
		return err
	}
	defer queue.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	count, err := queue.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count queue: %w", err)
	}

	fmt.Println(count)
	return nil
}

func runQueuePrune(cmd *cobra.Command, args []string) error {
	queue, err := openQueue()
	if err != nil {
		return err
	}
	defer queue.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	removed, err := queue.PruneExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to prune queue: %w", err)
	}

	if removed == 0 {
		fmt.Println("Nothing to prune")
	} else {
		fmt.Printf("✓ Pruned %d expired entries\n", removed)
	}
	return nil
}
