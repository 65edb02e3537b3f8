/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>

*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scrobd",
	Short: "Music scrobbling daemon for Last.fm and ListenBrainz",
	Long: `scrobd is a music scrobbling daemon.

It watches your music player (MPRIS players on Linux, Apple Music on
macOS), tracks how much of each song you actually listen to, and records
finished plays to Last.fm and ListenBrainz according to their scrobbling
rules. Plays are queued locally and retried, so nothing is lost while a
service is down.

It also provides CLI commands to query the currently playing track for
tmux or other status bars, inspect the daemon and its queue, and control
playback.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags can be added here if needed
}
