package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/scrobd/scrobd/internal/daemon"
)

// uninstallCmd represents the uninstall command
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the scrobd daemon user service",
	Long: `Uninstall the scrobd daemon and stop it from running automatically.

This command will:
  - Stop the running daemon (if any)
  - Unload the service from launchd or systemd
  - Remove the service file

After uninstalling, the daemon will no longer run automatically on login.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get service path
		servicePath, err := daemon.ServicePath(runtime.GOOS)
		if err != nil {
			return fmt.Errorf("failed to get service path: %w", err)
		}

		// Check if the service is installed
		if _, err := os.Stat(servicePath); os.IsNotExist(err) {
			fmt.Println("Daemon is not installed (service file not found)")
			return nil
		}

		// Stop the daemon
		fmt.Println("Stopping daemon...")
		if err := stopService(); err != nil {
			fmt.Printf("Warning: failed to stop daemon: %v\n", err)
			fmt.Println("Continuing with service removal...")
		} else {
			fmt.Println("✓ Daemon stopped")
		}

		// Remove service file
		if err := os.Remove(servicePath); err != nil {
			return fmt.Errorf("failed to remove service file: %w", err)
		}

		// Let the user manager forget the removed unit
		if runtime.GOOS == "linux" {
			_ = exec.Command("systemctl", "--user", "daemon-reload").Run()
		}

		fmt.Printf("✓ Removed service file from %s\n", servicePath)
		fmt.Println("\nThe scrobd daemon has been uninstalled successfully.")
		fmt.Println("It will no longer run automatically on login.")
		fmt.Println("\nTo reinstall, run:")
		fmt.Println("  scrobd install")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}
