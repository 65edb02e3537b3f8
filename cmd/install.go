package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scrobd/scrobd/internal/daemon"
)

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the scrobd daemon as a user service",
	Long: `Install the scrobd daemon so it runs automatically on login.

On macOS this installs a launchd agent to ~/Library/LaunchAgents/ and
loads it with launchctl. On Linux it installs a systemd user unit to
~/.config/systemd/user/ and enables it with systemctl --user.

The daemon will run in the background and automatically scrobble tracks
from your music player to the configured services.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Get the path to the current executable
		binaryPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}

		// Resolve symlinks to get the actual binary path
		binaryPath, err = filepath.EvalSymlinks(binaryPath)
		if err != nil {
			return fmt.Errorf("failed to resolve executable path: %w", err)
		}

		// Create the log directory if it doesn't exist
		logPath := daemon.GetDefaultLogPath()
		if err := os.MkdirAll(logPath, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}

		// Get home directory for working directory
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		// Generate the service file for this platform
		content, err := daemon.GenerateService(runtime.GOOS, daemon.ServiceConfig{
			BinaryPath:       binaryPath,
			LogPath:          logPath,
			WorkingDirectory: home,
		})
		if err != nil {
			return fmt.Errorf("failed to generate service file: %w", err)
		}

		servicePath, err := daemon.ServicePath(runtime.GOOS)
		if err != nil {
			return fmt.Errorf("failed to get service path: %w", err)
		}

		// Create the service directory if it doesn't exist
		if err := os.MkdirAll(filepath.Dir(servicePath), 0755); err != nil {
			return fmt.Errorf("failed to create service directory: %w", err)
		}

		// Check if the service is already installed
		if _, err := os.Stat(servicePath); err == nil {
			fmt.Println("Daemon is already installed. Reinstalling...")
			// Try to stop the existing daemon
			if err := stopService(); err != nil {
				fmt.Printf("Warning: failed to stop existing daemon: %v\n", err)
			}
		}

		// Write service file
		if err := os.WriteFile(servicePath, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write service file: %w", err)
		}

		fmt.Printf("✓ Installed service to %s\n", servicePath)

		// Start the daemon
		if err := startService(servicePath); err != nil {
			return fmt.Errorf("failed to start daemon: %w", err)
		}

		fmt.Println("✓ Daemon loaded and started successfully")
		fmt.Printf("✓ Logs will be written to %s\n", logPath)
		fmt.Println("\nThe scrobd daemon is now running and will start automatically on login.")
		fmt.Println("\nYou can check the daemon status with:")
		switch runtime.GOOS {
		case "darwin":
			fmt.Println("  launchctl list | grep scrobd")
		case "linux":
			fmt.Println("  systemctl --user status scrobd")
		}
		fmt.Println("\nTo uninstall, run:")
		fmt.Println("  scrobd uninstall")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}

// startService activates the installed service on the current platform
func startService(servicePath string) error {
	switch runtime.GOOS {
	case "darwin":
		return loadLaunchdAgent(servicePath)
	case "linux":
		return startSystemdUnit()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// stopService deactivates the installed service on the current platform.
// Failures are reported but not fatal, the service may simply not be
// running.
func stopService() error {
	switch runtime.GOOS {
	case "darwin":
		return unloadLaunchdAgent()
	case "linux":
		return stopSystemdUnit()
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// loadLaunchdAgent loads the launchd agent using launchctl
func loadLaunchdAgent(plistPath string) error {
	// Get current user ID for launchctl bootstrap
	uidCmd := exec.Command("id", "-u")
	uidOutput, err := uidCmd.Output()
	if err != nil {
		return fmt.Errorf("failed to get user ID: %w", err)
	}
	uid := string(uidOutput)
	uid = uid[:len(uid)-1] // Remove trailing newline

	// Use launchctl bootstrap to load the agent
	domain := fmt.Sprintf("gui/%s", uid)
	cmd := exec.Command("launchctl", "bootstrap", domain, plistPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// Check if already loaded
		if len(output) > 0 {
			outputStr := string(output)
			// Bootstrap returns error if already loaded, which is OK
			if len(outputStr) > 0 {
				return fmt.Errorf("launchctl bootstrap failed: %s", outputStr)
			}
		}
		return fmt.Errorf("failed to run launchctl bootstrap: %w", err)
	}

	return nil
}

// unloadLaunchdAgent unloads the launchd agent using launchctl
func unloadLaunchdAgent() error {
	// Get current user ID for launchctl bootout
	uidCmd := exec.Command("id", "-u")
	uidOutput, err := uidCmd.Output()
	if err != nil {
		return fmt.Errorf("failed to get user ID: %w", err)
	}
	uid := string(uidOutput)
	uid = uid[:len(uid)-1] // Remove trailing newline

	// Use launchctl bootout to unload the agent
	domain := fmt.Sprintf("gui/%s", uid)
	serviceName := fmt.Sprintf("%s/%s", domain, daemon.ServiceLabel)
	cmd := exec.Command("launchctl", "bootout", serviceName)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// Bootout may fail if not loaded, which is OK
		if len(output) > 0 {
			outputStr := string(output)
			// Ignore "Could not find service" errors
			if len(outputStr) > 0 {
				fmt.Printf("Warning: %s\n", outputStr)
			}
		}
	}

	return nil
}

// startSystemdUnit reloads the user manager and enables the unit
func startSystemdUnit() error {
	if out, err := exec.Command("systemctl", "--user", "daemon-reload").CombinedOutput(); err != nil {
		return fmt.Errorf("systemctl daemon-reload failed: %s", strings.TrimSpace(string(out)))
	}
	if out, err := exec.Command("systemctl", "--user", "enable", "--now", daemon.ServiceUnit).CombinedOutput(); err != nil {
		return fmt.Errorf("systemctl enable failed: %s", strings.TrimSpace(string(out)))
	}
	return nil
}

// stopSystemdUnit disables the unit. Errors are downgraded to warnings,
// the unit may not be loaded.
func stopSystemdUnit() error {
	out, err := exec.Command("systemctl", "--user", "disable", "--now", daemon.ServiceUnit).CombinedOutput()
	if err != nil {
		if len(out) > 0 {
			fmt.Printf("Warning: %s\n", strings.TrimSpace(string(out)))
		}
	}
	return nil
}
