package daemon

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"

	"github.com/adrg/xdg"
)

// ServiceLabel is the launchd label for the daemon agent.
const ServiceLabel = "com.scrobd.daemon"

// ServiceUnit is the systemd user unit name for the daemon.
const ServiceUnit = "scrobd.service"

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
	<key>Label</key>
	<string>com.scrobd.daemon</string>
	<key>ProgramArguments</key>
	<array>
		<string>{{.BinaryPath}}</string>
		<string>daemon</string>
	</array>
	<key>RunAtLoad</key>
	<true/>
	<key>KeepAlive</key>
	<true/>
	<key>StandardOutPath</key>
	<string>{{.LogPath}}/scrobd.log</string>
	<key>StandardErrorPath</key>
	<string>{{.LogPath}}/scrobd.err</string>
	<key>WorkingDirectory</key>
	<string>{{.WorkingDirectory}}</string>
	<key>EnvironmentVariables</key>
	<dict>
		<key>PATH</key>
		<string>/usr/local/bin:/usr/bin:/bin:/usr/sbin:/sbin</string>
	</dict>
</dict>
</plist>
`

const unitTemplate = `[Unit]
Description=scrobd music scrobbling daemon
After=network-online.target

[Service]
ExecStart={{.BinaryPath}} daemon
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`

// ServiceConfig holds the configuration for generating a service definition
type ServiceConfig struct {
	BinaryPath       string
	LogPath          string
	WorkingDirectory string
}

// GenerateService renders the service definition for the given OS: a launchd
// plist on darwin, a systemd user unit on linux.
func GenerateService(goos string, config ServiceConfig) (string, error) {
	var text string
	switch goos {
	case "darwin":
		text = plistTemplate
	case "linux":
		text = unitTemplate
	default:
		return "", fmt.Errorf("no service template for %s", goos)
	}

	tmpl, err := template.New("service").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse service template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, config); err != nil {
		return "", fmt.Errorf("failed to execute service template: %w", err)
	}
	return buf.String(), nil
}

// ServicePath returns the path where the service definition should be
// installed for the given OS.
func ServicePath(goos string) (string, error) {
	switch goos {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		return filepath.Join(home, "Library", "LaunchAgents", ServiceLabel+".plist"), nil
	case "linux":
		return filepath.Join(xdg.ConfigHome, "systemd", "user", ServiceUnit), nil
	default:
		return "", fmt.Errorf("no service path for %s", goos)
	}
}

// GetDefaultLogPath returns the default path for daemon logs
func GetDefaultLogPath() string {
	return filepath.Join(xdg.DataHome, "scrobd", "logs")
}
