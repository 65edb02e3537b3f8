package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/scrobd/scrobd/internal/backends/lastfm"
	"github.com/scrobd/scrobd/internal/backends/listenbrainz"
	"github.com/scrobd/scrobd/internal/config"
	"github.com/scrobd/scrobd/internal/scrobble"
)

var authDisconnect bool

var authCmd = &cobra.Command{
	Use:   "auth [backend]",
	Short: "Authenticate with scrobbling services",
	Long: `Authenticate with the scrobbling services scrobd submits to.

Without arguments, shows the authentication state of every backend.

Use 'scrobd auth lastfm' for the interactive Last.fm authorization flow
and 'scrobd auth listenbrainz [token]' to validate and store a
ListenBrainz user token. Pass --disconnect to a backend subcommand to
forget its stored credentials.`,
	Args: cobra.NoArgs,
	RunE: runAuthList,
}

var authLastfmCmd = &cobra.Command{
	Use:   "lastfm",
	Short: "Authenticate with Last.fm",
	Long: `Authenticate with Last.fm to enable scrobbling.

This command will guide you through the Last.fm authentication process:
1. You'll be prompted to enter your Last.fm API key and secret
2. A browser URL will be provided for you to authorize the application
3. After authorization, a session key will be saved to your config file

You can get API credentials from: https://www.last.fm/api/account/create`,
	Args: cobra.NoArgs,
	RunE: runAuthLastfm,
}

var authListenbrainzCmd = &cobra.Command{
	Use:   "listenbrainz [token]",
	Short: "Authenticate with ListenBrainz",
	Long: `Authenticate with ListenBrainz to enable listen submission.

ListenBrainz uses a static user token instead of an authorization flow.
The token is validated against the service and then saved to your config
file together with the account name it belongs to.

You can find your user token at: https://listenbrainz.org/settings/`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthListenbrainz,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLastfmCmd)
	authCmd.AddCommand(authListenbrainzCmd)

	authLastfmCmd.Flags().BoolVar(&authDisconnect, "disconnect", false, "Forget the stored Last.fm session")
	authListenbrainzCmd.Flags().BoolVar(&authDisconnect, "disconnect", false, "Forget the stored ListenBrainz token")
}

func runAuthList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Println("Backends:")
	fmt.Printf("  %-13s %s\n", "lastfm", lastfmState(cfg))
	fmt.Printf("  %-13s %s\n", "listenbrainz", listenbrainzState(cfg))
	return nil
}

// lastfmState renders the Last.fm auth state for the listing, with a hint
// when the backend still needs setting up.
func lastfmState(cfg *config.Config) string {
	if !cfg.LastFM.Enabled {
		return "disabled"
	}
	if cfg.LastFM.APIKey == "" || cfg.LastFM.APISecret == "" {
		return "not configured (run 'scrobd auth lastfm')"
	}

	backend, err := newLastfmBackend(cfg, nil)
	if err != nil {
		return fmt.Sprintf("error (%v)", err)
	}
	if err := backend.RestoreSession(); err != nil {
		return fmt.Sprintf("error (%v)", err)
	}

	state := backend.State()
	if state.Status == scrobble.StatusDisconnected {
		return "disconnected (run 'scrobd auth lastfm')"
	}
	return state.String()
}

// listenbrainzState renders the ListenBrainz auth state for the listing.
func listenbrainzState(cfg *config.Config) string {
	if !cfg.ListenBrainz.Enabled {
		return "disabled"
	}
	if cfg.ListenBrainz.Token == "" {
		return "not configured (run 'scrobd auth listenbrainz')"
	}

	backend, err := newListenbrainzBackend(cfg)
	if err != nil {
		return fmt.Sprintf("error (%v)", err)
	}
	if err := backend.RestoreSession(); err != nil {
		return fmt.Sprintf("error (%v)", err)
	}

	state := backend.State()
	if state.Status == scrobble.StatusDisconnected {
		return "disconnected (run 'scrobd auth listenbrainz')"
	}
	return state.String()
}

func runAuthLastfm(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if authDisconnect {
		return disconnectLastfm(cfg)
	}

	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	// Step 1: Get API credentials
	fmt.Println("Last.fm Authentication")
	fmt.Println("======================")
	fmt.Println()
	fmt.Println("You can get API credentials from: https://www.last.fm/api/account/create")
	fmt.Println()

	// Check if we already have credentials
	if cfg.LastFM.APIKey != "" && cfg.LastFM.APISecret != "" {
		fmt.Printf("Found existing API credentials.\n")
		fmt.Printf("API Key: %s\n", cfg.LastFM.APIKey)
		fmt.Print("\nUse existing credentials? [Y/n]: ")
		response, err := reader.ReadString('\n')
		if err != nil {
			response = "y"
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "" && response != "y" && response != "yes" {
			// User wants to enter new credentials
			cfg.LastFM.APIKey = ""
			cfg.LastFM.APISecret = ""
		}
	}

	// Prompt for API key if not set
	if cfg.LastFM.APIKey == "" {
		fmt.Print("Enter your Last.fm API Key: ")
		apiKey, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read API key: %w", err)
		}
		cfg.LastFM.APIKey = strings.TrimSpace(apiKey)
	}

	// Prompt for API secret if not set
	if cfg.LastFM.APISecret == "" {
		fmt.Print("Enter your Last.fm API Secret: ")
		apiSecret, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read API secret: %w", err)
		}
		cfg.LastFM.APISecret = strings.TrimSpace(apiSecret)
	}

	// Validate inputs
	if cfg.LastFM.APIKey == "" || cfg.LastFM.APISecret == "" {
		return fmt.Errorf("API key and secret are required")
	}

	// Step 2: Run the authorization flow. The prompt callback blocks until
	// the user has approved the token in the browser.
	backend, err := newLastfmBackend(cfg, func(ctx context.Context, authURL string) error {
		fmt.Println("\nPlease visit this URL to authorize scrobd:")
		fmt.Printf("\n  %s\n\n", authURL)
		fmt.Println("After authorizing, press Enter to continue...")
		_, _ = reader.ReadString('\n')
		return nil
	})
	if err != nil {
		return err
	}

	// Authenticating implies the user wants this backend on
	cfg.LastFM.Enabled = true

	fmt.Println("\nGenerating authentication token...")
	if err := backend.Authenticate(ctx); err != nil {
		if scrobble.IsAuthError(err) {
			fmt.Println("\nIf you had not yet approved the application, run 'scrobd auth lastfm' again.")
		}
		return fmt.Errorf("authentication failed: %w", err)
	}

	// Step 3: Credentials were persisted by the backend
	configPath := config.GetConfigDir()
	fmt.Printf("\n✓ Authentication successful!\n")
	fmt.Printf("✓ Authenticated as %s\n", backend.State().Identity)
	fmt.Printf("✓ Session key saved to %s/config.yaml\n", configPath)
	fmt.Println("\nYou can now use 'scrobd daemon' to start scrobbling.")

	return nil
}

func runAuthListenbrainz(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if authDisconnect {
		return disconnectListenbrainz(cfg)
	}

	// Token comes from the argument or an interactive prompt
	token := ""
	if len(args) > 0 {
		token = strings.TrimSpace(args[0])
	}
	if token == "" {
		fmt.Println("ListenBrainz Authentication")
		fmt.Println("===========================")
		fmt.Println()
		fmt.Println("You can find your user token at: https://listenbrainz.org/settings/")
		fmt.Println()
		fmt.Print("Enter your ListenBrainz user token: ")
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read token: %w", err)
		}
		token = strings.TrimSpace(line)
	}
	if token == "" {
		return fmt.Errorf("a user token is required")
	}

	backend, err := newListenbrainzBackend(cfg)
	if err != nil {
		return err
	}
	backend.SetToken(token)

	// Authenticating implies the user wants this backend on
	cfg.ListenBrainz.Enabled = true

	fmt.Println("\nValidating token...")
	if err := backend.Authenticate(context.Background()); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	configPath := config.GetConfigDir()
	fmt.Printf("\n✓ Authentication successful!\n")
	fmt.Printf("✓ Connected as %s\n", backend.State().Identity)
	fmt.Printf("✓ Token saved to %s/config.yaml\n", configPath)

	return nil
}

func disconnectLastfm(cfg *config.Config) error {
	if cfg.LastFM.SessionKey == "" {
		fmt.Println("lastfm: no stored session")
		return nil
	}

	backend, err := newLastfmBackend(cfg, nil)
	if err != nil {
		return err
	}

	// Disconnecting turns the backend off so the daemon does not refuse
	// to start over missing credentials
	cfg.LastFM.Enabled = false
	if err := backend.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}

	fmt.Println("✓ Disconnected from Last.fm")
	return nil
}

func disconnectListenbrainz(cfg *config.Config) error {
	if cfg.ListenBrainz.Token == "" {
		fmt.Println("listenbrainz: no stored token")
		return nil
	}

	backend, err := newListenbrainzBackend(cfg)
	if err != nil {
		return err
	}

	// Disconnecting turns the backend off so the daemon does not refuse
	// to start over missing credentials
	cfg.ListenBrainz.Enabled = false
	if err := backend.Disconnect(); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}

	fmt.Println("✓ Disconnected from ListenBrainz")
	return nil
}

// newLastfmBackend builds the Last.fm backend against the loaded config,
// persisting credential changes back to the config file.
func newLastfmBackend(cfg *config.Config, prompt func(ctx context.Context, authURL string) error) (*lastfm.Backend, error) {
	backend, err := lastfm.New(lastfm.Config{
		APIKey:     cfg.LastFM.APIKey,
		APISecret:  cfg.LastFM.APISecret,
		SessionKey: cfg.LastFM.SessionKey,
		Username:   cfg.LastFM.Username,
		Prompt:     prompt,
		Persist: func(sessionKey, username string) error {
			cfg.LastFM.SessionKey = sessionKey
			cfg.LastFM.Username = username
			return cfg.Save()
		},
		Logger: zerolog.Nop(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create lastfm backend: %w", err)
	}
	return backend, nil
}

// newListenbrainzBackend builds the ListenBrainz backend against the loaded
// config, persisting credential changes back to the config file.
func newListenbrainzBackend(cfg *config.Config) (*listenbrainz.Backend, error) {
	backend, err := listenbrainz.New(listenbrainz.Config{
		Token:    cfg.ListenBrainz.Token,
		Username: cfg.ListenBrainz.Username,
		BaseURL:  cfg.ListenBrainz.URL,
		Persist: func(token, username string) error {
			cfg.ListenBrainz.Token = token
			cfg.ListenBrainz.Username = username
			return cfg.Save()
		},
		Logger: zerolog.Nop(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create listenbrainz backend: %w", err)
	}
	return backend, nil
}
