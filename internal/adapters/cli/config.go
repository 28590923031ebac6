package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/dispatch-go/internal/infrastructure/config"
)

// NewConfigCommand creates the config command with subcommands
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration settings",
		Long: `Manage dispatch configuration settings.

Daemon configuration is loaded from multiple sources with priority:
1. Environment variables (DISPATCH_* prefix)
2. Config file (config.yaml)
3. Default values

User preferences (default server, output format) are stored in
~/.dispatch/config.json

Examples:
  dispatch config show
  dispatch config set-server http://dispatch.example.com:8080
  dispatch config clear`,
	}

	// Add subcommands
	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigSetServerCommand())
	cmd.AddCommand(newConfigClearCommand())

	return cmd
}

// newConfigShowCommand creates the config show subcommand
func newConfigShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long: `Display the current configuration settings.

Shows both daemon configuration and user preferences.

Example:
  dispatch config show`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load daemon config
			cfg, err := config.LoadConfig("")
			if err != nil {
				fmt.Printf("Warning: Failed to load config: %v\n", err)
				fmt.Println("Using default configuration.")
				cfg = config.LoadConfigOrDefault("")
			}

			// Load user config
			userConfigHandler, err := config.NewUserConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}

			userCfg, err := userConfigHandler.Load()
			if err != nil {
				fmt.Printf("Warning: Failed to load user config: %v\n\n", err)
				userCfg = &config.UserConfig{}
			}

			// Display configuration
			fmt.Println("Dispatch Configuration")
			fmt.Println("======================")

			fmt.Println("User Preferences:")
			fmt.Printf("  Config file:      %s\n", userConfigHandler.GetConfigPath())
			if userCfg.DefaultServer != "" {
				fmt.Printf("  Default Server:   %s\n", userCfg.DefaultServer)
			} else {
				fmt.Printf("  Default Server:   (not set)\n")
			}
			if userCfg.OutputFormat != "" {
				fmt.Printf("  Output Format:    %s\n", userCfg.OutputFormat)
			}
			fmt.Printf("  Resolved Server:  %s\n", resolveServerURL())

			fmt.Println("\nServer:")
			fmt.Printf("  Listen:           %s:%d\n", cfg.Server.Host, cfg.Server.Port)
			fmt.Printf("  PID file:         %s\n", cfg.Server.PIDFile)

			fmt.Println("\nDatabase:")
			fmt.Printf("  Type:             %s\n", cfg.Database.Type)
			if cfg.Database.URL != "" {
				fmt.Printf("  URL:              %s\n", maskPassword(cfg.Database.URL))
			} else if cfg.Database.Type == "sqlite" {
				fmt.Printf("  Path:             %s\n", cfg.Database.Path)
			} else {
				fmt.Printf("  Host:             %s\n", cfg.Database.Host)
				fmt.Printf("  Port:             %d\n", cfg.Database.Port)
				fmt.Printf("  Database:         %s\n", cfg.Database.Name)
				fmt.Printf("  User:             %s\n", cfg.Database.User)
			}

			fmt.Println("\nGeocoder:")
			fmt.Printf("  Base URL:         %s\n", cfg.Geocoder.BaseURL)
			fmt.Printf("  Rate:             %.2f req/s\n", cfg.Geocoder.RequestsPerSecond)
			fmt.Printf("  Region:           %s, %s\n", cfg.Geocoder.DefaultCity, cfg.Geocoder.DefaultCountry)

			fmt.Println("\nRouting:")
			fmt.Printf("  Overpass:         %s\n", cfg.Routing.Overpass.Endpoint)
			fmt.Printf("  Preload:          %v (%s)\n", cfg.Routing.Preload.Enabled, cfg.Routing.Preload.AreaName)

			fmt.Println("\nDispatch:")
			fmt.Printf("  Fast mode:        %v\n", cfg.Dispatch.FastMode)
			fmt.Printf("  Max candidates:   %d\n", cfg.Dispatch.MaxCandidates)
			fmt.Printf("  Time budget:      %s\n", cfg.Dispatch.TimeBudget)
			fmt.Printf("  Batch budget:     %s\n", cfg.Dispatch.BatchBudget)
			fmt.Printf("  Weights:          distance=%.2f capacity=%.2f urgency=%.2f compat=%.2f perf=%.2f interf=%.2f\n",
				cfg.Dispatch.Weights.Distance, cfg.Dispatch.Weights.Capacity,
				cfg.Dispatch.Weights.Urgency, cfg.Dispatch.Weights.Compatibility,
				cfg.Dispatch.Weights.Performance, cfg.Dispatch.Weights.Interference)

			fmt.Println("\nMetrics:")
			fmt.Printf("  Enabled:          %v\n", cfg.Metrics.Enabled)
			if cfg.Metrics.Enabled {
				fmt.Printf("  Endpoint:         %s:%d%s\n", cfg.Metrics.Host, cfg.Metrics.Port, cfg.Metrics.Path)
			}

			return nil
		},
	}

	return cmd
}

// newConfigSetServerCommand creates the config set-server subcommand
func newConfigSetServerCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-server <url>",
		Short: "Set the default daemon URL",
		Long: `Set the default daemon URL used when --server is not given.

Example:
  dispatch config set-server http://dispatch.example.com:8080`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := args[0]
			parsed, err := url.Parse(raw)
			if err != nil || parsed.Scheme == "" || parsed.Host == "" {
				return fmt.Errorf("invalid server URL %q: expected http(s)://host[:port]", raw)
			}

			handler, err := config.NewUserConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}

			if err := handler.SetDefaultServer(strings.TrimRight(raw, "/")); err != nil {
				return fmt.Errorf("failed to save default server: %w", err)
			}

			fmt.Printf("✓ Default server set to %s\n", raw)
			fmt.Printf("  Config file: %s\n", handler.GetConfigPath())
			return nil
		},
	}

	return cmd
}

// newConfigClearCommand creates the config clear subcommand
func newConfigClearCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear stored user preferences",
		Long: `Remove all stored user preferences.

Example:
  dispatch config clear`,
		RunE: func(cmd *cobra.Command, args []string) error {
			handler, err := config.NewUserConfigHandler()
			if err != nil {
				return fmt.Errorf("failed to create user config handler: %w", err)
			}

			if err := handler.ClearDefaults(); err != nil {
				return fmt.Errorf("failed to clear preferences: %w", err)
			}

			fmt.Println("✓ User preferences cleared")
			return nil
		},
	}

	return cmd
}

// maskPassword hides the password in a connection URL for display.
func maskPassword(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.User == nil {
		return rawURL
	}
	if _, has := parsed.User.Password(); has {
		parsed.User = url.UserPassword(parsed.User.Username(), "****")
	}
	return parsed.String()
}
