package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/dispatch-go/internal/infrastructure/config"
)

// Version is reported by the daemon banner, /health and --version.
const Version = "0.1.0"

var (
	// Global flags
	serverURL  string
	outputJSON bool
)

// NewRootCommand creates the root command for the CLI
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "dispatch",
		Short:   "Dispatch CLI - Assign delivery orders to fleet vehicles",
		Version: Version,
		Long: `Dispatch CLI talks to the dispatch daemon over its HTTP API.
The daemon scores every vehicle of a fleet snapshot against an order and
returns an explained verdict; the CLI submits snapshots and prints verdicts.

Examples:
  dispatch serve
  dispatch order assign --file order.json
  dispatch order batch --file batch.json
  dispatch route resequence --file route.json
  dispatch geocode --address "Av. 18 de Julio 1234"
  dispatch streets --query "18 de julio"
  dispatch stats
  dispatch health`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "",
		"Daemon base URL (default: DISPATCH_SERVER env, then user config, then http://localhost:8080)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false,
		"Print raw JSON responses instead of formatted text")

	// Add command groups
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewOrderCommand())
	rootCmd.AddCommand(NewRouteCommand())
	rootCmd.AddCommand(NewGeocodeCommand())
	rootCmd.AddCommand(NewReverseGeocodeCommand())
	rootCmd.AddCommand(NewStreetsCommand())
	rootCmd.AddCommand(NewStatsCommand())
	rootCmd.AddCommand(NewHealthCommand())
	rootCmd.AddCommand(NewConfigCommand())

	return rootCmd
}

// resolveServerURL resolves the daemon URL from flags or defaults.
// Priority: --server flag > DISPATCH_SERVER env > user config > localhost.
func resolveServerURL() string {
	if serverURL != "" {
		return serverURL
	}
	if env := os.Getenv("DISPATCH_SERVER"); env != "" {
		return env
	}
	if handler, err := config.NewUserConfigHandler(); err == nil {
		if userCfg, err := handler.Load(); err == nil && userCfg.DefaultServer != "" {
			return userCfg.DefaultServer
		}
	}
	return "http://localhost:8080"
}

// Execute runs the root command
func Execute() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
