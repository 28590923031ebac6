package cli

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

// NewHealthCommand creates the health command
func NewHealthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check daemon health status",
		Long:  `Verify that the daemon is running and its components are responsive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			health, err := client.Health(ctx)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}

			if jsonOutput() {
				return printJSON(health)
			}

			if health.Status == "ok" {
				fmt.Println("✓ Daemon is healthy")
			} else {
				fmt.Printf("✗ Daemon is %s\n", health.Status)
			}
			fmt.Printf("  Version:      %s\n", health.Version)
			fmt.Printf("  Uptime:       %s\n", (time.Duration(health.UptimeS * float64(time.Second))).Round(time.Second))

			components := make([]string, 0, len(health.Components))
			for name := range health.Components {
				components = append(components, name)
			}
			sort.Strings(components)
			for _, name := range components {
				fmt.Printf("  %-12s %s\n", name+":", health.Components[name])
			}

			return nil
		},
	}

	return cmd
}
