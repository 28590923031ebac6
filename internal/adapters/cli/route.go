package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/dispatch-go/internal/adapters/api"
)

var resequenceFile string

// NewRouteCommand creates the route command group
func NewRouteCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Plan vehicle routes",
		Long: `Plan the visiting order of a vehicle's committed stops.

Examples:
  dispatch route resequence --file route.json`,
	}

	cmd.AddCommand(newRouteResequenceCommand())

	return cmd
}

// newRouteResequenceCommand creates the route resequence subcommand
func newRouteResequenceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resequence",
		Short: "Replan the stop order of one vehicle's route",
		Long: `Replan the visiting order of one vehicle's committed orders.

The request carries the vehicle position and its orders; the answer is
the deadline-optimal stop sequence with per-stop arrival estimates.

Example:
  dispatch route resequence --file route.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if resequenceFile == "" {
				return fmt.Errorf("--file flag is required")
			}

			var req api.ResequenceRequest
			if err := readPayload(resequenceFile, &req); err != nil {
				return err
			}

			client, err := connect()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			res, err := client.Resequence(ctx, &req)
			if err != nil {
				return fmt.Errorf("resequence failed: %w", err)
			}

			if jsonOutput() {
				return printJSON(res)
			}

			if res.Feasible {
				fmt.Printf("✓ Route replanned for %s\n", res.VehicleID)
			} else {
				fmt.Printf("✗ No feasible route for %s\n", res.VehicleID)
				if res.ViolatingOrderID != "" {
					fmt.Printf("  Violates:     %s (and %d more)\n", res.ViolatingOrderID, res.Violations-1)
				}
			}

			if res.Route != nil {
				fmt.Printf("  Stops:        %d\n", res.Route.DeliveryCount())
				fmt.Printf("  Distance:     %.1f km\n", res.Route.TotalDistanceKm)
				fmt.Printf("  Duration:     %.1f min\n", res.Route.TotalDurationMin)
				fmt.Printf("  On time:      %v\n", res.Route.AllOnTime)
				if res.Exact {
					fmt.Printf("  Solver:       exact\n")
				} else {
					fmt.Printf("  Solver:       heuristic\n")
				}
				fmt.Println()
				for _, stop := range res.Route.Stops {
					if stop.IsStart {
						continue
					}
					marker := "✓"
					if !stop.OnTime {
						marker = "✗"
					}
					fmt.Printf("  %s %-20s ETA %6.1f min\n", marker, stop.OrderID, stop.ETAMin)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&resequenceFile, "file", "f", "", "JSON request file, or - for stdin (required)")

	return cmd
}
