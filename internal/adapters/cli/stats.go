package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// NewStatsCommand creates the stats command
func NewStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show daemon counters and component statistics",
		Long: `Show the daemon's request counters, the persisted assignment
statistics and the state of the geocoder and road network caches.

Example:
  dispatch stats`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := connect()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			res, err := client.Stats(ctx)
			if err != nil {
				return fmt.Errorf("stats request failed: %w", err)
			}

			if jsonOutput() {
				return printJSON(res)
			}

			fmt.Println("Dispatch Daemon Statistics")
			fmt.Println("==========================")
			fmt.Printf("  Started:           %s\n", res.StartedAt.Format(time.RFC3339))
			fmt.Printf("  Uptime:            %s\n", (time.Duration(res.UptimeS * float64(time.Second))).Round(time.Second))

			fmt.Println("\nRequests:")
			fmt.Printf("  Dispatch:          %d\n", res.Counters.DispatchRequests)
			fmt.Printf("  Batch:             %d\n", res.Counters.BatchRequests)
			fmt.Printf("  Orders processed:  %d\n", res.Counters.OrdersProcessed)
			fmt.Printf("  Geocode:           %d\n", res.Counters.GeocodeRequests)
			fmt.Printf("  Reverse geocode:   %d\n", res.Counters.ReverseRequests)

			if res.Assignments != nil {
				fmt.Println("\nAssignments (persisted):")
				fmt.Printf("  Total:             %d\n", res.Assignments.Total)
				fmt.Printf("  Assigned:          %d\n", res.Assignments.Assigned)
				fmt.Printf("  Unassigned:        %d\n", res.Assignments.Unassigned)
				fmt.Printf("  Avg decision:      %.1f ms\n", res.Assignments.AvgDurationMs)
				for reason, count := range res.Assignments.ByReason {
					fmt.Printf("    %-24s %d\n", reason, count)
				}
			}

			if res.Geocoder != nil {
				fmt.Println("\nGeocoder:")
				fmt.Printf("  Requests:          %d\n", res.Geocoder.Requests)
				fmt.Printf("  Cache hits:        %d\n", res.Geocoder.CacheHits)
				fmt.Printf("  Provider calls:    %d\n", res.Geocoder.ProviderCalls)
				fmt.Printf("  Breaker open:      %v\n", res.Geocoder.BreakerOpen)
				fmt.Printf("  Cached addresses:  %d\n", res.GeocodeCacheEntries)
			}

			if res.Network != nil {
				fmt.Println("\nRoad network:")
				if res.Network.PreloadedGraph {
					fmt.Printf("  Preloaded:         %s (%d nodes, %d edges)\n",
						res.Network.PreloadedArea, res.Network.GraphNodes, res.Network.GraphEdges)
				} else {
					fmt.Printf("  Preloaded:         no (on-demand mode)\n")
				}
				fmt.Printf("  Area graphs:       %d\n", res.Network.CachedAreaGraphs)
				fmt.Printf("  Cached routes:     %d\n", res.Network.CachedRoutes)
			}

			return nil
		},
	}

	return cmd
}
