package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/dispatch-go/internal/adapters/api"
)

var (
	assignFile string
	batchFile  string
)

// NewOrderCommand creates the order command group
func NewOrderCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Submit orders for dispatch",
		Long: `Submit orders against a fleet snapshot and print the verdicts.

The request body is JSON matching the daemon API: an order (or orders),
the vehicles to consider, and optional engine overrides.

Examples:
  dispatch order assign --file order.json
  dispatch order batch --file batch.json
  cat order.json | dispatch order assign --file -`,
	}

	cmd.AddCommand(newOrderAssignCommand())
	cmd.AddCommand(newOrderBatchCommand())

	return cmd
}

// newOrderAssignCommand creates the order assign subcommand
func newOrderAssignCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Assign one order to the best vehicle",
		Long: `Assign one order to the best vehicle of a fleet snapshot.

The verdict explains itself: every scored candidate, every rejection
and, on failure, the closest near misses.

Example:
  dispatch order assign --file order.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if assignFile == "" {
				return fmt.Errorf("--file flag is required")
			}

			var req api.DispatchRequest
			if err := readPayload(assignFile, &req); err != nil {
				return err
			}

			client, err := connect()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			res, err := client.Dispatch(ctx, &req)
			if err != nil {
				return fmt.Errorf("dispatch failed: %w", err)
			}

			if jsonOutput() {
				return printJSON(res)
			}
			printVerdict(res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&assignFile, "file", "f", "", "JSON request file, or - for stdin (required)")

	return cmd
}

// newOrderBatchCommand creates the order batch subcommand
func newOrderBatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Assign a batch of orders against one fleet snapshot",
		Long: `Assign a batch of orders against one shared fleet snapshot.

Each assignment commits to the snapshot before the next order is
considered, so two orders never overload the same vehicle.

Example:
  dispatch order batch --file batch.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if batchFile == "" {
				return fmt.Errorf("--file flag is required")
			}

			var req api.BatchDispatchRequest
			if err := readPayload(batchFile, &req); err != nil {
				return err
			}

			client, err := connect()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			res, err := client.DispatchBatch(ctx, &req)
			if err != nil {
				return fmt.Errorf("batch dispatch failed: %w", err)
			}

			if jsonOutput() {
				return printJSON(res)
			}

			printBatchSummary(res)
			fmt.Println()
			for _, verdict := range res.Results {
				if verdict.AssignedVehicleID != nil {
					fmt.Printf("  %-20s → %s\n", verdict.OrderID, *verdict.AssignedVehicleID)
				} else {
					fmt.Printf("  %-20s ✗ %s\n", verdict.OrderID, verdict.FailureReason)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&batchFile, "file", "f", "", "JSON request file, or - for stdin (required)")

	return cmd
}
