package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/andrescamacho/dispatch-go/internal/adapters/api"
	"github.com/andrescamacho/dispatch-go/internal/infrastructure/config"
)

// connect builds a client against the resolved daemon URL.
func connect() (*DaemonClient, error) {
	client, err := NewDaemonClient(resolveServerURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w", err)
	}
	return client, nil
}

// jsonOutput reports whether responses should print as raw JSON.
// Priority: --json flag > user config output format.
func jsonOutput() bool {
	if outputJSON {
		return true
	}
	if handler, err := config.NewUserConfigHandler(); err == nil {
		if userCfg, err := handler.Load(); err == nil {
			return userCfg.OutputFormat == "json"
		}
	}
	return false
}

// printJSON pretty-prints any response as JSON.
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// readPayload reads a JSON request body from a file, or from stdin
// when the path is "-".
func readPayload(path string, dst interface{}) error {
	var data []byte
	var err error

	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// printVerdict formats one dispatch verdict.
func printVerdict(res *api.DispatchResponse) {
	if res.AssignedVehicleID != nil {
		fmt.Printf("✓ Order %s assigned to %s\n", res.OrderID, *res.AssignedVehicleID)
		if res.Winning != nil {
			fmt.Printf("  Score:        %.3f\n", res.Winning.Total)
		}
		if res.Route != nil {
			fmt.Printf("  Route:        %d stops, %.1f min total\n",
				len(res.Route.Stops), res.Route.TotalDurationMin)
		}
	} else {
		fmt.Printf("✗ Order %s not assigned\n", res.OrderID)
		fmt.Printf("  Reason:       %s\n", res.FailureReason)
		for _, alt := range res.Alternatives {
			fmt.Printf("  Near miss:    %s (score %.3f, %.1f km)\n",
				alt.VehicleID, alt.Total, alt.DistanceKm)
		}
	}
	if res.FastMode {
		fmt.Printf("  Mode:         fast (top candidates only)\n")
	}
	fmt.Printf("  Candidates:   %d scored, %d rejected\n", len(res.Scores), len(res.Rejections))
	fmt.Printf("  Elapsed:      %.1f ms\n", res.ElapsedMs)
	for _, warning := range res.Warnings {
		fmt.Printf("  Warning:      %s\n", warning)
	}
}

// printBatchSummary formats the summary of one batch run.
func printBatchSummary(res *api.BatchDispatchResponse) {
	fmt.Printf("✓ Batch %s complete\n", res.BatchID)
	fmt.Printf("  Orders:       %d\n", res.Summary.Total)
	fmt.Printf("  Assigned:     %d\n", res.Summary.Assigned)
	fmt.Printf("  Unassigned:   %d\n", res.Summary.Unassigned)
	fmt.Printf("  Elapsed:      %.1f ms\n", res.Summary.ElapsedMs)

	if len(res.Summary.ByReason) > 0 {
		reasons := make([]string, 0, len(res.Summary.ByReason))
		for reason := range res.Summary.ByReason {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		fmt.Println("  Failures:")
		for _, reason := range reasons {
			fmt.Printf("    %-24s %d\n", reason, res.Summary.ByReason[reason])
		}
	}
}
