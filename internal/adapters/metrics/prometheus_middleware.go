package metrics

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/andrescamacho/dispatch-go/internal/application/common"
)

// PrometheusMiddleware creates a middleware that records command execution metrics
//
// This middleware wraps all command/query execution and records:
// - Execution duration (histogram)
// - Success/failure counts (counter)
//
// Command names are extracted via reflection and simplified to remove package prefixes.
// For example: "*dispatching.AssignOrderCommand" becomes "AssignOrderCommand"
func PrometheusMiddleware(collector *CommandMetricsCollector) common.Middleware {
	return func(ctx context.Context, request common.Request, next common.HandlerFunc) (common.Response, error) {
		// Skip metrics if collector is nil (metrics disabled)
		if collector == nil {
			return next(ctx, request)
		}

		commandName := extractCommandName(request)

		start := time.Now()
		response, err := next(ctx, request)
		duration := time.Since(start).Seconds()

		collector.RecordCommandExecution(commandName, duration, err == nil)

		return response, err
	}
}

// extractCommandName extracts a clean command name from the request using reflection
// Examples:
//   - "*dispatching.AssignOrderCommand" → "AssignOrderCommand"
//   - "*geocoding.GeocodeAddressQuery" → "GeocodeAddressQuery"
func extractCommandName(request common.Request) string {
	if request == nil {
		return "UnknownCommand"
	}

	requestType := reflect.TypeOf(request)
	fullName := requestType.String()
	fullName = strings.TrimPrefix(fullName, "*")

	parts := strings.Split(fullName, ".")
	if len(parts) > 0 {
		return parts[len(parts)-1]
	}

	return fullName
}
