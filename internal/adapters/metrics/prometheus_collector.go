package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// Namespace for all metrics
	namespace = "dispatch"
	// Subsystem for daemon metrics
	subsystem = "daemon"
)

var (
	// Registry is the global Prometheus registry for all metrics
	Registry *prometheus.Registry

	// globalDispatchCollector is the singleton dispatch metrics collector
	// Set by SetGlobalDispatchCollector() when metrics are enabled
	globalDispatchCollector DispatchMetricsRecorder

	// globalGeocodeCollector is the singleton geocoding metrics collector
	// Set by SetGlobalGeocodeCollector() when metrics are enabled
	globalGeocodeCollector GeocodeMetricsRecorder
)

// DispatchMetricsRecorder defines the interface for recording dispatch events.
// This interface is used by application code to record metrics without
// depending on Prometheus directly.
type DispatchMetricsRecorder interface {
	RecordDecision(assigned bool, failureReason string, fastMode bool, durationSeconds float64, candidates int, winningScore float64)
	RecordBatch(orders int, assigned int, durationSeconds float64)
}

// GeocodeMetricsRecorder defines the interface for recording geocoding events
type GeocodeMetricsRecorder interface {
	RecordGeocode(found bool, durationSeconds float64)
	RecordReverse(found bool, durationSeconds float64)
}

// InitRegistry initializes the Prometheus registry
// Should be called once at application startup if metrics are enabled
func InitRegistry() {
	Registry = prometheus.NewRegistry()
}

// GetRegistry returns the global Prometheus registry
// Returns nil if metrics are not initialized
func GetRegistry() *prometheus.Registry {
	return Registry
}

// IsEnabled returns true if metrics collection is enabled
func IsEnabled() bool {
	return Registry != nil
}

// SetGlobalDispatchCollector sets the global dispatch metrics collector
func SetGlobalDispatchCollector(collector DispatchMetricsRecorder) {
	globalDispatchCollector = collector
}

// RecordDecision records one dispatch verdict globally
func RecordDecision(assigned bool, failureReason string, fastMode bool, durationSeconds float64, candidates int, winningScore float64) {
	if globalDispatchCollector != nil {
		globalDispatchCollector.RecordDecision(assigned, failureReason, fastMode, durationSeconds, candidates, winningScore)
	}
}

// RecordBatch records one batch run globally
func RecordBatch(orders int, assigned int, durationSeconds float64) {
	if globalDispatchCollector != nil {
		globalDispatchCollector.RecordBatch(orders, assigned, durationSeconds)
	}
}

// SetGlobalGeocodeCollector sets the global geocoding metrics collector
func SetGlobalGeocodeCollector(collector GeocodeMetricsRecorder) {
	globalGeocodeCollector = collector
}

// RecordGeocode records one forward geocoding resolution globally
func RecordGeocode(found bool, durationSeconds float64) {
	if globalGeocodeCollector != nil {
		globalGeocodeCollector.RecordGeocode(found, durationSeconds)
	}
}

// RecordReverse records one reverse geocoding resolution globally
func RecordReverse(found bool, durationSeconds float64) {
	if globalGeocodeCollector != nil {
		globalGeocodeCollector.RecordReverse(found, durationSeconds)
	}
}
