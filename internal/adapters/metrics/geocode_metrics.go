package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// GeocodeMetricsCollector handles forward and reverse geocoding metrics
type GeocodeMetricsCollector struct {
	geocodesTotal   *prometheus.CounterVec
	geocodeDuration *prometheus.HistogramVec
}

// NewGeocodeMetricsCollector creates a new geocoding metrics collector
func NewGeocodeMetricsCollector() *GeocodeMetricsCollector {
	return &GeocodeMetricsCollector{
		geocodesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "geocodes_total",
				Help:      "Total number of geocoding resolutions by direction and result",
			},
			[]string{"direction", "result"},
		),

		geocodeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "geocode_duration_seconds",
				Help:      "Geocoding resolution duration distribution",
				Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"direction"},
		),
	}
}

// Register registers all geocoding metrics with the Prometheus registry
func (c *GeocodeMetricsCollector) Register() error {
	if Registry == nil {
		return nil // Metrics not enabled
	}

	metrics := []prometheus.Collector{
		c.geocodesTotal,
		c.geocodeDuration,
	}

	for _, metric := range metrics {
		if err := Registry.Register(metric); err != nil {
			return err
		}
	}

	return nil
}

// RecordGeocode records one forward resolution
func (c *GeocodeMetricsCollector) RecordGeocode(found bool, durationSeconds float64) {
	c.record("forward", found, durationSeconds)
}

// RecordReverse records one reverse resolution
func (c *GeocodeMetricsCollector) RecordReverse(found bool, durationSeconds float64) {
	c.record("reverse", found, durationSeconds)
}

func (c *GeocodeMetricsCollector) record(direction string, found bool, durationSeconds float64) {
	result := "found"
	if !found {
		result = "not_found"
	}
	c.geocodesTotal.WithLabelValues(direction, result).Inc()
	c.geocodeDuration.WithLabelValues(direction).Observe(durationSeconds)
}
