package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetricsCollector handles all dispatch decision metrics
type DispatchMetricsCollector struct {
	// Verdict counts by outcome
	decisionsTotal *prometheus.CounterVec

	// Decision latency distribution
	decisionDuration *prometheus.HistogramVec

	// Candidates reaching the scorer per decision
	candidatesEvaluated prometheus.Histogram

	// Winning total score distribution
	winningScore prometheus.Histogram

	// Batch size, assignments and latency
	batchOrders   prometheus.Histogram
	batchAssigned prometheus.Histogram
	batchDuration prometheus.Histogram
}

// NewDispatchMetricsCollector creates a new dispatch metrics collector
func NewDispatchMetricsCollector() *DispatchMetricsCollector {
	return &DispatchMetricsCollector{
		decisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "decisions_total",
				Help:      "Total number of dispatch decisions by outcome and failure reason",
			},
			[]string{"assigned", "reason", "fast_mode"},
		),

		decisionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "decision_duration_seconds",
				Help:      "Dispatch decision duration distribution",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0},
			},
			[]string{"assigned"},
		),

		candidatesEvaluated: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "decision_candidates",
				Help:      "Number of vehicles that reached the scorer per decision",
				Buckets:   []float64{0, 1, 2, 3, 5, 10, 25, 50, 100},
			},
		),

		winningScore: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "winning_score",
				Help:      "Winning total score distribution",
				Buckets:   prometheus.LinearBuckets(0.0, 0.1, 11),
			},
		),

		batchOrders: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "batch_orders",
				Help:      "Orders per batch run",
				Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
			},
		),

		batchAssigned: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "batch_assigned",
				Help:      "Assigned orders per batch run",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
			},
		),

		batchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "batch_duration_seconds",
				Help:      "Batch run duration distribution",
				Buckets:   []float64{0.1, 0.5, 1.0, 5.0, 15.0, 30.0, 60.0, 120.0},
			},
		),
	}
}

// Register registers all dispatch metrics with the Prometheus registry
func (c *DispatchMetricsCollector) Register() error {
	if Registry == nil {
		return nil // Metrics not enabled
	}

	metrics := []prometheus.Collector{
		c.decisionsTotal,
		c.decisionDuration,
		c.candidatesEvaluated,
		c.winningScore,
		c.batchOrders,
		c.batchAssigned,
		c.batchDuration,
	}

	for _, metric := range metrics {
		if err := Registry.Register(metric); err != nil {
			return err
		}
	}

	return nil
}

// RecordDecision records one dispatch verdict
func (c *DispatchMetricsCollector) RecordDecision(
	assigned bool,
	failureReason string,
	fastMode bool,
	durationSeconds float64,
	candidates int,
	winningScore float64,
) {
	assignedLabel := strconv.FormatBool(assigned)
	if failureReason == "" {
		failureReason = "none"
	}

	c.decisionsTotal.WithLabelValues(assignedLabel, failureReason, strconv.FormatBool(fastMode)).Inc()
	c.decisionDuration.WithLabelValues(assignedLabel).Observe(durationSeconds)
	c.candidatesEvaluated.Observe(float64(candidates))

	if assigned {
		c.winningScore.Observe(winningScore)
	}
}

// RecordBatch records one batch run
func (c *DispatchMetricsCollector) RecordBatch(orders int, assigned int, durationSeconds float64) {
	c.batchOrders.Observe(float64(orders))
	c.batchAssigned.Observe(float64(assigned))
	c.batchDuration.Observe(durationSeconds)
}
