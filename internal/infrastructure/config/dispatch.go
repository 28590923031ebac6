package config

import "time"

// DispatchConfig holds the dispatch engine configuration
type DispatchConfig struct {
	// Weights of the six scoring components. Must sum to 1 within 1e-9;
	// checked by ValidateConfig.
	Weights WeightsConfig `mapstructure:"weights"`

	// FastMode limits full feasibility evaluation to the MaxCandidates
	// closest vehicles
	FastMode bool `mapstructure:"fast_mode"`

	// MaxCandidates is the fast-mode top-K
	MaxCandidates int `mapstructure:"max_candidates" validate:"min=1,max=10"`

	// TimeBudget bounds one single-order dispatch call
	TimeBudget time.Duration `mapstructure:"time_budget"`

	// BatchBudget bounds one whole batch call
	BatchBudget time.Duration `mapstructure:"batch_budget"`

	// SequencerBudget bounds each feasibility sequencing call
	SequencerBudget time.Duration `mapstructure:"sequencer_budget"`

	// ServiceTimeMinutes is the per-stop handling overhead
	ServiceTimeMinutes float64 `mapstructure:"service_time_minutes" validate:"gte=0"`

	// MaxWorkers bounds the candidate evaluation pool; zero means one
	// worker per schedulable CPU
	MaxWorkers int `mapstructure:"max_workers" validate:"gte=0"`

	// LowScoreThreshold is the winning total below which the verdict
	// carries a low-confidence warning
	LowScoreThreshold float64 `mapstructure:"low_score_threshold" validate:"gte=0,lte=1"`
}

// WeightsConfig holds the scoring weight vector
type WeightsConfig struct {
	Distance      float64 `mapstructure:"distance" validate:"gte=0,lte=1"`
	Capacity      float64 `mapstructure:"capacity" validate:"gte=0,lte=1"`
	Urgency       float64 `mapstructure:"urgency" validate:"gte=0,lte=1"`
	Compatibility float64 `mapstructure:"compatibility" validate:"gte=0,lte=1"`
	Performance   float64 `mapstructure:"performance" validate:"gte=0,lte=1"`
	Interference  float64 `mapstructure:"interference" validate:"gte=0,lte=1"`
}

// Sum returns the total of the six weights.
func (w WeightsConfig) Sum() float64 {
	return w.Distance + w.Capacity + w.Urgency + w.Compatibility + w.Performance + w.Interference
}
