package dispatch

import (
	"runtime"
	"time"
)

const (
	// DefaultMaxCandidates is the fast-mode top-K receiving a full
	// feasibility evaluation.
	DefaultMaxCandidates = 3

	// MaxCandidatesLimit caps the configurable top-K.
	MaxCandidatesLimit = 10

	// DefaultTimeBudget bounds one single-order dispatch call.
	DefaultTimeBudget = 30 * time.Second

	// DefaultBatchBudget bounds one whole batch call.
	DefaultBatchBudget = 60 * time.Second

	// DefaultLowScoreThreshold is the winning total below which the
	// verdict carries a low-confidence warning.
	DefaultLowScoreThreshold = 0.2
)

// Options configure one dispatch decision. The zero value selects the
// production defaults; the dispatcher never mutates the caller's copy.
type Options struct {
	Weights Weights

	// FastMode limits full feasibility evaluation to the MaxCandidates
	// closest vehicles; the rest get approximate scores.
	FastMode      bool
	MaxCandidates int

	// TimeBudget bounds the whole dispatch call.
	TimeBudget time.Duration

	// SequencerBudget bounds each feasibility sequencing call.
	SequencerBudget time.Duration

	// ServiceTimeMin overrides the per-stop service overhead.
	ServiceTimeMin float64

	// MaxWorkers bounds the candidate evaluation pool. Defaults to the
	// number of schedulable CPUs.
	MaxWorkers int

	// LowScoreThreshold triggers the low-confidence warning.
	LowScoreThreshold float64
}

// withDefaults returns a copy with every unset knob filled in and the
// fast-mode K clamped into its valid range.
func (o Options) withDefaults() Options {
	if o.Weights.Sum() == 0 {
		o.Weights = DefaultWeights()
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = DefaultMaxCandidates
	}
	if o.MaxCandidates > MaxCandidatesLimit {
		o.MaxCandidates = MaxCandidatesLimit
	}
	if o.TimeBudget <= 0 {
		o.TimeBudget = DefaultTimeBudget
	}
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = runtime.GOMAXPROCS(0)
	}
	if o.LowScoreThreshold <= 0 {
		o.LowScoreThreshold = DefaultLowScoreThreshold
	}
	return o
}

// BatchOptions configure one batch dispatch run.
type BatchOptions struct {
	// Dispatch options apply to each order's individual decision.
	Dispatch Options

	// PrioritySort processes urgent orders first instead of input
	// order.
	PrioritySort bool

	// Budget bounds the whole batch; orders past it are marked
	// unassigned with a time-budget-exceeded reason.
	Budget time.Duration
}

func (o BatchOptions) withDefaults() BatchOptions {
	o.Dispatch = o.Dispatch.withDefaults()
	if o.Budget <= 0 {
		o.Budget = DefaultBatchBudget
	}
	return o
}
