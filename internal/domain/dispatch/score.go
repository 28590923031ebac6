// Package dispatch implements the assignment decision: feasibility,
// multi-criterion scoring and the single and batch dispatchers.
package dispatch

import (
	"fmt"
	"math"

	"github.com/andrescamacho/dispatch-go/internal/domain/routing"
)

// SubScores are the six criteria that make up an assignment score, each
// in [0, 1].
type SubScores struct {
	Distance      float64 `json:"distance"`
	Capacity      float64 `json:"capacity"`
	Urgency       float64 `json:"urgency"`
	Compatibility float64 `json:"compatibility"`
	Performance   float64 `json:"performance"`
	Interference  float64 `json:"interference"`
}

// Weights blend the six sub-scores into one total. They must be
// nonnegative and sum to 1.
type Weights struct {
	Distance      float64 `json:"distance"`
	Capacity      float64 `json:"capacity"`
	Urgency       float64 `json:"urgency"`
	Compatibility float64 `json:"compatibility"`
	Performance   float64 `json:"performance"`
	Interference  float64 `json:"interference"`
}

// DefaultWeights returns the production weight vector.
func DefaultWeights() Weights {
	return Weights{
		Distance:      0.25,
		Capacity:      0.15,
		Urgency:       0.25,
		Compatibility: 0.10,
		Performance:   0.10,
		Interference:  0.15,
	}
}

// weightSumTolerance absorbs floating-point noise when validating that
// configured weights sum to 1.
const weightSumTolerance = 1e-9

// Validate checks that every weight is nonnegative and the vector sums
// to 1 within tolerance.
func (w Weights) Validate() error {
	for _, entry := range []struct {
		name  string
		value float64
	}{
		{"distance", w.Distance},
		{"capacity", w.Capacity},
		{"urgency", w.Urgency},
		{"compatibility", w.Compatibility},
		{"performance", w.Performance},
		{"interference", w.Interference},
	} {
		if entry.value < 0 {
			return fmt.Errorf("weight %s cannot be negative: %f", entry.name, entry.value)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > weightSumTolerance {
		return fmt.Errorf("weights must sum to 1.0, got %.12f", sum)
	}
	return nil
}

// Sum returns the total of the six weights.
func (w Weights) Sum() float64 {
	return w.Distance + w.Capacity + w.Urgency + w.Compatibility + w.Performance + w.Interference
}

// Total blends sub-scores into the weighted total.
func (w Weights) Total(s SubScores) float64 {
	return w.Distance*s.Distance +
		w.Capacity*s.Capacity +
		w.Urgency*s.Urgency +
		w.Compatibility*s.Compatibility +
		w.Performance*s.Performance +
		w.Interference*s.Interference
}

// AssignmentScore is the full evaluation of one (vehicle, order) pair.
type AssignmentScore struct {
	VehicleID string    `json:"vehicle_id"`
	Sub       SubScores `json:"sub_scores"`
	Total     float64   `json:"total_score"`
	Feasible  bool      `json:"feasible"`
	// Approximate marks scores produced by the fast-mode shortcut;
	// they are not comparable with fully evaluated scores.
	Approximate         bool     `json:"approximate,omitempty"`
	EstimatedArrivalMin float64  `json:"estimated_arrival_min"`
	DistanceKm          float64  `json:"distance_km"`
	InterferenceMin     float64  `json:"interference_min"`
	Reasoning           []string `json:"reasoning"`

	// Route is the sequenced plan including the new order, kept for the
	// winning candidate's response. Not serialized with the score table.
	Route *routing.Route `json:"-"`
}
