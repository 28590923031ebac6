package dispatch

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/andrescamacho/dispatch-go/internal/domain/fleet"
	"github.com/andrescamacho/dispatch-go/internal/domain/order"
	"github.com/andrescamacho/dispatch-go/internal/domain/routing"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
	"github.com/andrescamacho/dispatch-go/pkg/geoutil"
)

// Scorer turns a (vehicle, order) pair into one comparable total in
// [0, 1] plus the reasoning trail behind it.
type Scorer struct {
	network   routing.NetworkProvider
	evaluator *Evaluator
}

// NewScorer creates a scorer backed by the road network and the
// feasibility evaluator.
func NewScorer(network routing.NetworkProvider, evaluator *Evaluator) *Scorer {
	return &Scorer{network: network, evaluator: evaluator}
}

// Score fully evaluates one candidate: road-network travel time, the
// sequenced feasibility check and all six sub-scores. Infeasible
// candidates short-circuit to total 0 with a reasoning entry naming the
// violated order.
func (s *Scorer) Score(
	ctx context.Context,
	vehicle *fleet.Vehicle,
	o *order.Order,
	at time.Time,
	opts Options,
) (*AssignmentScore, error) {
	target := o.Location()
	if target == nil {
		return nil, shared.NewValidationError("order", fmt.Sprintf("order %s has no resolved location", o.ID()))
	}

	leg, err := s.network.TravelTime(ctx, vehicle.Location(), *target)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate travel to order %s: %w", o.ID(), err)
	}

	seqOpts := routing.Options{ServiceTimeMin: opts.ServiceTimeMin, Budget: opts.SequencerBudget}
	feasibility, err := s.evaluator.Evaluate(ctx, vehicle, o, at, seqOpts)
	if err != nil {
		return nil, err
	}

	score := &AssignmentScore{
		VehicleID:           vehicle.ID(),
		EstimatedArrivalMin: leg.Minutes,
		DistanceKm:          leg.DistanceKm,
		Route:               feasibility.Route,
	}

	if !feasibility.Feasible {
		reason := "infeasible: no visiting order meets all deadlines"
		if feasibility.ViolatingOrderID != "" {
			reason = fmt.Sprintf("infeasible: order %s would miss its deadline", feasibility.ViolatingOrderID)
		}
		score.Reasoning = []string{reason}
		return score, nil
	}

	// A vehicle with no committed work has nothing to disturb.
	var delta float64
	if vehicle.CurrentLoad() > 0 {
		delta = feasibility.WithNewDurationMin - feasibility.BaselineDurationMin
	}
	score.InterferenceMin = delta
	score.Feasible = true
	score.Sub = SubScores{
		Distance:      distanceScore(leg.Minutes),
		Capacity:      capacityScore(vehicle.Capacity(), vehicle.CurrentLoad()),
		Urgency:       urgencyScore(o.SlackMinutes(at)-leg.Minutes, o.Priority()),
		Compatibility: compatibilityScore(vehicle.Location(), vehicle.CurrentOrders(), *target),
		Performance:   vehicle.PerformanceScore(),
		Interference:  interferenceScore(delta),
	}
	score.Total = opts.Weights.Total(score.Sub)
	score.Reasoning = buildReasoning(vehicle, o, leg, score.Sub, delta, at)
	score.Reasoning = append(score.Reasoning, feasibility.Notes...)
	return score, nil
}

// ScoreApproximate is the fast-mode path for candidates outside the
// top-K: no sequencer call, travel from great-circle distance and
// interference from the cheapest straight-line insertion. The result is
// labeled approximate and never outranks a fully evaluated candidate.
func (s *Scorer) ScoreApproximate(
	vehicle *fleet.Vehicle,
	o *order.Order,
	at time.Time,
	opts Options,
) (*AssignmentScore, error) {
	target := o.Location()
	if target == nil {
		return nil, shared.NewValidationError("order", fmt.Sprintf("order %s has no resolved location", o.ID()))
	}

	distKm := vehicle.Location().DistanceKm(*target)
	travelMin := geoutil.TravelMinutesAt(distKm*1000, routing.DefaultAvgSpeedKph)

	var delta float64
	if vehicle.CurrentLoad() > 0 {
		serviceTime := opts.ServiceTimeMin
		if serviceTime <= 0 {
			serviceTime = routing.DefaultServiceTimeMin
		}
		delta = straightLineInsertionDelta(vehicle, *target) + serviceTime + o.EstimatedDurationMin()
	}

	score := &AssignmentScore{
		VehicleID:           vehicle.ID(),
		Feasible:            true,
		Approximate:         true,
		EstimatedArrivalMin: travelMin,
		DistanceKm:          distKm,
		InterferenceMin:     delta,
		Sub: SubScores{
			Distance:      distanceScore(travelMin),
			Capacity:      capacityScore(vehicle.Capacity(), vehicle.CurrentLoad()),
			Urgency:       urgencyScore(o.SlackMinutes(at)-travelMin, o.Priority()),
			Compatibility: compatibilityScore(vehicle.Location(), vehicle.CurrentOrders(), *target),
			Performance:   vehicle.PerformanceScore(),
			Interference:  interferenceScore(delta),
		},
	}
	score.Total = opts.Weights.Total(score.Sub)
	score.Reasoning = []string{
		fmt.Sprintf("approximate evaluation: %.2f km straight line, +%.1f min estimated detour", distKm, delta),
	}
	return score, nil
}

// distanceScore decays with travel time: 30 minutes away halves the
// score.
func distanceScore(travelMin float64) float64 {
	return 1.0 / (1.0 + travelMin/30.0)
}

// capacityScore is the free share of order slots.
func capacityScore(capacity, load int) float64 {
	if capacity <= 0 {
		return 0
	}
	free := float64(capacity-load) / float64(capacity)
	if free < 0 {
		return 0
	}
	return free
}

// urgencyScore buckets the slack between the estimated arrival and the
// deadline, then adds the priority bump, clipped to 1.
func urgencyScore(slackMin float64, priority shared.Priority) float64 {
	var base float64
	switch {
	case slackMin >= 60:
		base = 1.0
	case slackMin >= 30:
		base = 0.85
	case slackMin >= 10:
		base = 0.6
	case slackMin >= 0:
		base = 0.3
	default:
		base = 0.0
	}
	score := base + priority.ScoreBump()
	if score > 1.0 {
		return 1.0
	}
	return score
}

// compatibilityScore measures how well the new stop aligns with the
// directions the vehicle is already heading: the mean bearing cosine
// rescaled from [-1, 1] to [0, 1]. No committed stops is neutral 0.5.
func compatibilityScore(from shared.Coordinate, committed []*order.Order, target shared.Coordinate) float64 {
	targetBearing := from.BearingTo(target)

	sum := 0.0
	count := 0
	for _, o := range committed {
		loc := o.Location()
		if loc == nil {
			continue
		}
		stopBearing := from.BearingTo(*loc)
		sum += math.Cos(geoutil.Radians(targetBearing - stopBearing))
		count++
	}
	if count == 0 {
		return 0.5
	}
	return (sum/float64(count) + 1.0) / 2.0
}

// interferenceScore maps the added route minutes to [0, 1]. No added
// time is a perfect 1; half an hour of detour drops to 0.5; beyond that
// the score decays toward 0.
func interferenceScore(deltaMin float64) float64 {
	switch {
	case deltaMin <= 0:
		return 1.0
	case deltaMin <= 30:
		return 1.0 - deltaMin/60.0
	default:
		score := 0.5 - (deltaMin-30.0)/120.0
		if score < 0 {
			return 0
		}
		return score
	}
}

// straightLineInsertionDelta estimates the extra driving minutes of the
// cheapest insertion of the target into the vehicle's current plan,
// using great-circle legs only.
func straightLineInsertionDelta(vehicle *fleet.Vehicle, target shared.Coordinate) float64 {
	points := []shared.Coordinate{vehicle.Location()}
	for _, o := range vehicle.CurrentOrders() {
		if loc := o.Location(); loc != nil {
			points = append(points, *loc)
		}
	}

	travel := func(a, b shared.Coordinate) float64 {
		return geoutil.TravelMinutesAt(a.DistanceMeters(b), routing.DefaultAvgSpeedKph)
	}

	if len(points) == 1 {
		return travel(points[0], target)
	}

	best := math.Inf(1)
	for i := 0; i < len(points); i++ {
		var detour float64
		if i+1 < len(points) {
			detour = travel(points[i], target) + travel(target, points[i+1]) - travel(points[i], points[i+1])
		} else {
			detour = travel(points[i], target)
		}
		if detour < best {
			best = detour
		}
	}
	return best
}

func buildReasoning(
	vehicle *fleet.Vehicle,
	o *order.Order,
	leg routing.TravelEstimate,
	sub SubScores,
	deltaMin float64,
	at time.Time,
) []string {
	reasoning := make([]string, 0, 6)
	reasoning = append(reasoning,
		fmt.Sprintf("travel time %.1f min (%.2f km)", leg.Minutes, leg.DistanceKm))
	reasoning = append(reasoning,
		fmt.Sprintf("capacity %d/%d in use", vehicle.CurrentLoad(), vehicle.Capacity()))
	reasoning = append(reasoning,
		fmt.Sprintf("urgency: %.0f min slack (%s priority)", o.SlackMinutes(at)-leg.Minutes, o.Priority()))
	if vehicle.CurrentLoad() == 0 {
		reasoning = append(reasoning, "no committed orders, neutral compatibility")
	} else {
		reasoning = append(reasoning,
			fmt.Sprintf("bearing alignment %.2f over %d committed stops", sub.Compatibility, vehicle.CurrentLoad()))
	}
	reasoning = append(reasoning,
		fmt.Sprintf("driver performance %.2f", vehicle.PerformanceScore()))
	reasoning = append(reasoning,
		fmt.Sprintf("route interference %+.1f min", deltaMin))
	return reasoning
}
