package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/andrescamacho/dispatch-go/internal/domain/fleet"
	"github.com/andrescamacho/dispatch-go/internal/domain/order"
	"github.com/andrescamacho/dispatch-go/internal/domain/ports"
	"github.com/andrescamacho/dispatch-go/internal/domain/routing"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
	"github.com/andrescamacho/dispatch-go/internal/domain/zones"
	"github.com/andrescamacho/dispatch-go/pkg/geoutil"
)

// maxAlternatives bounds the runner-up list carried on the verdict.
const maxAlternatives = 3

// tightArrivalMarginMin flags assignments that land close to the deadline.
const tightArrivalMarginMin = 10.0

// Alternative summarizes a feasible runner-up.
type Alternative struct {
	VehicleID  string  `json:"vehicle_id"`
	Total      float64 `json:"total_score"`
	DistanceKm float64 `json:"distance_km"`
}

// Result is the structured verdict of one dispatch decision. A failed
// assignment is an ordinary Result carrying a FailureReason, never an
// error: infeasibility is data.
type Result struct {
	OrderID           string
	AssignedVehicleID string
	Winning           *AssignmentScore
	Route             *routing.Route

	// Scores is the table for every candidate that reached the scorer,
	// best first.
	Scores []*AssignmentScore

	// Rejections lists the vehicles filtered out before scoring.
	Rejections []CandidateRejection

	Alternatives  []Alternative
	Warnings      []string
	FailureReason FailureReason
	FastMode      bool
	Elapsed       time.Duration
}

// Assigned reports whether the dispatch produced a winning vehicle.
func (r *Result) Assigned() bool { return r.AssignedVehicleID != "" }

// CandidateCount is the number of vehicles that reached the scorer.
func (r *Result) CandidateCount() int { return len(r.Scores) }

// Dispatcher runs the end-to-end assignment for one order against one
// fleet snapshot: resolve the location, cut the candidate set by zone
// and by hard capacity limits, score the survivors in parallel and pick
// the best feasible vehicle. It never mutates vehicle state; committing
// the assignment is the caller's decision.
type Dispatcher struct {
	scorer    *Scorer
	geocoder  ports.Geocoder
	partition *zones.Partition
	clock     shared.Clock
}

// NewDispatcher creates a dispatcher. The geocoder may be nil when
// callers always provide resolved locations; the partition may be nil
// to disable zone filtering.
func NewDispatcher(scorer *Scorer, geocoder ports.Geocoder, partition *zones.Partition, clock shared.Clock) *Dispatcher {
	return &Dispatcher{scorer: scorer, geocoder: geocoder, partition: partition, clock: clock}
}

// Dispatch decides which vehicle, if any, takes the order. Identical
// inputs always produce the same verdict regardless of how the parallel
// evaluations interleave, because candidates are reduced in sorted
// order with a vehicle-id tie-break.
func (d *Dispatcher) Dispatch(ctx context.Context, o *order.Order, vehicles fleet.Fleet, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	started := d.clock.Now()
	deadline := started.Add(opts.TimeBudget)

	result := &Result{OrderID: o.ID(), FastMode: opts.FastMode}
	defer func() { result.Elapsed = d.clock.Now().Sub(started) }()

	if err := d.resolveLocation(ctx, o); err != nil {
		if errors.Is(err, ports.ErrAddressNotFound) {
			result.FailureReason = FailureUnresolvedAddress
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("address %q could not be resolved to coordinates", o.Address().FullText()))
			return result, nil
		}
		return nil, err
	}

	candidates, zoneRejections, zoneWarnings := d.zoneFilter(o, vehicles)
	result.Rejections = append(result.Rejections, zoneRejections...)
	result.Warnings = append(result.Warnings, zoneWarnings...)

	candidates, hardRejections := hardFilter(o, candidates)
	result.Rejections = append(result.Rejections, hardRejections...)
	if len(candidates) == 0 {
		result.FailureReason = FailureNoCapacity
		return result, nil
	}

	if !d.clock.Now().Before(deadline) {
		result.FailureReason = FailureTimeBudgetExceeded
		return result, nil
	}

	full, approximate := splitFastMode(candidates, *o.Location(), opts)
	scores, err := d.scoreCandidates(ctx, full, approximate, o, started, opts)
	if err != nil {
		return nil, err
	}
	sortScores(scores)

	winner := pickWinner(scores)
	if winner == nil && len(approximate) > 0 {
		byID := vehicleIndex(candidates)
		promoted, budgetHit, err := d.promoteApproximate(ctx, scores, byID, o, started, deadline, opts)
		if err != nil {
			return nil, err
		}
		sortScores(scores)
		if budgetHit && promoted == nil {
			result.Scores = scores
			result.FailureReason = FailureTimeBudgetExceeded
			return result, nil
		}
		winner = promoted
	}

	result.Scores = scores
	if winner == nil {
		result.FailureReason = FailureInfeasibleAll
		return result, nil
	}

	result.AssignedVehicleID = winner.VehicleID
	result.Winning = winner
	result.Route = winner.Route
	result.Alternatives = collectAlternatives(scores, winner.VehicleID)
	d.addWarnings(result, winner, candidates.FindByID(winner.VehicleID), o, started, opts)
	return result, nil
}

// resolveLocation geocodes the order address when no coordinate was
// provided. A missing geocoder counts as exhausted resolution.
func (d *Dispatcher) resolveLocation(ctx context.Context, o *order.Order) error {
	if o.Location() != nil {
		return nil
	}
	if !o.Address().Resolvable() {
		return ports.ErrAddressNotFound
	}
	if d.geocoder == nil {
		return ports.ErrAddressNotFound
	}
	resolved, err := d.geocoder.Geocode(ctx, o.Address())
	if err != nil {
		return err
	}
	o.SetLocation(resolved.Coordinate)
	return nil
}

// zoneFilter drops vehicles in zones neither equal nor adjacent to the
// order's zone. An order outside the partition disables the filter; a
// filter that would empty the candidate set is skipped with a warning
// instead, since a far vehicle still beats no vehicle.
func (d *Dispatcher) zoneFilter(o *order.Order, vehicles fleet.Fleet) (fleet.Fleet, []CandidateRejection, []string) {
	if d.partition == nil {
		return vehicles, nil, nil
	}
	orderZone, ok := d.partition.Classify(*o.Location())
	if !ok {
		return vehicles, nil, []string{"order location is outside zone coverage, zone filter skipped"}
	}
	allowed := d.partition.AllowedFor(orderZone)

	kept := make(fleet.Fleet, 0, len(vehicles))
	var rejections []CandidateRejection
	for _, v := range vehicles {
		vehicleZone, inZone := d.partition.Classify(v.Location())
		if inZone && allowed[vehicleZone] {
			kept = append(kept, v)
			continue
		}
		detail := fmt.Sprintf("vehicle in %s, order in %s", vehicleZone, orderZone)
		if !inZone {
			detail = fmt.Sprintf("vehicle outside zone coverage, order in %s", orderZone)
		}
		rejections = append(rejections, CandidateRejection{VehicleID: v.ID(), Kind: RejectionOutOfZone, Detail: detail})
	}

	if len(kept) == 0 && len(vehicles) > 0 {
		warning := fmt.Sprintf("no vehicles in or adjacent to zone %s, zone filter skipped", orderZone)
		return vehicles, nil, []string{warning}
	}
	return kept, rejections, nil
}

// hardFilter removes vehicles without a free slot or without weight
// budget for the order.
func hardFilter(o *order.Order, vehicles fleet.Fleet) (fleet.Fleet, []CandidateRejection) {
	kept := make(fleet.Fleet, 0, len(vehicles))
	var rejections []CandidateRejection
	for _, v := range vehicles {
		switch {
		case !v.HasCapacity():
			rejections = append(rejections, CandidateRejection{
				VehicleID: v.ID(),
				Kind:      RejectionNoCapacity,
				Detail:    fmt.Sprintf("%d/%d slots in use", v.CurrentLoad(), v.Capacity()),
			})
		case !v.CanCarry(o.WeightKg()):
			rejections = append(rejections, CandidateRejection{
				VehicleID: v.ID(),
				Kind:      RejectionOverWeight,
				Detail:    fmt.Sprintf("%.1f kg available, order weighs %.1f kg", v.AvailableWeightKg(), o.WeightKg()),
			})
		default:
			kept = append(kept, v)
		}
	}
	return kept, rejections
}

// splitFastMode ranks candidates by straight-line proximity to the
// order and splits off everything past the top-K for approximate
// scoring. Outside fast mode every candidate is evaluated fully.
func splitFastMode(candidates fleet.Fleet, target shared.Coordinate, opts Options) (fleet.Fleet, fleet.Fleet) {
	if !opts.FastMode || len(candidates) <= opts.MaxCandidates {
		return candidates, nil
	}

	type rankedVehicle struct {
		vehicle  *fleet.Vehicle
		distance float64
	}
	ranked := make([]rankedVehicle, len(candidates))
	for i, v := range candidates {
		loc := v.Location()
		ranked[i] = rankedVehicle{
			vehicle:  v,
			distance: geoutil.EuclideanDegrees(loc.Lat, loc.Lon, target.Lat, target.Lon),
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].distance != ranked[j].distance {
			return ranked[i].distance < ranked[j].distance
		}
		return ranked[i].vehicle.ID() < ranked[j].vehicle.ID()
	})

	split := make(fleet.Fleet, len(ranked))
	for i, r := range ranked {
		split[i] = r.vehicle
	}
	return split[:opts.MaxCandidates], split[opts.MaxCandidates:]
}

// scoreCandidates fans the evaluations out over a bounded worker pool.
// Every result lands in its own slot, so completion order cannot leak
// into the verdict.
func (d *Dispatcher) scoreCandidates(
	ctx context.Context,
	full, approximate fleet.Fleet,
	o *order.Order,
	at time.Time,
	opts Options,
) ([]*AssignmentScore, error) {
	all := make(fleet.Fleet, 0, len(full)+len(approximate))
	all = append(all, full...)
	all = append(all, approximate...)

	scores := make([]*AssignmentScore, len(all))
	errs := make([]error, len(all))
	sem := make(chan struct{}, opts.MaxWorkers)
	var wg sync.WaitGroup

	for i, vehicle := range all {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, vehicle *fleet.Vehicle) {
			defer wg.Done()
			defer func() { <-sem }()
			if i < len(full) {
				scores[i], errs[i] = d.scorer.Score(ctx, vehicle, o, at, opts)
				return
			}
			scores[i], errs[i] = d.scorer.ScoreApproximate(vehicle, o, at, opts)
		}(i, vehicle)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return scores, nil
}

// sortScores orders the table by total descending with a vehicle-id
// tie-break, the rule that keeps repeated dispatches reproducible.
func sortScores(scores []*AssignmentScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Total != scores[j].Total {
			return scores[i].Total > scores[j].Total
		}
		return scores[i].VehicleID < scores[j].VehicleID
	})
}

// pickWinner returns the best fully evaluated feasible candidate.
// Approximate scores never win directly; they must be promoted first.
func pickWinner(scores []*AssignmentScore) *AssignmentScore {
	for _, s := range scores {
		if s.Feasible && !s.Approximate && s.Total > 0 {
			return s
		}
	}
	return nil
}

// promoteApproximate upgrades approximate candidates to full
// evaluations, best first, until one is feasible. It only runs when
// every top-K candidate turned out infeasible.
func (d *Dispatcher) promoteApproximate(
	ctx context.Context,
	scores []*AssignmentScore,
	byID map[string]*fleet.Vehicle,
	o *order.Order,
	at time.Time,
	deadline time.Time,
	opts Options,
) (*AssignmentScore, bool, error) {
	for i, score := range scores {
		if !score.Approximate {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		if !d.clock.Now().Before(deadline) {
			return nil, true, nil
		}
		full, err := d.scorer.Score(ctx, byID[score.VehicleID], o, at, opts)
		if err != nil {
			return nil, false, err
		}
		scores[i] = full
		if full.Feasible && full.Total > 0 {
			return full, false, nil
		}
	}
	return nil, false, nil
}

func vehicleIndex(vehicles fleet.Fleet) map[string]*fleet.Vehicle {
	byID := make(map[string]*fleet.Vehicle, len(vehicles))
	for _, v := range vehicles {
		byID[v.ID()] = v
	}
	return byID
}

func collectAlternatives(scores []*AssignmentScore, winnerID string) []Alternative {
	alternatives := make([]Alternative, 0, maxAlternatives)
	for _, s := range scores {
		if s.VehicleID == winnerID || !s.Feasible {
			continue
		}
		alternatives = append(alternatives, Alternative{
			VehicleID:  s.VehicleID,
			Total:      s.Total,
			DistanceKm: s.DistanceKm,
		})
		if len(alternatives) == maxAlternatives {
			break
		}
	}
	return alternatives
}

func (d *Dispatcher) addWarnings(result *Result, winner *AssignmentScore, vehicle *fleet.Vehicle, o *order.Order, at time.Time, opts Options) {
	if winner.Total < opts.LowScoreThreshold {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("winning score %.2f is below the %.2f confidence threshold", winner.Total, opts.LowScoreThreshold))
	}
	if margin := o.SlackMinutes(at) - winner.EstimatedArrivalMin; margin < tightArrivalMarginMin {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("estimated arrival leaves only %.1f min before the deadline of order %s", margin, o.ID()))
	}
	if vehicle == nil {
		return
	}
	if remaining := vehicle.AvailableSlots() - 1; remaining <= 1 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("vehicle %s will have %d free slots left after this assignment", vehicle.ID(), remaining))
	}
}
