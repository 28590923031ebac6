// Package api exposes the dispatch service over HTTP: a chi router,
// JSON DTOs validated with go-playground/validator, and an audit log
// middleware. Handlers translate requests into mediator commands and
// domain verdicts back into wire shapes; a failed assignment is a 200
// with a failure_reason, never an error status.
package api

import (
	"time"

	"github.com/andrescamacho/dispatch-go/internal/application/common"
	"github.com/andrescamacho/dispatch-go/internal/domain/dispatch"
	"github.com/andrescamacho/dispatch-go/internal/domain/fleet"
	"github.com/andrescamacho/dispatch-go/internal/domain/order"
	"github.com/andrescamacho/dispatch-go/internal/domain/ports"
	"github.com/andrescamacho/dispatch-go/internal/domain/routing"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// AddressDTO mirrors shared.Address on the wire. Either free_text, the
// street fields or an explicit coordinate pair must be present.
type AddressDTO struct {
	FreeText   string   `json:"free_text,omitempty"`
	Street     string   `json:"street,omitempty"`
	Number     string   `json:"number,omitempty"`
	Corner1    string   `json:"corner_1,omitempty"`
	Corner2    string   `json:"corner_2,omitempty"`
	City       string   `json:"city,omitempty"`
	Country    string   `json:"country,omitempty"`
	PostalCode string   `json:"postal_code,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty" validate:"omitempty,min=-90,max=90"`
	Longitude  *float64 `json:"longitude,omitempty" validate:"omitempty,min=-180,max=180"`
}

func (a AddressDTO) toDomain() (shared.Address, error) {
	addr := shared.Address{
		FreeText:   a.FreeText,
		Street:     a.Street,
		Number:     a.Number,
		Corner1:    a.Corner1,
		Corner2:    a.Corner2,
		City:       a.City,
		Country:    a.Country,
		PostalCode: a.PostalCode,
	}
	if a.Latitude != nil && a.Longitude != nil {
		c, err := shared.NewCoordinate(*a.Latitude, *a.Longitude)
		if err != nil {
			return shared.Address{}, err
		}
		addr.Location = &c
	}
	if !addr.Resolvable() {
		return shared.Address{}, shared.NewValidationError("address",
			"address needs a coordinate, free text or street fields")
	}
	return addr, nil
}

func addressFromDomain(a *shared.Address) *AddressDTO {
	if a == nil {
		return nil
	}
	dto := &AddressDTO{
		FreeText:   a.FreeText,
		Street:     a.Street,
		Number:     a.Number,
		Corner1:    a.Corner1,
		Corner2:    a.Corner2,
		City:       a.City,
		Country:    a.Country,
		PostalCode: a.PostalCode,
	}
	if a.Location != nil {
		lat, lon := a.Location.Lat, a.Location.Lon
		dto.Latitude = &lat
		dto.Longitude = &lon
	}
	return dto
}

// OrderDTO mirrors order.Order on the wire.
type OrderDTO struct {
	ID                   string     `json:"id" validate:"required"`
	Address              AddressDTO `json:"address"`
	Deadline             time.Time  `json:"deadline" validate:"required"`
	Priority             string     `json:"priority,omitempty"`
	WeightKg             float64    `json:"weight_kg" validate:"gte=0"`
	EstimatedDurationMin float64    `json:"estimated_duration_min" validate:"gte=0"`
	// CreatedAt defaults to the server clock when absent.
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func (o OrderDTO) toDomain(now time.Time) (*order.Order, error) {
	addr, err := o.Address.toDomain()
	if err != nil {
		return nil, err
	}
	priority, err := shared.ParsePriority(o.Priority)
	if err != nil {
		return nil, err
	}
	createdAt := now
	if o.CreatedAt != nil && !o.CreatedAt.IsZero() {
		createdAt = *o.CreatedAt
	}
	return order.NewOrder(o.ID, addr, o.Deadline, priority, o.WeightKg, o.EstimatedDurationMin, createdAt)
}

func ordersToDomain(dtos []OrderDTO, now time.Time) ([]*order.Order, error) {
	orders := make([]*order.Order, 0, len(dtos))
	for _, dto := range dtos {
		o, err := dto.toDomain(now)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, nil
}

// VehicleDTO mirrors fleet.Vehicle on the wire.
type VehicleDTO struct {
	ID               string     `json:"id" validate:"required"`
	DriverName       string     `json:"driver_name,omitempty"`
	Latitude         float64    `json:"latitude" validate:"min=-90,max=90"`
	Longitude        float64    `json:"longitude" validate:"min=-180,max=180"`
	Capacity         int        `json:"capacity" validate:"required,gt=0"`
	MaxWeightKg      float64    `json:"max_weight_kg" validate:"required,gt=0"`
	PerformanceScore *float64   `json:"performance_score,omitempty"`
	CurrentOrders    []OrderDTO `json:"current_orders,omitempty" validate:"dive"`
}

func (v VehicleDTO) toDomain(now time.Time) (*fleet.Vehicle, error) {
	location, err := shared.NewCoordinate(v.Latitude, v.Longitude)
	if err != nil {
		return nil, err
	}
	vehicle, err := fleet.NewVehicle(v.ID, v.DriverName, location, v.Capacity, v.MaxWeightKg, v.PerformanceScore)
	if err != nil {
		return nil, err
	}
	for _, dto := range v.CurrentOrders {
		o, err := dto.toDomain(now)
		if err != nil {
			return nil, err
		}
		if err := o.Assign(); err != nil {
			return nil, err
		}
		if err := vehicle.Assign(o); err != nil {
			return nil, err
		}
	}
	return vehicle, nil
}

func vehiclesToDomain(dtos []VehicleDTO, now time.Time) (fleet.Fleet, error) {
	vehicles := make(fleet.Fleet, 0, len(dtos))
	for _, dto := range dtos {
		v, err := dto.toDomain(now)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, nil
}

// DispatchOptionsDTO carries the per-request engine overrides.
type DispatchOptionsDTO struct {
	FastMode      *bool             `json:"fast_mode,omitempty"`
	MaxCandidates int               `json:"max_candidates,omitempty" validate:"omitempty,min=1,max=10"`
	TimeBudgetS   float64           `json:"time_budget_s,omitempty" validate:"omitempty,gt=0"`
	Weights       *dispatch.Weights `json:"weights,omitempty"`
}

// apply merges the request overrides onto the configured defaults.
func (d DispatchOptionsDTO) apply(defaults dispatch.Options) (dispatch.Options, error) {
	opts := defaults
	if d.FastMode != nil {
		opts.FastMode = *d.FastMode
	}
	if d.MaxCandidates > 0 {
		opts.MaxCandidates = d.MaxCandidates
	}
	if d.TimeBudgetS > 0 {
		opts.TimeBudget = time.Duration(d.TimeBudgetS * float64(time.Second))
	}
	if d.Weights != nil {
		if err := d.Weights.Validate(); err != nil {
			return dispatch.Options{}, shared.NewValidationError("options.weights", err.Error())
		}
		opts.Weights = *d.Weights
	}
	return opts, nil
}

// DispatchRequest is the body of POST /api/v1/dispatch.
type DispatchRequest struct {
	Order    OrderDTO           `json:"order"`
	Vehicles []VehicleDTO       `json:"vehicles" validate:"required,min=1,dive"`
	Options  DispatchOptionsDTO `json:"options"`
}

// DispatchResponse is the verdict for one order. AssignedVehicleID is
// null when no vehicle won; FailureReason then names why.
type DispatchResponse struct {
	OrderID           string                        `json:"order_id"`
	AssignedVehicleID *string                       `json:"assigned_vehicle_id"`
	Winning           *dispatch.AssignmentScore     `json:"winning_score,omitempty"`
	Route             *routing.Route                `json:"route,omitempty"`
	Scores            []*dispatch.AssignmentScore   `json:"all_vehicle_scores"`
	Rejections        []dispatch.CandidateRejection `json:"rejections,omitempty"`
	Alternatives      []dispatch.Alternative        `json:"alternatives,omitempty"`
	Warnings          []string                      `json:"warnings,omitempty"`
	FailureReason     string                        `json:"failure_reason,omitempty"`
	FastMode          bool                          `json:"fast_mode"`
	ElapsedMs         float64                       `json:"elapsed_ms"`
}

func dispatchResponseFromResult(res *dispatch.Result) DispatchResponse {
	out := DispatchResponse{
		OrderID:       res.OrderID,
		Winning:       res.Winning,
		Route:         res.Route,
		Scores:        res.Scores,
		Rejections:    res.Rejections,
		Alternatives:  res.Alternatives,
		Warnings:      res.Warnings,
		FailureReason: string(res.FailureReason),
		FastMode:      res.FastMode,
		ElapsedMs:     float64(res.Elapsed.Microseconds()) / 1000.0,
	}
	if res.Scores == nil {
		out.Scores = []*dispatch.AssignmentScore{}
	}
	if res.Assigned() {
		id := res.AssignedVehicleID
		out.AssignedVehicleID = &id
	}
	return out
}

// BatchOptionsDTO carries batch-level overrides on top of the per-order
// dispatch options. In a batch body, time_budget_s bounds the whole
// batch rather than a single decision.
type BatchOptionsDTO struct {
	DispatchOptionsDTO
	PrioritySort *bool `json:"priority_sort,omitempty"`
}

// apply merges the request overrides onto the configured batch
// defaults.
func (d BatchOptionsDTO) apply(defaults dispatch.BatchOptions) (dispatch.BatchOptions, error) {
	opts := defaults

	inner := d.DispatchOptionsDTO
	budgetS := inner.TimeBudgetS
	inner.TimeBudgetS = 0

	dispatchOpts, err := inner.apply(defaults.Dispatch)
	if err != nil {
		return dispatch.BatchOptions{}, err
	}
	opts.Dispatch = dispatchOpts

	if budgetS > 0 {
		opts.Budget = time.Duration(budgetS * float64(time.Second))
	}
	if d.PrioritySort != nil {
		opts.PrioritySort = *d.PrioritySort
	}
	return opts, nil
}

// BatchDispatchRequest is the body of POST /api/v1/dispatch/batch.
type BatchDispatchRequest struct {
	Orders   []OrderDTO      `json:"orders" validate:"required,min=1,dive"`
	Vehicles []VehicleDTO    `json:"vehicles" validate:"required,min=1,dive"`
	Options  BatchOptionsDTO `json:"options"`
}

// BatchSummaryDTO aggregates one batch run.
type BatchSummaryDTO struct {
	Total      int            `json:"total"`
	Assigned   int            `json:"assigned"`
	Unassigned int            `json:"unassigned"`
	ByReason   map[string]int `json:"by_reason,omitempty"`
	ElapsedMs  float64        `json:"elapsed_ms"`
}

// BatchDispatchResponse is the body of a batch verdict: per-order
// results in input order plus the summary.
type BatchDispatchResponse struct {
	BatchID string             `json:"batch_id"`
	Results []DispatchResponse `json:"results"`
	Summary BatchSummaryDTO    `json:"summary"`
}

func batchResponseFromResult(batchID string, batch *dispatch.BatchResult) BatchDispatchResponse {
	results := make([]DispatchResponse, len(batch.Results))
	for i, res := range batch.Results {
		results[i] = dispatchResponseFromResult(res)
	}

	byReason := make(map[string]int, len(batch.Summary.ByReason))
	for reason, count := range batch.Summary.ByReason {
		byReason[string(reason)] = count
	}

	return BatchDispatchResponse{
		BatchID: batchID,
		Results: results,
		Summary: BatchSummaryDTO{
			Total:      batch.Summary.Total,
			Assigned:   batch.Summary.Assigned,
			Unassigned: batch.Summary.Unassigned,
			ByReason:   byReason,
			ElapsedMs:  float64(batch.Summary.Elapsed.Microseconds()) / 1000.0,
		},
	}
}

// ResequenceRequest is the body of POST /api/v1/routes/resequence.
type ResequenceRequest struct {
	VehicleID string     `json:"vehicle_id" validate:"required"`
	Latitude  float64    `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64    `json:"longitude" validate:"min=-180,max=180"`
	Orders    []OrderDTO `json:"orders" validate:"required,min=1,dive"`
	DepartAt  *time.Time `json:"depart_at,omitempty"`
	// TimeBudgetS bounds the sequencing search.
	TimeBudgetS float64 `json:"time_budget_s,omitempty" validate:"omitempty,gt=0"`
}

// ResequenceResponse carries the replanned route.
type ResequenceResponse struct {
	VehicleID        string         `json:"vehicle_id"`
	Route            *routing.Route `json:"route"`
	Feasible         bool           `json:"feasible"`
	AllOnTime        bool           `json:"all_on_time"`
	Violations       int            `json:"violations,omitempty"`
	ViolatingOrderID string         `json:"violating_order_id,omitempty"`
	Exact            bool           `json:"exact"`
}

func resequenceResponseFromResult(vehicleID string, plan *routing.Result) ResequenceResponse {
	return ResequenceResponse{
		VehicleID:        vehicleID,
		Route:            plan.Route,
		Feasible:         plan.Feasible,
		AllOnTime:        plan.Route != nil && plan.Route.AllOnTime,
		Violations:       plan.Violations,
		ViolatingOrderID: plan.ViolatingOrderID,
		Exact:            plan.Exact,
	}
}

// GeocodeRequest is the body of POST /api/v1/geocode.
type GeocodeRequest struct {
	Address AddressDTO `json:"address"`
}

// GeocodeResponse carries the forward geocoding answer. Found is false
// when every strategy was exhausted without a match.
type GeocodeResponse struct {
	Found       bool    `json:"found"`
	Latitude    float64 `json:"latitude,omitempty"`
	Longitude   float64 `json:"longitude,omitempty"`
	DisplayName string  `json:"display_name,omitempty"`
	Confidence  float64 `json:"confidence,omitempty"`
}

func geocodeResponseFromResult(found bool, res *ports.GeocodeResult) GeocodeResponse {
	if !found || res == nil {
		return GeocodeResponse{Found: false}
	}
	return GeocodeResponse{
		Found:       true,
		Latitude:    res.Coordinate.Lat,
		Longitude:   res.Coordinate.Lon,
		DisplayName: res.DisplayName,
		Confidence:  res.Confidence,
	}
}

// ReverseGeocodeRequest is the body of POST /api/v1/geocode/reverse.
type ReverseGeocodeRequest struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// ReverseGeocodeResponse carries the closest known address, if any.
type ReverseGeocodeResponse struct {
	Found   bool        `json:"found"`
	Address *AddressDTO `json:"address,omitempty"`
}

// StreetsResponse is the body of GET /api/v1/streets.
type StreetsResponse struct {
	Streets []string `json:"streets"`
	Count   int      `json:"count"`
}

// StatsResponse is the body of GET /api/v1/stats.
type StatsResponse struct {
	StartedAt           time.Time              `json:"started_at"`
	UptimeS             float64                `json:"uptime_s"`
	Counters            common.CounterSnapshot `json:"counters"`
	Assignments         *AssignmentStatsDTO    `json:"assignments,omitempty"`
	GeocodeCacheEntries int64                  `json:"geocode_cache_entries"`
	Geocoder            *ports.GeocoderStats   `json:"geocoder,omitempty"`
	Network             *routing.NetworkStats  `json:"network,omitempty"`
}

// AssignmentStatsDTO aggregates the persisted audit trail.
type AssignmentStatsDTO struct {
	Total         int64            `json:"total"`
	Assigned      int64            `json:"assigned"`
	Unassigned    int64            `json:"unassigned"`
	ByReason      map[string]int64 `json:"by_reason,omitempty"`
	AvgDurationMs float64          `json:"avg_duration_ms"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	UptimeS    float64           `json:"uptime_s"`
	Components map[string]string `json:"components"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
}
