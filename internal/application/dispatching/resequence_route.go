package dispatching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andrescamacho/dispatch-go/internal/application/common"
	"github.com/andrescamacho/dispatch-go/internal/domain/order"
	"github.com/andrescamacho/dispatch-go/internal/domain/ports"
	"github.com/andrescamacho/dispatch-go/internal/domain/routing"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// ResequenceRouteCommand represents a command to replan the visiting
// order of one vehicle's committed stops.
type ResequenceRouteCommand struct {
	VehicleID string
	Start     shared.Coordinate
	Orders    []*order.Order
	// DepartAt is the moment the vehicle leaves Start; zero means now.
	DepartAt time.Time
	Options  routing.Options
}

// ResequenceRouteResponse carries the replanned route.
type ResequenceRouteResponse struct {
	VehicleID string
	Plan      *routing.Result
}

// ResequenceRouteHandler handles the ResequenceRoute command.
type ResequenceRouteHandler struct {
	sequencer *routing.Sequencer
	geocoder  ports.Geocoder
	clock     shared.Clock
}

// NewResequenceRouteHandler creates a new ResequenceRouteHandler. The
// geocoder may be nil; orders must then arrive with coordinates.
func NewResequenceRouteHandler(
	sequencer *routing.Sequencer,
	geocoder ports.Geocoder,
	clock shared.Clock,
) *ResequenceRouteHandler {
	return &ResequenceRouteHandler{
		sequencer: sequencer,
		geocoder:  geocoder,
		clock:     clock,
	}
}

// Handle executes the ResequenceRoute command.
func (h *ResequenceRouteHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	cmd, ok := request.(*ResequenceRouteCommand)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *ResequenceRouteCommand")
	}

	if len(cmd.Orders) == 0 {
		return nil, shared.NewValidationError("orders", "at least one order is required")
	}

	for _, o := range cmd.Orders {
		if err := h.resolveLocation(ctx, o); err != nil {
			return nil, err
		}
	}

	departAt := cmd.DepartAt
	if departAt.IsZero() {
		departAt = h.clock.Now()
	}

	plan, err := h.sequencer.Sequence(ctx, cmd.Start, cmd.Orders, departAt, cmd.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to resequence route for vehicle %s: %w", cmd.VehicleID, err)
	}

	return &ResequenceRouteResponse{VehicleID: cmd.VehicleID, Plan: plan}, nil
}

// resolveLocation fills a missing order coordinate via the geocoder. An
// unresolvable address is a caller error here: resequencing existing
// commitments cannot proceed with an unknown stop.
func (h *ResequenceRouteHandler) resolveLocation(ctx context.Context, o *order.Order) error {
	if o == nil {
		return shared.NewValidationError("orders", "order cannot be nil")
	}
	if o.Location() != nil {
		return nil
	}
	if h.geocoder == nil || !o.Address().Resolvable() {
		return shared.NewValidationError("orders",
			fmt.Sprintf("order %s has no resolvable address", o.ID()))
	}

	resolved, err := h.geocoder.Geocode(ctx, o.Address())
	if errors.Is(err, ports.ErrAddressNotFound) {
		return shared.NewValidationError("orders",
			fmt.Sprintf("order %s has no resolvable address", o.ID()))
	}
	if err != nil {
		return fmt.Errorf("failed to geocode order %s: %w", o.ID(), err)
	}

	o.SetLocation(resolved.Coordinate)
	return nil
}
