// Package order holds the delivery order aggregate and its lifecycle.
package order

import (
	"fmt"
	"time"

	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// Status tracks an order through the delivery lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAssigned  Status = "assigned"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

var validStatuses = map[Status]bool{
	StatusPending:   true,
	StatusAssigned:  true,
	StatusDelivered: true,
	StatusFailed:    true,
}

var validTransitions = map[Status][]Status{
	StatusPending:   {StatusAssigned, StatusFailed},
	StatusAssigned:  {StatusDelivered, StatusFailed},
	StatusDelivered: {},
	StatusFailed:    {},
}

// Order is a customer delivery request.
//
// Invariants:
//   - The deadline is strictly after the creation time.
//   - Weight and estimated handling duration are never negative.
//   - Status only moves forward through the lifecycle: pending orders
//     can be assigned or failed, assigned orders delivered or failed.
type Order struct {
	id                   string
	address              shared.Address
	deadline             time.Time
	priority             shared.Priority
	weightKg             float64
	estimatedDurationMin float64
	createdAt            time.Time
	status               Status
}

// NewOrder creates a pending order with validation
func NewOrder(
	id string,
	address shared.Address,
	deadline time.Time,
	priority shared.Priority,
	weightKg float64,
	estimatedDurationMin float64,
	createdAt time.Time,
) (*Order, error) {
	o := &Order{
		id:                   id,
		address:              address,
		deadline:             deadline,
		priority:             priority,
		weightKg:             weightKg,
		estimatedDurationMin: estimatedDurationMin,
		createdAt:            createdAt,
		status:               StatusPending,
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Order) validate() error {
	if o.id == "" {
		return shared.NewInvalidOrderDataError(o.id, "order id cannot be empty")
	}
	if !o.address.Resolvable() {
		return shared.NewInvalidOrderDataError(o.id, "order address carries neither coordinates nor resolvable text")
	}
	if o.createdAt.IsZero() {
		return shared.NewInvalidOrderDataError(o.id, "order creation time cannot be zero")
	}
	if o.deadline.IsZero() || !o.deadline.After(o.createdAt) {
		return shared.NewInvalidOrderDataError(o.id,
			fmt.Sprintf("deadline %s must be after creation time %s",
				o.deadline.Format(time.RFC3339), o.createdAt.Format(time.RFC3339)))
	}
	if !o.priority.IsValid() {
		return shared.NewInvalidOrderDataError(o.id, fmt.Sprintf("unknown priority '%s'", o.priority))
	}
	if o.weightKg < 0 {
		return shared.NewInvalidOrderDataError(o.id, fmt.Sprintf("weight %.2f kg cannot be negative", o.weightKg))
	}
	if o.estimatedDurationMin < 0 {
		return shared.NewInvalidOrderDataError(o.id,
			fmt.Sprintf("estimated duration %.1f min cannot be negative", o.estimatedDurationMin))
	}
	return nil
}

// ID returns the order identifier
func (o *Order) ID() string { return o.id }

// Address returns the delivery address
func (o *Order) Address() shared.Address { return o.address }

// Deadline returns the promised delivery time
func (o *Order) Deadline() time.Time { return o.deadline }

// Priority returns the dispatch priority
func (o *Order) Priority() shared.Priority { return o.priority }

// WeightKg returns the package weight in kilograms
func (o *Order) WeightKg() float64 { return o.weightKg }

// EstimatedDurationMin returns the expected handling time at the stop
func (o *Order) EstimatedDurationMin() float64 { return o.estimatedDurationMin }

// CreatedAt returns when the order entered the system
func (o *Order) CreatedAt() time.Time { return o.createdAt }

// Status returns the current lifecycle status
func (o *Order) Status() Status { return o.status }

// Location returns the resolved delivery coordinate, or nil when the
// address has not been geocoded yet.
func (o *Order) Location() *shared.Coordinate {
	return o.address.Location
}

// SetLocation records the geocoded delivery coordinate on the address.
func (o *Order) SetLocation(c shared.Coordinate) {
	o.address.Location = &c
}

// SlackMinutes returns how many minutes remain until the deadline,
// negative when the deadline already passed.
func (o *Order) SlackMinutes(now time.Time) float64 {
	return o.deadline.Sub(now).Minutes()
}

// Assign marks the order as committed to a vehicle.
func (o *Order) Assign() error {
	return o.transition(StatusAssigned)
}

// MarkDelivered completes the order.
func (o *Order) MarkDelivered() error {
	return o.transition(StatusDelivered)
}

// MarkFailed terminates the order without delivery.
func (o *Order) MarkFailed() error {
	return o.transition(StatusFailed)
}

func (o *Order) transition(to Status) error {
	if !validStatuses[to] {
		return shared.NewInvalidOrderTransitionError(o.id, string(o.status), string(to))
	}
	for _, allowed := range validTransitions[o.status] {
		if allowed == to {
			o.status = to
			return nil
		}
	}
	return shared.NewInvalidOrderTransitionError(o.id, string(o.status), string(to))
}

// Clone returns an independent copy of the order. The copy shares no
// mutable state with the original.
func (o *Order) Clone() *Order {
	clone := *o
	if o.address.Location != nil {
		loc := *o.address.Location
		clone.address.Location = &loc
	}
	return &clone
}

func (o *Order) String() string {
	return fmt.Sprintf("order %s (%s, due %s)", o.id, o.priority, o.deadline.Format(time.RFC3339))
}
