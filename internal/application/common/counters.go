package common

import "sync/atomic"

// Counters tracks request volume since process start. All methods are
// nil-safe so handlers can run without instrumentation in tests.
type Counters struct {
	dispatchRequests atomic.Int64
	batchRequests    atomic.Int64
	ordersProcessed  atomic.Int64
	geocodeRequests  atomic.Int64
	reverseRequests  atomic.Int64
}

// CounterSnapshot is a point-in-time copy of the counters.
type CounterSnapshot struct {
	DispatchRequests int64 `json:"dispatch_requests"`
	BatchRequests    int64 `json:"batch_requests"`
	OrdersProcessed  int64 `json:"orders_processed"`
	GeocodeRequests  int64 `json:"geocode_requests"`
	ReverseRequests  int64 `json:"reverse_requests"`
}

// NewCounters creates a zeroed counter set.
func NewCounters() *Counters {
	return &Counters{}
}

// DispatchSeen records one single-order dispatch request.
func (c *Counters) DispatchSeen() {
	if c == nil {
		return
	}
	c.dispatchRequests.Add(1)
	c.ordersProcessed.Add(1)
}

// BatchSeen records one batch request carrying the given order count.
func (c *Counters) BatchSeen(orders int) {
	if c == nil {
		return
	}
	c.batchRequests.Add(1)
	c.ordersProcessed.Add(int64(orders))
}

// GeocodeSeen records one forward geocoding request.
func (c *Counters) GeocodeSeen() {
	if c == nil {
		return
	}
	c.geocodeRequests.Add(1)
}

// ReverseSeen records one reverse geocoding request.
func (c *Counters) ReverseSeen() {
	if c == nil {
		return
	}
	c.reverseRequests.Add(1)
}

// Snapshot returns the current counter values.
func (c *Counters) Snapshot() CounterSnapshot {
	if c == nil {
		return CounterSnapshot{}
	}
	return CounterSnapshot{
		DispatchRequests: c.dispatchRequests.Load(),
		BatchRequests:    c.batchRequests.Load(),
		OrdersProcessed:  c.ordersProcessed.Load(),
		GeocodeRequests:  c.geocodeRequests.Load(),
		ReverseRequests:  c.reverseRequests.Load(),
	}
}
