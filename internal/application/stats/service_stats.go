// Package stats exposes the service statistics query.
package stats

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/andrescamacho/dispatch-go/internal/application/common"
	"github.com/andrescamacho/dispatch-go/internal/domain/ports"
	"github.com/andrescamacho/dispatch-go/internal/domain/routing"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// ServiceStatsQuery represents a query for service statistics.
type ServiceStatsQuery struct{}

// ServiceStatsResponse aggregates in-process counters with persisted
// history and component state. Sections backed by an absent or failing
// component are nil rather than an error.
type ServiceStatsResponse struct {
	StartedAt           time.Time
	Uptime              time.Duration
	Counters            common.CounterSnapshot
	Assignments         *ports.AssignmentStats
	GeocodeCacheEntries int64
	Geocoder            *ports.GeocoderStats
	Network             *routing.NetworkStats
}

// ServiceStatsHandler handles the ServiceStats query.
type ServiceStatsHandler struct {
	assignments  ports.AssignmentRecordRepository
	geocodeCache ports.GeocodeCacheRepository
	geocoder     ports.GeocoderInspector
	network      routing.NetworkInspector
	counters     *common.Counters
	clock        shared.Clock
	startedAt    time.Time
}

// NewServiceStatsHandler creates a new ServiceStatsHandler. Every
// dependency except the clock may be nil.
func NewServiceStatsHandler(
	assignments ports.AssignmentRecordRepository,
	geocodeCache ports.GeocodeCacheRepository,
	geocoder ports.GeocoderInspector,
	network routing.NetworkInspector,
	counters *common.Counters,
	clock shared.Clock,
) *ServiceStatsHandler {
	return &ServiceStatsHandler{
		assignments:  assignments,
		geocodeCache: geocodeCache,
		geocoder:     geocoder,
		network:      network,
		counters:     counters,
		clock:        clock,
		startedAt:    clock.Now(),
	}
}

// Handle executes the ServiceStats query.
func (h *ServiceStatsHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	_, ok := request.(*ServiceStatsQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *ServiceStatsQuery")
	}

	response := &ServiceStatsResponse{
		StartedAt: h.startedAt,
		Uptime:    h.clock.Now().Sub(h.startedAt),
		Counters:  h.counters.Snapshot(),
	}

	if h.assignments != nil {
		history, err := h.assignments.Stats(ctx)
		if err != nil {
			log.Printf("Warning: failed to load assignment stats: %v", err)
		} else {
			response.Assignments = history
		}
	}

	if h.geocodeCache != nil {
		entries, err := h.geocodeCache.Count(ctx)
		if err != nil {
			log.Printf("Warning: failed to count geocode cache: %v", err)
		} else {
			response.GeocodeCacheEntries = entries
		}
	}

	if h.geocoder != nil {
		gs := h.geocoder.Stats()
		response.Geocoder = &gs
	}

	if h.network != nil {
		ns := h.network.Stats()
		response.Network = &ns
	}

	return response, nil
}
