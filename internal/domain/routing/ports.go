// Package routing holds the road-network port, the route model and the
// stop sequencer used by dispatch decisions.
package routing

import (
	"context"

	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// TravelEstimate is the network's answer for one leg.
type TravelEstimate struct {
	Minutes    float64
	DistanceKm float64
	// Approximate marks estimates derived from great-circle distance
	// instead of a road-network path.
	Approximate bool
}

// NetworkProvider computes travel times over the road network.
//
// Implementations must be safe for concurrent use: candidate
// evaluations fan out over a worker pool and share one provider.
type NetworkProvider interface {
	// TravelTime estimates one leg. Unreachable pairs degrade to an
	// approximate great-circle estimate rather than an error.
	TravelTime(ctx context.Context, from, to shared.Coordinate) (TravelEstimate, error)

	// TravelTimeMatrix estimates all point-to-point legs at once.
	// The result is square with len(points) rows; the diagonal is zero.
	TravelTimeMatrix(ctx context.Context, points []shared.Coordinate) ([][]TravelEstimate, error)
}

// NetworkStats describes the state of a provider's graph and caches.
type NetworkStats struct {
	PreloadedGraph   bool   `json:"preloaded_graph"`
	PreloadedArea    string `json:"preloaded_area,omitempty"`
	GraphNodes       int    `json:"graph_nodes"`
	GraphEdges       int    `json:"graph_edges"`
	CachedAreaGraphs int    `json:"cached_area_graphs"`
	CachedRoutes     int    `json:"cached_routes"`
}

// NetworkInspector is implemented by providers that expose cache and
// preload state for the health and stats endpoints.
type NetworkInspector interface {
	Stats() NetworkStats
}

// StreetIndex searches street names known to the loaded road network.
type StreetIndex interface {
	SearchStreets(query string, limit int) []string
}
