// Package graph serves road-network travel times from OpenStreetMap
// data: a preloaded metropolitan graph answers most queries, smaller
// area graphs are built on demand behind a per-area single-flight, and
// exact route results are memoized.
package graph

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/andrescamacho/dispatch-go/internal/domain/routing"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
	"github.com/andrescamacho/dispatch-go/pkg/geoutil"
)

// defaultOnDemandRadiusM sizes area graphs for points outside the
// preloaded box.
const defaultOnDemandRadiusM = 5000.0

// Provider implements routing.NetworkProvider over OpenStreetMap road
// graphs.
//
// Caching strategy (two-tier):
//   - Preloaded metropolitan graph, fetched once at startup, answers
//     every query whose endpoints fall inside its bounding box.
//   - On-demand area graphs for everything else, built at most once per
//     bounding box (per-area locks, double-check after acquiring).
//   - Route-level memoization keyed by endpoints rounded to 5 decimals;
//     approximate results are never memoized.
type Provider struct {
	fetcher  Fetcher
	box      BBox
	areaName string
	radiusM  float64

	mu        sync.RWMutex
	preloaded *RoadGraph
	preloadMu sync.Mutex

	areaGraphs sync.Map // bbox string -> *RoadGraph
	buildLocks sync.Map // bbox string -> *sync.Mutex
	routeCache sync.Map // endpoint key -> routing.TravelEstimate
	areaCount  atomic.Int64
	routeCount atomic.Int64
}

// NewProvider creates a provider preloading the Montevideo metro area.
func NewProvider(fetcher Fetcher) *Provider {
	return NewProviderWithConfig(fetcher, MontevideoBBox, "Montevideo", defaultOnDemandRadiusM)
}

// NewProviderWithConfig creates a provider with a custom preload box.
// Zero radius selects the default on-demand area size.
func NewProviderWithConfig(fetcher Fetcher, box BBox, areaName string, onDemandRadiusM float64) *Provider {
	if onDemandRadiusM <= 0 {
		onDemandRadiusM = defaultOnDemandRadiusM
	}
	return &Provider{
		fetcher:  fetcher,
		box:      box,
		areaName: areaName,
		radiusM:  onDemandRadiusM,
	}
}

// Preload fetches the metropolitan graph up front. Idempotent. On
// failure the provider keeps working in on-demand mode, so callers
// usually just log the returned error.
func (p *Provider) Preload(ctx context.Context) error {
	p.preloadMu.Lock()
	defer p.preloadMu.Unlock()

	p.mu.RLock()
	loaded := p.preloaded != nil
	p.mu.RUnlock()
	if loaded {
		return nil
	}

	log.Printf("Preloading road network for %s (%s)", p.areaName, p.box)
	g, err := p.fetcher.FetchNetwork(ctx, p.box)
	if err != nil {
		return fmt.Errorf("failed to preload road network for %s: %w", p.areaName, err)
	}

	p.mu.Lock()
	p.preloaded = g
	p.mu.Unlock()

	log.Printf("Road network for %s ready: %d nodes, %d edges", p.areaName, g.NodeCount(), g.EdgeCount())
	return nil
}

// TravelTime estimates one leg over the road network, degrading to a
// great-circle estimate when no graph or path covers the endpoints.
func (p *Provider) TravelTime(ctx context.Context, from, to shared.Coordinate) (routing.TravelEstimate, error) {
	if from == to {
		return routing.TravelEstimate{}, nil
	}

	key := routeKey(from, to)
	if cached, ok := p.routeCache.Load(key); ok {
		return cached.(routing.TravelEstimate), nil
	}

	estimate, ok := routeOver(p.graphCovering(ctx, from, to), from, to)
	if !ok {
		return p.fallback(from, to), nil
	}

	// Approximations are recomputed every time so a later graph build
	// can supersede them; only road results are remembered.
	if _, dup := p.routeCache.LoadOrStore(key, estimate); !dup {
		p.routeCount.Add(1)
	}
	return estimate, nil
}

// TravelTimeMatrix estimates all point-to-point legs over one shared
// graph, running a single Dijkstra sweep per origin.
func (p *Provider) TravelTimeMatrix(ctx context.Context, points []shared.Coordinate) ([][]routing.TravelEstimate, error) {
	n := len(points)
	matrix := make([][]routing.TravelEstimate, n)
	if n == 0 {
		return matrix, nil
	}

	g := p.graphCovering(ctx, points...)

	nodes := make([]int64, n)
	resolved := make([]bool, n)
	if g != nil {
		for i, pt := range points {
			nodes[i], resolved[i] = g.NearestNode(pt)
		}
	}

	for i := range points {
		matrix[i] = make([]routing.TravelEstimate, n)

		var costs map[int64]pathCost
		if resolved[i] {
			targets := make(map[int64]struct{}, n)
			for j := range points {
				if j != i && resolved[j] {
					targets[nodes[j]] = struct{}{}
				}
			}
			costs = g.shortestPaths(nodes[i], targets)
		}

		for j := range points {
			if i == j {
				continue
			}
			if resolved[i] && resolved[j] {
				if cost, ok := costs[nodes[j]]; ok {
					matrix[i][j] = routing.TravelEstimate{
						Minutes:    cost.seconds / 60,
						DistanceKm: cost.meters / 1000,
					}
					continue
				}
			}
			matrix[i][j] = p.fallback(points[i], points[j])
		}
	}
	return matrix, nil
}

// graphCovering picks the graph for a set of points: the preloaded
// metro graph when it contains them all, else an on-demand area graph.
// Returns nil when no graph could be built.
func (p *Provider) graphCovering(ctx context.Context, points ...shared.Coordinate) *RoadGraph {
	p.mu.RLock()
	preloaded := p.preloaded
	p.mu.RUnlock()

	if preloaded != nil && p.box.ContainsAll(points...) {
		return preloaded
	}
	return p.areaGraph(ctx, boxCovering(points, p.radiusM))
}

// areaGraph returns the cached graph for a bounding box, building it at
// most once even under concurrent callers.
func (p *Provider) areaGraph(ctx context.Context, box BBox) *RoadGraph {
	key := box.String()
	if cached, ok := p.areaGraphs.Load(key); ok {
		return cached.(*RoadGraph)
	}

	lock, _ := p.buildLocks.LoadOrStore(key, &sync.Mutex{})
	mutex := lock.(*sync.Mutex)
	mutex.Lock()
	defer mutex.Unlock()

	// Another goroutine may have built it while we waited.
	if cached, ok := p.areaGraphs.Load(key); ok {
		return cached.(*RoadGraph)
	}

	log.Printf("Building road graph for area %s", key)
	g, err := p.fetcher.FetchNetwork(ctx, box)
	if err != nil {
		log.Printf("Warning: failed to build road graph for %s: %v", key, err)
		return nil
	}

	p.areaGraphs.Store(key, g)
	p.areaCount.Add(1)
	log.Printf("Road graph for %s ready: %d nodes, %d edges", key, g.NodeCount(), g.EdgeCount())
	return g
}

// routeOver resolves one leg on a graph. The second return is false
// when the graph is nil, an endpoint has no node, or no path exists.
func routeOver(g *RoadGraph, from, to shared.Coordinate) (routing.TravelEstimate, bool) {
	if g == nil {
		return routing.TravelEstimate{}, false
	}

	fromNode, ok := g.NearestNode(from)
	if !ok {
		return routing.TravelEstimate{}, false
	}
	toNode, ok := g.NearestNode(to)
	if !ok {
		return routing.TravelEstimate{}, false
	}

	cost, ok := g.shortestPaths(fromNode, map[int64]struct{}{toNode: {}})[toNode]
	if !ok {
		return routing.TravelEstimate{}, false
	}
	return routing.TravelEstimate{
		Minutes:    cost.seconds / 60,
		DistanceKm: cost.meters / 1000,
	}, true
}

// fallback estimates a leg from great-circle distance at the urban
// average speed.
func (p *Provider) fallback(from, to shared.Coordinate) routing.TravelEstimate {
	meters := from.DistanceMeters(to)
	return routing.TravelEstimate{
		Minutes:     geoutil.TravelMinutesAt(meters, routing.DefaultAvgSpeedKph),
		DistanceKm:  meters / 1000,
		Approximate: true,
	}
}

// Stats reports graph and cache state for the stats endpoint.
func (p *Provider) Stats() routing.NetworkStats {
	p.mu.RLock()
	preloaded := p.preloaded
	p.mu.RUnlock()

	stats := routing.NetworkStats{
		CachedAreaGraphs: int(p.areaCount.Load()),
		CachedRoutes:     int(p.routeCount.Load()),
	}
	if preloaded != nil {
		stats.PreloadedGraph = true
		stats.PreloadedArea = p.areaName
		stats.GraphNodes = preloaded.NodeCount()
		stats.GraphEdges = preloaded.EdgeCount()
	}
	return stats
}

// SearchStreets returns way names matching the query across every
// loaded graph, case-insensitive, alphabetically ordered.
func (p *Provider) SearchStreets(query string, limit int) []string {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" || limit <= 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var matches []string
	collect := func(g *RoadGraph) {
		if g == nil {
			return
		}
		for _, name := range g.StreetNames() {
			if _, dup := seen[name]; dup {
				continue
			}
			if strings.Contains(strings.ToLower(name), needle) {
				seen[name] = struct{}{}
				matches = append(matches, name)
			}
		}
	}

	p.mu.RLock()
	collect(p.preloaded)
	p.mu.RUnlock()
	p.areaGraphs.Range(func(_, v interface{}) bool {
		collect(v.(*RoadGraph))
		return true
	})

	sort.Strings(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// routeKey rounds both endpoints to 5 decimals, about one meter of
// precision.
func routeKey(from, to shared.Coordinate) string {
	return fmt.Sprintf("%.5f,%.5f|%.5f,%.5f", from.Lat, from.Lon, to.Lat, to.Lon)
}

var (
	_ routing.NetworkProvider  = (*Provider)(nil)
	_ routing.NetworkInspector = (*Provider)(nil)
	_ routing.StreetIndex      = (*Provider)(nil)
	_ Fetcher                  = (*OverpassClient)(nil)
)
