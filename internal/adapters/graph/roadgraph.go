package graph

import (
	"math"
	"sort"

	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
	"github.com/andrescamacho/dispatch-go/pkg/geoutil"
)

// RoadGraph is a directed road network weighted by travel seconds.
// It is assembled single-threaded by the builder; afterwards all
// lookups are read-only and safe for concurrent use.
type RoadGraph struct {
	nodes     map[int64]shared.Coordinate
	adj       map[int64][]roadEdge
	edgeCount int
	streets   []string
	streetSet map[string]struct{}
}

type roadEdge struct {
	to      int64
	meters  float64
	seconds float64
}

// NewRoadGraph creates an empty graph.
func NewRoadGraph() *RoadGraph {
	return &RoadGraph{
		nodes:     make(map[int64]shared.Coordinate),
		adj:       make(map[int64][]roadEdge),
		streetSet: make(map[string]struct{}),
	}
}

// AddNode registers an intersection or way point.
func (g *RoadGraph) AddNode(id int64, location shared.Coordinate) {
	g.nodes[id] = location
}

// AddEdge adds one directed road segment. Both endpoints must already
// be nodes.
func (g *RoadGraph) AddEdge(from, to int64, meters, seconds float64) {
	g.adj[from] = append(g.adj[from], roadEdge{to: to, meters: meters, seconds: seconds})
	g.edgeCount++
}

func (g *RoadGraph) node(id int64) (shared.Coordinate, bool) {
	c, ok := g.nodes[id]
	return c, ok
}

// NodeCount returns the number of nodes.
func (g *RoadGraph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of directed edges.
func (g *RoadGraph) EdgeCount() int {
	return g.edgeCount
}

func (g *RoadGraph) addStreetName(name string) {
	if _, dup := g.streetSet[name]; dup {
		return
	}
	g.streetSet[name] = struct{}{}
	g.streets = append(g.streets, name)
}

func (g *RoadGraph) sortStreets() {
	sort.Strings(g.streets)
}

// StreetNames returns the distinct way names in the graph,
// alphabetically ordered.
func (g *RoadGraph) StreetNames() []string {
	return g.streets
}

// NearestNode finds the node closest to a coordinate by squared planar
// distance. Longitude deltas are rescaled by the latitude cosine so the
// comparison stays locally correct; ties break toward the lower id.
func (g *RoadGraph) NearestNode(c shared.Coordinate) (int64, bool) {
	if len(g.nodes) == 0 {
		return 0, false
	}

	lonScale := math.Cos(geoutil.Radians(c.Lat))
	var best int64
	bestDist := math.MaxFloat64
	for id, loc := range g.nodes {
		dLat := loc.Lat - c.Lat
		dLon := (loc.Lon - c.Lon) * lonScale
		d := dLat*dLat + dLon*dLon
		if d < bestDist || (d == bestDist && id < best) {
			bestDist = d
			best = id
		}
	}
	return best, true
}
