package graph

import (
	"strconv"
	"strings"

	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// defaultSpeeds are realistic urban speeds in km/h per OSM highway
// class, already discounted for lights, crossings and typical flow.
var defaultSpeeds = map[string]float64{
	"motorway":     60,
	"trunk":        45,
	"primary":      35,
	"secondary":    28,
	"tertiary":     25,
	"residential":  22,
	"service":      15,
	"unclassified": 25,
}

const (
	// maxspeedFactor discounts posted limits to realistic flow.
	maxspeedFactor = 0.75

	// urbanCorrection stretches ideal travel times for signals and
	// stop-and-go traffic.
	urbanCorrection = 0.85

	fallbackSpeedKph = 30.0

	// fallbackMetersPerSecond paces edges whose speed comes out
	// nonpositive.
	fallbackMetersPerSecond = 10.0
)

// buildGraph assembles a directed road graph from raw Overpass
// elements: nodes first, then way segments as weighted edges.
func buildGraph(elements []overpassElement) *RoadGraph {
	g := NewRoadGraph()

	for _, el := range elements {
		if el.Type != "node" {
			continue
		}
		coordinate, err := shared.NewCoordinate(el.Lat, el.Lon)
		if err != nil {
			continue
		}
		g.AddNode(el.ID, coordinate)
	}

	for _, el := range elements {
		if el.Type != "way" || len(el.Nodes) < 2 {
			continue
		}
		addWay(g, el)
	}

	g.sortStreets()
	return g
}

func addWay(g *RoadGraph, way overpassElement) {
	speed := waySpeedKph(way.Tags)
	forward, backward := wayDirections(way.Tags)
	if name := way.Tags["name"]; name != "" {
		g.addStreetName(name)
	}

	for i := 0; i+1 < len(way.Nodes); i++ {
		a, ok := g.node(way.Nodes[i])
		if !ok {
			continue
		}
		b, ok := g.node(way.Nodes[i+1])
		if !ok {
			continue
		}

		meters := a.DistanceMeters(b)
		seconds := travelSeconds(meters, speed)
		if forward {
			g.AddEdge(way.Nodes[i], way.Nodes[i+1], meters, seconds)
		}
		if backward {
			g.AddEdge(way.Nodes[i+1], way.Nodes[i], meters, seconds)
		}
	}
}

// waySpeedKph picks the effective speed for a way: the posted maxspeed
// discounted to realistic flow when tagged and parsable, else the
// highway-class default.
func waySpeedKph(tags map[string]string) float64 {
	if raw, ok := tags["maxspeed"]; ok {
		if fields := strings.Fields(raw); len(fields) > 0 {
			if v, err := strconv.ParseFloat(fields[0], 64); err == nil && v > 0 {
				return v * maxspeedFactor
			}
		}
	}
	if v, ok := defaultSpeeds[tags["highway"]]; ok {
		return v
	}
	return fallbackSpeedKph
}

// travelSeconds weights one segment.
func travelSeconds(meters, speedKph float64) float64 {
	metersPerSecond := speedKph * 1000 / 3600
	base := meters / fallbackMetersPerSecond
	if metersPerSecond > 0 {
		base = meters / metersPerSecond
	}
	return base / urbanCorrection
}

// wayDirections reports which directions a way may be traversed.
// Roundabouts are implicitly one-way.
func wayDirections(tags map[string]string) (forward, backward bool) {
	switch tags["oneway"] {
	case "yes", "true", "1":
		return true, false
	case "-1", "reverse":
		return false, true
	}
	if tags["junction"] == "roundabout" || tags["junction"] == "circular" {
		return true, false
	}
	return true, true
}
