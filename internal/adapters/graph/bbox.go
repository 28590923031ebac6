package graph

import (
	"fmt"
	"math"

	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
	"github.com/andrescamacho/dispatch-go/pkg/geoutil"
)

// BBox is a geographic bounding box in decimal degrees.
type BBox struct {
	North float64
	South float64
	East  float64
	West  float64
}

// MontevideoBBox covers the metropolitan delivery area that gets
// preloaded at startup.
var MontevideoBBox = BBox{North: -34.80, South: -34.92, East: -56.10, West: -56.22}

// Contains reports whether a coordinate falls inside the box.
func (b BBox) Contains(c shared.Coordinate) bool {
	return c.Lat >= b.South && c.Lat <= b.North && c.Lon >= b.West && c.Lon <= b.East
}

// ContainsAll reports whether every coordinate falls inside the box.
func (b BBox) ContainsAll(points ...shared.Coordinate) bool {
	for _, p := range points {
		if !b.Contains(p) {
			return false
		}
	}
	return true
}

// String renders the box in Overpass order: south,west,north,east.
func (b BBox) String() string {
	return fmt.Sprintf("%.4f,%.4f,%.4f,%.4f", b.South, b.West, b.North, b.East)
}

// metersPerLatDegree is the approximate ground length of one degree of
// latitude.
const metersPerLatDegree = 111320.0

// boxAround spans radiusM meters in every direction from a center.
// Longitude degrees shrink with latitude, so they are rescaled.
func boxAround(center shared.Coordinate, radiusM float64) BBox {
	dLat := radiusM / metersPerLatDegree
	lonScale := math.Cos(geoutil.Radians(center.Lat))
	if lonScale < 0.01 {
		lonScale = 0.01
	}
	dLon := radiusM / (metersPerLatDegree * lonScale)
	return BBox{
		North: center.Lat + dLat,
		South: center.Lat - dLat,
		East:  center.Lon + dLon,
		West:  center.Lon - dLon,
	}
}

// boxCovering centers a box on the points' centroid, wide enough to
// reach all of them plus a margin and never smaller than minRadiusM.
func boxCovering(points []shared.Coordinate, minRadiusM float64) BBox {
	if len(points) == 0 {
		return BBox{}
	}

	var latSum, lonSum float64
	for _, p := range points {
		latSum += p.Lat
		lonSum += p.Lon
	}
	center := shared.Coordinate{Lat: latSum / float64(len(points)), Lon: lonSum / float64(len(points))}

	radius := minRadiusM
	for _, p := range points {
		if d := center.DistanceMeters(p) + coverMarginM; d > radius {
			radius = d
		}
	}
	return boxAround(center, radius)
}

// coverMarginM pads on-demand boxes so routes near the edge still find
// connecting streets.
const coverMarginM = 1000.0
