// Package zones partitions the coverage area into named cells used to
// pre-filter dispatch candidates by rough geography.
package zones

import (
	"fmt"
	"sort"

	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// Zone is a named rectangular cell of the coverage area.
type Zone struct {
	Name string
	Box  shared.BoundingBox
}

// Partition is an ordered set of zones plus the adjacency relation
// between them. Classification scans zones in declaration order and
// returns the first cell containing the point, so overlapping edges
// resolve deterministically.
type Partition struct {
	zones     []Zone
	adjacency map[string][]string
}

// NewPartition creates a partition with validation: zone names must be
// unique and non-empty, adjacency may only reference known zones, and
// the relation must be symmetric.
func NewPartition(zoneList []Zone, adjacency map[string][]string) (*Partition, error) {
	if len(zoneList) == 0 {
		return nil, shared.NewValidationError("zones", "partition needs at least one zone")
	}

	known := make(map[string]bool, len(zoneList))
	for _, z := range zoneList {
		if z.Name == "" {
			return nil, shared.NewValidationError("zones", "zone name cannot be empty")
		}
		if known[z.Name] {
			return nil, shared.NewValidationError("zones", fmt.Sprintf("duplicate zone name '%s'", z.Name))
		}
		known[z.Name] = true
	}

	adj := make(map[string][]string, len(adjacency))
	for name, neighbors := range adjacency {
		if !known[name] {
			return nil, shared.NewValidationError("adjacency", fmt.Sprintf("unknown zone '%s'", name))
		}
		seen := make(map[string]bool, len(neighbors))
		for _, n := range neighbors {
			if !known[n] {
				return nil, shared.NewValidationError("adjacency",
					fmt.Sprintf("zone '%s' lists unknown neighbor '%s'", name, n))
			}
			if n == name {
				return nil, shared.NewValidationError("adjacency",
					fmt.Sprintf("zone '%s' cannot neighbor itself", name))
			}
			if !seen[n] {
				seen[n] = true
				adj[name] = append(adj[name], n)
			}
		}
		sort.Strings(adj[name])
	}

	for name, neighbors := range adj {
		for _, n := range neighbors {
			if !contains(adj[n], name) {
				return nil, shared.NewValidationError("adjacency",
					fmt.Sprintf("adjacency is not symmetric: %s lists %s but not the reverse", name, n))
			}
		}
	}

	zonesCopy := make([]Zone, len(zoneList))
	copy(zonesCopy, zoneList)

	return &Partition{zones: zonesCopy, adjacency: adj}, nil
}

// Classify maps a coordinate to the name of the zone containing it.
// The second return is false when the point falls outside every cell.
func (p *Partition) Classify(c shared.Coordinate) (string, bool) {
	for _, z := range p.zones {
		if z.Box.Contains(c) {
			return z.Name, true
		}
	}
	return "", false
}

// Zones returns the zone cells in declaration order.
func (p *Partition) Zones() []Zone {
	out := make([]Zone, len(p.zones))
	copy(out, p.zones)
	return out
}

// Names returns the zone names in declaration order.
func (p *Partition) Names() []string {
	names := make([]string, len(p.zones))
	for i, z := range p.zones {
		names[i] = z.Name
	}
	return names
}

// Adjacent returns the neighbors of a zone, sorted by name.
func (p *Partition) Adjacent(name string) []string {
	neighbors := p.adjacency[name]
	out := make([]string, len(neighbors))
	copy(out, neighbors)
	return out
}

// AreNeighbors reports whether two distinct zones share an adjacency
// edge.
func (p *Partition) AreNeighbors(a, b string) bool {
	return contains(p.adjacency[a], b)
}

// AllowedFor returns the set of zones a candidate vehicle may occupy
// when the order falls in the given zone: the zone itself plus its
// neighbors.
func (p *Partition) AllowedFor(orderZone string) map[string]bool {
	allowed := map[string]bool{orderZone: true}
	for _, n := range p.adjacency[orderZone] {
		allowed[n] = true
	}
	return allowed
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
