package zones

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

func TestDefaultMontevideoClassify(t *testing.T) {
	p := DefaultMontevideo()

	cases := []struct {
		name string
		lat  float64
		lon  float64
		zone string
	}{
		{"Cordon is CENTRO", -34.9010, -56.1780, ZoneCentro},
		{"Prado is NORTE", -34.8590, -56.1930, ZoneNorte},
		{"Pocitos is ESTE", -34.9000, -56.1500, ZoneEste},
		{"Cerro is OESTE", -34.8800, -56.2100, ZoneOeste},
		{"Punta Carretas is SUR_ESTE", -34.9180, -56.1580, ZoneSurEste},
		{"south west corner", -34.9150, -56.2000, ZoneSurOeste},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			zone, ok := p.Classify(shared.Coordinate{Lat: tc.lat, Lon: tc.lon})
			require.True(t, ok)
			assert.Equal(t, tc.zone, zone)
		})
	}

	t.Run("outside the coverage box", func(t *testing.T) {
		_, ok := p.Classify(shared.Coordinate{Lat: -34.60, Lon: -58.38})
		assert.False(t, ok)
	})

	t.Run("seam latitude classifies into the northern band", func(t *testing.T) {
		zone, ok := p.Classify(shared.Coordinate{Lat: -34.905, Lon: -56.180})
		require.True(t, ok)
		assert.Equal(t, ZoneCentro, zone)
	})
}

func TestDefaultMontevideoAdjacency(t *testing.T) {
	p := DefaultMontevideo()

	t.Run("centro touches every other zone", func(t *testing.T) {
		assert.Len(t, p.Adjacent(ZoneCentro), 5)
	})

	t.Run("este and oeste are not neighbors", func(t *testing.T) {
		assert.False(t, p.AreNeighbors(ZoneEste, ZoneOeste))
	})

	t.Run("relation is symmetric", func(t *testing.T) {
		for _, name := range p.Names() {
			for _, n := range p.Adjacent(name) {
				assert.True(t, p.AreNeighbors(n, name), "%s -> %s must be mutual", name, n)
			}
		}
	})

	t.Run("allowed set contains the zone itself", func(t *testing.T) {
		allowed := p.AllowedFor(ZoneNorte)
		assert.True(t, allowed[ZoneNorte])
		assert.True(t, allowed[ZoneCentro])
		assert.False(t, allowed[ZoneSurEste])
	})
}

func TestNewPartitionValidation(t *testing.T) {
	box := shared.BoundingBox{North: 1, South: 0, East: 1, West: 0}

	t.Run("rejects empty partitions", func(t *testing.T) {
		_, err := NewPartition(nil, nil)
		assert.Error(t, err)
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		_, err := NewPartition([]Zone{{Name: "A", Box: box}, {Name: "A", Box: box}}, nil)
		assert.Error(t, err)
	})

	t.Run("rejects unknown neighbors", func(t *testing.T) {
		_, err := NewPartition([]Zone{{Name: "A", Box: box}}, map[string][]string{"A": {"B"}})
		assert.Error(t, err)
	})

	t.Run("rejects asymmetric adjacency", func(t *testing.T) {
		zones := []Zone{{Name: "A", Box: box}, {Name: "B", Box: box}}
		_, err := NewPartition(zones, map[string][]string{"A": {"B"}})
		assert.Error(t, err)
	})

	t.Run("rejects self adjacency", func(t *testing.T) {
		zones := []Zone{{Name: "A", Box: box}}
		_, err := NewPartition(zones, map[string][]string{"A": {"A"}})
		assert.Error(t, err)
	})

	t.Run("accepts a symmetric relation", func(t *testing.T) {
		zones := []Zone{{Name: "A", Box: box}, {Name: "B", Box: box}}
		p, err := NewPartition(zones, map[string][]string{"A": {"B"}, "B": {"A"}})
		require.NoError(t, err)
		assert.True(t, p.AreNeighbors("A", "B"))
	})
}
