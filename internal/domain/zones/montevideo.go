package zones

import "github.com/andrescamacho/dispatch-go/internal/domain/shared"

// Default Montevideo zone names.
const (
	ZoneCentro   = "CENTRO"
	ZoneNorte    = "NORTE"
	ZoneEste     = "ESTE"
	ZoneOeste    = "OESTE"
	ZoneSurEste  = "SUR_ESTE"
	ZoneSurOeste = "SUR_OESTE"
)

// MontevideoBounds is the coverage box of the default deployment.
var MontevideoBounds = shared.BoundingBox{
	North: -34.80,
	South: -34.92,
	East:  -56.10,
	West:  -56.22,
}

// DefaultMontevideo returns the six-cell partition of Montevideo used
// when no zone configuration is supplied. Northern cells are declared
// first so points on the -34.905 seam classify into the northern band.
func DefaultMontevideo() *Partition {
	zoneList := []Zone{
		{Name: ZoneOeste, Box: shared.BoundingBox{North: -34.80, South: -34.905, East: -56.195, West: -56.22}},
		{Name: ZoneCentro, Box: shared.BoundingBox{North: -34.895, South: -34.905, East: -56.170, West: -56.195}},
		{Name: ZoneNorte, Box: shared.BoundingBox{North: -34.80, South: -34.895, East: -56.170, West: -56.195}},
		{Name: ZoneEste, Box: shared.BoundingBox{North: -34.80, South: -34.905, East: -56.10, West: -56.170}},
		{Name: ZoneSurOeste, Box: shared.BoundingBox{North: -34.905, South: -34.92, East: -56.170, West: -56.22}},
		{Name: ZoneSurEste, Box: shared.BoundingBox{North: -34.905, South: -34.92, East: -56.10, West: -56.170}},
	}

	adjacency := map[string][]string{
		ZoneCentro:   {ZoneNorte, ZoneEste, ZoneOeste, ZoneSurEste, ZoneSurOeste},
		ZoneEste:     {ZoneSurEste, ZoneCentro, ZoneNorte},
		ZoneOeste:    {ZoneSurOeste, ZoneCentro, ZoneNorte},
		ZoneNorte:    {ZoneCentro, ZoneEste, ZoneOeste},
		ZoneSurEste:  {ZoneCentro, ZoneEste, ZoneSurOeste},
		ZoneSurOeste: {ZoneCentro, ZoneOeste, ZoneSurEste},
	}

	p, err := NewPartition(zoneList, adjacency)
	if err != nil {
		// The defaults are constants; a failure here is a programming error.
		panic(err)
	}
	return p
}
