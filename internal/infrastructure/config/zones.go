package config

// ZonesConfig holds the zone partition used to pre-filter dispatch
// candidates by rough geography
type ZonesConfig struct {
	// Enabled turns the zone pre-filter on
	Enabled bool `mapstructure:"enabled"`

	// Zones overrides the built-in Montevideo partition when non-empty.
	// Declaration order matters: points on a shared edge classify into
	// the first matching cell.
	Zones []ZoneConfig `mapstructure:"zones"`

	// Adjacency maps each zone name to its neighbors. Must be symmetric
	// and reference declared zones; checked by ValidateConfig.
	Adjacency map[string][]string `mapstructure:"adjacency"`
}

// ZoneConfig is one named rectangular cell of the coverage area
type ZoneConfig struct {
	Name  string  `mapstructure:"name" validate:"required"`
	North float64 `mapstructure:"north"`
	South float64 `mapstructure:"south"`
	East  float64 `mapstructure:"east"`
	West  float64 `mapstructure:"west"`
}
