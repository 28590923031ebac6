package config

import "time"

// RoutingConfig holds the road network provider configuration
type RoutingConfig struct {
	// Overpass API client settings
	Overpass OverpassConfig `mapstructure:"overpass"`

	// Startup preload of the metropolitan graph
	Preload PreloadConfig `mapstructure:"preload"`

	// Radius in meters of area graphs built on demand around points
	// outside the preloaded box
	OnDemandRadiusMeters float64 `mapstructure:"on_demand_radius_meters" validate:"gte=0"`
}

// OverpassConfig holds the Overpass API client configuration
type OverpassConfig struct {
	// Overpass interpreter endpoint
	Endpoint string `mapstructure:"endpoint" validate:"required,url"`

	// Token bucket rate toward the mirror (requests per second)
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`

	// Per-request timeout. Graph extractions are heavy, so this is
	// much longer than a typical HTTP timeout.
	Timeout time.Duration `mapstructure:"timeout"`
}

// PreloadConfig holds the startup graph preload configuration
type PreloadConfig struct {
	// Enabled controls whether the metropolitan graph is fetched at
	// startup. Disabled means every query builds area graphs on demand.
	Enabled bool `mapstructure:"enabled"`

	// AreaName labels the preloaded graph in logs and stats
	AreaName string `mapstructure:"area_name"`

	// Bounding box of the preloaded area
	North float64 `mapstructure:"north"`
	South float64 `mapstructure:"south"`
	East  float64 `mapstructure:"east"`
	West  float64 `mapstructure:"west"`
}
