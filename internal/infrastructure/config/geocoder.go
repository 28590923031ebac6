package config

import "time"

// GeocoderConfig holds the upstream Nominatim client configuration
type GeocoderConfig struct {
	// Base URL of the Nominatim instance
	BaseURL string `mapstructure:"base_url" validate:"required,url"`

	// Token bucket rate toward the provider (requests per second)
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`

	// Per-request timeout
	Timeout time.Duration `mapstructure:"timeout" validate:"required"`

	// Circuit breaker settings
	Breaker BreakerConfig `mapstructure:"breaker"`

	// Region appended to under-specified queries
	DefaultCity    string `mapstructure:"default_city"`
	DefaultCountry string `mapstructure:"default_country"`
}

// BreakerConfig holds circuit breaker configuration
type BreakerConfig struct {
	// Consecutive failures before the circuit opens
	MaxFailures int `mapstructure:"max_failures" validate:"min=1"`

	// How long the circuit stays open before a half-open probe
	Timeout time.Duration `mapstructure:"timeout"`
}
