package config

// MetricsConfig controls Prometheus collection and exposure. When Port
// matches the API port the exposition rides the API router; otherwise a
// second listener serves only the metrics path.
type MetricsConfig struct {
	// Enabled switches collector registration on.
	Enabled bool `mapstructure:"enabled"`

	// Port of the standalone exposition listener.
	Port int `mapstructure:"port" validate:"omitempty,min=1024,max=65535"`

	// Host the standalone listener binds; defaults to localhost.
	Host string `mapstructure:"host"`

	// Path of the exposition endpoint; defaults to /metrics.
	Path string `mapstructure:"path"`
}
