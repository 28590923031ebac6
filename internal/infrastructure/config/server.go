package config

import "time"

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	// Listen address host part
	Host string `mapstructure:"host"`

	// Listen port
	Port int `mapstructure:"port" validate:"min=1,max=65535"`

	// Request read timeout
	ReadTimeout time.Duration `mapstructure:"read_timeout"`

	// Response write timeout. Batch dispatch calls can run up to the
	// batch budget, so this must exceed it.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// Drain window for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// PID file guarding against double starts
	PIDFile string `mapstructure:"pid_file"`
}
