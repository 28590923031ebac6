package config

import "time"

// DatabaseConfig selects the store backing the geocode cache and the
// assignment audit trail: postgres for shared deployments, sqlite for a
// single-host daemon.
type DatabaseConfig struct {
	// Type picks the driver: "postgres" or "sqlite".
	Type string `mapstructure:"type" validate:"required,oneof=postgres sqlite"`

	// URL is a full postgres DSN; when set it wins over the field-wise
	// settings below.
	URL string `mapstructure:"url"`

	// Field-wise postgres settings, assembled when URL is empty.
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode" validate:"omitempty,oneof=disable require verify-ca verify-full"`

	// Path locates the sqlite file. Empty means ":memory:", which keeps
	// cache and audit rows for the process lifetime only.
	Path string `mapstructure:"path"`

	// Pool tunes the sql.DB pool under gorm.
	Pool PoolConfig `mapstructure:"pool"`
}

// PoolConfig holds connection pool limits.
type PoolConfig struct {
	MaxOpen     int           `mapstructure:"max_open" validate:"min=1"`
	MaxIdle     int           `mapstructure:"max_idle" validate:"min=1"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
}
