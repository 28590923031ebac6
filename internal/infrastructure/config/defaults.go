package config

import "time"

// SetDefaults sets default values for all configuration fields
func SetDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		// Must outlast the batch budget or long batches get cut off
		// mid-response.
		cfg.Server.WriteTimeout = 2 * DefaultBatchBudget
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.PIDFile == "" {
		cfg.Server.PIDFile = "/tmp/dispatchd.pid"
	}

	// Database defaults
	if cfg.Database.Type == "" {
		cfg.Database.Type = "postgres"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "dispatch"
	}
	if cfg.Database.Name == "" {
		cfg.Database.Name = "dispatch"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "dispatch.db"
	}
	if cfg.Database.Pool.MaxOpen == 0 {
		cfg.Database.Pool.MaxOpen = 25
	}
	if cfg.Database.Pool.MaxIdle == 0 {
		cfg.Database.Pool.MaxIdle = 5
	}
	if cfg.Database.Pool.MaxLifetime == 0 {
		cfg.Database.Pool.MaxLifetime = 5 * time.Minute
	}

	// Geocoder defaults
	if cfg.Geocoder.BaseURL == "" {
		cfg.Geocoder.BaseURL = "http://nominatim.riogas.uy"
	}
	if cfg.Geocoder.RequestsPerSecond == 0 {
		cfg.Geocoder.RequestsPerSecond = 1.0
	}
	if cfg.Geocoder.Timeout == 0 {
		cfg.Geocoder.Timeout = 10 * time.Second
	}
	if cfg.Geocoder.Breaker.MaxFailures == 0 {
		cfg.Geocoder.Breaker.MaxFailures = 5
	}
	if cfg.Geocoder.Breaker.Timeout == 0 {
		cfg.Geocoder.Breaker.Timeout = 30 * time.Second
	}
	if cfg.Geocoder.DefaultCity == "" {
		cfg.Geocoder.DefaultCity = "Montevideo"
	}
	if cfg.Geocoder.DefaultCountry == "" {
		cfg.Geocoder.DefaultCountry = "Uruguay"
	}

	// Routing defaults
	if cfg.Routing.Overpass.Endpoint == "" {
		cfg.Routing.Overpass.Endpoint = "http://overpass.riogas.uy/api/interpreter"
	}
	if cfg.Routing.Overpass.RequestsPerSecond == 0 {
		cfg.Routing.Overpass.RequestsPerSecond = 0.5
	}
	if cfg.Routing.Overpass.Timeout == 0 {
		cfg.Routing.Overpass.Timeout = 120 * time.Second
	}
	if cfg.Routing.Preload.AreaName == "" {
		cfg.Routing.Preload.AreaName = "Montevideo"
	}
	if cfg.Routing.Preload.North == 0 && cfg.Routing.Preload.South == 0 {
		cfg.Routing.Preload.Enabled = true
		cfg.Routing.Preload.North = -34.80
		cfg.Routing.Preload.South = -34.92
		cfg.Routing.Preload.East = -56.10
		cfg.Routing.Preload.West = -56.22
	}
	if cfg.Routing.OnDemandRadiusMeters == 0 {
		cfg.Routing.OnDemandRadiusMeters = 5000
	}

	// Dispatch defaults
	if cfg.Dispatch.Weights.Sum() == 0 {
		cfg.Dispatch.Weights = WeightsConfig{
			Distance:      0.25,
			Capacity:      0.15,
			Urgency:       0.25,
			Compatibility: 0.10,
			Performance:   0.10,
			Interference:  0.15,
		}
	}
	if cfg.Dispatch.MaxCandidates == 0 {
		cfg.Dispatch.MaxCandidates = 3
	}
	if cfg.Dispatch.TimeBudget == 0 {
		cfg.Dispatch.TimeBudget = 30 * time.Second
	}
	if cfg.Dispatch.BatchBudget == 0 {
		cfg.Dispatch.BatchBudget = DefaultBatchBudget
	}
	if cfg.Dispatch.SequencerBudget == 0 {
		cfg.Dispatch.SequencerBudget = 5 * time.Second
	}
	if cfg.Dispatch.ServiceTimeMinutes == 0 {
		cfg.Dispatch.ServiceTimeMinutes = 5
	}
	if cfg.Dispatch.LowScoreThreshold == 0 {
		cfg.Dispatch.LowScoreThreshold = 0.2
	}

	// Zone filtering defaults to the built-in Montevideo partition,
	// selected by leaving Zones empty.
	if cfg.Zones.Zones == nil && cfg.Zones.Adjacency == nil {
		cfg.Zones.Enabled = true
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Logging.Rotation.MaxSize == 0 {
		cfg.Logging.Rotation.MaxSize = 100 // MB
	}
	if cfg.Logging.Rotation.MaxBackups == 0 {
		cfg.Logging.Rotation.MaxBackups = 3
	}
	if cfg.Logging.Rotation.MaxAge == 0 {
		cfg.Logging.Rotation.MaxAge = 28 // days
	}

	// Metrics defaults
	if cfg.Metrics.Host == "" {
		cfg.Metrics.Host = "localhost"
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// DefaultBatchBudget bounds one whole batch dispatch call unless
// overridden.
const DefaultBatchBudget = 60 * time.Second
