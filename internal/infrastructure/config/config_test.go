package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig() *Config {
	cfg := &Config{}
	SetDefaults(cfg)
	return cfg
}

func TestSetDefaultsProducesValidConfig(t *testing.T) {
	cfg := defaultConfig()

	require.NoError(t, ValidateConfig(cfg))

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 3, cfg.Dispatch.MaxCandidates)
	assert.InDelta(t, 1.0, cfg.Dispatch.Weights.Sum(), 1e-9)
	assert.True(t, cfg.Routing.Preload.Enabled)
	assert.Equal(t, -34.80, cfg.Routing.Preload.North)
	assert.True(t, cfg.Zones.Enabled)
}

func TestValidateConfigRejectsBadWeights(t *testing.T) {
	cfg := defaultConfig()
	cfg.Dispatch.Weights.Distance = 0.5 // sum now 1.25

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must sum to 1")
}

func TestValidateConfigAcceptsWeightsWithinTolerance(t *testing.T) {
	cfg := defaultConfig()
	cfg.Dispatch.Weights.Distance += 1e-10

	assert.NoError(t, ValidateConfig(cfg))
}

func TestValidateConfigRejectsOutOfRangeCandidates(t *testing.T) {
	cfg := defaultConfig()
	cfg.Dispatch.MaxCandidates = 11

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxCandidates")
}

func TestValidateConfigRejectsAsymmetricAdjacency(t *testing.T) {
	cfg := defaultConfig()
	cfg.Zones.Zones = []ZoneConfig{
		{Name: "A", North: 1, South: 0, East: 1, West: 0},
		{Name: "B", North: 2, South: 1, East: 1, West: 0},
	}
	cfg.Zones.Adjacency = map[string][]string{
		"A": {"B"},
	}

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not symmetric")
}

func TestValidateConfigRejectsUnknownAdjacencyZone(t *testing.T) {
	cfg := defaultConfig()
	cfg.Zones.Zones = []ZoneConfig{
		{Name: "A", North: 1, South: 0, East: 1, West: 0},
	}
	cfg.Zones.Adjacency = map[string][]string{
		"A": {"GHOST"},
	}

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GHOST")
}

func TestValidateConfigRejectsInvertedZoneBounds(t *testing.T) {
	cfg := defaultConfig()
	cfg.Zones.Zones = []ZoneConfig{
		{Name: "A", North: 0, South: 1, East: 1, West: 0},
	}

	err := ValidateConfig(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "north")
}

func TestLoadConfigOrDefaultFallsBack(t *testing.T) {
	cfg := LoadConfigOrDefault("/nonexistent/path/config.yaml")

	assert.NotNil(t, cfg)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestWeightsConfigSum(t *testing.T) {
	w := WeightsConfig{
		Distance:      0.25,
		Capacity:      0.15,
		Urgency:       0.25,
		Compatibility: 0.10,
		Performance:   0.10,
		Interference:  0.15,
	}

	assert.InDelta(t, 1.0, w.Sum(), 1e-12)
}
