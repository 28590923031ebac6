package persistence_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/dispatch-go/internal/adapters/persistence"
	"github.com/andrescamacho/dispatch-go/internal/domain/ports"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
	"github.com/andrescamacho/dispatch-go/test/helpers"
)

func TestGeocodeCacheRepository_SaveAndFind(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormGeocodeCacheRepository(db)

	entry := &ports.CachedGeocode{
		Key:         "av 18 de julio 1234, montevideo, uruguay",
		Coordinate:  shared.Coordinate{Lat: -34.9055, Lon: -56.1915},
		DisplayName: "Av 18 de Julio 1234",
		Confidence:  0.95,
		Provider:    "nominatim",
		CreatedAt:   time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
	}

	// Act - Save
	err := repo.Save(context.Background(), entry)

	// Assert
	require.NoError(t, err)

	// Act - Find
	found, err := repo.Find(context.Background(), entry.Key)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, entry.Key, found.Key)
	assert.InDelta(t, entry.Coordinate.Lat, found.Coordinate.Lat, 1e-9)
	assert.InDelta(t, entry.Coordinate.Lon, found.Coordinate.Lon, 1e-9)
	assert.Equal(t, entry.DisplayName, found.DisplayName)
	assert.Equal(t, entry.Confidence, found.Confidence)
	assert.Equal(t, entry.Provider, found.Provider)
}

func TestGeocodeCacheRepository_MissReturnsNil(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormGeocodeCacheRepository(db)

	// Act
	found, err := repo.Find(context.Background(), "calle inexistente 1")

	// Assert
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestGeocodeCacheRepository_UpsertKeepsOneRow(t *testing.T) {
	// Arrange
	db := helpers.NewTestDB(t)
	repo := persistence.NewGormGeocodeCacheRepository(db)

	entry := &ports.CachedGeocode{
		Key:        "bulevar artigas, montevideo, uruguay",
		Coordinate: shared.Coordinate{Lat: -34.8940, Lon: -56.1660},
		Confidence: 0.65,
		Provider:   "nominatim",
		CreatedAt:  time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Save(context.Background(), entry))

	// Act - Save again with a refreshed, more confident result
	entry.Coordinate = shared.Coordinate{Lat: -34.8941, Lon: -56.1661}
	entry.Confidence = 0.95
	err := repo.Save(context.Background(), entry)

	// Assert
	require.NoError(t, err)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	found, err := repo.Find(context.Background(), entry.Key)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, 0.95, found.Confidence)
	assert.InDelta(t, -34.8941, found.Coordinate.Lat, 1e-9)
}
