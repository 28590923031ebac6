package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andrescamacho/dispatch-go/internal/domain/ports"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// GormGeocodeCacheRepository implements GeocodeCacheRepository using GORM
type GormGeocodeCacheRepository struct {
	db *gorm.DB
}

// NewGormGeocodeCacheRepository creates a new GORM geocode cache repository
func NewGormGeocodeCacheRepository(db *gorm.DB) *GormGeocodeCacheRepository {
	return &GormGeocodeCacheRepository{db: db}
}

// Find retrieves a cached geocoding result by its normalized key
func (r *GormGeocodeCacheRepository) Find(ctx context.Context, key string) (*ports.CachedGeocode, error) {
	var model GeocodeCacheModel

	err := r.db.WithContext(ctx).
		Where("cache_key = ?", key).
		First(&model).Error

	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to find geocode entry: %w", err)
	}

	return modelToCachedGeocode(&model), nil
}

// Save stores or refreshes a geocoding result (upsert on the key)
func (r *GormGeocodeCacheRepository) Save(ctx context.Context, entry *ports.CachedGeocode) error {
	model := GeocodeCacheModel{
		CacheKey:    entry.Key,
		Lat:         entry.Coordinate.Lat,
		Lon:         entry.Coordinate.Lon,
		DisplayName: entry.DisplayName,
		Confidence:  entry.Confidence,
		Provider:    entry.Provider,
		CreatedAt:   entry.CreatedAt,
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cache_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"lat", "lon", "display_name", "confidence", "provider", "created_at"}),
		}).
		Create(&model).Error

	if err != nil {
		return fmt.Errorf("failed to save geocode entry: %w", err)
	}

	return nil
}

// Count returns the number of cached entries
func (r *GormGeocodeCacheRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&GeocodeCacheModel{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count geocode entries: %w", err)
	}
	return count, nil
}

func modelToCachedGeocode(model *GeocodeCacheModel) *ports.CachedGeocode {
	return &ports.CachedGeocode{
		Key:         model.CacheKey,
		Coordinate:  shared.Coordinate{Lat: model.Lat, Lon: model.Lon},
		DisplayName: model.DisplayName,
		Confidence:  model.Confidence,
		Provider:    model.Provider,
		CreatedAt:   model.CreatedAt,
	}
}

var _ ports.GeocodeCacheRepository = (*GormGeocodeCacheRepository)(nil)
