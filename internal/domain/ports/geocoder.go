package ports

import (
	"context"
	"errors"

	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// ErrAddressNotFound is returned when every geocoding strategy was
// exhausted without a match. It is an expected outcome, not a system
// failure; the dispatcher turns it into an unresolved-address verdict.
var ErrAddressNotFound = errors.New("address not found")

// GeocodeResult is a successful forward geocoding answer.
type GeocodeResult struct {
	Coordinate  shared.Coordinate
	DisplayName string
	// Confidence in [0, 1]; lower values come from coarser fallback
	// queries such as street-only matches.
	Confidence float64
}

// Geocoder resolves delivery addresses to coordinates and back.
//
// This interface is defined in the domain layer (not infrastructure) to
// follow the Dependency Inversion Principle and hexagonal architecture:
//
//	┌─────────────────────────┐
//	│  Application Layer      │
//	│  (commands/queries)     │
//	└───────────┬─────────────┘
//	            │ depends on
//	            ↓
//	┌─────────────────────────┐
//	│  Domain Ports           │  ← This interface
//	│  (interfaces)           │
//	└───────────┬─────────────┘
//	            ↑
//	            │ implements
//	┌─────────────────────────┐
//	│  Infrastructure Layer   │
//	│  (adapters)             │
//	└─────────────────────────┘
//
// The adapter owns the provider rate limiting and the result cache; the
// domain sees only this narrow surface.
type Geocoder interface {
	// Geocode resolves an address to coordinates. Returns
	// ErrAddressNotFound when no strategy produced a match.
	Geocode(ctx context.Context, address shared.Address) (*GeocodeResult, error)

	// ReverseGeocode resolves a coordinate to the closest known
	// address.
	ReverseGeocode(ctx context.Context, coordinate shared.Coordinate) (*shared.Address, error)
}

// GeocoderStats describes a geocoder adapter's runtime state.
type GeocoderStats struct {
	Requests      int64 `json:"requests"`
	CacheHits     int64 `json:"cache_hits"`
	ProviderCalls int64 `json:"provider_calls"`
	BreakerOpen   bool  `json:"breaker_open"`
}

// GeocoderInspector is implemented by adapters that expose cache and
// circuit breaker state for the health and stats endpoints.
type GeocoderInspector interface {
	Stats() GeocoderStats
}
