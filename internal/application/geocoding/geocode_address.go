// Package geocoding exposes address resolution and street search as
// mediator queries.
package geocoding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andrescamacho/dispatch-go/internal/adapters/metrics"
	"github.com/andrescamacho/dispatch-go/internal/application/common"
	"github.com/andrescamacho/dispatch-go/internal/domain/ports"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// GeocodeAddressQuery represents a query to resolve an address to
// coordinates.
type GeocodeAddressQuery struct {
	Address shared.Address
}

// GeocodeAddressResponse carries the resolution result. Found is false
// when every strategy was exhausted without a match.
type GeocodeAddressResponse struct {
	Found  bool
	Result *ports.GeocodeResult
}

// GeocodeAddressHandler handles the GeocodeAddress query.
type GeocodeAddressHandler struct {
	geocoder ports.Geocoder
	counters *common.Counters
}

// NewGeocodeAddressHandler creates a new GeocodeAddressHandler.
func NewGeocodeAddressHandler(geocoder ports.Geocoder, counters *common.Counters) *GeocodeAddressHandler {
	return &GeocodeAddressHandler{geocoder: geocoder, counters: counters}
}

// Handle executes the GeocodeAddress query.
func (h *GeocodeAddressHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	query, ok := request.(*GeocodeAddressQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *GeocodeAddressQuery")
	}

	if !query.Address.HasLocation() && !query.Address.Resolvable() {
		return nil, shared.NewValidationError("address",
			"address needs a coordinate, free text or street fields")
	}

	h.counters.GeocodeSeen()

	start := time.Now()
	result, err := h.geocoder.Geocode(ctx, query.Address)
	if errors.Is(err, ports.ErrAddressNotFound) {
		metrics.RecordGeocode(false, time.Since(start).Seconds())
		return &GeocodeAddressResponse{Found: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address %q: %w", query.Address.FullText(), err)
	}

	metrics.RecordGeocode(true, time.Since(start).Seconds())
	return &GeocodeAddressResponse{Found: true, Result: result}, nil
}
