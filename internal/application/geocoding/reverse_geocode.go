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

// ReverseGeocodeQuery represents a query to resolve a coordinate to the
// closest known address.
type ReverseGeocodeQuery struct {
	Coordinate shared.Coordinate
}

// ReverseGeocodeResponse carries the resolved address, if any.
type ReverseGeocodeResponse struct {
	Found   bool
	Address *shared.Address
}

// ReverseGeocodeHandler handles the ReverseGeocode query.
type ReverseGeocodeHandler struct {
	geocoder ports.Geocoder
	counters *common.Counters
}

// NewReverseGeocodeHandler creates a new ReverseGeocodeHandler.
func NewReverseGeocodeHandler(geocoder ports.Geocoder, counters *common.Counters) *ReverseGeocodeHandler {
	return &ReverseGeocodeHandler{geocoder: geocoder, counters: counters}
}

// Handle executes the ReverseGeocode query.
func (h *ReverseGeocodeHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	query, ok := request.(*ReverseGeocodeQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *ReverseGeocodeQuery")
	}

	h.counters.ReverseSeen()

	start := time.Now()
	address, err := h.geocoder.ReverseGeocode(ctx, query.Coordinate)
	if errors.Is(err, ports.ErrAddressNotFound) {
		metrics.RecordReverse(false, time.Since(start).Seconds())
		return &ReverseGeocodeResponse{Found: false}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reverse geocode %s: %w", query.Coordinate, err)
	}

	metrics.RecordReverse(true, time.Since(start).Seconds())
	return &ReverseGeocodeResponse{Found: true, Address: address}, nil
}
