package helpers

import (
	"context"
	"strings"
	"sync"

	"github.com/andrescamacho/dispatch-go/internal/domain/ports"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// MockGeocoder resolves addresses from a scripted address book instead
// of calling a provider.
type MockGeocoder struct {
	mu sync.RWMutex

	book  map[string]shared.Coordinate
	calls int
}

// NewMockGeocoder creates an empty address book geocoder.
func NewMockGeocoder() *MockGeocoder {
	return &MockGeocoder{
		book: make(map[string]shared.Coordinate),
	}
}

// Know registers an address the geocoder can resolve.
func (m *MockGeocoder) Know(address string, c shared.Coordinate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.book[normalizeKey(address)] = c
}

// Calls returns how many forward lookups were made.
func (m *MockGeocoder) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Geocode resolves an address from the book, or reports it unknown.
func (m *MockGeocoder) Geocode(ctx context.Context, address shared.Address) (*ports.GeocodeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if address.Location != nil {
		return &ports.GeocodeResult{Coordinate: *address.Location, Confidence: 1.0}, nil
	}

	m.mu.RLock()
	coord, ok := m.book[normalizeKey(address.String())]
	m.mu.RUnlock()
	if !ok {
		return nil, ports.ErrAddressNotFound
	}

	return &ports.GeocodeResult{
		Coordinate:  coord,
		DisplayName: address.String(),
		Confidence:  0.9,
	}, nil
}

// ReverseGeocode returns the book entry closest to the coordinate, or
// not-found when the book is empty.
func (m *MockGeocoder) ReverseGeocode(ctx context.Context, coordinate shared.Coordinate) (*shared.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var best string
	bestDist := -1.0
	for text, coord := range m.book {
		d := coordinate.DistanceKm(coord)
		if bestDist < 0 || d < bestDist {
			best = text
			bestDist = d
		}
	}
	if bestDist < 0 {
		return nil, ports.ErrAddressNotFound
	}

	return &shared.Address{FreeText: best}, nil
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
