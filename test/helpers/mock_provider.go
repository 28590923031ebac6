package helpers

import (
	"context"
	"errors"
	"sync"

	"github.com/andrescamacho/dispatch-go/internal/adapters/geocoder"
	"github.com/andrescamacho/dispatch-go/internal/domain/ports"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// ErrProviderDown is what a failing MockGeocodeProvider returns, so
// tests can tell provider outages apart from clean misses.
var ErrProviderDown = errors.New("geocoding provider unreachable")

// MockGeocodeProvider is a scripted stand-in for a Nominatim instance.
// Queries resolve from registered fixtures; everything else is a miss.
// Flipping Failing simulates an outage for circuit breaker tests.
type MockGeocodeProvider struct {
	mu sync.Mutex

	places  map[string]geocoder.Place
	many    map[string][]geocoder.Place
	reverse map[shared.Coordinate]shared.Address

	failing bool
	calls   int
}

// NewMockGeocodeProvider creates an empty provider stub.
func NewMockGeocodeProvider() *MockGeocodeProvider {
	return &MockGeocodeProvider{
		places:  make(map[string]geocoder.Place),
		many:    make(map[string][]geocoder.Place),
		reverse: make(map[shared.Coordinate]shared.Address),
	}
}

// Know registers the best hit for an exact query string.
func (m *MockGeocodeProvider) Know(query string, place geocoder.Place) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.places[query] = place
}

// KnowMany registers the hit list SearchMany returns for a query.
func (m *MockGeocodeProvider) KnowMany(query string, places []geocoder.Place) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.many[query] = places
}

// KnowReverse registers the address a coordinate reverse-resolves to.
func (m *MockGeocodeProvider) KnowReverse(c shared.Coordinate, a shared.Address) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reverse[c] = a
}

// SetFailing toggles outage mode: every call errors until cleared.
func (m *MockGeocodeProvider) SetFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

// Calls returns how many requests actually reached the provider.
func (m *MockGeocodeProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Search resolves an exact query to its registered hit.
func (m *MockGeocodeProvider) Search(ctx context.Context, query string) (*geocoder.Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failing {
		return nil, ErrProviderDown
	}

	place, ok := m.places[query]
	if !ok {
		return nil, ports.ErrAddressNotFound
	}
	return &place, nil
}

// SearchMany returns the registered hit list for a query, capped at
// limit.
func (m *MockGeocodeProvider) SearchMany(ctx context.Context, query string, limit int) ([]geocoder.Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failing {
		return nil, ErrProviderDown
	}

	places, ok := m.many[query]
	if !ok || len(places) == 0 {
		return nil, ports.ErrAddressNotFound
	}
	if len(places) > limit {
		places = places[:limit]
	}
	out := make([]geocoder.Place, len(places))
	copy(out, places)
	return out, nil
}

// Reverse returns the address registered for the exact coordinate.
func (m *MockGeocodeProvider) Reverse(ctx context.Context, coordinate shared.Coordinate) (*shared.Address, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failing {
		return nil, ErrProviderDown
	}

	address, ok := m.reverse[coordinate]
	if !ok {
		return nil, ports.ErrAddressNotFound
	}
	found := address
	return &found, nil
}

var _ geocoder.Provider = (*MockGeocodeProvider)(nil)
