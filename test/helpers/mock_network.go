package helpers

import (
	"context"
	"sync"

	"github.com/andrescamacho/dispatch-go/internal/domain/routing"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
	"github.com/andrescamacho/dispatch-go/pkg/geoutil"
)

// MockNetworkProvider simulates the road network with straight-line
// distances at a constant speed. Specific legs can be slowed down to
// model congestion or detours.
type MockNetworkProvider struct {
	mu sync.RWMutex

	// SpeedKph is the travel speed applied to great-circle distances.
	SpeedKph float64

	// penalties adds extra minutes to specific legs keyed by
	// "lat,lon->lat,lon" of the rounded endpoints.
	penalties map[legKey]float64

	calls int
}

type legKey struct {
	from shared.Coordinate
	to   shared.Coordinate
}

// NewMockNetworkProvider creates a provider moving at 30 km/h, the
// production urban-speed assumption.
func NewMockNetworkProvider() *MockNetworkProvider {
	return &MockNetworkProvider{
		SpeedKph:  30,
		penalties: make(map[legKey]float64),
	}
}

// PenalizeLeg adds extra minutes to one directed leg.
func (m *MockNetworkProvider) PenalizeLeg(from, to shared.Coordinate, extraMinutes float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.penalties[legKey{from: from, to: to}] = extraMinutes
}

// Calls returns how many estimates were requested.
func (m *MockNetworkProvider) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// TravelTime estimates one leg at constant speed.
func (m *MockNetworkProvider) TravelTime(ctx context.Context, from, to shared.Coordinate) (routing.TravelEstimate, error) {
	if err := ctx.Err(); err != nil {
		return routing.TravelEstimate{}, err
	}

	m.mu.Lock()
	m.calls++
	penalty := m.penalties[legKey{from: from, to: to}]
	m.mu.Unlock()

	distanceKm := geoutil.HaversineKm(from.Lat, from.Lon, to.Lat, to.Lon)
	minutes := geoutil.TravelMinutesAt(distanceKm*1000, m.SpeedKph) + penalty

	return routing.TravelEstimate{
		Minutes:    minutes,
		DistanceKm: distanceKm,
	}, nil
}

// TravelTimeMatrix estimates every point-to-point leg.
func (m *MockNetworkProvider) TravelTimeMatrix(ctx context.Context, points []shared.Coordinate) ([][]routing.TravelEstimate, error) {
	matrix := make([][]routing.TravelEstimate, len(points))
	for i, from := range points {
		matrix[i] = make([]routing.TravelEstimate, len(points))
		for j, to := range points {
			if i == j {
				continue
			}
			est, err := m.TravelTime(ctx, from, to)
			if err != nil {
				return nil, err
			}
			matrix[i][j] = est
		}
	}
	return matrix, nil
}
