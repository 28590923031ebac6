package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/dispatch-go/internal/application/common"
	"github.com/andrescamacho/dispatch-go/internal/application/dispatching"
	"github.com/andrescamacho/dispatch-go/internal/application/geocoding"
	"github.com/andrescamacho/dispatch-go/internal/application/stats"
	"github.com/andrescamacho/dispatch-go/internal/domain/dispatch"
	"github.com/andrescamacho/dispatch-go/internal/domain/ports"
	"github.com/andrescamacho/dispatch-go/internal/domain/routing"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
	"github.com/andrescamacho/dispatch-go/internal/infrastructure/config"
)

type stubNetwork struct {
	minutesPerKm float64
}

func (s *stubNetwork) TravelTime(_ context.Context, from, to shared.Coordinate) (routing.TravelEstimate, error) {
	km := from.DistanceKm(to)
	return routing.TravelEstimate{Minutes: km * s.minutesPerKm, DistanceKm: km}, nil
}

func (s *stubNetwork) TravelTimeMatrix(ctx context.Context, points []shared.Coordinate) ([][]routing.TravelEstimate, error) {
	m := make([][]routing.TravelEstimate, len(points))
	for i := range points {
		m[i] = make([]routing.TravelEstimate, len(points))
		for j := range points {
			if i == j {
				continue
			}
			m[i][j], _ = s.TravelTime(ctx, points[i], points[j])
		}
	}
	return m, nil
}

type stubGeocoder struct {
	result  *ports.GeocodeResult
	address *shared.Address
}

func (g *stubGeocoder) Geocode(context.Context, shared.Address) (*ports.GeocodeResult, error) {
	if g.result == nil {
		return nil, ports.ErrAddressNotFound
	}
	return g.result, nil
}

func (g *stubGeocoder) ReverseGeocode(context.Context, shared.Coordinate) (*shared.Address, error) {
	if g.address == nil {
		return nil, ports.ErrAddressNotFound
	}
	return g.address, nil
}

type stubStreetIndex struct {
	streets []string
}

func (s *stubStreetIndex) SearchStreets(query string, limit int) []string {
	if len(s.streets) > limit {
		return s.streets[:limit]
	}
	return s.streets
}

// newTestServer wires the real mediator and application handlers over
// stub adapters, so requests exercise the full decode, dispatch and
// respond path.
func newTestServer(t *testing.T, geocoder ports.Geocoder, index routing.StreetIndex) *Server {
	t.Helper()

	clock := shared.NewRealClock()
	network := &stubNetwork{minutesPerKm: 2}
	sequencer := routing.NewSequencer(network, clock)
	scorer := dispatch.NewScorer(network, dispatch.NewEvaluator(sequencer))
	dispatcher := dispatch.NewDispatcher(scorer, geocoder, nil, clock)
	batch := dispatch.NewBatchDispatcher(dispatcher, clock)
	counters := common.NewCounters()

	med := common.NewMediator()
	require.NoError(t, common.RegisterHandler[*dispatching.AssignOrderCommand](med,
		dispatching.NewAssignOrderHandler(dispatcher, nil, counters, clock)))
	require.NoError(t, common.RegisterHandler[*dispatching.AssignBatchCommand](med,
		dispatching.NewAssignBatchHandler(batch, nil, counters, clock)))
	require.NoError(t, common.RegisterHandler[*dispatching.ResequenceRouteCommand](med,
		dispatching.NewResequenceRouteHandler(sequencer, geocoder, clock)))
	require.NoError(t, common.RegisterHandler[*geocoding.GeocodeAddressQuery](med,
		geocoding.NewGeocodeAddressHandler(geocoder, counters)))
	require.NoError(t, common.RegisterHandler[*geocoding.ReverseGeocodeQuery](med,
		geocoding.NewReverseGeocodeHandler(geocoder, counters)))
	require.NoError(t, common.RegisterHandler[*geocoding.SearchStreetsQuery](med,
		geocoding.NewSearchStreetsHandler(index)))
	require.NoError(t, common.RegisterHandler[*stats.ServiceStatsQuery](med,
		stats.NewServiceStatsHandler(nil, nil, nil, nil, counters, clock)))

	srv := NewServer(
		config.ServerConfig{Host: "127.0.0.1", Port: 8080},
		config.MetricsConfig{},
		med,
		Defaults{},
		Health{Version: "test", StartedAt: time.Now()},
	)
	srv.auditOut = io.Discard
	return srv
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

func dispatchBody(t *testing.T, deadline time.Time, vehicles ...VehicleDTO) string {
	t.Helper()
	lat, lon := -34.905, -56.165
	req := DispatchRequest{
		Order: OrderDTO{
			ID:       "ORD-1",
			Address:  AddressDTO{Latitude: &lat, Longitude: &lon},
			Deadline: deadline,
			WeightKg: 2,
		},
		Vehicles: vehicles,
	}
	raw, err := json.Marshal(req)
	require.NoError(t, err)
	return string(raw)
}

func testVehicle(id string, capacity int) VehicleDTO {
	return VehicleDTO{
		ID:          id,
		DriverName:  "driver " + id,
		Latitude:    -34.900,
		Longitude:   -56.160,
		Capacity:    capacity,
		MaxWeightKg: 50,
	}
}

func TestDispatchEndpointAssignsVehicle(t *testing.T) {
	srv := newTestServer(t, &stubGeocoder{}, nil)
	handler := srv.Handler()

	body := dispatchBody(t, time.Now().Add(4*time.Hour), testVehicle("V1", 5))
	rec := doRequest(t, handler, http.MethodPost, "/api/v1/dispatch", body)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp DispatchResponse
	decodeBody(t, rec, &resp)
	require.NotNil(t, resp.AssignedVehicleID)
	assert.Equal(t, "V1", *resp.AssignedVehicleID)
	assert.Equal(t, "ORD-1", resp.OrderID)
	assert.Empty(t, resp.FailureReason)
	require.NotNil(t, resp.Route)
	require.Len(t, resp.Scores, 1)
	assert.True(t, resp.Scores[0].Feasible)
}

func TestDispatchEndpointFailedAssignmentIsOK(t *testing.T) {
	srv := newTestServer(t, &stubGeocoder{}, nil)
	handler := srv.Handler()

	// The only vehicle is already at capacity, so the verdict is a
	// negative answer, not an error.
	full := testVehicle("V1", 1)
	full.CurrentOrders = []OrderDTO{{
		ID:       "COMMITTED-1",
		Address:  AddressDTO{Latitude: f64(-34.902), Longitude: f64(-56.162)},
		Deadline: time.Now().Add(3 * time.Hour),
		WeightKg: 1,
	}}

	body := dispatchBody(t, time.Now().Add(4*time.Hour), full)
	rec := doRequest(t, handler, http.MethodPost, "/api/v1/dispatch", body)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp DispatchResponse
	decodeBody(t, rec, &resp)
	assert.Nil(t, resp.AssignedVehicleID)
	assert.Equal(t, string(dispatch.FailureNoCapacity), resp.FailureReason)
	assert.NotNil(t, resp.Scores)
}

func TestDispatchEndpointMalformedBodyIsBadRequest(t *testing.T) {
	srv := newTestServer(t, &stubGeocoder{}, nil)
	handler := srv.Handler()

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/dispatch", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	assert.NotEmpty(t, resp.Error)
}

func TestDispatchEndpointUnknownFieldIsBadRequest(t *testing.T) {
	srv := newTestServer(t, &stubGeocoder{}, nil)
	handler := srv.Handler()

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/dispatch", `{"bogus": true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDispatchEndpointMissingVehiclesIsBadRequest(t *testing.T) {
	srv := newTestServer(t, &stubGeocoder{}, nil)
	handler := srv.Handler()

	body := dispatchBody(t, time.Now().Add(4*time.Hour))
	rec := doRequest(t, handler, http.MethodPost, "/api/v1/dispatch", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDispatchEndpointRejectsBadWeights(t *testing.T) {
	srv := newTestServer(t, &stubGeocoder{}, nil)
	handler := srv.Handler()

	lat, lon := -34.905, -56.165
	req := DispatchRequest{
		Order: OrderDTO{
			ID:       "ORD-1",
			Address:  AddressDTO{Latitude: &lat, Longitude: &lon},
			Deadline: time.Now().Add(4 * time.Hour),
			WeightKg: 2,
		},
		Vehicles: []VehicleDTO{testVehicle("V1", 5)},
		Options: DispatchOptionsDTO{
			Weights: &dispatch.Weights{Distance: 0.5},
		},
	}
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/dispatch", string(raw))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	assert.Contains(t, resp.Error, "weights")
}

func TestBatchEndpointCountsVerdicts(t *testing.T) {
	srv := newTestServer(t, &stubGeocoder{}, nil)
	handler := srv.Handler()

	deadline := time.Now().Add(4 * time.Hour)
	req := BatchDispatchRequest{
		Orders: []OrderDTO{
			{ID: "ORD-1", Address: AddressDTO{Latitude: f64(-34.905), Longitude: f64(-56.165)}, Deadline: deadline, WeightKg: 1},
			{ID: "ORD-2", Address: AddressDTO{Latitude: f64(-34.906), Longitude: f64(-56.166)}, Deadline: deadline, WeightKg: 1},
		},
		Vehicles: []VehicleDTO{testVehicle("V1", 1)},
	}
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/dispatch/batch", string(raw))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BatchDispatchResponse
	decodeBody(t, rec, &resp)
	assert.NotEmpty(t, resp.BatchID)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, 2, resp.Summary.Total)
	assert.Equal(t, 1, resp.Summary.Assigned)
	assert.Equal(t, 1, resp.Summary.Unassigned)
	assert.Equal(t, 1, resp.Summary.ByReason[string(dispatch.FailureNoCapacity)])

	// Results come back in input order regardless of processing order.
	assert.Equal(t, "ORD-1", resp.Results[0].OrderID)
	assert.Equal(t, "ORD-2", resp.Results[1].OrderID)
}

func TestResequenceEndpointReturnsPlan(t *testing.T) {
	srv := newTestServer(t, &stubGeocoder{}, nil)
	handler := srv.Handler()

	deadline := time.Now().Add(6 * time.Hour)
	req := ResequenceRequest{
		VehicleID: "V1",
		Latitude:  -34.900,
		Longitude: -56.160,
		Orders: []OrderDTO{
			{ID: "ORD-1", Address: AddressDTO{Latitude: f64(-34.905), Longitude: f64(-56.165)}, Deadline: deadline, WeightKg: 1},
			{ID: "ORD-2", Address: AddressDTO{Latitude: f64(-34.910), Longitude: f64(-56.170)}, Deadline: deadline, WeightKg: 1},
		},
	}
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/routes/resequence", string(raw))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ResequenceResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "V1", resp.VehicleID)
	assert.True(t, resp.Feasible)
	assert.True(t, resp.Exact)
	require.NotNil(t, resp.Route)
	assert.Equal(t, 2, resp.Route.DeliveryCount())
}

func TestGeocodeEndpointFound(t *testing.T) {
	coord := shared.Coordinate{Lat: -34.905, Lon: -56.191}
	geocoder := &stubGeocoder{result: &ports.GeocodeResult{
		Coordinate:  coord,
		DisplayName: "18 de Julio 1234, Montevideo",
		Confidence:  0.9,
	}}
	srv := newTestServer(t, geocoder, nil)
	handler := srv.Handler()

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/geocode",
		`{"address": {"street": "18 de Julio", "number": "1234"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GeocodeResponse
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Found)
	assert.InDelta(t, coord.Lat, resp.Latitude, 1e-9)
	assert.InDelta(t, coord.Lon, resp.Longitude, 1e-9)
	assert.Equal(t, "18 de Julio 1234, Montevideo", resp.DisplayName)
}

func TestGeocodeEndpointNotFoundIsOK(t *testing.T) {
	srv := newTestServer(t, &stubGeocoder{}, nil)
	handler := srv.Handler()

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/geocode",
		`{"address": {"free_text": "nowhere at all"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp GeocodeResponse
	decodeBody(t, rec, &resp)
	assert.False(t, resp.Found)
}

func TestGeocodeEndpointEmptyAddressIsBadRequest(t *testing.T) {
	srv := newTestServer(t, &stubGeocoder{}, nil)
	handler := srv.Handler()

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/geocode", `{"address": {}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReverseGeocodeEndpoint(t *testing.T) {
	geocoder := &stubGeocoder{address: &shared.Address{
		Street: "18 de Julio",
		Number: "1234",
		City:   "Montevideo",
	}}
	srv := newTestServer(t, geocoder, nil)
	handler := srv.Handler()

	rec := doRequest(t, handler, http.MethodPost, "/api/v1/geocode/reverse",
		`{"latitude": -34.905, "longitude": -56.191}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ReverseGeocodeResponse
	decodeBody(t, rec, &resp)
	require.True(t, resp.Found)
	require.NotNil(t, resp.Address)
	assert.Equal(t, "18 de Julio", resp.Address.Street)
	assert.Equal(t, "Montevideo", resp.Address.City)
}

func TestStreetsEndpoint(t *testing.T) {
	index := &stubStreetIndex{streets: []string{"18 de Julio", "8 de Octubre"}}
	srv := newTestServer(t, &stubGeocoder{}, index)
	handler := srv.Handler()

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/streets?q=de", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StreetsResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, []string{"18 de Julio", "8 de Octubre"}, resp.Streets)
}

func TestStreetsEndpointRejectsBadLimit(t *testing.T) {
	srv := newTestServer(t, &stubGeocoder{}, nil)
	handler := srv.Handler()

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/streets?q=de&limit=abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreetsEndpointRejectsEmptyQuery(t *testing.T) {
	srv := newTestServer(t, &stubGeocoder{}, nil)
	handler := srv.Handler()

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/streets", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatsEndpointReflectsTraffic(t *testing.T) {
	srv := newTestServer(t, &stubGeocoder{}, nil)
	handler := srv.Handler()

	body := dispatchBody(t, time.Now().Add(4*time.Hour), testVehicle("V1", 5))
	doRequest(t, handler, http.MethodPost, "/api/v1/dispatch", body)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatsResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, int64(1), resp.Counters.DispatchRequests)
	assert.False(t, resp.StartedAt.IsZero())
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubGeocoder{}, nil)
	handler := srv.Handler()

	rec := doRequest(t, handler, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, "disabled", resp.Components["database"])
}

func TestHealthEndpointDegradedOnDatabaseFailure(t *testing.T) {
	srv := newTestServer(t, &stubGeocoder{}, nil)
	srv.health.DBPing = func(ctx context.Context) error {
		return fmt.Errorf("connection refused")
	}
	handler := srv.Handler()

	rec := doRequest(t, handler, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "degraded", resp.Status)
	assert.Contains(t, resp.Components["database"], "connection refused")
}

func f64(v float64) *float64 { return &v }
