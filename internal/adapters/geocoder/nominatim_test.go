package geocoder_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/dispatch-go/internal/adapters/geocoder"
	"github.com/andrescamacho/dispatch-go/internal/domain/ports"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// newTestClient points a client at the test server with the rate limit
// and backoff effectively disabled.
func newTestClient(serverURL string) *geocoder.NominatimClient {
	clock := shared.NewMockClock(testNow)
	return geocoder.NewNominatimClientWithConfig(serverURL, 1000, 5*time.Second, clock)
}

func TestNominatimSearchParsesStringCoordinates(t *testing.T) {
	var gotQuery, gotFormat string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		gotQuery = r.URL.Query().Get("q")
		gotFormat = r.URL.Query().Get("format")
		fmt.Fprint(w, `[{"lat":"-34.9055","lon":"-56.1865","display_name":"Avenida 18 de Julio, Montevideo"}]`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	place, err := client.Search(context.Background(), "18 de julio, montevideo")

	require.NoError(t, err)
	assert.Equal(t, "18 de julio, montevideo", gotQuery)
	assert.Equal(t, "json", gotFormat)
	assert.InDelta(t, -34.9055, place.Coordinate.Lat, 1e-9)
	assert.InDelta(t, -56.1865, place.Coordinate.Lon, 1e-9)
	assert.Equal(t, "Avenida 18 de Julio, Montevideo", place.DisplayName)
}

func TestNominatimSearchEmptyResultIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Search(context.Background(), "nowhere")

	require.ErrorIs(t, err, ports.ErrAddressNotFound)
}

func TestNominatimSearchManySkipsUnparsableEntries(t *testing.T) {
	var gotLimit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		fmt.Fprint(w, `[
			{"lat":"-34.90","lon":"-56.19","display_name":"first"},
			{"lat":"not-a-number","lon":"-56.20","display_name":"broken"},
			{"lat":"-34.91","lon":"-56.21","display_name":"second"}
		]`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	places, err := client.SearchMany(context.Background(), "colonia", 5)

	require.NoError(t, err)
	assert.Equal(t, "5", gotLimit)
	require.Len(t, places, 2)
	assert.Equal(t, "first", places[0].DisplayName)
	assert.Equal(t, "second", places[1].DisplayName)
}

func TestNominatimReverse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/reverse", r.URL.Path)
		require.Equal(t, "1", r.URL.Query().Get("addressdetails"))
		fmt.Fprint(w, `{
			"display_name": "Colonia 1234, Montevideo, Uruguay",
			"lat": "-34.9059",
			"lon": "-56.1913",
			"address": {
				"road": "Colonia",
				"house_number": "1234",
				"town": "Montevideo",
				"country": "Uruguay",
				"postcode": "11100"
			}
		}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	origin, err := shared.NewCoordinate(-34.9060, -56.1910)
	require.NoError(t, err)

	address, err := client.Reverse(context.Background(), origin)

	require.NoError(t, err)
	assert.Equal(t, "Colonia", address.Street)
	assert.Equal(t, "1234", address.Number)
	assert.Equal(t, "Montevideo", address.City, "town must stand in when city is absent")
	assert.Equal(t, "Uruguay", address.Country)
	assert.Equal(t, "11100", address.PostalCode)
	require.NotNil(t, address.Location)
	assert.InDelta(t, -34.9059, address.Location.Lat, 1e-9, "location must come from the response, not the input")
}

func TestNominatimReverseErrorBodyIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Nominatim answers 200 with an error field for open water.
		fmt.Fprint(w, `{"error":"Unable to geocode"}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	origin, err := shared.NewCoordinate(-35.5, -55.0)
	require.NoError(t, err)

	_, err = client.Reverse(context.Background(), origin)

	require.ErrorIs(t, err, ports.ErrAddressNotFound)
}

func TestNominatimRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `[{"lat":"-34.90","lon":"-56.19","display_name":"hit"}]`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	place, err := client.Search(context.Background(), "colonia 1234")

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "hit", place.DisplayName)
}

func TestNominatimGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Search(context.Background(), "colonia 1234")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(4), calls.Load(), "initial attempt plus three retries")
}

func TestNominatimClientErrorIsFinal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"bad query"}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Search(context.Background(), "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Equal(t, int32(1), calls.Load(), "4xx responses must not be retried")
}

func TestNominatimSendsUserAgent(t *testing.T) {
	var gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		fmt.Fprint(w, `[{"lat":"-34.90","lon":"-56.19","display_name":"hit"}]`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Search(context.Background(), "colonia")

	require.NoError(t, err)
	assert.Equal(t, "dispatch-go/1.0", gotAgent)
}
