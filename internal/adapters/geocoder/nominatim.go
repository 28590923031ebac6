// Package geocoder resolves delivery addresses against a
// Nominatim-compatible provider, with a fallback query cascade, a
// two-level result cache and a circuit breaker.
package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/andrescamacho/dispatch-go/internal/domain/ports"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

const (
	// DefaultBaseURL is the self-hosted Nominatim instance covering
	// Uruguay. Plain HTTP: the host serves no TLS.
	DefaultBaseURL = "http://nominatim.riogas.uy"

	defaultUserAgent   = "dispatch-go/1.0"
	defaultTimeout     = 10 * time.Second
	defaultMaxRetries  = 3
	defaultBackoffBase = 500 * time.Millisecond

	// defaultRequestsPerSecond honors the usual Nominatim usage policy
	// of one request per second.
	defaultRequestsPerSecond = 1.0
)

// Place is one forward-geocoding hit from the provider.
type Place struct {
	Coordinate  shared.Coordinate
	DisplayName string
}

// Provider is the upstream surface the cascade walks. Implemented by
// NominatimClient; tests substitute a stub.
type Provider interface {
	// Search resolves a free-form query to its best hit. Returns
	// ports.ErrAddressNotFound when the provider has no match.
	Search(ctx context.Context, query string) (*Place, error)

	// SearchMany resolves a free-form query to up to limit hits, used
	// for intersection midpoints.
	SearchMany(ctx context.Context, query string, limit int) ([]Place, error)

	// Reverse resolves a coordinate to the closest known address.
	Reverse(ctx context.Context, coordinate shared.Coordinate) (*shared.Address, error)
}

// NominatimClient talks to a Nominatim-compatible HTTP endpoint with
// rate limiting and exponential backoff retries.
type NominatimClient struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	baseURL     string
	userAgent   string
	maxRetries  int
	backoffBase time.Duration
	clock       shared.Clock
}

// NewNominatimClient creates a client against the default self-hosted
// instance at 1 request per second.
func NewNominatimClient() *NominatimClient {
	return NewNominatimClientWithConfig(DefaultBaseURL, defaultRequestsPerSecond, defaultTimeout, nil)
}

// NewNominatimClientWithConfig creates a client with custom settings.
// Zero values select the defaults; a nil clock selects RealClock.
func NewNominatimClientWithConfig(
	baseURL string,
	requestsPerSecond float64,
	timeout time.Duration,
	clock shared.Clock,
) *NominatimClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = defaultRequestsPerSecond
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &NominatimClient{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		baseURL:     baseURL,
		userAgent:   defaultUserAgent,
		maxRetries:  defaultMaxRetries,
		backoffBase: defaultBackoffBase,
		clock:       clock,
	}
}

// nominatimPlace mirrors one entry of a /search response. Nominatim
// serializes coordinates as strings.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Search resolves a query to its best hit.
func (c *NominatimClient) Search(ctx context.Context, query string) (*Place, error) {
	places, err := c.SearchMany(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	return &places[0], nil
}

// SearchMany resolves a query to up to limit hits.
func (c *NominatimClient) SearchMany(ctx context.Context, query string, limit int) ([]Place, error) {
	if limit <= 0 {
		limit = 1
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("limit", strconv.Itoa(limit))

	var raw []nominatimPlace
	if err := c.get(ctx, "/search", params, &raw); err != nil {
		return nil, fmt.Errorf("failed to search %q: %w", query, err)
	}
	if len(raw) == 0 {
		return nil, ports.ErrAddressNotFound
	}

	places := make([]Place, 0, len(raw))
	for _, p := range raw {
		coord, err := parseCoordinate(p.Lat, p.Lon)
		if err != nil {
			continue
		}
		places = append(places, Place{Coordinate: coord, DisplayName: p.DisplayName})
	}
	if len(places) == 0 {
		return nil, ports.ErrAddressNotFound
	}
	return places, nil
}

// nominatimReverse mirrors a /reverse response.
type nominatimReverse struct {
	Error       string `json:"error"`
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Address     struct {
		Road        string `json:"road"`
		HouseNumber string `json:"house_number"`
		Junction    string `json:"junction"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Country     string `json:"country"`
		PostCode    string `json:"postcode"`
	} `json:"address"`
}

// Reverse resolves a coordinate to the closest known address.
func (c *NominatimClient) Reverse(ctx context.Context, coordinate shared.Coordinate) (*shared.Address, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(coordinate.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(coordinate.Lon, 'f', -1, 64))
	params.Set("format", "json")
	params.Set("addressdetails", "1")

	var raw nominatimReverse
	if err := c.get(ctx, "/reverse", params, &raw); err != nil {
		return nil, fmt.Errorf("failed to reverse geocode %s: %w", coordinate, err)
	}
	// Nominatim reports "Unable to geocode" as a 200 with an error body.
	if raw.Error != "" || raw.DisplayName == "" {
		return nil, ports.ErrAddressNotFound
	}

	city := raw.Address.City
	if city == "" {
		city = raw.Address.Town
	}

	resolved := coordinate
	if parsed, err := parseCoordinate(raw.Lat, raw.Lon); err == nil {
		resolved = parsed
	}

	address := &shared.Address{
		FreeText:   raw.DisplayName,
		Street:     raw.Address.Road,
		Number:     raw.Address.HouseNumber,
		Corner1:    raw.Address.Junction,
		City:       city,
		Country:    raw.Address.Country,
		PostalCode: raw.Address.PostCode,
		Location:   &resolved,
	}
	return address, nil
}

// get performs one GET with rate limiting and retries on transient
// failures. Backoff doubles per attempt with 50-150% jitter; sleeps go
// through the injected clock so tests with MockClock never wait.
func (c *NominatimClient) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	endpoint := c.baseURL + path + "?" + params.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("network error: %w", err)
			if attempt >= c.maxRetries {
				break
			}
			if ctx.Err() != nil {
				return fmt.Errorf("context cancelled: %w", ctx.Err())
			}
			c.clock.Sleep(addJitter(c.backoffBase * time.Duration(1<<attempt)))
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		// 429 and 5xx are transient; everything else 4xx is final.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("provider error (status %d)", resp.StatusCode)
			if attempt >= c.maxRetries {
				break
			}
			if ctx.Err() != nil {
				return fmt.Errorf("context cancelled: %w", ctx.Err())
			}
			c.clock.Sleep(addJitter(c.backoffBase * time.Duration(1<<attempt)))
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("provider error (status %d): %s", resp.StatusCode, string(body))
		}

		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
		return nil
	}

	if lastErr != nil {
		return fmt.Errorf("max retries exceeded: %w", lastErr)
	}
	return fmt.Errorf("max retries exceeded")
}

// addJitter spreads retries between 50% and 150% of the base delay.
func addJitter(d time.Duration) time.Duration {
	jitter := 0.5 + rand.Float64()
	return time.Duration(float64(d) * jitter)
}

func parseCoordinate(lat, lon string) (shared.Coordinate, error) {
	latF, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return shared.Coordinate{}, fmt.Errorf("invalid latitude %q: %w", lat, err)
	}
	lonF, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return shared.Coordinate{}, fmt.Errorf("invalid longitude %q: %w", lon, err)
	}
	return shared.NewCoordinate(latF, lonF)
}
