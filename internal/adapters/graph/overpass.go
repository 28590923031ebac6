package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

const (
	// DefaultEndpoint is the self-hosted Overpass mirror covering
	// Uruguay.
	DefaultEndpoint = "http://overpass.riogas.uy/api/interpreter"

	defaultUserAgent   = "dispatch-go/1.0"
	defaultTimeout     = 120 * time.Second
	defaultMaxRetries  = 2
	defaultBackoffBase = 2 * time.Second

	// overpassQueryTimeoutSec is the server-side limit embedded in each
	// query; bbox downloads for a full city take tens of seconds.
	overpassQueryTimeoutSec = 90

	// defaultRequestsPerSecond keeps graph downloads from starving the
	// shared mirror.
	defaultRequestsPerSecond = 0.5
)

// Fetcher retrieves the drivable road network inside a bounding box.
// Implemented by OverpassClient; tests substitute hand-built graphs.
type Fetcher interface {
	FetchNetwork(ctx context.Context, box BBox) (*RoadGraph, error)
}

// OverpassClient downloads OpenStreetMap ways and nodes from an
// Overpass API endpoint with rate limiting and backoff retries.
type OverpassClient struct {
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	endpoint    string
	userAgent   string
	maxRetries  int
	backoffBase time.Duration
	clock       shared.Clock
}

// NewOverpassClient creates a client against the default mirror.
func NewOverpassClient() *OverpassClient {
	return NewOverpassClientWithConfig(DefaultEndpoint, defaultRequestsPerSecond, defaultTimeout, nil)
}

// NewOverpassClientWithConfig creates a client with custom settings.
// Zero values select the defaults; a nil clock selects RealClock.
func NewOverpassClientWithConfig(endpoint string, requestsPerSecond float64, timeout time.Duration, clock shared.Clock) *OverpassClient {
	if endpoint == "" {
		endpoint = DefaultEndpoint
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
	return &OverpassClient{
		httpClient:  &http.Client{Timeout: timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		endpoint:    endpoint,
		userAgent:   defaultUserAgent,
		maxRetries:  defaultMaxRetries,
		backoffBase: defaultBackoffBase,
		clock:       clock,
	}
}

// overpassElement is one entry of an Overpass JSON response. Nodes
// carry lat/lon; ways carry node id sequences and tags.
type overpassElement struct {
	Type  string            `json:"type"`
	ID    int64             `json:"id"`
	Lat   float64           `json:"lat"`
	Lon   float64           `json:"lon"`
	Nodes []int64           `json:"nodes"`
	Tags  map[string]string `json:"tags"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

// FetchNetwork downloads the drivable ways inside a bounding box and
// assembles them into a directed road graph.
func (c *OverpassClient) FetchNetwork(ctx context.Context, box BBox) (*RoadGraph, error) {
	resp, err := c.post(ctx, driveNetworkQuery(box))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch road network for %s: %w", box, err)
	}
	return buildGraph(resp.Elements), nil
}

// driveNetworkQuery selects highway ways a delivery vehicle can use,
// excluding foot and cycle infrastructure, and recurses down to their
// nodes.
func driveNetworkQuery(box BBox) string {
	excluded := "footway|path|pedestrian|steps|cycleway|bridleway|corridor|platform|construction|proposed|abandoned|raceway|escalator|elevator"
	return fmt.Sprintf(
		`[out:json][timeout:%d];(way["highway"]["highway"!~"^(%s)$"]["area"!="yes"]["motor_vehicle"!~"no"]["motorcar"!~"no"](%s);>;);out body;`,
		overpassQueryTimeoutSec, excluded, box,
	)
}

// post submits one Overpass QL query as form data, retrying transient
// failures with jittered exponential backoff.
func (c *OverpassClient) post(ctx context.Context, query string) (*overpassResponse, error) {
	form := url.Values{}
	form.Set("data", query)
	payload := form.Encode()

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("network error: %w", err)
			if attempt >= c.maxRetries {
				break
			}
			if ctx.Err() != nil {
				return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
			}
			c.clock.Sleep(addJitter(c.backoffBase * time.Duration(1<<attempt)))
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		// Overpass signals load shedding with 429 and gateway timeouts
		// with 504; both are worth retrying.
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("overpass error (status %d)", resp.StatusCode)
			if attempt >= c.maxRetries {
				break
			}
			if ctx.Err() != nil {
				return nil, fmt.Errorf("context cancelled: %w", ctx.Err())
			}
			c.clock.Sleep(addJitter(c.backoffBase * time.Duration(1<<attempt)))
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("overpass error (status %d): %s", resp.StatusCode, string(body))
		}

		var parsed overpassResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}
		return &parsed, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
	}
	return nil, fmt.Errorf("max retries exceeded")
}

// addJitter spreads retries between 50% and 150% of the base delay.
func addJitter(d time.Duration) time.Duration {
	jitter := 0.5 + rand.Float64()
	return time.Duration(float64(d) * jitter)
}
