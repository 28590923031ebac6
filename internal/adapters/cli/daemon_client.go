package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andrescamacho/dispatch-go/internal/adapters/api"
)

// DaemonClient talks to a running dispatch daemon over its HTTP API.
// It reuses the server's wire types so the CLI never drifts from the
// daemon contract.
type DaemonClient struct {
	baseURL string
	http    *http.Client
}

// NewDaemonClient creates a client against the given daemon URL.
func NewDaemonClient(serverURL string) (*DaemonClient, error) {
	base := strings.TrimRight(serverURL, "/")
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", serverURL, err)
	}

	return &DaemonClient{
		baseURL: base,
		http:    &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// Dispatch submits one order against a fleet snapshot.
func (c *DaemonClient) Dispatch(ctx context.Context, req *api.DispatchRequest) (*api.DispatchResponse, error) {
	var resp api.DispatchResponse
	if err := c.post(ctx, "/api/v1/dispatch", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DispatchBatch submits a batch of orders against one fleet snapshot.
func (c *DaemonClient) DispatchBatch(ctx context.Context, req *api.BatchDispatchRequest) (*api.BatchDispatchResponse, error) {
	var resp api.BatchDispatchResponse
	if err := c.post(ctx, "/api/v1/dispatch/batch", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resequence replans the stop order of one vehicle's route.
func (c *DaemonClient) Resequence(ctx context.Context, req *api.ResequenceRequest) (*api.ResequenceResponse, error) {
	var resp api.ResequenceResponse
	if err := c.post(ctx, "/api/v1/routes/resequence", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Geocode resolves an address to coordinates.
func (c *DaemonClient) Geocode(ctx context.Context, req *api.GeocodeRequest) (*api.GeocodeResponse, error) {
	var resp api.GeocodeResponse
	if err := c.post(ctx, "/api/v1/geocode", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReverseGeocode resolves coordinates to the closest known address.
func (c *DaemonClient) ReverseGeocode(ctx context.Context, req *api.ReverseGeocodeRequest) (*api.ReverseGeocodeResponse, error) {
	var resp api.ReverseGeocodeResponse
	if err := c.post(ctx, "/api/v1/geocode/reverse", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchStreets looks up street names known to the road network.
func (c *DaemonClient) SearchStreets(ctx context.Context, query string, limit int) (*api.StreetsResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var resp api.StreetsResponse
	if err := c.get(ctx, "/api/v1/streets?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats fetches the service counters and component statistics.
func (c *DaemonClient) Stats(ctx context.Context) (*api.StatsResponse, error) {
	var resp api.StatsResponse
	if err := c.get(ctx, "/api/v1/stats", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks daemon liveness and component states.
func (c *DaemonClient) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.get(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *DaemonClient) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *DaemonClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	return c.do(req, out)
}

func (c *DaemonClient) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach daemon at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read daemon response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp api.ErrorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("daemon returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode daemon response: %w", err)
	}
	return nil
}
