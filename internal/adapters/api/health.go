package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// healthProbeTimeout bounds each component probe so a hung database
// cannot stall the health endpoint.
const healthProbeTimeout = 2 * time.Second

// handleHealth serves GET /health. The endpoint answers 200 with a
// per-component breakdown; a degraded component changes the status
// field, not the status code, so orchestrators keep routing while
// operators investigate.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{
		"database": s.probeDatabase(r.Context()),
		"network":  s.probeNetwork(),
		"geocoder": s.probeGeocoder(),
	}

	status := "ok"
	for _, state := range components {
		if strings.HasPrefix(state, "error") {
			status = "degraded"
			break
		}
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:     status,
		Version:    s.health.Version,
		UptimeS:    time.Since(s.health.StartedAt).Seconds(),
		Components: components,
	})
}

func (s *Server) probeDatabase(ctx context.Context) string {
	if s.health.DBPing == nil {
		return "disabled"
	}
	probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()
	if err := s.health.DBPing(probeCtx); err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return "ok"
}

func (s *Server) probeNetwork() string {
	if s.health.Network == nil {
		return "disabled"
	}
	stats := s.health.Network.Stats()
	if stats.PreloadedGraph {
		return fmt.Sprintf("preloaded (%s, %d nodes)", stats.PreloadedArea, stats.GraphNodes)
	}
	return "on-demand"
}

func (s *Server) probeGeocoder() string {
	if s.health.Geocoder == nil {
		return "disabled"
	}
	if s.health.Geocoder.Stats().BreakerOpen {
		return "breaker open"
	}
	return "ok"
}
