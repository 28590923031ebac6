package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/andrescamacho/dispatch-go/internal/application/dispatching"
	"github.com/andrescamacho/dispatch-go/internal/application/geocoding"
	"github.com/andrescamacho/dispatch-go/internal/application/stats"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

// handleDispatch serves POST /api/v1/dispatch.
func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, err)
		return
	}

	opts, err := req.Options.apply(s.defaults.Dispatch)
	if err != nil {
		respondError(w, err)
		return
	}

	now := time.Now()
	ord, err := req.Order.toDomain(now)
	if err != nil {
		respondError(w, err)
		return
	}
	vehicles, err := vehiclesToDomain(req.Vehicles, now)
	if err != nil {
		respondError(w, err)
		return
	}

	response, err := s.mediator.Send(r.Context(), &dispatching.AssignOrderCommand{
		Order:    ord,
		Vehicles: vehicles,
		Options:  opts,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	assignResp, ok := response.(*dispatching.AssignOrderResponse)
	if !ok {
		respondError(w, fmt.Errorf("unexpected response type from assign order handler"))
		return
	}

	respondJSON(w, http.StatusOK, dispatchResponseFromResult(assignResp.Result))
}

// handleDispatchBatch serves POST /api/v1/dispatch/batch.
func (s *Server) handleDispatchBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchDispatchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, err)
		return
	}

	opts, err := req.Options.apply(s.defaults.Batch)
	if err != nil {
		respondError(w, err)
		return
	}

	now := time.Now()
	domainOrders, err := ordersToDomain(req.Orders, now)
	if err != nil {
		respondError(w, err)
		return
	}
	vehicles, err := vehiclesToDomain(req.Vehicles, now)
	if err != nil {
		respondError(w, err)
		return
	}

	response, err := s.mediator.Send(r.Context(), &dispatching.AssignBatchCommand{
		Orders:   domainOrders,
		Vehicles: vehicles,
		Options:  opts,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	batchResp, ok := response.(*dispatching.AssignBatchResponse)
	if !ok {
		respondError(w, fmt.Errorf("unexpected response type from assign batch handler"))
		return
	}

	respondJSON(w, http.StatusOK, batchResponseFromResult(batchResp.BatchID, batchResp.Batch))
}

// handleResequence serves POST /api/v1/routes/resequence.
func (s *Server) handleResequence(w http.ResponseWriter, r *http.Request) {
	var req ResequenceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, err)
		return
	}

	start, err := shared.NewCoordinate(req.Latitude, req.Longitude)
	if err != nil {
		respondError(w, err)
		return
	}

	now := time.Now()
	orders, err := ordersToDomain(req.Orders, now)
	if err != nil {
		respondError(w, err)
		return
	}

	opts := s.defaults.Sequencer
	if req.TimeBudgetS > 0 {
		opts.Budget = time.Duration(req.TimeBudgetS * float64(time.Second))
	}

	var departAt time.Time
	if req.DepartAt != nil {
		departAt = *req.DepartAt
	}

	response, err := s.mediator.Send(r.Context(), &dispatching.ResequenceRouteCommand{
		VehicleID: req.VehicleID,
		Start:     start,
		Orders:    orders,
		DepartAt:  departAt,
		Options:   opts,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	resequenceResp, ok := response.(*dispatching.ResequenceRouteResponse)
	if !ok {
		respondError(w, fmt.Errorf("unexpected response type from resequence handler"))
		return
	}

	respondJSON(w, http.StatusOK, resequenceResponseFromResult(resequenceResp.VehicleID, resequenceResp.Plan))
}

// handleGeocode serves POST /api/v1/geocode.
func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	var req GeocodeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, err)
		return
	}

	address, err := req.Address.toDomain()
	if err != nil {
		respondError(w, err)
		return
	}

	response, err := s.mediator.Send(r.Context(), &geocoding.GeocodeAddressQuery{Address: address})
	if err != nil {
		respondError(w, err)
		return
	}
	geocodeResp, ok := response.(*geocoding.GeocodeAddressResponse)
	if !ok {
		respondError(w, fmt.Errorf("unexpected response type from geocode handler"))
		return
	}

	respondJSON(w, http.StatusOK, geocodeResponseFromResult(geocodeResp.Found, geocodeResp.Result))
}

// handleReverseGeocode serves POST /api/v1/geocode/reverse.
func (s *Server) handleReverseGeocode(w http.ResponseWriter, r *http.Request) {
	var req ReverseGeocodeRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, err)
		return
	}

	coordinate, err := shared.NewCoordinate(req.Latitude, req.Longitude)
	if err != nil {
		respondError(w, err)
		return
	}

	response, err := s.mediator.Send(r.Context(), &geocoding.ReverseGeocodeQuery{Coordinate: coordinate})
	if err != nil {
		respondError(w, err)
		return
	}
	reverseResp, ok := response.(*geocoding.ReverseGeocodeResponse)
	if !ok {
		respondError(w, fmt.Errorf("unexpected response type from reverse geocode handler"))
		return
	}

	respondJSON(w, http.StatusOK, ReverseGeocodeResponse{
		Found:   reverseResp.Found,
		Address: addressFromDomain(reverseResp.Address),
	})
}

// handleStreets serves GET /api/v1/streets.
func (s *Server) handleStreets(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, shared.NewValidationError("limit", "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	response, err := s.mediator.Send(r.Context(), &geocoding.SearchStreetsQuery{Query: query, Limit: limit})
	if err != nil {
		respondError(w, err)
		return
	}
	streetsResp, ok := response.(*geocoding.SearchStreetsResponse)
	if !ok {
		respondError(w, fmt.Errorf("unexpected response type from street search handler"))
		return
	}

	streets := streetsResp.Streets
	if streets == nil {
		streets = []string{}
	}
	respondJSON(w, http.StatusOK, StreetsResponse{Streets: streets, Count: len(streets)})
}

// handleStats serves GET /api/v1/stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	response, err := s.mediator.Send(r.Context(), &stats.ServiceStatsQuery{})
	if err != nil {
		respondError(w, err)
		return
	}
	statsResp, ok := response.(*stats.ServiceStatsResponse)
	if !ok {
		respondError(w, fmt.Errorf("unexpected response type from stats handler"))
		return
	}

	out := StatsResponse{
		StartedAt:           statsResp.StartedAt,
		UptimeS:             statsResp.Uptime.Seconds(),
		Counters:            statsResp.Counters,
		GeocodeCacheEntries: statsResp.GeocodeCacheEntries,
		Geocoder:            statsResp.Geocoder,
		Network:             statsResp.Network,
	}
	if statsResp.Assignments != nil {
		out.Assignments = &AssignmentStatsDTO{
			Total:         statsResp.Assignments.Total,
			Assigned:      statsResp.Assignments.Assigned,
			Unassigned:    statsResp.Assignments.Unassigned,
			ByReason:      statsResp.Assignments.ByReason,
			AvgDurationMs: statsResp.Assignments.AvgDurationMs,
		}
	}

	respondJSON(w, http.StatusOK, out)
}
