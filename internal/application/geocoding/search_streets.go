package geocoding

import (
	"context"
	"fmt"
	"strings"

	"github.com/andrescamacho/dispatch-go/internal/application/common"
	"github.com/andrescamacho/dispatch-go/internal/domain/routing"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

const (
	// DefaultStreetLimit is the result cap when the caller gives none.
	DefaultStreetLimit = 20

	// MaxStreetLimit caps the configurable result count.
	MaxStreetLimit = 100
)

// SearchStreetsQuery represents a query for street names known to the
// loaded road network.
type SearchStreetsQuery struct {
	Query string
	Limit int
}

// SearchStreetsResponse carries the matching street names.
type SearchStreetsResponse struct {
	Streets []string
}

// SearchStreetsHandler handles the SearchStreets query.
type SearchStreetsHandler struct {
	index routing.StreetIndex
}

// NewSearchStreetsHandler creates a new SearchStreetsHandler. A nil
// index means no graph is loaded and every search comes back empty.
func NewSearchStreetsHandler(index routing.StreetIndex) *SearchStreetsHandler {
	return &SearchStreetsHandler{index: index}
}

// Handle executes the SearchStreets query.
func (h *SearchStreetsHandler) Handle(ctx context.Context, request common.Request) (common.Response, error) {
	query, ok := request.(*SearchStreetsQuery)
	if !ok {
		return nil, fmt.Errorf("invalid request type: expected *SearchStreetsQuery")
	}

	text := strings.TrimSpace(query.Query)
	if text == "" {
		return nil, shared.NewValidationError("q", "query cannot be empty")
	}

	limit := query.Limit
	if limit <= 0 {
		limit = DefaultStreetLimit
	}
	if limit > MaxStreetLimit {
		limit = MaxStreetLimit
	}

	if h.index == nil {
		return &SearchStreetsResponse{Streets: []string{}}, nil
	}

	return &SearchStreetsResponse{Streets: h.index.SearchStreets(text, limit)}, nil
}
