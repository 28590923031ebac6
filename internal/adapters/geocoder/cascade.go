package geocoder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andrescamacho/dispatch-go/internal/domain/ports"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
)

const (
	// DefaultCity and DefaultCountry anchor bare street queries to the
	// served area.
	DefaultCity    = "Montevideo"
	DefaultCountry = "Uruguay"

	// intersectionCandidates is how many hits per street feed the
	// closest-pair midpoint search.
	intersectionCandidates = 5

	// Breaker defaults: five consecutive provider failures open the
	// circuit for thirty seconds.
	defaultBreakerFailures = 5
	defaultBreakerTimeout  = 30 * time.Second
)

// CascadeGeocoder implements ports.Geocoder. Forward resolution walks a
// fallback cascade from the most to the least specific form of the
// address; the first hit wins, with confidence decreasing down the
// cascade. Hits land in an in-memory map and, when a repository is
// configured, in the database.
type CascadeGeocoder struct {
	provider Provider
	cache    ports.GeocodeCacheRepository
	breaker  *CircuitBreaker
	clock    shared.Clock
	city     string
	country  string

	memory sync.Map // normalized query -> *ports.GeocodeResult

	requests      atomic.Int64
	cacheHits     atomic.Int64
	providerCalls atomic.Int64
}

// NewCascadeGeocoder creates a geocoder over the given provider. The
// cache repository may be nil (memory-only caching); empty city and
// country fall back to the Montevideo defaults.
func NewCascadeGeocoder(
	provider Provider,
	cache ports.GeocodeCacheRepository,
	breaker *CircuitBreaker,
	clock shared.Clock,
	city, country string,
) *CascadeGeocoder {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	if breaker == nil {
		breaker = NewCircuitBreaker(defaultBreakerFailures, defaultBreakerTimeout, clock)
	}
	if city == "" {
		city = DefaultCity
	}
	if country == "" {
		country = DefaultCountry
	}
	return &CascadeGeocoder{
		provider: provider,
		cache:    cache,
		breaker:  breaker,
		clock:    clock,
		city:     city,
		country:  country,
	}
}

// step is one cascade attempt: either a single provider query or an
// intersection of two streets.
type step struct {
	name       string
	query      string
	streets    [2]string
	confidence float64
}

func (s step) isIntersection() bool {
	return s.streets[0] != ""
}

func (s step) describe() string {
	if s.isIntersection() {
		return s.streets[0] + " & " + s.streets[1]
	}
	return s.query
}

// Geocode resolves an address to coordinates.
func (g *CascadeGeocoder) Geocode(ctx context.Context, address shared.Address) (*ports.GeocodeResult, error) {
	g.requests.Add(1)

	// An already resolved address short-circuits the cascade.
	if address.HasLocation() {
		return &ports.GeocodeResult{
			Coordinate:  *address.Location,
			DisplayName: address.FullText(),
			Confidence:  1.0,
		}, nil
	}

	for _, s := range g.plan(address) {
		result, err := g.resolve(ctx, address, s)
		if errors.Is(err, ports.ErrAddressNotFound) {
			log.Printf("Geocode miss (%s): %s", s.name, s.describe())
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}

	return nil, ports.ErrAddressNotFound
}

// plan builds the cascade for one address, most specific first.
func (g *CascadeGeocoder) plan(a shared.Address) []step {
	var steps []step
	add := func(name, query string, confidence float64) {
		steps = append(steps, step{name: name, query: query, confidence: confidence})
	}
	cross := func(name, first, second string, confidence float64) {
		steps = append(steps, step{name: name, streets: [2]string{first, second}, confidence: confidence})
	}

	if a.FreeText != "" {
		add("free-text", g.regionQuery(a, a.FreeText), 0.95)
	}
	if a.Street != "" && a.Number != "" {
		add("street-number", g.regionQuery(a, a.Street+" "+a.Number), 0.90)
	}
	if a.Street != "" && a.Corner1 != "" {
		cross("street-corner", a.Street, a.Corner1, 0.80)
	}
	if a.Street != "" {
		add("street-only", g.regionQuery(a, a.Street), 0.65)
	}
	if a.Corner1 != "" && a.Corner2 != "" {
		cross("corner-corner", a.Corner1, a.Corner2, 0.60)
	}
	if a.Corner1 != "" {
		add("corner-only", g.regionQuery(a, a.Corner1), 0.45)
	}
	return steps
}

// regionQuery anchors a street line to the address's city and country,
// defaulting to the served area.
func (g *CascadeGeocoder) regionQuery(a shared.Address, line string) string {
	city := a.City
	if city == "" {
		city = g.city
	}
	country := a.Country
	if country == "" {
		country = g.country
	}
	return fmt.Sprintf("%s, %s, %s", line, city, country)
}

func (g *CascadeGeocoder) resolve(ctx context.Context, a shared.Address, s step) (*ports.GeocodeResult, error) {
	if s.isIntersection() {
		return g.resolveIntersection(ctx, a, s)
	}

	key := normalizeKey(s.query)
	if cached := g.cacheGet(ctx, key); cached != nil {
		return cached, nil
	}

	place, err := g.search(ctx, s.query)
	if err != nil {
		return nil, err
	}

	result := &ports.GeocodeResult{
		Coordinate:  place.Coordinate,
		DisplayName: place.DisplayName,
		Confidence:  s.confidence,
	}
	g.cacheSave(ctx, key, result)
	return result, nil
}

// resolveIntersection approximates where two streets cross: fetch a
// handful of hits for each and take the midpoint of the closest pair.
func (g *CascadeGeocoder) resolveIntersection(ctx context.Context, a shared.Address, s step) (*ports.GeocodeResult, error) {
	display := g.regionQuery(a, s.streets[0]+" & "+s.streets[1])
	key := normalizeKey(display)
	if cached := g.cacheGet(ctx, key); cached != nil {
		return cached, nil
	}

	firstHits, err := g.searchMany(ctx, g.regionQuery(a, s.streets[0]), intersectionCandidates)
	if err != nil {
		return nil, err
	}
	secondHits, err := g.searchMany(ctx, g.regionQuery(a, s.streets[1]), intersectionCandidates)
	if err != nil {
		return nil, err
	}

	best := math.MaxFloat64
	var midpoint shared.Coordinate
	for _, p1 := range firstHits {
		for _, p2 := range secondHits {
			d := p1.Coordinate.DistanceMeters(p2.Coordinate)
			if d < best {
				best = d
				midpoint = shared.Coordinate{
					Lat: (p1.Coordinate.Lat + p2.Coordinate.Lat) / 2,
					Lon: (p1.Coordinate.Lon + p2.Coordinate.Lon) / 2,
				}
			}
		}
	}
	if best == math.MaxFloat64 {
		return nil, ports.ErrAddressNotFound
	}

	result := &ports.GeocodeResult{
		Coordinate:  midpoint,
		DisplayName: display,
		Confidence:  s.confidence,
	}
	g.cacheSave(ctx, key, result)
	return result, nil
}

// ReverseGeocode resolves a coordinate to the closest known address.
func (g *CascadeGeocoder) ReverseGeocode(ctx context.Context, coordinate shared.Coordinate) (*shared.Address, error) {
	g.requests.Add(1)
	g.providerCalls.Add(1)

	var address *shared.Address
	err := g.breaker.Call(func() error {
		found, err := g.provider.Reverse(ctx, coordinate)
		if errors.Is(err, ports.ErrAddressNotFound) {
			// A clean miss is not a provider failure.
			return nil
		}
		if err != nil {
			return err
		}
		address = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	if address == nil {
		return nil, ports.ErrAddressNotFound
	}
	return address, nil
}

// Stats exposes cache and breaker state for health and stats endpoints.
func (g *CascadeGeocoder) Stats() ports.GeocoderStats {
	return ports.GeocoderStats{
		Requests:      g.requests.Load(),
		CacheHits:     g.cacheHits.Load(),
		ProviderCalls: g.providerCalls.Load(),
		BreakerOpen:   g.breaker.State() == CircuitOpen,
	}
}

func (g *CascadeGeocoder) search(ctx context.Context, query string) (*Place, error) {
	g.providerCalls.Add(1)

	var place *Place
	err := g.breaker.Call(func() error {
		p, err := g.provider.Search(ctx, query)
		if errors.Is(err, ports.ErrAddressNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		place = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if place == nil {
		return nil, ports.ErrAddressNotFound
	}
	return place, nil
}

func (g *CascadeGeocoder) searchMany(ctx context.Context, query string, limit int) ([]Place, error) {
	g.providerCalls.Add(1)

	var places []Place
	err := g.breaker.Call(func() error {
		p, err := g.provider.SearchMany(ctx, query, limit)
		if errors.Is(err, ports.ErrAddressNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		places = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(places) == 0 {
		return nil, ports.ErrAddressNotFound
	}
	return places, nil
}

func (g *CascadeGeocoder) cacheGet(ctx context.Context, key string) *ports.GeocodeResult {
	if v, ok := g.memory.Load(key); ok {
		g.cacheHits.Add(1)
		cached := *v.(*ports.GeocodeResult)
		return &cached
	}
	if g.cache == nil {
		return nil
	}

	entry, err := g.cache.Find(ctx, key)
	if err != nil {
		log.Printf("Warning: geocode cache lookup failed for %q: %v", key, err)
		return nil
	}
	if entry == nil {
		return nil
	}

	result := &ports.GeocodeResult{
		Coordinate:  entry.Coordinate,
		DisplayName: entry.DisplayName,
		Confidence:  entry.Confidence,
	}
	g.memory.Store(key, result)
	g.cacheHits.Add(1)
	cached := *result
	return &cached
}

func (g *CascadeGeocoder) cacheSave(ctx context.Context, key string, result *ports.GeocodeResult) {
	stored := *result
	g.memory.Store(key, &stored)

	if g.cache == nil {
		return
	}
	entry := &ports.CachedGeocode{
		Key:         key,
		Coordinate:  result.Coordinate,
		DisplayName: result.DisplayName,
		Confidence:  result.Confidence,
		Provider:    "nominatim",
		CreatedAt:   g.clock.Now().UTC(),
	}
	if err := g.cache.Save(ctx, entry); err != nil {
		log.Printf("Warning: failed to persist geocode cache entry %q: %v", key, err)
	}
}

// normalizeKey lowercases and collapses whitespace so equivalent
// queries share one cache slot.
func normalizeKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

var (
	_ ports.Geocoder          = (*CascadeGeocoder)(nil)
	_ ports.GeocoderInspector = (*CascadeGeocoder)(nil)
	_ Provider                = (*NominatimClient)(nil)
)
