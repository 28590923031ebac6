package steps

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/andrescamacho/dispatch-go/internal/adapters/geocoder"
	"github.com/andrescamacho/dispatch-go/internal/adapters/persistence"
	"github.com/andrescamacho/dispatch-go/internal/application/common"
	"github.com/andrescamacho/dispatch-go/internal/application/geocoding"
	"github.com/andrescamacho/dispatch-go/internal/domain/shared"
	"github.com/andrescamacho/dispatch-go/test/helpers"
)

// breaker settings for the feature: five failures open the circuit for
// thirty seconds, matching the production defaults.
const (
	featureBreakerFailures = 5
	featureBreakerTimeout  = 30 * time.Second
)

// stubStreetIndex serves street suggestions from a fixed list, standing
// in for the loaded road network graph.
type stubStreetIndex struct {
	names []string
}

func (s *stubStreetIndex) SearchStreets(query string, limit int) []string {
	q := strings.ToLower(query)
	matches := make([]string, 0, limit)
	for _, name := range s.names {
		if !strings.Contains(strings.ToLower(name), q) {
			continue
		}
		matches = append(matches, name)
		if len(matches) == limit {
			break
		}
	}
	return matches
}

// geocodeContext drives the geocoding feature: the real cascade over a
// scripted provider, with the persistent cache on the shared test
// database.
type geocodeContext struct {
	clock    *shared.MockClock
	provider *helpers.MockGeocodeProvider
	cache    *persistence.GormGeocodeCacheRepository
	counters *common.Counters
	index    *stubStreetIndex
	med      common.Mediator

	response        *geocoding.GeocodeAddressResponse
	reverseResponse *geocoding.ReverseGeocodeResponse
	streetsResponse *geocoding.SearchStreetsResponse
	err             error
	streetsErr      error
}

func (c *geocodeContext) reset() error {
	if err := helpers.TruncateAllTables(); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}

	c.clock = shared.NewMockClock(fleetBaseTime)
	c.provider = helpers.NewMockGeocodeProvider()
	c.cache = persistence.NewGormGeocodeCacheRepository(helpers.SharedTestDB)
	c.counters = common.NewCounters()
	c.index = &stubStreetIndex{}
	c.response = nil
	c.reverseResponse = nil
	c.streetsResponse = nil
	c.err = nil
	c.streetsErr = nil
	return c.rebuild()
}

// rebuild assembles a fresh cascade and mediator over the current
// provider and cache, the way a daemon restart would: the in-memory
// cache layer and the breaker state are lost, the database survives.
func (c *geocodeContext) rebuild() error {
	breaker := geocoder.NewCircuitBreaker(featureBreakerFailures, featureBreakerTimeout, c.clock)
	cascade := geocoder.NewCascadeGeocoder(c.provider, c.cache, breaker, c.clock, "", "")

	med := common.NewMediator()
	if err := common.RegisterHandler[*geocoding.GeocodeAddressQuery](med,
		geocoding.NewGeocodeAddressHandler(cascade, c.counters)); err != nil {
		return err
	}
	if err := common.RegisterHandler[*geocoding.ReverseGeocodeQuery](med,
		geocoding.NewReverseGeocodeHandler(cascade, c.counters)); err != nil {
		return err
	}
	if err := common.RegisterHandler[*geocoding.SearchStreetsQuery](med,
		geocoding.NewSearchStreetsHandler(c.index)); err != nil {
		return err
	}
	c.med = med
	return nil
}

// Given steps

func (c *geocodeContext) aGeocodingDaemonWithAnEmptyCache() error {
	count, err := c.cache.Count(context.Background())
	if err != nil {
		return err
	}
	if count != 0 {
		return fmt.Errorf("cache should start empty, holds %d entries", count)
	}
	return nil
}

func (c *geocodeContext) theProviderKnows(query string, lat, lon float64) error {
	coord, err := shared.NewCoordinate(lat, lon)
	if err != nil {
		return err
	}
	c.provider.Know(query, geocoder.Place{Coordinate: coord, DisplayName: query})
	return nil
}

func (c *geocodeContext) theProviderKnowsTheseHitsFor(query string, table *godog.Table) error {
	if len(table.Rows) < 2 {
		return fmt.Errorf("hits table needs a header and at least one row")
	}
	places := make([]geocoder.Place, 0, len(table.Rows)-1)
	for _, row := range table.Rows[1:] {
		if len(row.Cells) != 2 {
			return fmt.Errorf("expected columns |latitude|longitude|, got %d cells", len(row.Cells))
		}
		var lat, lon float64
		if _, err := fmt.Sscanf(row.Cells[0].Value, "%f", &lat); err != nil {
			return fmt.Errorf("invalid latitude %q: %w", row.Cells[0].Value, err)
		}
		if _, err := fmt.Sscanf(row.Cells[1].Value, "%f", &lon); err != nil {
			return fmt.Errorf("invalid longitude %q: %w", row.Cells[1].Value, err)
		}
		coord, err := shared.NewCoordinate(lat, lon)
		if err != nil {
			return err
		}
		places = append(places, geocoder.Place{Coordinate: coord, DisplayName: query})
	}
	c.provider.KnowMany(query, places)
	return nil
}

func (c *geocodeContext) theProviderIsFailing() error {
	c.provider.SetFailing(true)
	return nil
}

func (c *geocodeContext) theProviderRecovers() error {
	c.provider.SetFailing(false)
	return nil
}

func (c *geocodeContext) theProviderReverses(lat, lon float64, text string) error {
	coord, err := shared.NewCoordinate(lat, lon)
	if err != nil {
		return err
	}
	c.provider.KnowReverse(coord, shared.Address{FreeText: text, City: "Montevideo", Country: "Uruguay"})
	return nil
}

func (c *geocodeContext) aStreetIndexContaining(table *godog.Table) error {
	if len(table.Rows) < 2 {
		return fmt.Errorf("street table needs a header and at least one row")
	}
	for _, row := range table.Rows[1:] {
		c.index.names = append(c.index.names, row.Cells[0].Value)
	}
	return nil
}

func (c *geocodeContext) secondsPass(seconds int) error {
	c.clock.Advance(time.Duration(seconds) * time.Second)
	return nil
}

// When steps

func (c *geocodeContext) geocode(address shared.Address) error {
	resp, err := c.med.Send(context.Background(), &geocoding.GeocodeAddressQuery{Address: address})
	c.err = err
	c.response = nil
	if err == nil {
		c.response = resp.(*geocoding.GeocodeAddressResponse)
	}
	return nil
}

func (c *geocodeContext) iGeocodeTheAddress(text string) error {
	return c.geocode(shared.Address{FreeText: text})
}

func (c *geocodeContext) iGeocodeTheAddressTimes(text string, times int) error {
	for i := 0; i < times; i++ {
		if err := c.iGeocodeTheAddress(text); err != nil {
			return err
		}
	}
	return nil
}

func (c *geocodeContext) iGeocodeTheCornerOf(first, second string) error {
	return c.geocode(shared.Address{Corner1: first, Corner2: second})
}

func (c *geocodeContext) theGeocodingDaemonRestarts() error {
	return c.rebuild()
}

func (c *geocodeContext) iReverseGeocode(lat, lon float64) error {
	coord, err := shared.NewCoordinate(lat, lon)
	if err != nil {
		return err
	}
	resp, err := c.med.Send(context.Background(), &geocoding.ReverseGeocodeQuery{Coordinate: coord})
	c.err = err
	c.reverseResponse = nil
	if err == nil {
		c.reverseResponse = resp.(*geocoding.ReverseGeocodeResponse)
	}
	return nil
}

func (c *geocodeContext) iSearchStreetsFor(query string, limit int) error {
	resp, err := c.med.Send(context.Background(), &geocoding.SearchStreetsQuery{Query: query, Limit: limit})
	c.streetsErr = err
	c.streetsResponse = nil
	if err == nil {
		c.streetsResponse = resp.(*geocoding.SearchStreetsResponse)
	}
	return nil
}

// Then steps

func (c *geocodeContext) resolution() (*geocoding.GeocodeAddressResponse, error) {
	if c.err != nil {
		return nil, fmt.Errorf("geocode failed: %v", c.err)
	}
	if c.response == nil {
		return nil, fmt.Errorf("no geocode response captured")
	}
	return c.response, nil
}

func (c *geocodeContext) theAddressResolvesTo(lat, lon float64) error {
	resp, err := c.resolution()
	if err != nil {
		return err
	}
	if !resp.Found || resp.Result == nil {
		return fmt.Errorf("address did not resolve")
	}
	got := resp.Result.Coordinate
	if math.Abs(got.Lat-lat) > 1e-4 || math.Abs(got.Lon-lon) > 1e-4 {
		return fmt.Errorf("resolved to (%.4f, %.4f), expected (%.4f, %.4f)", got.Lat, got.Lon, lat, lon)
	}
	return nil
}

func (c *geocodeContext) theConfidenceIs(confidence float64) error {
	resp, err := c.resolution()
	if err != nil {
		return err
	}
	if !resp.Found || resp.Result == nil {
		return fmt.Errorf("address did not resolve")
	}
	if math.Abs(resp.Result.Confidence-confidence) > 1e-9 {
		return fmt.Errorf("confidence is %.2f, expected %.2f", resp.Result.Confidence, confidence)
	}
	return nil
}

func (c *geocodeContext) theProviderWasQueriedTimes(times int) error {
	if got := c.provider.Calls(); got != times {
		return fmt.Errorf("provider was queried %d times, expected %d", got, times)
	}
	return nil
}

func (c *geocodeContext) thePersistentCacheHoldsEntries(count int) error {
	got, err := c.cache.Count(context.Background())
	if err != nil {
		return err
	}
	if got != int64(count) {
		return fmt.Errorf("cache holds %d entries, expected %d", got, count)
	}
	return nil
}

func (c *geocodeContext) theAddressDoesNotResolve() error {
	resp, err := c.resolution()
	if err != nil {
		return err
	}
	if resp.Found {
		return fmt.Errorf("address resolved to %v, expected a miss", resp.Result)
	}
	return nil
}

func (c *geocodeContext) theLastGeocodeFailsWithMessage(substr string) error {
	if c.err == nil {
		return fmt.Errorf("expected the geocode to fail, but it succeeded")
	}
	if !strings.Contains(c.err.Error(), substr) {
		return fmt.Errorf("error %q does not contain %q", c.err.Error(), substr)
	}
	return nil
}

func (c *geocodeContext) theReverseLookupReturns(text string) error {
	if c.err != nil {
		return fmt.Errorf("reverse geocode failed: %v", c.err)
	}
	if c.reverseResponse == nil || !c.reverseResponse.Found || c.reverseResponse.Address == nil {
		return fmt.Errorf("coordinate did not resolve")
	}
	if c.reverseResponse.Address.FreeText != text {
		return fmt.Errorf("reverse lookup returned %q, expected %q", c.reverseResponse.Address.FreeText, text)
	}
	return nil
}

func (c *geocodeContext) theCoordinateDoesNotResolve() error {
	if c.err != nil {
		return fmt.Errorf("reverse geocode failed: %v", c.err)
	}
	if c.reverseResponse == nil {
		return fmt.Errorf("no reverse response captured")
	}
	if c.reverseResponse.Found {
		return fmt.Errorf("coordinate resolved to %v, expected a miss", c.reverseResponse.Address)
	}
	return nil
}

func (c *geocodeContext) iGetExactlyStreetSuggestions(count int) error {
	if c.streetsErr != nil {
		return fmt.Errorf("street search failed: %v", c.streetsErr)
	}
	if c.streetsResponse == nil {
		return fmt.Errorf("no street response captured")
	}
	if len(c.streetsResponse.Streets) != count {
		return fmt.Errorf("got %d suggestions %v, expected %d", len(c.streetsResponse.Streets), c.streetsResponse.Streets, count)
	}
	return nil
}

func (c *geocodeContext) theStreetSuggestionsInclude(name string) error {
	if c.streetsErr != nil {
		return fmt.Errorf("street search failed: %v", c.streetsErr)
	}
	if c.streetsResponse == nil {
		return fmt.Errorf("no street response captured")
	}
	for _, s := range c.streetsResponse.Streets {
		if s == name {
			return nil
		}
	}
	return fmt.Errorf("suggestions %v do not include %q", c.streetsResponse.Streets, name)
}

func (c *geocodeContext) theStreetSearchFailsWithMessage(substr string) error {
	if c.streetsErr == nil {
		return fmt.Errorf("expected the street search to fail, but it succeeded")
	}
	if !strings.Contains(c.streetsErr.Error(), substr) {
		return fmt.Errorf("error %q does not contain %q", c.streetsErr.Error(), substr)
	}
	return nil
}

// InitializeGeocodingScenarios registers the steps for the geocoding
// feature.
func InitializeGeocodingScenarios(sc *godog.ScenarioContext) {
	gc := &geocodeContext{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		if err := gc.reset(); err != nil {
			return ctx, err
		}
		return ctx, nil
	})

	sc.Step(`^a geocoding daemon with an empty cache$`, gc.aGeocodingDaemonWithAnEmptyCache)
	sc.Step(`^the provider knows "([^"]*)" at latitude (-?[0-9.]+) longitude (-?[0-9.]+)$`, gc.theProviderKnows)
	sc.Step(`^the provider knows these hits for "([^"]*)":$`, gc.theProviderKnowsTheseHitsFor)
	sc.Step(`^the provider is failing$`, gc.theProviderIsFailing)
	sc.Step(`^the provider recovers$`, gc.theProviderRecovers)
	sc.Step(`^the provider reverses latitude (-?[0-9.]+) longitude (-?[0-9.]+) to "([^"]*)"$`, gc.theProviderReverses)
	sc.Step(`^a street index containing:$`, gc.aStreetIndexContaining)
	sc.Step(`^(\d+) seconds pass$`, gc.secondsPass)

	sc.Step(`^I geocode the address "([^"]*)"$`, gc.iGeocodeTheAddress)
	sc.Step(`^I geocode the address "([^"]*)" (\d+) times$`, gc.iGeocodeTheAddressTimes)
	sc.Step(`^I geocode the corner of "([^"]*)" and "([^"]*)"$`, gc.iGeocodeTheCornerOf)
	sc.Step(`^the geocoding daemon restarts$`, gc.theGeocodingDaemonRestarts)
	sc.Step(`^I reverse geocode latitude (-?[0-9.]+) longitude (-?[0-9.]+)$`, gc.iReverseGeocode)
	sc.Step(`^I search streets for "([^"]*)" with limit (\d+)$`, gc.iSearchStreetsFor)

	sc.Step(`^the address resolves to latitude (-?[0-9.]+) longitude (-?[0-9.]+)$`, gc.theAddressResolvesTo)
	sc.Step(`^the confidence is ([0-9.]+)$`, gc.theConfidenceIs)
	sc.Step(`^the provider was queried (\d+) times?$`, gc.theProviderWasQueriedTimes)
	sc.Step(`^the persistent cache holds (\d+) entr(?:y|ies)$`, gc.thePersistentCacheHoldsEntries)
	sc.Step(`^the address does not resolve$`, gc.theAddressDoesNotResolve)
	sc.Step(`^the last geocode fails with a message containing "([^"]*)"$`, gc.theLastGeocodeFailsWithMessage)
	sc.Step(`^the reverse lookup returns "([^"]*)"$`, gc.theReverseLookupReturns)
	sc.Step(`^the coordinate does not resolve$`, gc.theCoordinateDoesNotResolve)
	sc.Step(`^I get exactly (\d+) street suggestions$`, gc.iGetExactlyStreetSuggestions)
	sc.Step(`^the street suggestions include "([^"]*)"$`, gc.theStreetSuggestionsInclude)
	sc.Step(`^the street search fails with a message containing "([^"]*)"$`, gc.theStreetSearchFailsWithMessage)
}
