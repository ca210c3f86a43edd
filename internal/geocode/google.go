package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/multiweather/internal/config"
)

const GoogleBackend = "google"

var (
	// geocoder keeps its API key in a package variable, so calls are serialized.
	googleMu sync.Mutex

	googleGeocoding = geocoder.Geocoding
)

// google resolves through the Google Geocoding API via kelvins/geocoder.
//
// The library issues its own requests, so the session defaults (user agent,
// adapter) do not apply, and once a request is sent it cannot be cancelled:
// ctx is only checked before the call. The library returns coordinates only,
// so Address is rebuilt from the query and the city/state/country query args
// rather than Google's formatted address.
type google struct {
	apiKey string
}

func newGoogle(opts config.Options, _ Defaults) (Backend, error) {
	key := opts.String("api_key", "")
	if key == "" {
		return nil, errors.New("google geocoder requires init_options.api_key")
	}
	return &google{apiKey: key}, nil
}

func (g *google) Geocode(ctx context.Context, query string, args config.Options) ([]Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	addr := geocoder.Address{
		Street:  query,
		City:    args.String("city", ""),
		State:   args.String("state", ""),
		Country: args.String("country", ""),
	}

	googleMu.Lock()
	geocoder.ApiKey = g.apiKey
	loc, err := googleGeocoding(addr)
	googleMu.Unlock()

	if err != nil {
		if isNoResults(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("google geocoding: %w", err)
	}

	return []Location{{
		Query:       query,
		Address:     joinNonEmpty(", ", addr.Street, addr.City, addr.State, addr.Country),
		Coordinates: Coordinates{Latitude: loc.Latitude, Longitude: loc.Longitude},
		Backend:     GoogleBackend,
	}}, nil
}

func (g *google) Close() error { return nil }

// isNoResults reports the library's "No results found." and the API's
// ZERO_RESULTS status, which both mean an empty candidate list.
func isNoResults(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"no results", "zero_results"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
