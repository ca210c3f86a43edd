package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/i474232898/multiweather/internal/apperr"
	"github.com/i474232898/multiweather/internal/config"
)

var (
	errNoCoordinates = errors.New("weather backend needs coordinates but the place was not geocoded")
	errInvalidDays   = errors.New("forecast days must be greater than zero")
)

// Fetcher builds weather backends by name and retrieves forecasts from them.
type Fetcher struct {
	registry *Registry
	client   *http.Client
}

// NewFetcher creates a Fetcher. client is shared by every backend instance
// for outbound calls.
func NewFetcher(registry *Registry, client *http.Client) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{registry: registry, client: client}
}

// Open constructs the named backend with its options.
func (f *Fetcher) Open(name string, opts config.Options) (Backend, error) {
	factory, ok := f.registry.Lookup(name)
	if !ok {
		return nil, apperr.BackendNotFound("weather", name)
	}
	b, err := factory(opts, f.client)
	if err != nil {
		return nil, fmt.Errorf("init weather backend %s: %w", name, err)
	}
	return b, nil
}

// Fetch asks backend for a forecast of days days. Backend errors are returned
// unchanged; there is no retry at this level.
func (f *Fetcher) Fetch(ctx context.Context, backend Backend, place Place, days int) (*Forecast, error) {
	if days <= 0 {
		return nil, errInvalidDays
	}
	if place.IsNative() && !backend.SupportsNativeGeocode() {
		return nil, errNoCoordinates
	}

	log.Printf("DEBUG: Fetch called for %q via %s for %d days", place.String(), backend.Name(), days)

	forecast, err := backend.Forecast(ctx, place, days)
	if err != nil {
		return nil, err
	}
	if forecast == nil {
		return nil, fmt.Errorf("weather backend %s returned no data", backend.Name())
	}
	if len(forecast.Days) > days {
		forecast.Days = forecast.Days[:days]
	}
	if forecast.Backend == "" {
		forecast.Backend = backend.Name()
	}
	if forecast.Place == "" {
		forecast.Place = place.String()
	}
	return forecast, nil
}
