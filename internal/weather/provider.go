package weather

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/i474232898/multiweather/internal/config"
)

// Backend abstracts a weather data source (e.g. Open-Meteo, OpenWeatherMap, WeatherAPI).
type Backend interface {
	Name() string

	// SupportsNativeGeocode reports whether Forecast accepts a NativePlace.
	SupportsNativeGeocode() bool

	// Forecast returns current conditions plus up to days daily records.
	Forecast(ctx context.Context, place Place, days int) (*Forecast, error)
}

// Factory constructs a backend from its [backend.<name>] options.
type Factory func(opts config.Options, client *http.Client) (Backend, error)

// Registry maps backend names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

func (r *Registry) Lookup(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Names lists registered backends in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
