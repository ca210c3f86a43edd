// Package geocode turns free-text places into coordinates using pluggable,
// named backends.
package geocode

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"

	"github.com/i474232898/multiweather/internal/apperr"
	"github.com/i474232898/multiweather/internal/config"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location is one geocoding candidate.
type Location struct {
	Query   string `json:"query"`
	Address string `json:"address"`
	Coordinates
	Backend string `json:"backend"`
}

// String returns the resolved address, falling back to the original query.
func (l Location) String() string {
	if l.Address != "" {
		return l.Address
	}
	return l.Query
}

// Backend is a geocoding service. A Backend owns its network session and
// must be closed by whoever constructed it.
type Backend interface {
	// Geocode returns every candidate for query in the order the service ranks them.
	Geocode(ctx context.Context, query string, args config.Options) ([]Location, error)
	Close() error
}

// Adapter builds the connection pool for one backend session. The session
// closes the pool's idle connections when the backend is closed.
type Adapter func() *http.Transport

// Middleware decorates the round tripper a session sends requests through.
type Middleware func(http.RoundTripper) http.RoundTripper

// Defaults are process-wide settings every backend receives. They are set
// once at startup.
type Defaults struct {
	UserAgent string
	Adapter   Adapter
	Wrap      Middleware
}

// Options are the init options every backend starts from. A backend's own
// init_options take precedence.
func (d Defaults) Options() config.Options {
	opts := config.Options{}
	if d.UserAgent != "" {
		opts["user_agent"] = d.UserAgent
	}
	return opts
}

func (d Defaults) pool() *http.Transport {
	if d.Adapter == nil {
		return http.DefaultTransport.(*http.Transport).Clone()
	}
	return d.Adapter()
}

func (d Defaults) roundTripper(pool *http.Transport) http.RoundTripper {
	if d.Wrap == nil {
		return pool
	}
	return d.Wrap(pool)
}

// Factory constructs a backend from its init_options.
type Factory func(opts config.Options, defaults Defaults) (Backend, error)

// Registry maps backend names to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding every built-in backend.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NominatimBackend, newNominatim)
	r.Register(OpenMeteoBackend, newOpenMeteo)
	r.Register(GoogleBackend, newGoogle)
	return r
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

// Resolver picks the configured geocode backend and resolves one location per call.
type Resolver struct {
	registry *Registry
	defaults Defaults
}

func NewResolver(registry *Registry, defaults Defaults) *Resolver {
	return &Resolver{registry: registry, defaults: defaults}
}

// Resolve geocodes text with the default backend from cfg and returns the
// first candidate. The backend session is closed before Resolve returns.
func (r *Resolver) Resolve(ctx context.Context, text string, cfg config.GeocodeConfig) (loc Location, err error) {
	name, ok := cfg.DefaultBackend()
	if !ok {
		return Location{}, apperr.Configuration("No default geocode backend is set")
	}

	factory, ok := r.registry.Lookup(name)
	if !ok {
		return Location{}, apperr.BackendNotFound("geocode", name)
	}

	bcfg := cfg.Backend(name)
	backend, err := factory(r.defaults.Options().Merge(bcfg.InitOptions), r.defaults)
	if err != nil {
		return Location{}, fmt.Errorf("init geocode backend %s: %w", name, err)
	}
	defer func() {
		if cerr := backend.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	results, err := backend.Geocode(ctx, text, bcfg.QueryArgs)
	if err != nil {
		return Location{}, err
	}
	if len(results) == 0 {
		return Location{}, apperr.Lookup("No results found for location %q", text)
	}

	loc = results[0]
	if loc.Query == "" {
		loc.Query = text
	}
	if loc.Backend == "" {
		loc.Backend = name
	}
	log.Printf("DEBUG: geocode: resolved location %q to %q (%f, %f) via %s",
		text, loc.Address, loc.Latitude, loc.Longitude, name)
	return loc, nil
}
