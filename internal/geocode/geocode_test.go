package geocode

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/multiweather/internal/apperr"
	"github.com/i474232898/multiweather/internal/config"
	"github.com/i474232898/multiweather/internal/telemetry"
)

type fakeBackend struct {
	results []Location
	err     error
	closed  *int
	gotArgs config.Options
}

func (f *fakeBackend) Geocode(_ context.Context, _ string, args config.Options) ([]Location, error) {
	f.gotArgs = args
	return f.results, f.err
}

func (f *fakeBackend) Close() error {
	*f.closed++
	return nil
}

func registryWith(b *fakeBackend, gotOpts *config.Options, gotDefaults *Defaults) *Registry {
	r := NewRegistry()
	r.Register("fake", func(opts config.Options, d Defaults) (Backend, error) {
		if gotOpts != nil {
			*gotOpts = opts
		}
		if gotDefaults != nil {
			*gotDefaults = d
		}
		return b, nil
	})
	return r
}

func fakeConfig() config.GeocodeConfig {
	return config.GeocodeConfig{
		Default: "fake",
		Backends: map[string]config.GeocodeBackendConfig{
			"fake": {
				InitOptions: config.Options{"timeout": "2s"},
				QueryArgs:   config.Options{"language": "en"},
			},
		},
	}
}

func TestResolvePicksFirstCandidate(t *testing.T) {
	closed := 0
	b := &fakeBackend{
		closed: &closed,
		results: []Location{
			{Address: "Portland, Oregon", Coordinates: Coordinates{Latitude: 45.52, Longitude: -122.68}},
			{Address: "Portland, Maine", Coordinates: Coordinates{Latitude: 43.66, Longitude: -70.26}},
		},
	}
	var gotOpts config.Options
	var gotDefaults Defaults
	r := NewResolver(registryWith(b, &gotOpts, &gotDefaults), Defaults{UserAgent: "test-agent"})

	for i := 0; i < 3; i++ {
		loc, err := r.Resolve(context.Background(), "portland", fakeConfig())
		require.NoError(t, err)
		assert.Equal(t, "Portland, Oregon", loc.Address)
		assert.Equal(t, "portland", loc.Query)
		assert.Equal(t, "fake", loc.Backend)
	}

	assert.Equal(t, 3, closed)
	assert.Equal(t, "2s", gotOpts.String("timeout", ""))
	assert.Equal(t, "test-agent", gotDefaults.UserAgent)
	assert.Equal(t, "test-agent", gotOpts.String("user_agent", ""))
	assert.Equal(t, "en", b.gotArgs.String("language", ""))
}

func TestResolveInitOptionsOverrideDefaults(t *testing.T) {
	closed := 0
	var gotOpts config.Options
	r := NewResolver(registryWith(&fakeBackend{closed: &closed, results: []Location{{}}}, &gotOpts, nil),
		Defaults{UserAgent: "multiweather"})

	cfg := fakeConfig()
	cfg.Backends["fake"].InitOptions["user_agent"] = "my-bot/1.0"
	_, err := r.Resolve(context.Background(), "leeds", cfg)
	require.NoError(t, err)
	assert.Equal(t, "my-bot/1.0", gotOpts.String("user_agent", ""))
	assert.Equal(t, "2s", gotOpts.String("timeout", ""))

	// The configured table itself is left alone.
	_, err = r.Resolve(context.Background(), "leeds", fakeConfig())
	require.NoError(t, err)
	assert.Equal(t, "multiweather", gotOpts.String("user_agent", ""))
}

func TestResolveReleasesConnections(t *testing.T) {
	var mu sync.Mutex
	states := make(map[net.Conn]http.ConnState)
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat": "53.7996", "lon": "-1.5491", "display_name": "Leeds, England"}]`))
	}))
	srv.Config.ConnState = func(c net.Conn, s http.ConnState) {
		mu.Lock()
		states[c] = s
		mu.Unlock()
	}
	srv.Start()
	defer srv.Close()

	openConns := func() int {
		mu.Lock()
		defer mu.Unlock()
		n := 0
		for _, s := range states {
			if s != http.StateClosed && s != http.StateHijacked {
				n++
			}
		}
		return n
	}

	cfg := config.GeocodeConfig{
		Default: NominatimBackend,
		Backends: map[string]config.GeocodeBackendConfig{
			NominatimBackend: {InitOptions: config.Options{"base_url": srv.URL}},
		},
	}
	// Traced transport around a per-session pool, as the server wires it.
	r := NewResolver(DefaultRegistry(), Defaults{
		Adapter: func() *http.Transport {
			return http.DefaultTransport.(*http.Transport).Clone()
		},
		Wrap: telemetry.Transport,
	})

	for i := 0; i < 5; i++ {
		loc, err := r.Resolve(context.Background(), "Leeds", cfg)
		require.NoError(t, err)
		assert.Equal(t, "Leeds, England", loc.Address)
	}

	assert.Eventually(t, func() bool { return openConns() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestInvalidProxy(t *testing.T) {
	_, err := newNominatim(config.Options{"proxy": "://proxy"}, Defaults{})
	assert.ErrorContains(t, err, "invalid proxy")
}

func TestResolveNoResults(t *testing.T) {
	closed := 0
	r := NewResolver(registryWith(&fakeBackend{closed: &closed}, nil, nil), Defaults{})

	_, err := r.Resolve(context.Background(), "atlantis", fakeConfig())
	require.Error(t, err)
	assert.Equal(t, apperr.KindLookup, apperr.KindOf(err))
	assert.Contains(t, err.Error(), `"atlantis"`)
	assert.Equal(t, 1, closed)
}

func TestResolveClosesOnBackendError(t *testing.T) {
	closed := 0
	boom := errors.New("boom")
	r := NewResolver(registryWith(&fakeBackend{closed: &closed, err: boom}, nil, nil), Defaults{})

	_, err := r.Resolve(context.Background(), "x", fakeConfig())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, closed)
}

func TestResolveConfigurationErrors(t *testing.T) {
	r := NewResolver(DefaultRegistry(), Defaults{})

	_, err := r.Resolve(context.Background(), "x", config.GeocodeConfig{})
	assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))

	_, err = r.Resolve(context.Background(), "x", config.GeocodeConfig{Default: "bogus"})
	assert.Equal(t, apperr.KindBackendNotFound, apperr.KindOf(err))

	_, err = r.Resolve(context.Background(), "x", config.GeocodeConfig{Default: GoogleBackend})
	assert.Error(t, err, "google needs an api key")
}

func TestDefaultRegistryNames(t *testing.T) {
	assert.Equal(t, []string{GoogleBackend, NominatimBackend, OpenMeteoBackend}, DefaultRegistry().Names())
}

func TestNominatim(t *testing.T) {
	var gotUA, gotQuery, gotCountry string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query().Get("q")
		gotCountry = r.URL.Query().Get("countrycodes")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"lat": "51.5073219", "lon": "-0.1276474", "display_name": "London, Greater London, England"},
			{"lat": "42.9832406", "lon": "-81.243372", "display_name": "London, Ontario, Canada"}
		]`))
	}))
	defer srv.Close()

	cfg := config.GeocodeConfig{
		Default: NominatimBackend,
		Backends: map[string]config.GeocodeBackendConfig{
			NominatimBackend: {
				InitOptions: config.Options{"base_url": srv.URL},
				QueryArgs:   config.Options{"countrycodes": []any{"gb", "ca"}, "limit": int64(2)},
			},
		},
	}
	r := NewResolver(DefaultRegistry(), Defaults{UserAgent: "Mozilla/5.0 (compatible; multiweather test)"})

	loc, err := r.Resolve(context.Background(), "London", cfg)
	require.NoError(t, err)
	assert.Equal(t, "London, Greater London, England", loc.Address)
	assert.InDelta(t, 51.5073219, loc.Latitude, 1e-9)
	assert.InDelta(t, -0.1276474, loc.Longitude, 1e-9)
	assert.Equal(t, "Mozilla/5.0 (compatible; multiweather test)", gotUA)
	assert.Equal(t, "London", gotQuery)
	assert.Equal(t, "gb,ca", gotCountry)
}

func TestNominatimHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	b, err := newNominatim(config.Options{"base_url": srv.URL}, Defaults{})
	require.NoError(t, err)
	defer b.Close()

	_, err = b.Geocode(context.Background(), "x", config.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestNominatimRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	opts := config.Options{"base_url": srv.URL, "min_delay": "100ms"}
	start := time.Now()
	for i := 0; i < 2; i++ {
		b, err := newNominatim(opts, Defaults{})
		require.NoError(t, err)
		_, err = b.Geocode(context.Background(), "Leeds", config.Options{})
		require.NoError(t, err)
		require.NoError(t, b.Close())
	}
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestNominatimRateLimitHonoursContext(t *testing.T) {
	opts := config.Options{"base_url": "http://nominatim.invalid", "min_delay": "1h"}
	b, err := newNominatim(opts, Defaults{})
	require.NoError(t, err)
	defer b.Close()

	// Drain the single token so the next call has to wait.
	require.True(t, b.(*nominatim).limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = b.Geocode(ctx, "Leeds", config.Options{})
	assert.Error(t, err)
}

func TestOpenMeteoGeocoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("name") == "nowhere" {
			_, _ = w.Write([]byte(`{"generationtime_ms": 0.5}`))
			return
		}
		_, _ = w.Write([]byte(`{"results": [
			{"name": "Berlin", "latitude": 52.52437, "longitude": 13.41053, "admin1": "Land Berlin", "country": "Germany"}
		]}`))
	}))
	defer srv.Close()

	b, err := newOpenMeteo(config.Options{"base_url": srv.URL}, Defaults{})
	require.NoError(t, err)
	defer b.Close()

	locs, err := b.Geocode(context.Background(), "Berlin", config.Options{})
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, "Berlin, Land Berlin, Germany", locs[0].Address)
	assert.InDelta(t, 52.52437, locs[0].Latitude, 1e-9)

	locs, err = b.Geocode(context.Background(), "nowhere", config.Options{})
	require.NoError(t, err)
	assert.Empty(t, locs)
}

func TestLocationString(t *testing.T) {
	assert.Equal(t, "Paris, France", Location{Query: "paris", Address: "Paris, France"}.String())
	assert.Equal(t, "paris", Location{Query: "paris"}.String())
}

func stubGoogle(t *testing.T, fn func(geocoder.Address) (geocoder.Location, error)) {
	t.Helper()
	orig := googleGeocoding
	googleGeocoding = fn
	t.Cleanup(func() { googleGeocoding = orig })
}

func googleConfig() config.GeocodeConfig {
	return config.GeocodeConfig{
		Default: GoogleBackend,
		Backends: map[string]config.GeocodeBackendConfig{
			GoogleBackend: {
				InitOptions: config.Options{"api_key": "secret"},
				QueryArgs:   config.Options{"country": "Japan"},
			},
		},
	}
}

func TestGoogleRequiresAPIKey(t *testing.T) {
	_, err := newGoogle(config.Options{}, Defaults{})
	assert.ErrorContains(t, err, "api_key")

	r := NewResolver(DefaultRegistry(), Defaults{})
	_, err = r.Resolve(context.Background(), "Tokyo", config.GeocodeConfig{Default: GoogleBackend})
	assert.ErrorContains(t, err, "init geocode backend google")
}

func TestGoogleGeocode(t *testing.T) {
	var got geocoder.Address
	stubGoogle(t, func(addr geocoder.Address) (geocoder.Location, error) {
		got = addr
		return geocoder.Location{Latitude: 35.6762, Longitude: 139.6503}, nil
	})

	r := NewResolver(DefaultRegistry(), Defaults{})
	loc, err := r.Resolve(context.Background(), "Tokyo", googleConfig())
	require.NoError(t, err)

	assert.Equal(t, "secret", geocoder.ApiKey)
	assert.Equal(t, "Tokyo", got.Street)
	assert.Equal(t, "Japan", got.Country)
	assert.Equal(t, "Tokyo, Japan", loc.Address)
	assert.Equal(t, GoogleBackend, loc.Backend)
	assert.InDelta(t, 35.6762, loc.Latitude, 1e-9)
}

func TestGoogleNoResults(t *testing.T) {
	for _, msg := range []string{"No results found.", "ZERO_RESULTS"} {
		stubGoogle(t, func(geocoder.Address) (geocoder.Location, error) {
			return geocoder.Location{}, errors.New(msg)
		})

		r := NewResolver(DefaultRegistry(), Defaults{})
		_, err := r.Resolve(context.Background(), "Atlantis", googleConfig())
		require.Error(t, err)
		assert.Equal(t, apperr.KindLookup, apperr.KindOf(err))
		assert.Equal(t, `No results found for location "Atlantis"`, err.Error())
	}
}

func TestGoogleErrorsAreWrapped(t *testing.T) {
	denied := errors.New("REQUEST_DENIED")
	stubGoogle(t, func(geocoder.Address) (geocoder.Location, error) {
		return geocoder.Location{}, denied
	})

	r := NewResolver(DefaultRegistry(), Defaults{})
	_, err := r.Resolve(context.Background(), "Tokyo", googleConfig())
	assert.ErrorIs(t, err, denied)
	assert.EqualError(t, err, "google geocoding: REQUEST_DENIED")
	assert.Equal(t, apperr.KindUnclassified, apperr.KindOf(err))
}

func TestGoogleHonoursCancelledContext(t *testing.T) {
	called := false
	stubGoogle(t, func(geocoder.Address) (geocoder.Location, error) {
		called = true
		return geocoder.Location{}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b, err := newGoogle(config.Options{"api_key": "secret"}, Defaults{})
	require.NoError(t, err)
	_, err = b.Geocode(ctx, "Tokyo", config.Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
