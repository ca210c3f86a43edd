package geocode

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/i474232898/multiweather/internal/config"
)

const (
	NominatimBackend = "nominatim"
	nominatimBaseURL = "https://nominatim.openstreetmap.org"
)

var (
	nominatimMu       sync.Mutex
	nominatimLimiters = map[string]*rate.Limiter{}
)

// nominatimLimiter paces requests to one server when init_options.min_delay is
// set; the public OSM instance allows at most one request per second. It is
// shared by every session against that server, since sessions only live for
// one request.
func nominatimLimiter(baseURL string, delay time.Duration) *rate.Limiter {
	nominatimMu.Lock()
	defer nominatimMu.Unlock()

	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	if l, ok := nominatimLimiters[baseURL]; ok {
		// min_delay may change on config reload.
		if l.Limit() != limit {
			l.SetLimit(limit)
		}
		return l
	}
	l := rate.NewLimiter(limit, 1)
	nominatimLimiters[baseURL] = l
	return l
}

// nominatim queries the OpenStreetMap search API. Its usage policy requires
// an identifying User-Agent, which the session always sends.
type nominatim struct {
	*session
	limiter *rate.Limiter
}

func newNominatim(opts config.Options, defaults Defaults) (Backend, error) {
	sess, err := newSession(opts, defaults, nominatimBaseURL)
	if err != nil {
		return nil, fmt.Errorf("nominatim: %w", err)
	}
	baseURL := opts.String("base_url", nominatimBaseURL)
	return &nominatim{
		session: sess,
		limiter: nominatimLimiter(baseURL, opts.Duration("min_delay", 0)),
	}, nil
}

func (n *nominatim) Geocode(ctx context.Context, query string, args config.Options) ([]Location, error) {
	params := map[string]string{
		"format": "jsonv2",
		"limit":  "1",
	}
	for k, v := range args.QueryValues() {
		params[k] = v
	}
	params["q"] = query

	if err := n.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("nominatim: %w", err)
	}

	var payload []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := n.get(ctx, "/search", params, &payload); err != nil {
		return nil, fmt.Errorf("nominatim: %w", err)
	}

	out := make([]Location, 0, len(payload))
	for _, p := range payload {
		lat, err := strconv.ParseFloat(p.Lat, 64)
		if err != nil {
			return nil, fmt.Errorf("nominatim: bad latitude %q: %w", p.Lat, err)
		}
		lon, err := strconv.ParseFloat(p.Lon, 64)
		if err != nil {
			return nil, fmt.Errorf("nominatim: bad longitude %q: %w", p.Lon, err)
		}
		out = append(out, Location{
			Query:       query,
			Address:     p.DisplayName,
			Coordinates: Coordinates{Latitude: lat, Longitude: lon},
			Backend:     NominatimBackend,
		})
	}
	return out, nil
}
