package geocode

import (
	"context"
	"fmt"
	"strings"

	"github.com/i474232898/multiweather/internal/config"
)

const (
	OpenMeteoBackend = "openmeteo"
	openMeteoBaseURL = "https://geocoding-api.open-meteo.com/v1"
)

// openMeteo uses the Open-Meteo place-name search. No API key is needed.
type openMeteo struct {
	*session
}

func newOpenMeteo(opts config.Options, defaults Defaults) (Backend, error) {
	sess, err := newSession(opts, defaults, openMeteoBaseURL)
	if err != nil {
		return nil, fmt.Errorf("openmeteo: %w", err)
	}
	return &openMeteo{session: sess}, nil
}

func (o *openMeteo) Geocode(ctx context.Context, query string, args config.Options) ([]Location, error) {
	params := map[string]string{
		"count":  "1",
		"format": "json",
	}
	for k, v := range args.QueryValues() {
		params[k] = v
	}
	params["name"] = query

	var payload struct {
		Results []struct {
			Name      string  `json:"name"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Admin1    string  `json:"admin1"`
			Country   string  `json:"country"`
		} `json:"results"`
	}
	if err := o.get(ctx, "/search", params, &payload); err != nil {
		return nil, fmt.Errorf("openmeteo geocoding: %w", err)
	}

	out := make([]Location, 0, len(payload.Results))
	for _, r := range payload.Results {
		out = append(out, Location{
			Query:       query,
			Address:     joinNonEmpty(", ", r.Name, r.Admin1, r.Country),
			Coordinates: Coordinates{Latitude: r.Latitude, Longitude: r.Longitude},
			Backend:     OpenMeteoBackend,
		})
	}
	return out, nil
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
