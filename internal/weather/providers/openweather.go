package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/multiweather/internal/config"
	"github.com/i474232898/multiweather/internal/units"
	"github.com/i474232898/multiweather/internal/weather"
)

const (
	OpenWeatherName    = "openweathermap"
	openWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

	// The free forecast endpoint covers five days in 3-hour steps.
	openWeatherMaxDays = 5
)

// OpenWeatherProvider implements weather.Backend for OpenWeatherMap. It
// accepts free-text places ("London,GB") as well as coordinates.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(opts config.Options, client *http.Client) (weather.Backend, error) {
	apiKey := opts.String("api_key", "")
	if apiKey == "" {
		return nil, fmt.Errorf("openweathermap: %w", errNoAPIKey)
	}
	baseURL := opts.String("base_url", openWeatherBaseURL)
	return &OpenWeatherProvider{
		name:    OpenWeatherName,
		apiKey:  apiKey,
		baseURL: baseURL,
		httpCfg: httpConfigFrom(opts, client),
		circuit: breakerFor(OpenWeatherName, baseURL),
	}, nil
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) SupportsNativeGeocode() bool {
	return true
}

type owmCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
}

type owmWind struct {
	Speed *float64 `json:"speed"`
	Deg   *float64 `json:"deg"`
	Gust  *float64 `json:"gust"`
}

func (p *OpenWeatherProvider) query(place weather.Place) url.Values {
	values := url.Values{}
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")
	if coords, ok := place.Coordinates(); ok {
		values.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	} else {
		values.Set("q", place.Text)
	}
	return values
}

func (p *OpenWeatherProvider) Forecast(ctx context.Context, place weather.Place, days int) (*weather.Forecast, error) {
	if days > openWeatherMaxDays {
		days = openWeatherMaxDays
	}
	values := p.query(place)

	var current struct {
		Dt   int64  `json:"dt"`
		Name string `json:"name"`
		Main struct {
			Temp      *float64 `json:"temp"`
			FeelsLike *float64 `json:"feels_like"`
			Humidity  *float64 `json:"humidity"`
		} `json:"main"`
		Wind       owmWind  `json:"wind"`
		Visibility *float64 `json:"visibility"`
		Rain       struct {
			OneH *float64 `json:"1h"`
		} `json:"rain"`
		Weather []owmCondition `json:"weather"`
		Sys     struct {
			Country string `json:"country"`
		} `json:"sys"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL+"/weather?"+values.Encode(), &current); err != nil {
		return nil, fmt.Errorf("openweathermap current: %w", err)
	}

	var fc struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				TempMin *float64 `json:"temp_min"`
				TempMax *float64 `json:"temp_max"`
			} `json:"main"`
			Wind owmWind  `json:"wind"`
			Pop  *float64 `json:"pop"`
			Rain struct {
				ThreeH *float64 `json:"3h"`
			} `json:"rain"`
			Weather []owmCondition `json:"weather"`
		} `json:"list"`
		City struct {
			Timezone int `json:"timezone"`
		} `json:"city"`
	}
	if err := getJSON(ctx, p.httpCfg, p.circuit, p.baseURL+"/forecast?"+values.Encode(), &fc); err != nil {
		return nil, fmt.Errorf("openweathermap forecast: %w", err)
	}

	var visibility *units.Distance
	if current.Visibility != nil {
		visibility = units.Meters(*current.Visibility)
	}
	// OpenWeatherMap omits "rain" when it is dry, so absence means zero here.
	var precip *units.Precipitation
	if current.Rain.OneH != nil {
		precip = units.Millimeters(*current.Rain.OneH)
	} else {
		precip = units.Millimeters(0)
	}

	forecast := &weather.Forecast{
		Backend: p.name,
		Place:   joinPlace(current.Name, current.Sys.Country, place.String()),
		Current: &weather.Conditions{
			Time:          time.Unix(current.Dt, 0).UTC(),
			Summary:       firstDescription(current.Weather),
			Temperature:   units.CelsiusOrNil(current.Main.Temp),
			FeelsLike:     units.CelsiusOrNil(current.Main.FeelsLike),
			Humidity:      units.FractionOrNil(current.Main.Humidity),
			WindSpeed:     metersPerSecondOrNil(current.Wind.Speed),
			WindGust:      metersPerSecondOrNil(current.Wind.Gust),
			WindDirection: current.Wind.Deg,
			Visibility:    visibility,
			Precipitation: precip,
		},
	}

	// Fold 3-hour steps into local calendar days.
	zone := time.FixedZone("local", fc.City.Timezone)
	type bucket struct {
		date     time.Time
		min, max *float64
		rain     float64
		pop      *float64
		wind     *float64
		windDeg  *float64
		summary  map[string]int
	}
	buckets := make(map[string]*bucket)
	for _, item := range fc.List {
		local := time.Unix(item.Dt, 0).In(zone)
		key := local.Format("2006-01-02")
		b, ok := buckets[key]
		if !ok {
			b = &bucket{date: dayDate(key), summary: make(map[string]int)}
			buckets[key] = b
		}
		b.min = minPtr(b.min, item.Main.TempMin)
		b.max = maxPtr(b.max, item.Main.TempMax)
		b.pop = maxPtr(b.pop, item.Pop)
		if item.Rain.ThreeH != nil {
			b.rain += *item.Rain.ThreeH
		}
		if item.Wind.Speed != nil && (b.wind == nil || *item.Wind.Speed > *b.wind) {
			b.wind = item.Wind.Speed
			b.windDeg = item.Wind.Deg
		}
		if d := firstDescription(item.Weather); d != "" {
			b.summary[d]++
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if len(forecast.Days) >= days {
			break
		}
		b := buckets[k]
		forecast.Days = append(forecast.Days, weather.Day{
			Date:                b.date,
			Summary:             majority(b.summary),
			High:                units.CelsiusOrNil(b.max),
			Low:                 units.CelsiusOrNil(b.min),
			Precipitation:       units.Millimeters(b.rain),
			PrecipitationChance: b.pop,
			WindSpeed:           metersPerSecondOrNil(b.wind),
			WindDirection:       b.windDeg,
		})
	}

	return forecast, nil
}

func firstDescription(items []owmCondition) string {
	if len(items) == 0 {
		return ""
	}
	if items[0].Description != "" {
		return items[0].Description
	}
	return items[0].Main
}

// majority picks the most frequent summary; ties go to the alphabetically
// first so output is stable.
func majority(counts map[string]int) string {
	best, bestCount := "", 0
	for s, n := range counts {
		if n > bestCount || (n == bestCount && s < best) {
			best, bestCount = s, n
		}
	}
	return best
}

func metersPerSecondOrNil(v *float64) *units.Speed {
	if v == nil {
		return nil
	}
	return units.MetersPerSecond(*v)
}

func minPtr(a, b *float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil || *a <= *b {
		return a
	}
	return b
}

func maxPtr(a, b *float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil || *a >= *b {
		return a
	}
	return b
}

func joinPlace(name, country, fallback string) string {
	switch {
	case name == "":
		return fallback
	case country == "":
		return name
	default:
		return name + ", " + country
	}
}
