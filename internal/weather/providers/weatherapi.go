package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/multiweather/internal/config"
	"github.com/i474232898/multiweather/internal/units"
	"github.com/i474232898/multiweather/internal/weather"
)

const (
	WeatherAPIName    = "weatherapi"
	weatherAPIBaseURL = "https://api.weatherapi.com/v1"

	weatherAPIMaxDays = 14
)

// WeatherAPIProvider implements weather.Backend for WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(opts config.Options, client *http.Client) (weather.Backend, error) {
	apiKey := opts.String("api_key", "")
	if apiKey == "" {
		return nil, fmt.Errorf("weatherapi: %w", errNoAPIKey)
	}
	baseURL := opts.String("base_url", weatherAPIBaseURL)
	return &WeatherAPIProvider{
		name:    WeatherAPIName,
		apiKey:  apiKey,
		baseURL: baseURL,
		httpCfg: httpConfigFrom(opts, client),
		circuit: breakerFor(WeatherAPIName, baseURL),
	}, nil
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) SupportsNativeGeocode() bool {
	return true
}

func (p *WeatherAPIProvider) Forecast(ctx context.Context, place weather.Place, days int) (*weather.Forecast, error) {
	if days > weatherAPIMaxDays {
		days = weatherAPIMaxDays
	}

	values := url.Values{}
	values.Set("key", p.apiKey)
	values.Set("days", strconv.Itoa(days))
	// WeatherAPI uses "q" for location; it accepts free text or "lat,lon".
	if coords, ok := place.Coordinates(); ok {
		values.Set("q", fmt.Sprintf("%f,%f", coords.Latitude, coords.Longitude))
	} else {
		values.Set("q", place.Text)
	}

	type condition struct {
		Text string `json:"text"`
	}
	var payload struct {
		Location struct {
			Name           string `json:"name"`
			Region         string `json:"region"`
			Country        string `json:"country"`
			LocaltimeEpoch int64  `json:"localtime_epoch"`
		} `json:"location"`
		Current struct {
			TempC      *float64  `json:"temp_c"`
			FeelsLikeC *float64  `json:"feelslike_c"`
			Humidity   *float64  `json:"humidity"`
			WindKph    *float64  `json:"wind_kph"`
			GustKph    *float64  `json:"gust_kph"`
			WindDegree *float64  `json:"wind_degree"`
			VisKm      *float64  `json:"vis_km"`
			PrecipMm   *float64  `json:"precip_mm"`
			Condition  condition `json:"condition"`
		} `json:"current"`
		Forecast struct {
			ForecastDay []struct {
				Date string `json:"date"`
				Day  struct {
					MaxTempC          *float64  `json:"maxtemp_c"`
					MinTempC          *float64  `json:"mintemp_c"`
					TotalPrecipMm     *float64  `json:"totalprecip_mm"`
					DailyChanceOfRain *float64  `json:"daily_chance_of_rain"`
					MaxWindKph        *float64  `json:"maxwind_kph"`
					Condition         condition `json:"condition"`
				} `json:"day"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}

	u := fmt.Sprintf("%s/forecast.json?%s", p.baseURL, values.Encode())
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
		return nil, fmt.Errorf("weatherapi: %w", err)
	}

	ts := time.Unix(payload.Location.LocaltimeEpoch, 0).UTC()
	if payload.Location.LocaltimeEpoch == 0 {
		ts = time.Now().UTC()
	}

	var visibility *units.Distance
	if payload.Current.VisKm != nil {
		visibility = units.Kilometers(*payload.Current.VisKm)
	}

	cur := payload.Current
	forecast := &weather.Forecast{
		Backend: p.name,
		Place:   joinPlace(payload.Location.Name, payload.Location.Country, place.String()),
		Current: &weather.Conditions{
			Time:          ts,
			Summary:       cur.Condition.Text,
			Temperature:   units.CelsiusOrNil(cur.TempC),
			FeelsLike:     units.CelsiusOrNil(cur.FeelsLikeC),
			Humidity:      units.FractionOrNil(cur.Humidity),
			WindSpeed:     units.KPHOrNil(cur.WindKph),
			WindGust:      units.KPHOrNil(cur.GustKph),
			WindDirection: cur.WindDegree,
			Visibility:    visibility,
			Precipitation: units.MillimetersOrNil(cur.PrecipMm),
		},
	}

	for _, fd := range payload.Forecast.ForecastDay {
		if len(forecast.Days) >= days {
			break
		}
		forecast.Days = append(forecast.Days, weather.Day{
			Date:                dayDate(fd.Date),
			Summary:             fd.Day.Condition.Text,
			High:                units.CelsiusOrNil(fd.Day.MaxTempC),
			Low:                 units.CelsiusOrNil(fd.Day.MinTempC),
			Precipitation:       units.MillimetersOrNil(fd.Day.TotalPrecipMm),
			PrecipitationChance: units.FractionOrNil(fd.Day.DailyChanceOfRain),
			WindSpeed:           units.KPHOrNil(fd.Day.MaxWindKph),
		})
	}

	return forecast, nil
}
