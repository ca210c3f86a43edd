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
	OpenMeteoName    = "openmeteo"
	openMeteoBaseURL = "https://api.open-meteo.com/v1/forecast"

	openMeteoMaxDays = 16
)

// OpenMeteoProvider implements weather.Backend for Open-Meteo. It needs
// coordinates; there is no free-text lookup on the forecast endpoint.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(opts config.Options, client *http.Client) (weather.Backend, error) {
	baseURL := opts.String("base_url", openMeteoBaseURL)
	return &OpenMeteoProvider{
		name:    OpenMeteoName,
		baseURL: baseURL,
		httpCfg: httpConfigFrom(opts, client),
		circuit: breakerFor(OpenMeteoName, baseURL),
	}, nil
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) SupportsNativeGeocode() bool {
	return false
}

func (p *OpenMeteoProvider) Forecast(ctx context.Context, place weather.Place, days int) (*weather.Forecast, error) {
	coords, ok := place.Coordinates()
	if !ok {
		return nil, fmt.Errorf("openmeteo requires latitude and longitude")
	}
	if days > openMeteoMaxDays {
		days = openMeteoMaxDays
	}

	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	values.Set("current", "temperature_2m,relative_humidity_2m,apparent_temperature,precipitation,weather_code,wind_speed_10m,wind_direction_10m,wind_gusts_10m")
	values.Set("daily", "weather_code,temperature_2m_max,temperature_2m_min,precipitation_sum,precipitation_probability_max,wind_speed_10m_max,wind_direction_10m_dominant")
	values.Set("wind_speed_unit", "kmh")
	values.Set("timezone", "auto")
	values.Set("forecast_days", strconv.Itoa(days))

	var payload struct {
		Current struct {
			Time          string   `json:"time"`
			Temperature   *float64 `json:"temperature_2m"`
			Humidity      *float64 `json:"relative_humidity_2m"`
			Apparent      *float64 `json:"apparent_temperature"`
			Precipitation *float64 `json:"precipitation"`
			WeatherCode   *int     `json:"weather_code"`
			WindSpeed     *float64 `json:"wind_speed_10m"`
			WindDirection *float64 `json:"wind_direction_10m"`
			WindGusts     *float64 `json:"wind_gusts_10m"`
		} `json:"current"`
		Daily struct {
			Time            []string   `json:"time"`
			WeatherCode     []*int     `json:"weather_code"`
			TempMax         []*float64 `json:"temperature_2m_max"`
			TempMin         []*float64 `json:"temperature_2m_min"`
			PrecipSum       []*float64 `json:"precipitation_sum"`
			PrecipProbMax   []*float64 `json:"precipitation_probability_max"`
			WindSpeedMax    []*float64 `json:"wind_speed_10m_max"`
			WindDirDominant []*float64 `json:"wind_direction_10m_dominant"`
		} `json:"daily"`
	}

	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
	if err := getJSON(ctx, p.httpCfg, p.circuit, u, &payload); err != nil {
		return nil, fmt.Errorf("openmeteo: %w", err)
	}

	cur := payload.Current
	ts, err := time.Parse("2006-01-02T15:04", cur.Time)
	if err != nil {
		ts = time.Now().UTC()
	}

	forecast := &weather.Forecast{
		Backend: p.name,
		Place:   place.String(),
		Current: &weather.Conditions{
			Time:          ts,
			Summary:       describeOpenMeteoCode(cur.WeatherCode),
			Temperature:   units.CelsiusOrNil(cur.Temperature),
			FeelsLike:     units.CelsiusOrNil(cur.Apparent),
			Humidity:      units.FractionOrNil(cur.Humidity),
			WindSpeed:     units.KPHOrNil(cur.WindSpeed),
			WindGust:      units.KPHOrNil(cur.WindGusts),
			WindDirection: cur.WindDirection,
			Precipitation: units.MillimetersOrNil(cur.Precipitation),
		},
	}

	daily := payload.Daily
	for i, date := range daily.Time {
		if len(forecast.Days) >= days {
			break
		}
		var code *int
		if i < len(daily.WeatherCode) {
			code = daily.WeatherCode[i]
		}
		forecast.Days = append(forecast.Days, weather.Day{
			Date:                dayDate(date),
			Summary:             describeOpenMeteoCode(code),
			High:                units.CelsiusOrNil(at(daily.TempMax, i)),
			Low:                 units.CelsiusOrNil(at(daily.TempMin, i)),
			Precipitation:       units.MillimetersOrNil(at(daily.PrecipSum, i)),
			PrecipitationChance: units.FractionOrNil(at(daily.PrecipProbMax, i)),
			WindSpeed:           units.KPHOrNil(at(daily.WindSpeedMax, i)),
			WindDirection:       at(daily.WindDirDominant, i),
		})
	}

	return forecast, nil
}

// describeOpenMeteoCode maps WMO weather interpretation codes to text.
func describeOpenMeteoCode(code *int) string {
	if code == nil {
		return ""
	}
	switch c := *code; {
	case c == 0:
		return "Clear sky"
	case c == 1:
		return "Mainly clear"
	case c == 2:
		return "Partly cloudy"
	case c == 3:
		return "Overcast"
	case c == 45 || c == 48:
		return "Fog"
	case c >= 51 && c <= 55:
		return "Drizzle"
	case c == 56 || c == 57:
		return "Freezing drizzle"
	case c >= 61 && c <= 65:
		return "Rain"
	case c == 66 || c == 67:
		return "Freezing rain"
	case c >= 71 && c <= 77:
		return "Snow"
	case c >= 80 && c <= 82:
		return "Rain showers"
	case c == 85 || c == 86:
		return "Snow showers"
	case c == 95:
		return "Thunderstorm"
	case c == 96 || c == 99:
		return "Thunderstorm with hail"
	default:
		return "Unknown"
	}
}
