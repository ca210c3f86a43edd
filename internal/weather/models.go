package weather

import (
	"time"

	"github.com/i474232898/multiweather/internal/geocode"
	"github.com/i474232898/multiweather/internal/units"
)

// Place is what a backend is asked about: either geocoded coordinates or,
// for backends that resolve names themselves, the raw text from the user.
type Place struct {
	Text     string
	Location *geocode.Location
}

// ResolvedPlace wraps a geocoding result.
func ResolvedPlace(loc geocode.Location) Place {
	return Place{Text: loc.Query, Location: &loc}
}

// NativePlace passes text through for a backend to resolve itself.
func NativePlace(text string) Place {
	return Place{Text: text}
}

// IsNative reports whether the place still needs resolving by the backend.
func (p Place) IsNative() bool {
	return p.Location == nil
}

// Coordinates returns the resolved point, if any.
func (p Place) Coordinates() (geocode.Coordinates, bool) {
	if p.Location == nil {
		return geocode.Coordinates{}, false
	}
	return p.Location.Coordinates, true
}

// String is the form shown to users.
func (p Place) String() string {
	if p.Location != nil {
		return p.Location.String()
	}
	return p.Text
}

// Conditions are the current observations. Every measurement may be nil.
type Conditions struct {
	Time          time.Time            `json:"time"`
	Summary       string               `json:"summary"`
	Temperature   *units.Temperature   `json:"temperature,omitempty"`
	FeelsLike     *units.Temperature   `json:"feelsLike,omitempty"`
	Humidity      *float64             `json:"humidity,omitempty"` // fraction 0-1
	WindSpeed     *units.Speed         `json:"windSpeed,omitempty"`
	WindGust      *units.Speed         `json:"windGust,omitempty"`
	WindDirection *float64             `json:"windDirection,omitempty"` // degrees
	Visibility    *units.Distance      `json:"visibility,omitempty"`
	Precipitation *units.Precipitation `json:"precipitation,omitempty"`
}

// Day is one daily forecast record.
type Day struct {
	Date                time.Time            `json:"date"`
	Summary             string               `json:"summary"`
	High                *units.Temperature   `json:"high,omitempty"`
	Low                 *units.Temperature   `json:"low,omitempty"`
	Precipitation       *units.Precipitation `json:"precipitation,omitempty"`
	PrecipitationChance *float64             `json:"precipitationChance,omitempty"` // fraction 0-1
	WindSpeed           *units.Speed         `json:"windSpeed,omitempty"`
	WindDirection       *float64             `json:"windDirection,omitempty"`
}

// Forecast is what a backend returns for one request. Days are ordered by
// date and never longer than the number of days asked for.
type Forecast struct {
	Backend string      `json:"backend"`
	Place   string      `json:"place"`
	Current *Conditions `json:"current,omitempty"`
	Days    []Day       `json:"days"`
}
