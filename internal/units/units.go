// Package units carries measurements in every unit we display and renders
// them as dual-unit strings. A nil measurement means the backend had no data.
package units

const (
	fahrenheitMultiplier = 1.8
	fahrenheitBase       = 32

	kmPerMile   = 1.609344
	mmPerInch   = 25.4
	kphPerMPS   = 3.6
	metersPerKm = 1000
)

// Temperature holds the same reading in Celsius and Fahrenheit.
type Temperature struct {
	C float64 `json:"c"`
	F float64 `json:"f"`
}

// Speed holds the same reading in km/h and mph.
type Speed struct {
	KPH float64 `json:"kph"`
	MPH float64 `json:"mph"`
}

// Distance holds the same reading in kilometers and miles.
type Distance struct {
	KM float64 `json:"km"`
	MI float64 `json:"mi"`
}

// Precipitation holds the same amount in millimeters and inches.
type Precipitation struct {
	MM     float64 `json:"mm"`
	Inches float64 `json:"inches"`
}

func Celsius(c float64) *Temperature {
	return &Temperature{C: c, F: c*fahrenheitMultiplier + fahrenheitBase}
}

func KPH(kph float64) *Speed {
	return &Speed{KPH: kph, MPH: kph / kmPerMile}
}

func MetersPerSecond(mps float64) *Speed {
	return KPH(mps * kphPerMPS)
}

func Kilometers(km float64) *Distance {
	return &Distance{KM: km, MI: km / kmPerMile}
}

func Meters(m float64) *Distance {
	return Kilometers(m / metersPerKm)
}

func Millimeters(mm float64) *Precipitation {
	return &Precipitation{MM: mm, Inches: mm / mmPerInch}
}

// The OrNil variants keep a missing reading missing.

func CelsiusOrNil(c *float64) *Temperature {
	if c == nil {
		return nil
	}
	return Celsius(*c)
}

func KPHOrNil(kph *float64) *Speed {
	if kph == nil {
		return nil
	}
	return KPH(*kph)
}

func MillimetersOrNil(mm *float64) *Precipitation {
	if mm == nil {
		return nil
	}
	return Millimeters(*mm)
}

// Fraction converts a 0-100 percentage into the 0-1 fraction FormatPercentage expects.
func Fraction(pct float64) *float64 {
	f := pct / 100
	return &f
}

// FractionOrNil is Fraction for optional readings.
func FractionOrNil(pct *float64) *float64 {
	if pct == nil {
		return nil
	}
	return Fraction(*pct)
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
