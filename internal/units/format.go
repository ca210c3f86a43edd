package units

import (
	"fmt"
	"math"
)

// NotAvailable is rendered for missing measurements.
const NotAvailable = "N/A"

var compassPoints = [...]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

const sectorDegrees = 360.0 / float64(len(compassPoints))

func FormatTemp(t *Temperature) string {
	if t == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.1fC / %.1fF", t.C, t.F)
}

// FormatPercentage renders a 0-1 fraction as a percentage.
func FormatPercentage(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}

func FormatSpeed(s *Speed) string {
	if s == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.1fkm/h / %.1fmph", s.KPH, s.MPH)
}

func FormatDistance(d *Distance) string {
	if d == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.1fkm / %.1fmi", d.KM, d.MI)
}

func FormatPrecipitation(p *Precipitation) string {
	if p == nil {
		return NotAvailable
	}
	return fmt.Sprintf("%.1fmm / %.1fin", p.MM, p.Inches)
}

// FormatAngle returns the 16-point compass label nearest to a bearing in degrees.
// A missing bearing is reported as "N", same as due north; existing templates
// depend on that even though it reads like a real reading.
func FormatAngle(angle *float64) string {
	if angle == nil || math.IsNaN(*angle) || math.IsInf(*angle, 0) {
		return compassPoints[0]
	}
	n := len(compassPoints)
	idx := int(math.Floor(*angle/sectorDegrees+0.5)) % n
	if idx < 0 {
		idx += n
	}
	return compassPoints[idx]
}

// Formatter exposes the format functions to templates as methods.
type Formatter struct{}

func (Formatter) Temp(t *Temperature) string { return FormatTemp(t) }
func (Formatter) Percentage(v *float64) string { return FormatPercentage(v) }
func (Formatter) Speed(s *Speed) string { return FormatSpeed(s) }
func (Formatter) Distance(d *Distance) string { return FormatDistance(d) }
func (Formatter) Precipitation(p *Precipitation) string { return FormatPrecipitation(p) }
func (Formatter) Angle(angle *float64) string { return FormatAngle(angle) }
