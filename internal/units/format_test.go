package units

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormattersReportMissingValues(t *testing.T) {
	assert.Equal(t, "N/A", FormatTemp(nil))
	assert.Equal(t, "N/A", FormatPercentage(nil))
	assert.Equal(t, "N/A", FormatSpeed(nil))
	assert.Equal(t, "N/A", FormatDistance(nil))
	assert.Equal(t, "N/A", FormatPrecipitation(nil))
}

func TestFormatZeroIsNotMissing(t *testing.T) {
	assert.Equal(t, "0.0C / 32.0F", FormatTemp(Celsius(0)))
	assert.Equal(t, "0.0%", FormatPercentage(Float(0)))
	assert.Equal(t, "0.0km/h / 0.0mph", FormatSpeed(KPH(0)))
	assert.Equal(t, "0.0mm / 0.0in", FormatPrecipitation(Millimeters(0)))
}

func TestFormatTemp(t *testing.T) {
	assert.Equal(t, "20.0C / 68.0F", FormatTemp(Celsius(20)))
	assert.Equal(t, "-40.0C / -40.0F", FormatTemp(Celsius(-40)))
	assert.Equal(t, "37.0C / 98.6F", FormatTemp(Celsius(37)))
}

func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, "50.0%", FormatPercentage(Float(0.5)))
	assert.Equal(t, "100.0%", FormatPercentage(Fraction(100)))
	assert.Equal(t, "12.3%", FormatPercentage(Float(0.1234)))
}

func TestFormatDualUnits(t *testing.T) {
	assert.Equal(t, "10.0km/h / 6.2mph", FormatSpeed(KPH(10)))
	assert.Equal(t, "36.0km/h / 22.4mph", FormatSpeed(MetersPerSecond(10)))
	assert.Equal(t, "10.0km / 6.2mi", FormatDistance(Kilometers(10)))
	assert.Equal(t, "1.5km / 0.9mi", FormatDistance(Meters(1500)))
	assert.Equal(t, "25.4mm / 1.0in", FormatPrecipitation(Millimeters(25.4)))
}

func TestFormatAngle(t *testing.T) {
	cases := []struct {
		angle *float64
		want  string
	}{
		{nil, "N"},
		{Float(0), "N"},
		{Float(360), "N"},
		{Float(45), "NE"},
		{Float(22.5), "NNE"},
		{Float(11.24), "N"},
		{Float(11.25), "NNE"},
		{Float(11.5), "NNE"},
		{Float(90), "E"},
		{Float(180), "S"},
		{Float(200), "SSW"},
		{Float(270), "W"},
		{Float(337.5), "NNW"},
		{Float(350), "N"},
		{Float(-30), "NNW"},
		{Float(720 + 45), "NE"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatAngle(tc.angle))
	}
}

func TestOrNilKeepsMissingReadings(t *testing.T) {
	assert.Nil(t, CelsiusOrNil(nil))
	assert.Nil(t, KPHOrNil(nil))
	assert.Nil(t, MillimetersOrNil(nil))
	assert.Nil(t, FractionOrNil(nil))

	temp := CelsiusOrNil(Float(100))
	if assert.NotNil(t, temp) {
		assert.InDelta(t, 212.0, temp.F, 1e-9)
	}
}

func TestFormatterDelegates(t *testing.T) {
	var f Formatter
	assert.Equal(t, FormatTemp(Celsius(1)), f.Temp(Celsius(1)))
	assert.Equal(t, FormatAngle(Float(90)), f.Angle(Float(90)))
	assert.Equal(t, "N/A", f.Distance(nil))
}
