// Package render turns a forecast into the reply text using text/template.
//
// Templates see a Context: .Location, .Weather, .ForecastDays and .Format,
// whose methods (Temp, Percentage, Speed, Distance, Precipitation, Angle)
// format measurements. No other functions are available to templates.
package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/i474232898/multiweather/internal/apperr"
	"github.com/i474232898/multiweather/internal/units"
	"github.com/i474232898/multiweather/internal/weather"
)

// DefaultTemplateName is the packaged template used when no custom template is configured.
const DefaultTemplateName = "templates/default_output.tmpl"

//go:embed templates
var Assets embed.FS

var errEmptyTemplate = errors.New("template is empty")

// Context is everything a template can reach.
type Context struct {
	Location     fmt.Stringer
	Weather      *weather.Forecast
	ForecastDays int
	Format       units.Formatter
}

// LoadDefault reads the default template from fsys.
func LoadDefault(fsys fs.FS, name string) (string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", fmt.Errorf("failed to load default template: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("failed to load default template %s: %w", name, errEmptyTemplate)
	}
	return string(data), nil
}

// Renderer holds the parsed default template. It is safe for concurrent use.
type Renderer struct {
	defaultTemplate *template.Template
}

// New parses the default template once.
func New(defaultTemplate string) (*Renderer, error) {
	tmpl, err := parse("default", defaultTemplate)
	if err != nil {
		return nil, err
	}
	return &Renderer{defaultTemplate: tmpl}, nil
}

// Render executes custom if it is set, otherwise the default template.
// On failure nothing is returned but a RenderError.
func (r *Renderer) Render(location fmt.Stringer, forecast *weather.Forecast, forecastDays int, custom string) (string, error) {
	tmpl := r.defaultTemplate
	if custom != "" {
		var err error
		if tmpl, err = parse("custom", custom); err != nil {
			return "", err
		}
	}

	if forecast == nil {
		forecast = &weather.Forecast{}
	}
	ctx := Context{
		Location:     location,
		Weather:      forecast,
		ForecastDays: forecastDays,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", apperr.Render(err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

func parse(name, text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Render(errEmptyTemplate)
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, apperr.Render(err)
	}
	return tmpl, nil
}
