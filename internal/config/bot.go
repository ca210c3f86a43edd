package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
)

// DefaultForecastDays is used when backend.forecast_days is not set.
const DefaultForecastDays = 3

var validate = validator.New()

// Config is the validated bot configuration. A Config is never mutated after
// Parse returns; reloads swap in a new value.
type Config struct {
	CommandNames []string      `validate:"required,min=1,dive,required"`
	Weather      WeatherConfig
	Geocode      GeocodeConfig
	Output       OutputConfig
}

// WeatherConfig is the [backend] table.
type WeatherConfig struct {
	Default      string
	ForecastDays int `validate:"min=1,max=16"`

	// Backends holds the per-backend tables, keyed by backend name.
	Backends map[string]Options
}

// DefaultBackend returns the configured weather backend, if any.
func (w WeatherConfig) DefaultBackend() (string, bool) {
	return w.Default, w.Default != ""
}

// Options returns the init options for the named weather backend.
func (w WeatherConfig) Options(name string) Options {
	if o, ok := w.Backends[name]; ok && o != nil {
		return o
	}
	return Options{}
}

// GeocodeConfig is the [geocode_backend] table.
type GeocodeConfig struct {
	Default      string
	PreferNative bool
	Backends     map[string]GeocodeBackendConfig
}

// GeocodeBackendConfig is a [geocode_backend.<name>] table.
type GeocodeBackendConfig struct {
	InitOptions Options `toml:"init_options"`
	QueryArgs   Options `toml:"query_args"`
}

// DefaultBackend returns the configured geocode backend, if any.
func (g GeocodeConfig) DefaultBackend() (string, bool) {
	return g.Default, g.Default != ""
}

// Backend returns the tables for the named geocode backend; missing tables are empty.
func (g GeocodeConfig) Backend(name string) GeocodeBackendConfig {
	b := g.Backends[name]
	if b.InitOptions == nil {
		b.InitOptions = Options{}
	}
	if b.QueryArgs == nil {
		b.QueryArgs = Options{}
	}
	return b
}

// OutputConfig is the [output] table.
type OutputConfig struct {
	CustomTemplate string `toml:"custom_template"`
}

type fileConfig struct {
	CommandNames   []string                  `toml:"command_names"`
	Backend        map[string]toml.Primitive `toml:"backend"`
	GeocodeBackend map[string]toml.Primitive `toml:"geocode_backend"`
	Output         OutputConfig              `toml:"output"`
}

// ReadFile loads and validates the bot configuration at path.
func ReadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(string(data))
}

// Parse decodes and validates a TOML bot configuration.
func Parse(data string) (*Config, error) {
	var fc fileConfig
	md, err := toml.Decode(data, &fc)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg := &Config{
		CommandNames: fc.CommandNames,
		Weather: WeatherConfig{
			ForecastDays: DefaultForecastDays,
			Backends:     make(map[string]Options),
		},
		Geocode: GeocodeConfig{
			Backends: make(map[string]GeocodeBackendConfig),
		},
		Output: fc.Output,
	}

	for key, prim := range fc.Backend {
		switch key {
		case "default":
			err = md.PrimitiveDecode(prim, &cfg.Weather.Default)
		case "forecast_days":
			err = md.PrimitiveDecode(prim, &cfg.Weather.ForecastDays)
		default:
			var opts Options
			err = md.PrimitiveDecode(prim, &opts)
			cfg.Weather.Backends[key] = opts
		}
		if err != nil {
			return nil, fmt.Errorf("backend.%s: %w", key, err)
		}
	}

	for key, prim := range fc.GeocodeBackend {
		switch key {
		case "default":
			err = md.PrimitiveDecode(prim, &cfg.Geocode.Default)
		case "prefer_native":
			err = md.PrimitiveDecode(prim, &cfg.Geocode.PreferNative)
		default:
			var b GeocodeBackendConfig
			err = md.PrimitiveDecode(prim, &b)
			cfg.Geocode.Backends[key] = b
		}
		if err != nil {
			return nil, fmt.Errorf("geocode_backend.%s: %w", key, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the structural rules of the configuration. Missing default
// backends are allowed here and reported per command instead.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
