package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig is the process environment: where to listen and where the bot config lives.
type AppConfig struct {
	Port string

	// ConfigPath points at the TOML bot configuration.
	ConfigPath string

	// HTTPTimeout bounds each outbound provider call.
	HTTPTimeout time.Duration

	// ReloadInterval controls how often the bot config is re-read even without
	// a file event (0 = only on file events).
	ReloadInterval time.Duration

	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.ConfigPath = getenvDefault("CONFIG_PATH", "config.toml")
	cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")

	timeout, err := time.ParseDuration(getenvDefault("HTTP_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}
	cfg.HTTPTimeout = timeout

	interval, err := time.ParseDuration(getenvDefault("CONFIG_RELOAD_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CONFIG_RELOAD_INTERVAL: %w", err)
	}
	cfg.ReloadInterval = interval

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
