package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/multiweather/internal/api/http"
	"github.com/i474232898/multiweather/internal/bot"
	"github.com/i474232898/multiweather/internal/config"
	"github.com/i474232898/multiweather/internal/geocode"
	"github.com/i474232898/multiweather/internal/render"
	"github.com/i474232898/multiweather/internal/scheduler"
	"github.com/i474232898/multiweather/internal/telemetry"
	"github.com/i474232898/multiweather/internal/weather"
	"github.com/i474232898/multiweather/internal/weather/providers"
)

var version = "dev"

const (
	serviceName     = "multiweather"
	watchDebounce   = 200 * time.Millisecond
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, version, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Printf("error flushing traces: %v", err)
		}
	}()

	// Bot configuration, hot reloaded from disk.
	store, err := config.NewStore(cfg.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load bot config %s: %v", cfg.ConfigPath, err)
	}

	watcher, err := config.NewWatcher(store, watchDebounce)
	if err != nil {
		log.Fatalf("failed to create config watcher: %v", err)
	}
	if err := watcher.Watch(); err != nil {
		log.Printf("WARN: config file events unavailable, relying on periodic reload: %v", err)
	}
	defer watcher.Close()

	if cfg.ReloadInterval > 0 {
		sched := scheduler.New(store, cfg.ReloadInterval)
		if err := sched.Start(); err != nil {
			log.Fatalf("failed to start scheduler: %v", err)
		}
		defer sched.Stop()
	}

	// Shared HTTP client for outbound weather calls.
	httpClient := &http.Client{
		Timeout:   cfg.HTTPTimeout,
		Transport: telemetry.Transport(nil),
	}

	weatherRegistry := weather.NewRegistry()
	providers.Register(weatherRegistry)
	fetcher := weather.NewFetcher(weatherRegistry, httpClient)

	resolver := geocode.NewResolver(geocode.DefaultRegistry(), geocode.Defaults{
		UserAgent: "Mozilla/5.0 (compatible; " + serviceName + " " + version + ")",
		Adapter: func() *http.Transport {
			return http.DefaultTransport.(*http.Transport).Clone()
		},
		Wrap: telemetry.Transport,
	})

	defaultTemplate, err := render.LoadDefault(render.Assets, render.DefaultTemplateName)
	if err != nil {
		log.Fatalf("%v", err)
	}
	renderer, err := render.New(defaultTemplate)
	if err != nil {
		log.Fatalf("failed to parse default template: %v", err)
	}

	weatherBot := bot.New(store, resolver, fetcher, renderer)

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout * 3,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
			"version": version,
		})
	})

	httpapi.RegisterRoutes(app, weatherBot)

	go func() {
		log.Printf("INFO: %s %s listening on :%s", serviceName, version, cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
