// Package bot runs the weather command: pick backends from the current
// configuration, geocode unless the weather backend can take free text,
// fetch the forecast and render the reply.
package bot

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/i474232898/multiweather/internal/apperr"
	"github.com/i474232898/multiweather/internal/config"
	"github.com/i474232898/multiweather/internal/geocode"
	"github.com/i474232898/multiweather/internal/render"
	"github.com/i474232898/multiweather/internal/weather"
)

// ConfigSource yields the configuration snapshot for one command.
type ConfigSource interface {
	Current() *config.Config
}

// Geocoder resolves free text to a single location.
type Geocoder interface {
	Resolve(ctx context.Context, text string, cfg config.GeocodeConfig) (geocode.Location, error)
}

// Replier sends text back to wherever the command came from.
type Replier interface {
	Reply(ctx context.Context, text string) error
}

// Bot is safe for concurrent use; it keeps no per-request state.
type Bot struct {
	configs  ConfigSource
	geocoder Geocoder
	fetcher  *weather.Fetcher
	renderer *render.Renderer
	tracer   trace.Tracer
}

func New(configs ConfigSource, geocoder Geocoder, fetcher *weather.Fetcher, renderer *render.Renderer) *Bot {
	return &Bot{
		configs:  configs,
		geocoder: geocoder,
		fetcher:  fetcher,
		renderer: renderer,
		tracer:   otel.Tracer("multiweather/bot"),
	}
}

// Weather produces the reply for a location using the current configuration.
func (b *Bot) Weather(ctx context.Context, location string) (string, error) {
	return b.run(ctx, b.configs.Current(), location)
}

// Handle is the boundary between the chat transport and the bot. Every
// failure is answered with "<Kind>: <message>" and then returned so the
// caller can escalate it. Messages that are not weather commands yield
// ErrNotCommand without a reply.
func (b *Bot) Handle(ctx context.Context, msg Message, out Replier) error {
	cfg := b.configs.Current()
	cmd, location, ok := ParseCommand(msg.Body, cfg.CommandNames)
	if !ok {
		return ErrNotCommand
	}

	reqID := uuid.NewString()
	ctx, span := b.tracer.Start(ctx, "bot: handle")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.id", reqID),
		attribute.String("command", cmd),
		attribute.String("location", location),
	)

	log.Printf("DEBUG: bot[%s]: !%s %q from %s", reqID, cmd, location, msg.Sender)

	text, err := b.run(ctx, cfg, location)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.KindOf(err)))

		if rerr := out.Reply(ctx, apperr.Reply(err)); rerr != nil {
			log.Printf("ERROR: bot[%s]: failed to send error reply: %v", reqID, rerr)
		}
		log.Printf("ERROR: bot[%s]: !%s %q failed: %v", reqID, cmd, location, err)
		return err
	}

	span.SetStatus(codes.Ok, "")
	return out.Reply(ctx, text)
}

func (b *Bot) run(ctx context.Context, cfg *config.Config, location string) (string, error) {
	backendName, ok := cfg.Weather.DefaultBackend()
	if !ok {
		return "", apperr.Configuration("No default weather backend is set")
	}

	location = strings.TrimSpace(location)
	if location == "" {
		return Usage(cfg.CommandNames), nil
	}

	backend, err := b.fetcher.Open(backendName, cfg.Weather.Options(backendName))
	if err != nil {
		return "", err
	}

	var place weather.Place
	if backend.SupportsNativeGeocode() && cfg.Geocode.PreferNative {
		place = weather.NativePlace(location)
	} else {
		loc, err := b.geocode(ctx, location, cfg.Geocode)
		if err != nil {
			return "", err
		}
		place = weather.ResolvedPlace(loc)
	}

	forecast, err := b.fetch(ctx, backend, place, cfg.Weather.ForecastDays)
	if err != nil {
		return "", err
	}

	_, span := b.tracer.Start(ctx, "bot: render")
	defer span.End()
	text, err := b.renderer.Render(place, forecast, cfg.Weather.ForecastDays, cfg.Output.CustomTemplate)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return "", err
	}
	return text, nil
}

func (b *Bot) geocode(ctx context.Context, location string, cfg config.GeocodeConfig) (geocode.Location, error) {
	ctx, span := b.tracer.Start(ctx, "bot: geocode")
	defer span.End()

	loc, err := b.geocoder.Resolve(ctx, location, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "geocode failed")
		return geocode.Location{}, err
	}
	span.SetAttributes(
		attribute.String("geocode.backend", loc.Backend),
		attribute.Float64("geocode.latitude", loc.Latitude),
		attribute.Float64("geocode.longitude", loc.Longitude),
	)
	return loc, nil
}

func (b *Bot) fetch(ctx context.Context, backend weather.Backend, place weather.Place, days int) (*weather.Forecast, error) {
	ctx, span := b.tracer.Start(ctx, "bot: fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("weather.backend", backend.Name()),
		attribute.Bool("weather.native", place.IsNative()),
		attribute.Int("weather.days", days),
	)

	forecast, err := b.fetcher.Fetch(ctx, backend, place, days)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, err
	}
	return forecast, nil
}
