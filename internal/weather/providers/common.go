package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/multiweather/internal/config"
	"github.com/i474232898/multiweather/internal/weather"
)

// BackoffConfig controls exponential backoff behaviour.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Backoff BackoffConfig
}

var (
	errRateLimited   = errors.New("rate limited")
	errServerError   = errors.New("server error")
	errUnexpected    = errors.New("unexpected status code")
	errCircuitOpen   = errors.New("circuit breaker open")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
	errNoAPIKey      = errors.New("api_key is not configured")
)

// Register adds every built-in weather backend to r.
func Register(r *weather.Registry) {
	r.Register(OpenMeteoName, NewOpenMeteoProvider)
	r.Register(OpenWeatherName, NewOpenWeatherProvider)
	r.Register(WeatherAPIName, NewWeatherAPIProvider)
}

// Backend instances are built per command, but a breaker only means
// something if it outlives them, so breakers are kept per backend endpoint.
var (
	breakersMu sync.Mutex
	breakers   = make(map[string]*gobreaker.CircuitBreaker)
)

func breakerFor(name, baseURL string) *gobreaker.CircuitBreaker {
	breakersMu.Lock()
	defer breakersMu.Unlock()

	key := name + "|" + baseURL
	cb, ok := breakers[key]
	if !ok {
		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 5,
			Interval:    1 * time.Minute,
			Timeout:     2 * time.Minute,
		})
		breakers[key] = cb
	}
	return cb
}

// httpConfigFrom reads the resilience options shared by all backends.
func httpConfigFrom(opts config.Options, client *http.Client) HTTPClientConfig {
	return HTTPClientConfig{
		Client: client,
		Backoff: BackoffConfig{
			MaxRetries:      opts.Int("max_retries", 3),
			InitialInterval: opts.Duration("retry_interval", 500*time.Millisecond),
			MaxInterval:     opts.Duration("max_retry_interval", 5*time.Second),
		},
	}
}

// doRequestWithResilience executes the HTTP request with retries, exponential backoff,
// and a circuit breaker.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	buildRequest func() (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, errNoHTTPClient
	}
	if cfg.Backoff.MaxRetries < 0 || cfg.Backoff.InitialInterval <= 0 {
		return nil, errInvalidConfig
	}

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := buildRequest()
		if err != nil {
			return nil, err
		}

		// Ensure the request obeys context cancellation.
		req = req.WithContext(ctx)

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			// Handle rate limiting and server errors explicitly.
			if resp.StatusCode == http.StatusTooManyRequests {
				drain(resp)
				return nil, errRateLimited
			}
			if resp.StatusCode >= 500 {
				drain(resp)
				return nil, errServerError
			}
			// Other 4xx mean the request itself was bad (usually the user's
			// location text), not that the backend is unhealthy, so the
			// breaker records them as successes.
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return newStatusError(resp), nil
			}

			return resp, nil
		})

		if err == nil {
			switch r := result.(type) {
			case *http.Response:
				return r, nil
			case *statusError:
				return nil, r
			default:
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
		}

		// If circuit is open, propagate immediately.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		lastErr = err
		if attempt >= cfg.Backoff.MaxRetries {
			return nil, lastErr
		}

		// Backoff with exponential delay.
		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
			// continue to next attempt
		}

		attempt++
	}
}

// getJSON performs a resilient GET and decodes the body into out.
func getJSON(ctx context.Context, cfg HTTPClientConfig, cb *gobreaker.CircuitBreaker, url string, out any) error {
	resp, err := doRequestWithResilience(ctx, cfg, cb, func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, url, nil)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError is a non-retryable response from the backend. Message is the
// backend's own explanation when the body carries one.
type statusError struct {
	StatusCode int
	Message    string
}

func (e *statusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %d", errUnexpected, e.StatusCode)
	}
	return fmt.Sprintf("%s: %d: %s", errUnexpected, e.StatusCode, e.Message)
}

func (e *statusError) Unwrap() error { return errUnexpected }

// newStatusError consumes resp. It understands the error bodies of the
// built-in backends: {"message"} (OpenWeatherMap), {"error":{"message"}}
// (WeatherAPI) and {"reason"} (Open-Meteo).
func newStatusError(resp *http.Response) *statusError {
	defer drain(resp)

	e := &statusError{StatusCode: resp.StatusCode}
	var body struct {
		Message string          `json:"message"`
		Reason  string          `json:"reason"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err != nil {
		return e
	}

	var nested struct {
		Message string `json:"message"`
	}
	if len(body.Error) > 0 && json.Unmarshal(body.Error, &nested) == nil && nested.Message != "" {
		e.Message = nested.Message
		return e
	}
	if body.Message != "" {
		e.Message = body.Message
	} else {
		e.Message = body.Reason
	}
	return e
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}

// dayDate parses a YYYY-MM-DD date as midnight UTC.
func dayDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// at returns vals[i], or nil when the index is out of range.
func at(vals []*float64, i int) *float64 {
	if i < 0 || i >= len(vals) {
		return nil
	}
	return vals[i]
}
