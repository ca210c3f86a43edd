package geocode

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/i474232898/multiweather/internal/config"
)

const defaultTimeout = 10 * time.Second

// session is the HTTP client one backend instance talks through. It lives
// for a single Resolve call and owns its connection pool.
type session struct {
	client *resty.Client
	pool   *http.Transport
}

// newSession builds a client from init options. Recognised options:
// base_url, user_agent, timeout, proxy, headers.
func newSession(opts config.Options, defaults Defaults, baseURL string) (*session, error) {
	pool := defaults.pool()
	if proxy := opts.String("proxy", ""); proxy != "" {
		u, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy %q: %w", proxy, err)
		}
		pool.Proxy = http.ProxyURL(u)
	}

	hc := &http.Client{
		Transport: defaults.roundTripper(pool),
		Timeout:   opts.Duration("timeout", defaultTimeout),
	}

	client := resty.NewWithClient(hc).
		SetBaseURL(opts.String("base_url", baseURL)).
		SetHeader("Accept", "application/json")

	if ua := opts.String("user_agent", ""); ua != "" {
		client.SetHeader("User-Agent", ua)
	}
	if headers, ok := opts["headers"].(map[string]any); ok {
		for k, v := range headers {
			client.SetHeader(k, fmt.Sprint(v))
		}
	}

	return &session{client: client, pool: pool}, nil
}

// get performs a GET and decodes a JSON body into result.
func (s *session) get(ctx context.Context, path string, params map[string]string, result any) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(result).
		Get(path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("%s %s: unexpected status %s", resp.Request.Method, path, resp.Status())
	}
	return nil
}

// Close releases the session's pooled connections.
func (s *session) Close() error {
	s.pool.CloseIdleConnections()
	return nil
}
