// Package httpfetch implements the fetchmeter Fetcher over HTTP and HTTPS.
//
// Requests are retried with exponential backoff and jitter until a response
// arrives; once content streaming has begun, failures are reported to the
// caller instead of retried.
package httpfetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/Azzadd/fetchmeter/core"
)

// ErrServerError marks 5xx responses, which are retried.
var ErrServerError = errors.New("httpfetch: server error")

const (
	defaultRetryAttempts   = 3
	defaultRetryBackoff    = time.Second
	defaultRetryMaxBackoff = 30 * time.Second
)

// Fetcher fetches resources over HTTP. It is safe for concurrent use.
type Fetcher struct {
	client          *http.Client
	logger          *slog.Logger
	userAgent       string
	retryAttempts   int
	retryBackoff    time.Duration
	retryMaxBackoff time.Duration
}

var _ core.Fetcher = (*Fetcher)(nil)

// Option configures a Fetcher.
type Option func(*Fetcher) error

// New creates an HTTP fetcher. Without options it uses a pooled transport
// with no overall request timeout; cancel the context to abort a fetch.
func New(opts ...Option) (*Fetcher, error) {
	f := &Fetcher{
		logger:          slog.New(slog.DiscardHandler),
		retryAttempts:   defaultRetryAttempts,
		retryBackoff:    defaultRetryBackoff,
		retryMaxBackoff: defaultRetryMaxBackoff,
	}

	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}

	if f.client == nil {
		f.client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return f, nil
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) error {
		if client == nil {
			return errors.New("http client must not be nil")
		}
		f.client = client
		return nil
	}
}

// WithLogger sets a logger for the fetcher. By default, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		f.logger = logger
		return nil
	}
}

// WithUserAgent sets a custom User-Agent header for requests.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) error {
		f.userAgent = ua
		return nil
	}
}

// WithRetryAttempts sets how many times a failed request is retried.
func WithRetryAttempts(n int) Option {
	return func(f *Fetcher) error {
		if n < 0 {
			return errors.New("retry attempts must not be negative")
		}
		f.retryAttempts = n
		return nil
	}
}

// WithRetryBackoff sets the initial retry backoff duration.
func WithRetryBackoff(d time.Duration) Option {
	return func(f *Fetcher) error {
		if d <= 0 {
			return errors.New("retry backoff must be positive")
		}
		f.retryBackoff = d
		return nil
	}
}

// FetchContent implements core.Fetcher. A 404 response reports absence as
// (nil, nil); the action is invoked at most once, after retries are done.
func (f *Fetcher) FetchContent(ctx context.Context, location core.Location, revalidate bool, action core.ContentAction) (any, error) {
	resp, err := f.do(ctx, http.MethodGet, location, revalidate)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	defer resp.Body.Close()

	meta := metadataFromResponse(location, resp)
	f.logger.Debug("fetching content", "url", location.String(), "length", meta.ContentLength)

	return action(resp.Body, meta)
}

// FetchMetadata implements core.Fetcher using a HEAD request.
func (f *Fetcher) FetchMetadata(ctx context.Context, location core.Location, revalidate bool) (*core.Metadata, error) {
	resp, err := f.do(ctx, http.MethodHead, location, revalidate)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, nil
	}
	resp.Body.Close()

	return metadataFromResponse(location, resp), nil
}

// do issues the request with retries. A nil response with nil error means
// the resource does not exist.
func (f *Fetcher) do(ctx context.Context, method string, location core.Location, revalidate bool) (*http.Response, error) {
	if s := location.Scheme(); s != "http" && s != "https" {
		return nil, fmt.Errorf("httpfetch: unsupported scheme %q", s)
	}

	var lastErr error
	for attempt := 0; attempt <= f.retryAttempts; attempt++ {
		if attempt > 0 {
			f.logger.Debug("retrying request", "url", location.String(), "attempt", attempt, "error", lastErr)
			if err := f.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, location.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if revalidate {
			req.Header.Set("Cache-Control", "no-cache")
		}
		if f.userAgent != "" {
			req.Header.Set("User-Agent", f.userAgent)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		// Server errors are retryable.
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("%w: %d %s", ErrServerError, resp.StatusCode, resp.Status)
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil
		case resp.StatusCode == http.StatusNotFound:
			resp.Body.Close()
			return nil, nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			resp.Body.Close()
			return nil, fmt.Errorf("%w: status %d", core.ErrUnauthorized, resp.StatusCode)
		default:
			resp.Body.Close()
			return nil, fmt.Errorf("httpfetch: unexpected status code %d for %s", resp.StatusCode, location.String())
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", f.retryAttempts+1, lastErr)
}

// backoff waits for an exponentially increasing duration with jitter.
func (f *Fetcher) backoff(ctx context.Context, attempt int) error {
	backoff := f.retryBackoff * time.Duration(1<<uint(attempt-1))
	if backoff > f.retryMaxBackoff {
		backoff = f.retryMaxBackoff
	}

	// Jitter: 0.5 to 1.5 of backoff
	jitter := time.Duration(float64(backoff) * (0.5 + rand.Float64()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(jitter):
		return nil
	}
}

// metadataFromResponse builds resource metadata from response headers.
// resp.ContentLength is -1 when unknown, matching core.UnknownSize.
func metadataFromResponse(location core.Location, resp *http.Response) *core.Metadata {
	meta := &core.Metadata{
		Location:      location,
		ContentLength: resp.ContentLength,
		ETag:          cleanETag(resp.Header.Get("ETag")),
		ContentType:   resp.Header.Get("Content-Type"),
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			meta.LastModified = t
		}
	}

	return meta
}

// cleanETag removes the weak-validator prefix and quotes from an ETag.
func cleanETag(etag string) string {
	etag = strings.TrimPrefix(etag, "W/")
	etag = strings.Trim(etag, `"`)
	return etag
}
