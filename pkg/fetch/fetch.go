// Package fetch retrieves panel source bytes over HTTP.
//
// Panel pixels are generated by external services and addressed by URL.
// This package owns the transport concerns the composer must not care
// about: per-fetch timeouts, retry with exponential backoff for transient
// failures, payload sniffing (a malformed payload must never reach an
// image decoder), and caching of fetched bytes.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"github.com/genarch/sheetpress/pkg/cache"
	"github.com/genarch/sheetpress/pkg/errors"
	"github.com/genarch/sheetpress/pkg/observability"
)

// DefaultTimeout bounds a single fetch attempt.
const DefaultTimeout = 20 * time.Second

// MaxPayloadSize caps a fetched panel payload (64 MiB). Print-master
// renders are large but bounded; anything bigger is a broken generator.
const MaxPayloadSize = 64 << 20

// Client fetches panel sources with caching and retries.
// The zero value is not usable; create one with NewClient.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	keyer   cache.Keyer
	timeout time.Duration
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-fetch timeout (default 20s).
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a fetch client. A nil cache disables caching; a nil
// keyer selects the default key scheme; a nil logger discards output.
func NewClient(c cache.Cache, keyer cache.Keyer, logger *log.Logger, opts ...Option) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	client := &Client{
		http:    &http.Client{},
		cache:   c,
		keyer:   keyer,
		timeout: DefaultTimeout,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Fetch retrieves panel bytes from source, returning the payload and its
// sniffed format. Payloads that are not PNG, JPEG or SVG are rejected
// before any decoder sees them.
func (c *Client) Fetch(ctx context.Context, source string) ([]byte, Format, error) {
	if err := errors.ValidateSourceURL(source); err != nil {
		return nil, "", err
	}

	key := c.keyer.PanelKey(source)
	if data, hit, err := c.cache.Get(ctx, key); err == nil && hit {
		observability.Cache().OnCacheHit(ctx, "panel")
		format, err := SniffFormat(data)
		if err == nil {
			return data, format, nil
		}
		// A poisoned cache entry; drop it and refetch.
		_ = c.cache.Delete(ctx, key)
	}
	observability.Cache().OnCacheMiss(ctx, "panel")

	var data []byte
	err := RetryWithBackoff(ctx, func() error {
		var attemptErr error
		data, attemptErr = c.fetchOnce(ctx, source)
		return attemptErr
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", errors.Wrap(errors.ErrCodeTimeout, err, "fetch %s", source)
		}
		return nil, "", errors.Wrap(errors.ErrCodeFetch, err, "fetch %s", source)
	}

	format, err := SniffFormat(data)
	if err != nil {
		return nil, "", err
	}

	if err := c.cache.Set(ctx, key, data, cache.TTLPanel); err != nil {
		c.logger.Warn("panel cache write failed", "source", source, "err", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "panel", len(data))
	}

	return data, format, nil
}

// fetchOnce performs a single fetch attempt under the per-fetch timeout.
func (c *Client) fetchOnce(ctx context.Context, source string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u, _ := url.Parse(source)
	observability.Fetch().OnFetch(ctx, u.Host, u.Path)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		observability.Fetch().OnFetchError(ctx, u.Host, u.Path, err)
		return nil, Retryable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		err := fmt.Errorf("server error: %s", resp.Status)
		observability.Fetch().OnFetchError(ctx, u.Host, u.Path, err)
		return nil, Retryable(err)
	}
	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status: %s", resp.Status)
		observability.Fetch().OnFetchError(ctx, u.Host, u.Path, err)
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxPayloadSize+1))
	if err != nil {
		observability.Fetch().OnFetchError(ctx, u.Host, u.Path, err)
		return nil, Retryable(err)
	}
	if len(data) > MaxPayloadSize {
		return nil, fmt.Errorf("payload exceeds %d bytes", MaxPayloadSize)
	}

	observability.Fetch().OnFetchComplete(ctx, u.Host, u.Path, resp.StatusCode, len(data), time.Since(start))
	return data, nil
}
