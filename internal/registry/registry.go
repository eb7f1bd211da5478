// Package registry fetches reference data from the remote countervalues registry.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rshade/cryptoassets-importer/internal/engine/cache"
	"github.com/rshade/cryptoassets-importer/internal/logging"
)

const (
	// DefaultTickersURL lists every ticker the countervalues service can price.
	DefaultTickersURL = "https://countervalues.live.ledger.com/v2/tickers"

	// DefaultTimeout bounds a single registry request.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResponseBytes caps how much of a response body is read.
	DefaultMaxResponseBytes = 10 << 20

	userAgent = "assetimport"
)

// Registry errors.
var (
	ErrUnexpectedStatus = errors.New("unexpected registry response status")
	ErrNoTickersURL     = errors.New("tickers URL is not configured")
	ErrResponseTooLarge = errors.New("registry response too large")
)

// Cache is the subset of cache.FileStore the client needs.
type Cache interface {
	Get(key string) (*cache.Entry, error)
	Set(key, source string, data json.RawMessage) error
	Delete(key string) error
}

// Client talks to the countervalues registry over HTTP.
type Client struct {
	TickersURL string
	HTTPClient *http.Client

	// Cache is optional. Cache errors never fail a fetch.
	Cache Cache

	// MaxResponseBytes bounds a response body (0 = DefaultMaxResponseBytes).
	MaxResponseBytes int64
}

// NewClient creates a client for tickersURL with the given request timeout.
func NewClient(tickersURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		TickersURL: tickersURL,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// WithCache sets the response cache.
func (c *Client) WithCache(store Cache) *Client {
	c.Cache = store
	return c
}

// FetchTickers returns the list of tickers known to the countervalues service.
// A cached response is used when present and fresh.
func (c *Client) FetchTickers(ctx context.Context) (*Tickers, error) {
	if c.TickersURL == "" {
		return nil, ErrNoTickersURL
	}

	log := logging.FromContext(ctx).With().
		Str("component", "registry").
		Str("url", c.TickersURL).
		Logger()

	if c.Cache != nil {
		entry, err := c.Cache.Get(c.TickersURL)
		switch {
		case err == nil:
			var list []string
			if jsonErr := json.Unmarshal(entry.Data, &list); jsonErr == nil {
				tickers := NewTickers(list)
				log.Debug().
					Ctx(ctx).
					Int("tickers", tickers.Len()).
					Dur("expires_in", entry.Remaining()).
					Msg("tickers served from cache")
				return tickers, nil
			}
			log.Warn().Ctx(ctx).Msg("dropping unreadable cached tickers")
			if delErr := c.Cache.Delete(c.TickersURL); delErr != nil {
				log.Warn().Ctx(ctx).Err(delErr).Msg("could not drop cached tickers")
			}
		case errors.Is(err, cache.ErrCacheNotFound),
			errors.Is(err, cache.ErrCacheExpired),
			errors.Is(err, cache.ErrCacheDisabled):
		default:
			log.Warn().Ctx(ctx).Err(err).Msg("tickers cache lookup failed")
		}
	}

	body, err := c.get(ctx, c.TickersURL)
	if err != nil {
		return nil, err
	}

	var list []string
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decoding tickers from %s: %w", c.TickersURL, err)
	}

	if c.Cache != nil {
		if setErr := c.Cache.Set(c.TickersURL, c.TickersURL, body); setErr != nil &&
			!errors.Is(setErr, cache.ErrCacheDisabled) {
			log.Warn().Ctx(ctx).Err(setErr).Msg("could not cache tickers")
		}
	}

	tickers := NewTickers(list)
	log.Debug().Ctx(ctx).Int("tickers", tickers.Len()).Msg("tickers fetched")
	return tickers, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, url, resp.StatusCode)
	}

	limit := c.MaxResponseBytes
	if limit <= 0 {
		limit = DefaultMaxResponseBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrResponseTooLarge, url, limit)
	}
	return body, nil
}
