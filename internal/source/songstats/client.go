// Package songstats resolves recordings to YouTube URLs by scraping the
// rendered track page for an ISRC. The page is script-rendered, so the
// client can route the fetch through a prerender endpoint; without one it
// falls back to a plain GET and the loose link scan.
package songstats

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tonearm/libsync/internal/resilience"
)

// Config configures the songstats page client.
type Config struct {
	// BaseURL is the site root the track pages live under.
	BaseURL string

	// RendererURL, when set, is a prerender service the track URL is
	// passed to (query-escaped, appended) so script-rendered anchors
	// exist in the returned HTML.
	RendererURL string

	UserAgent string
	Timeout   time.Duration

	// RequestsPerSecond throttles page fetches (default 0.5).
	RequestsPerSecond float64
}

// Client fetches and scrapes track pages.
type Client struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// New creates a songstats client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://songstats.com"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "libsync/1.0"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 45 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 0.5
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("songstats", "fetch track page")
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		retry:   retry,
	}
}

// TrackPageURL is the page scraped for a given ISRC.
func (c *Client) TrackPageURL(isrc string) string {
	return fmt.Sprintf("%s/track/%s", c.cfg.BaseURL, url.PathEscape(isrc))
}

// Resolve fetches the track page for an ISRC and returns the first
// YouTube URL on it, canonicalized. An empty URL with a nil error means
// the page rendered fine but links to no YouTube recording.
func (c *Client) Resolve(ctx context.Context, isrc string) (string, error) {
	page := c.TrackPageURL(isrc)

	html, err := resilience.Do(ctx, c.retry, func(ctx context.Context) (string, error) {
		return c.fetch(ctx, page)
	})
	if err != nil {
		return "", eris.Wrap(err, "songstats: fetch track page")
	}

	link := ExtractYouTubeURL(html)
	if link == "" {
		zap.L().Debug("songstats: page holds no youtube link",
			zap.String("isrc", isrc),
			zap.Int("page_bytes", len(html)),
		)
	}
	return link, nil
}

func (c *Client) fetch(ctx context.Context, page string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "songstats: rate limiter wait")
	}

	target := page
	if c.cfg.RendererURL != "" {
		target = c.cfg.RendererURL + url.QueryEscape(page)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", eris.Wrap(err, "songstats: create request")
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", resilience.NewTransientError(err, 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return "", resilience.NewTransientError(
			eris.Errorf("songstats: http %d from %s", resp.StatusCode, target),
			resp.StatusCode,
		)
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("songstats: unexpected status %d from %s", resp.StatusCode, target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", resilience.NewTransientError(eris.Wrap(err, "songstats: read body"), 0)
	}
	return string(body), nil
}
