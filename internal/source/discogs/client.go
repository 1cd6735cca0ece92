// Package discogs resolves album groups to candidate recordings through
// the Discogs database API: search for the album, walk the best-ranked
// results to their master (or release) record, and return the videos
// attached to it.
package discogs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tonearm/libsync/internal/resilience"
	"github.com/tonearm/libsync/internal/resolve"
)

// Config configures the Discogs client.
type Config struct {
	BaseURL   string
	Key       string
	Secret    string
	UserAgent string
	Timeout   time.Duration

	// RequestsPerSecond throttles API calls. Discogs allows 60/min
	// authenticated; default stays under that (0.8/s).
	RequestsPerSecond float64

	// MaxResultsPerSearch bounds the candidate walk per strategy
	// (default 3).
	MaxResultsPerSearch int
}

// Client talks to the Discogs database API.
type Client struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// New creates a Discogs client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.discogs.com"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "libsync/1.0"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 0.8
	}
	if cfg.MaxResultsPerSearch <= 0 {
		cfg.MaxResultsPerSearch = 3
	}
	retry := resilience.DefaultRetryConfig()
	retry.OnRetry = resilience.RetryLogger("discogs", "api call")
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

type searchResponse struct {
	Results []searchResult `json:"results"`
}

type searchResult struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	MasterID    int    `json:"master_id"`
	MasterURL   string `json:"master_url"`
	ResourceURL string `json:"resource_url"`
}

type record struct {
	Videos []video `json:"videos"`
}

type video struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// Search finds the album in the catalog and returns the videos attached
// to its master record, as (title, url) candidates. Four query shapes are
// tried from most to least precise; the first that yields videos wins. A
// nil slice with nil error means the catalog has nothing for this album.
func (c *Client) Search(ctx context.Context, albumArtist, album string) ([]resolve.Candidate, error) {
	for i, params := range c.strategies(albumArtist, album) {
		results, err := c.search(ctx, params)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			continue
		}

		candidates, err := c.walkResults(ctx, results)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			zap.L().Debug("discogs: strategy produced candidates",
				zap.Int("strategy", i+1),
				zap.Int("candidates", len(candidates)),
				zap.String("album", album),
			)
			return candidates, nil
		}
	}
	return nil, nil
}

// strategies builds the query cascade: fielded master search, combined
// master query, fielded search without a type filter, free master query.
func (c *Client) strategies(albumArtist, album string) []url.Values {
	fieldedMaster := url.Values{}
	fieldedMaster.Set("type", "master")
	fieldedMaster.Set("artist", albumArtist)
	fieldedMaster.Set("release_title", album)

	combinedMaster := url.Values{}
	combinedMaster.Set("type", "master")
	combinedMaster.Set("q", albumArtist+" "+album)

	fieldedAny := url.Values{}
	fieldedAny.Set("artist", albumArtist)
	fieldedAny.Set("release_title", album)

	freeMaster := url.Values{}
	freeMaster.Set("type", "master")
	freeMaster.Set("q", album+" "+albumArtist)

	return []url.Values{fieldedMaster, combinedMaster, fieldedAny, freeMaster}
}

func (c *Client) search(ctx context.Context, params url.Values) ([]searchResult, error) {
	params.Set("per_page", "10")
	body, err := c.get(ctx, c.cfg.BaseURL+"/database/search?"+params.Encode())
	if err != nil {
		return nil, eris.Wrap(err, "discogs: search")
	}
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "discogs: decode search response")
	}
	return resp.Results, nil
}

// walkResults follows the best-ranked search results to a record that
// carries videos: the master when the result links one, a master
// constructed from master_id otherwise, the release itself as a last
// resort.
func (c *Client) walkResults(ctx context.Context, results []searchResult) ([]resolve.Candidate, error) {
	limit := c.cfg.MaxResultsPerSearch
	if len(results) < limit {
		limit = len(results)
	}

	for _, r := range results[:limit] {
		recordURL := r.MasterURL
		if recordURL == "" && r.MasterID > 0 {
			recordURL = fmt.Sprintf("%s/masters/%d", c.cfg.BaseURL, r.MasterID)
		}
		if recordURL == "" {
			recordURL = r.ResourceURL
		}
		if recordURL == "" {
			continue
		}

		candidates, err := c.videos(ctx, recordURL)
		if err != nil {
			return nil, err
		}
		if len(candidates) > 0 {
			return candidates, nil
		}
	}
	return nil, nil
}

func (c *Client) videos(ctx context.Context, recordURL string) ([]resolve.Candidate, error) {
	body, err := c.get(ctx, recordURL)
	if err != nil {
		return nil, eris.Wrap(err, "discogs: fetch record")
	}
	var rec record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, eris.Wrap(err, "discogs: decode record")
	}

	var candidates []resolve.Candidate
	for _, v := range rec.Videos {
		if !youtubeURI(v.URI) {
			continue
		}
		candidates = append(candidates, resolve.Candidate{Label: v.Title, URL: v.URI})
	}
	return candidates, nil
}

func youtubeURI(uri string) bool {
	return strings.Contains(uri, "youtube.com/") || strings.Contains(uri, "youtu.be/")
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	return resilience.Do(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "discogs: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "discogs: create request")
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		if c.cfg.Key != "" && c.cfg.Secret != "" {
			req.Header.Set("Authorization",
				fmt.Sprintf("Discogs key=%s, secret=%s", c.cfg.Key, c.cfg.Secret))
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(err, 0)
		}
		defer resp.Body.Close() //nolint:errcheck

		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(
				eris.Errorf("discogs: http %d from %s", resp.StatusCode, rawURL),
				resp.StatusCode,
			)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, eris.Errorf("discogs: unexpected status %d from %s", resp.StatusCode, rawURL)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "discogs: read body"), 0)
		}
		return body, nil
	})
}
