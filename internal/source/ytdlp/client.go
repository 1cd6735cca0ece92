// Package ytdlp shells out to yt-dlp for probing, fetching, and searching
// recordings. Error text from the tool is passed through verbatim so the
// retrieval driver can classify it.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tonearm/libsync/internal/download"
)

var commandContext = exec.CommandContext

// Config configures the yt-dlp wrapper.
type Config struct {
	// Binary overrides the executable name (default "yt-dlp").
	Binary string

	// CookiesPath, when set, is passed with --cookies so sign-in-gated
	// videos work.
	CookiesPath string

	// AudioFormat for extraction (default "mp3").
	AudioFormat string

	// AudioQuality for the extractor (default "0", best).
	AudioQuality string
}

// Client wraps the yt-dlp executable.
type Client struct {
	cfg Config
}

// New creates a yt-dlp client.
func New(cfg Config) *Client {
	if cfg.Binary == "" {
		cfg.Binary = "yt-dlp"
	}
	if cfg.AudioFormat == "" {
		cfg.AudioFormat = "mp3"
	}
	if cfg.AudioQuality == "" {
		cfg.AudioQuality = "0"
	}
	return &Client{cfg: cfg}
}

var _ download.Retriever = (*Client)(nil)

type probePayload struct {
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

// Probe fetches metadata for a URL without downloading.
func (c *Client) Probe(ctx context.Context, url string) (download.Probe, error) {
	args := c.commonArgs()
	args = append(args, "-J", "--no-download", url)

	out, err := c.run(ctx, args)
	if err != nil {
		return download.Probe{}, err
	}

	var p probePayload
	if err := json.Unmarshal(out, &p); err != nil {
		return download.Probe{}, eris.Wrap(err, "ytdlp: decode probe output")
	}
	return download.Probe{Title: p.Title, DurationSeconds: p.Duration}, nil
}

// Download fetches a URL, extracts audio, and leaves the file at dest.
func (c *Client) Download(ctx context.Context, url, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return eris.Wrap(err, "ytdlp: create output directory")
	}

	// yt-dlp appends the extension itself; hand it the stem.
	stem := strings.TrimSuffix(dest, filepath.Ext(dest))
	args := c.commonArgs()
	args = append(args,
		"-x",
		"--audio-format", c.cfg.AudioFormat,
		"--audio-quality", c.cfg.AudioQuality,
		"-o", stem+".%(ext)s",
		url,
	)

	if _, err := c.run(ctx, args); err != nil {
		return err
	}
	if _, err := os.Stat(dest); err != nil {
		return eris.Wrap(err, "ytdlp: output file missing after download")
	}
	zap.L().Debug("ytdlp: downloaded", zap.String("url", url), zap.String("dest", dest))
	return nil
}

type searchPayload struct {
	Entries []searchEntry `json:"entries"`
}

type searchEntry struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
	URL      string  `json:"url"`
}

// Search runs a flat ytsearch and returns the entries in result order.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]download.SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}
	args := c.commonArgs()
	args = append(args, "-J", "--flat-playlist", fmt.Sprintf("ytsearch%d:%s", limit, query))

	out, err := c.run(ctx, args)
	if err != nil {
		return nil, err
	}

	var p searchPayload
	if err := json.Unmarshal(out, &p); err != nil {
		return nil, eris.Wrap(err, "ytdlp: decode search output")
	}

	results := make([]download.SearchResult, 0, len(p.Entries))
	for _, e := range p.Entries {
		url := e.URL
		if url == "" && e.ID != "" {
			url = "https://www.youtube.com/watch?v=" + e.ID
		}
		if url == "" {
			continue
		}
		results = append(results, download.SearchResult{
			URL:             url,
			Title:           e.Title,
			DurationSeconds: e.Duration,
		})
	}
	return results, nil
}

func (c *Client) commonArgs() []string {
	args := []string{"--no-playlist", "--no-warnings"}
	if c.cfg.CookiesPath != "" {
		args = append(args, "--cookies", c.cfg.CookiesPath)
	}
	return args
}

// run executes the tool and surfaces its stderr as the error message, so
// callers see yt-dlp's own wording.
func (c *Client) run(ctx context.Context, args []string) ([]byte, error) {
	cmd := commandContext(ctx, c.cfg.Binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, eris.New(msg)
	}
	return stdout.Bytes(), nil
}
