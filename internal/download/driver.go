// Package download walks the resolved ledger and turns URLs into tagged
// audio files on disk. The unit of work (and of checkpointing) is the row;
// the actual fetching is behind the Retriever interface so the driver's
// policy can be tested without a network or an external tool.
package download

import (
	"context"
	"math"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/tonearm/libsync/internal/ledger"
	"github.com/tonearm/libsync/internal/model"
	"github.com/tonearm/libsync/internal/resilience"
)

// Probe is the metadata of a single remote recording.
type Probe struct {
	Title           string
	DurationSeconds float64
}

// SearchResult is one entry of a flat title search.
type SearchResult struct {
	URL             string
	Title           string
	DurationSeconds float64
}

// Retriever fetches remote recordings. Implemented by the yt-dlp adapter.
type Retriever interface {
	Probe(ctx context.Context, url string) (Probe, error)
	Download(ctx context.Context, url, dest string) error
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
}

// Tagger embeds a track's metadata into a finished file.
type Tagger interface {
	Embed(ctx context.Context, path string, t *model.Track) error
}

// Options bound one retrieval run.
type Options struct {
	// Root is the library directory files are placed under.
	Root string

	// MaxRuntime stops the run after this much wall time (0 = unlimited).
	MaxRuntime time.Duration

	// MaxUnits stops the run after this many rows (0 = unlimited).
	MaxUnits int

	// Tolerance for duration validation; zero value means DefaultTolerance.
	Tolerance Tolerance

	// SearchLimit is how many flat-search entries to consider (default 5).
	SearchLimit int
}

// Summary reports what one retrieval run did.
type Summary struct {
	Todo       int
	Processed  int
	Downloaded int
	Failed     int
	Tagged     int
	Elapsed    time.Duration
}

// Driver owns the retrieval loop for one run.
type Driver struct {
	r       Retriever
	tagger  Tagger
	session *Session
	cp      *ledger.Checkpointer
	pacer   *resilience.Pacer
	opts    Options
	log     *zap.Logger
}

// NewDriver wires a retrieval driver.
func NewDriver(r Retriever, tagger Tagger, session *Session, cp *ledger.Checkpointer, pacer *resilience.Pacer, opts Options) *Driver {
	if opts.Tolerance == (Tolerance{}) {
		opts.Tolerance = DefaultTolerance
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = 5
	}
	return &Driver{
		r: r, tagger: tagger, session: session,
		cp: cp, pacer: pacer, opts: opts,
		log: zap.L().With(zap.String("session_id", session.ID)),
	}
}

// Todo selects the rows a run should attempt: not yet downloaded, not
// stuck on a conclusive failure, and either carrying a URL or enough
// metadata to search with. URL rows come first, search-only rows after,
// ledger order within each.
func Todo(l *ledger.Ledger, session *Session) []int {
	var urlRows, searchRows []int
	for i := 0; i < l.Len(); i++ {
		t := l.Track(i)
		if bool(t.Downloaded) || skippableStatus(t.DownloadStatus, session) {
			continue
		}
		switch {
		case t.URL != "":
			urlRows = append(urlRows, i)
		case t.Name != "":
			searchRows = append(searchRows, i)
		}
	}
	return append(urlRows, searchRows...)
}

func skippableStatus(s model.DownloadStatus, session *Session) bool {
	if Permanent(s) {
		return true
	}
	if CookieDependent(s) && !session.HasCookies() {
		return true
	}
	// A row that already exhausted its search fallback stays put.
	return searchFailedStatus(s)
}

// Run processes the todo rows sequentially, checkpointing after each.
func (d *Driver) Run(ctx context.Context, l *ledger.Ledger) (Summary, error) {
	start := time.Now()
	todo := Todo(l, d.session)
	sum := Summary{Todo: len(todo)}
	d.log.Info("download: starting run",
		zap.Int("rows", l.Len()),
		zap.Int("todo", len(todo)),
		zap.String("root", d.opts.Root),
	)

	for n, idx := range todo {
		if d.stopReached(ctx, start, sum.Processed) {
			d.log.Info("download: stopping before next row", zap.Duration("elapsed", time.Since(start)))
			break
		}

		t := l.Track(idx)
		st, ok := d.processRow(ctx, t)
		t.DownloadStatus = st
		if ok {
			sum.Downloaded++
			if d.embedTags(ctx, t) {
				sum.Tagged++
			}
		} else {
			sum.Failed++
		}
		sum.Processed++
		d.cp.Unit(l)

		if ok {
			d.pacer.AfterSuccess(ctx)
		} else if CountsTowardCooldown(st) {
			d.pacer.AfterTransientFailure(ctx, d.session.Refresh)
		} else {
			d.pacer.ResetFailures()
		}

		if n < len(todo)-1 {
			d.pacer.AfterUnit(ctx)
		}
	}

	sum.Elapsed = time.Since(start)
	d.log.Info("download: run finished",
		zap.Int("processed", sum.Processed),
		zap.Int("downloaded", sum.Downloaded),
		zap.Int("failed", sum.Failed),
		zap.Int("tagged", sum.Tagged),
		zap.Duration("elapsed", sum.Elapsed),
	)
	return sum, nil
}

// processRow attempts one row and returns its resulting status plus
// whether a file ended up on disk.
func (d *Driver) processRow(ctx context.Context, t *model.Track) (model.DownloadStatus, bool) {
	dest := OutputPath(d.opts.Root, t)
	rlog := d.log.With(zap.String("track_uri", t.URI), zap.String("track", t.Name))

	if fileExists(dest) {
		rlog.Info("download: file already on disk", zap.String("path", dest))
		t.Downloaded = true
		t.DownloadDate = stamp()
		return model.DownloadAlreadyExists, true
	}

	if t.URL == "" {
		return d.searchOnly(ctx, t, dest, rlog)
	}

	st, ok := d.fetchURL(ctx, t, t.URL, dest, rlog)
	if ok {
		return st, true
	}
	if Searchable(st) {
		return d.searchFallback(ctx, t, st, dest, rlog)
	}
	return st, false
}

// fetchURL probes, validates duration, and downloads a known URL.
func (d *Driver) fetchURL(ctx context.Context, t *model.Track, url, dest string, rlog *zap.Logger) (model.DownloadStatus, bool) {
	p, err := d.r.Probe(ctx, url)
	if err != nil {
		st := Classify(err.Error())
		rlog.Warn("download: probe failed",
			zap.String("url", url),
			zap.String("status", string(st)),
			zap.String("error", truncate(err.Error(), 200)),
		)
		if st == model.DownloadError {
			return model.DownloadNoInfo, false
		}
		return st, false
	}

	if !d.opts.Tolerance.DurationOK(t.ExpectedSeconds(), p.DurationSeconds) {
		rlog.Warn("download: duration out of tolerance",
			zap.Float64("expected_s", t.ExpectedSeconds()),
			zap.Float64("actual_s", p.DurationSeconds),
		)
		return model.DownloadDurationMismatch, false
	}

	if err := d.r.Download(ctx, url, dest); err != nil {
		st := Classify(err.Error())
		rlog.Warn("download: fetch failed",
			zap.String("url", url),
			zap.String("status", string(st)),
			zap.String("error", truncate(err.Error(), 200)),
		)
		return st, false
	}

	t.Downloaded = true
	t.DownloadDate = stamp()
	t.ActualDuration = p.DurationSeconds
	rlog.Info("download: fetched", zap.String("path", dest))
	return model.DownloadDone, true
}

// searchOnly handles rows that never resolved a URL but still name a
// track: find the closest-duration search hit and fetch it.
func (d *Driver) searchOnly(ctx context.Context, t *model.Track, dest string, rlog *zap.Logger) (model.DownloadStatus, bool) {
	hit, st := d.bestSearchHit(ctx, t, rlog)
	if st != "" {
		return st, false
	}

	t.SearchedURL = hit.URL
	if err := d.r.Download(ctx, hit.URL, dest); err != nil {
		st := Classify(err.Error())
		rlog.Warn("download: search hit fetch failed",
			zap.String("url", hit.URL),
			zap.String("status", string(st)),
		)
		return st, false
	}

	if err := t.SetResolved(hit.URL, model.OriginSearch); err != nil {
		rlog.Warn("download: could not record searched url", zap.Error(err))
	}
	t.Downloaded = true
	t.DownloadDate = stamp()
	t.ActualDuration = hit.DurationSeconds
	rlog.Info("download: fetched via search", zap.String("path", dest))
	return model.DownloadSearchDone, true
}

// searchFallback retries a failed URL row through title search. The
// resulting status encodes both the original failure and the fallback
// outcome so the ledger stays auditable.
func (d *Driver) searchFallback(ctx context.Context, t *model.Track, orig model.DownloadStatus, dest string, rlog *zap.Logger) (model.DownloadStatus, bool) {
	rlog.Info("download: trying search fallback", zap.String("from", string(orig)))

	hit, st := d.bestSearchHit(ctx, t, rlog)
	if st != "" {
		return searchFailed(orig), false
	}

	t.SearchedURL = hit.URL
	if err := d.r.Download(ctx, hit.URL, dest); err != nil {
		rlog.Warn("download: fallback fetch failed",
			zap.String("url", hit.URL),
			zap.String("error", truncate(err.Error(), 200)),
		)
		return searchFailed(orig), false
	}

	t.URL = hit.URL
	t.Origin = model.OriginSearchFallback
	t.Downloaded = true
	t.DownloadDate = stamp()
	t.ActualDuration = hit.DurationSeconds
	rlog.Info("download: fallback fetched", zap.String("path", dest))
	return searchFallbackFrom(orig), true
}

// bestSearchHit runs the flat search and picks the closest-duration entry
// inside tolerance. The returned status is non-empty when no usable hit
// exists.
func (d *Driver) bestSearchHit(ctx context.Context, t *model.Track, rlog *zap.Logger) (SearchResult, model.DownloadStatus) {
	query := BuildSearchQuery(t)
	if query == "" {
		return SearchResult{}, model.DownloadNoSearchResults
	}

	results, err := d.r.Search(ctx, query, d.opts.SearchLimit)
	if err != nil {
		rlog.Warn("download: search failed",
			zap.String("query", query),
			zap.String("error", truncate(err.Error(), 200)),
		)
		return SearchResult{}, Classify(err.Error())
	}
	if len(results) == 0 {
		return SearchResult{}, model.DownloadNoSearchResults
	}

	// Pick the closest-duration entry first, then validate it. Without
	// an expected duration the first result wins.
	expected := t.ExpectedSeconds()
	best := -1
	if expected > 0 {
		bestDrift := math.MaxFloat64
		for i, r := range results {
			drift := math.Abs(r.DurationSeconds - expected)
			if drift < bestDrift {
				best, bestDrift = i, drift
			}
		}
	} else {
		best = 0
	}
	if best < 0 {
		return SearchResult{}, model.DownloadNoValidMatch
	}

	hit := results[best]
	if !d.opts.Tolerance.DurationOK(expected, hit.DurationSeconds) {
		rlog.Info("download: closest search hit outside duration tolerance",
			zap.String("query", query),
			zap.Float64("expected_s", expected),
			zap.Float64("actual_s", hit.DurationSeconds),
		)
		return SearchResult{}, model.DownloadSearchMismatch
	}
	return hit, ""
}

func (d *Driver) embedTags(ctx context.Context, t *model.Track) bool {
	if d.tagger == nil {
		return false
	}
	path := OutputPath(d.opts.Root, t)
	if err := d.tagger.Embed(ctx, path, t); err != nil {
		d.log.Warn("download: tag embedding failed",
			zap.String("track_uri", t.URI),
			zap.String("error", truncate(err.Error(), 200)),
		)
		return false
	}
	t.TagsEmbedded = "yes"
	return true
}

func (d *Driver) stopReached(ctx context.Context, start time.Time, processed int) bool {
	if ctx.Err() != nil {
		return true
	}
	if d.opts.MaxRuntime > 0 && time.Since(start) >= d.opts.MaxRuntime {
		return true
	}
	return d.opts.MaxUnits > 0 && processed >= d.opts.MaxUnits
}

func searchFallbackFrom(orig model.DownloadStatus) model.DownloadStatus {
	return model.DownloadStatus("search_fallback_from_" + string(orig))
}

func searchFailed(orig model.DownloadStatus) model.DownloadStatus {
	return model.DownloadStatus(string(orig) + "_search_failed")
}

func searchFailedStatus(s model.DownloadStatus) bool {
	const suffix = "_search_failed"
	str := string(s)
	return len(str) > len(suffix) && str[len(str)-len(suffix):] == suffix
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func stamp() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
