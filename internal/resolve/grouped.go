package resolve

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tonearm/libsync/internal/ledger"
	"github.com/tonearm/libsync/internal/model"
	"github.com/tonearm/libsync/internal/resilience"
)

// GroupDriver runs the per-group strategy: one catalog query per album
// group, then fuzzy-matches the returned candidates onto the group's
// tracks. A queried group is a one-shot opportunity per run: tracks left
// unmatched are marked no_yt, not left pending.
type GroupDriver struct {
	src    GroupLookup
	origin model.Origin
	cp     *ledger.Checkpointer
	pacer  *resilience.Pacer
	opts   Options
}

// NewGroupDriver wires an album-batched resolution driver.
func NewGroupDriver(src GroupLookup, origin model.Origin, cp *ledger.Checkpointer, pacer *resilience.Pacer, opts Options) *GroupDriver {
	return &GroupDriver{src: src, origin: origin, cp: cp, pacer: pacer, opts: opts}
}

// Run processes album groups in first-appearance order. The unit of work
// (and of checkpointing) is the group.
func (d *GroupDriver) Run(ctx context.Context, l *ledger.Ledger) (Summary, error) {
	log := zap.L().With(zap.String("source", string(d.origin)))
	start := time.Now()

	todo := Todo(l, d.opts.RetrySoftTerminal)
	groups := model.GroupByAlbum(l.Tracks(), todo)
	sum := Summary{Todo: len(groups)}
	log.Info("resolve: starting per-group pass",
		zap.Int("rows", l.Len()),
		zap.Int("todo_rows", len(todo)),
		zap.Int("albums", len(groups)),
	)

	for n, g := range groups {
		if stopReached(ctx, start, d.opts, sum.Processed) {
			log.Info("resolve: stopping before next album", zap.Duration("elapsed", time.Since(start)))
			break
		}

		glog := log.With(zap.String("album", g.Album), zap.String("album_artist", g.AlbumArtist))

		searchTitle := CleanAlbumTitle(g.Album)
		if searchTitle != g.Album {
			glog.Info("resolve: cleaned album title for search", zap.String("search_title", searchTitle))
		}

		candidates, err := d.src.Search(ctx, g.AlbumArtist, searchTitle)
		if err != nil {
			// Transient: leave the rows retryable and move on to the
			// next album.
			for _, idx := range g.Rows {
				l.Track(idx).SetStatus(model.ResolutionError)
			}
			sum.Processed++
			d.cp.Unit(l)
			glog.Warn("resolve: album search failed", zap.String("error", truncate(err.Error(), 200)))
			d.pacer.AfterUnit(ctx)
			continue
		}

		if len(candidates) == 0 {
			for _, idx := range g.Rows {
				l.Track(idx).SetStatus(model.ResolutionNoCandidate)
			}
			sum.Processed++
			d.cp.Unit(l)
			glog.Info("resolve: no candidates for album")
			d.pacer.AfterUnit(ctx)
			continue
		}

		titles := make([]string, len(g.Rows))
		for i, idx := range g.Rows {
			titles[i] = l.Track(idx).Name
		}

		matches := MatchCandidates(candidates, titles, d.opts.MatchThreshold)
		for slot, c := range matches {
			t := l.Track(g.Rows[slot])
			if setErr := t.SetResolved(c.URL, d.origin); setErr != nil {
				glog.Warn("resolve: refusing to overwrite resolved row", zap.Error(setErr))
				continue
			}
			sum.Updated++
			glog.Info("resolve: matched track",
				zap.String("track", t.Name),
				zap.String("label", c.Label),
				zap.String("url", c.URL),
			)
		}

		// The album was queried and candidates existed; whatever did not
		// match will not match next run either.
		for slot, idx := range g.Rows {
			if _, ok := matches[slot]; !ok {
				l.Track(idx).SetStatus(model.ResolutionNoCandidate)
			}
		}

		sum.Processed++
		d.cp.Unit(l)
		glog.Info("resolve: album committed",
			zap.Int("candidates", len(candidates)),
			zap.Int("matched", len(matches)),
			zap.Int("tracks", len(g.Rows)),
		)

		if n < len(groups)-1 {
			d.pacer.AfterUnit(ctx)
		}
	}

	sum.Elapsed = time.Since(start)
	log.Info("resolve: per-group pass finished",
		zap.Int("albums_processed", sum.Processed),
		zap.Int("tracks_updated", sum.Updated),
		zap.Duration("elapsed", sum.Elapsed),
	)
	return sum, nil
}
