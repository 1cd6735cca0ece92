// Package resolve advances unresolved ledger rows toward a resolved or
// permanently-failed state, one external lookup source per driver. Two
// strategies exist: RowDriver issues one lookup per track, GroupDriver one
// lookup per album group with fuzzy title matching of the results.
package resolve

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tonearm/libsync/internal/ledger"
	"github.com/tonearm/libsync/internal/model"
	"github.com/tonearm/libsync/internal/resilience"
)

// RowLookup resolves a single recording identifier to a candidate media
// URL. An empty URL with a nil error means the source had nothing usable.
type RowLookup interface {
	Resolve(ctx context.Context, isrc string) (string, error)
}

// GroupLookup searches a catalog for an album and returns candidate
// (label, url) pairs. An empty slice with a nil error means no candidates.
type GroupLookup interface {
	Search(ctx context.Context, albumArtist, album string) ([]Candidate, error)
}

// Options bound a single driver run.
type Options struct {
	// MaxRuntime stops the run before starting a new unit once exceeded
	// (never mid-unit). Zero means unbounded.
	MaxRuntime time.Duration

	// MaxUnits caps the number of units this run (0 = unlimited).
	MaxUnits int

	// RetrySoftTerminal re-includes no_yt rows in the todo selection.
	RetrySoftTerminal bool

	// MatchThreshold is the token-containment threshold for group matching.
	MatchThreshold float64
}

// Summary reports what a driver run accomplished.
type Summary struct {
	Todo      int
	Processed int
	Updated   int
	Elapsed   time.Duration
}

// RowDriver runs the per-row strategy: one external call per unresolved
// track, one status update per track, one checkpoint per track.
type RowDriver struct {
	src    RowLookup
	origin model.Origin
	cp     *ledger.Checkpointer
	pacer  *resilience.Pacer
	opts   Options
}

// NewRowDriver wires a per-row resolution driver.
func NewRowDriver(src RowLookup, origin model.Origin, cp *ledger.Checkpointer, pacer *resilience.Pacer, opts Options) *RowDriver {
	return &RowDriver{src: src, origin: origin, cp: cp, pacer: pacer, opts: opts}
}

// Run processes the todo rows in ledger order until done, the runtime
// budget expires, or the context is cancelled. Every outcome is committed
// through the checkpointer before the next unit starts.
func (d *RowDriver) Run(ctx context.Context, l *ledger.Ledger) (Summary, error) {
	log := zap.L().With(zap.String("source", string(d.origin)))
	start := time.Now()

	todo := Todo(l, d.opts.RetrySoftTerminal)
	sum := Summary{Todo: len(todo)}
	log.Info("resolve: starting per-row pass",
		zap.Int("rows", l.Len()),
		zap.Int("todo", len(todo)),
	)

	for n, idx := range todo {
		if stopReached(ctx, start, d.opts, sum.Processed) {
			log.Info("resolve: stopping before next unit", zap.Duration("elapsed", time.Since(start)))
			break
		}

		t := l.Track(idx)
		if t.ISRC == "" {
			t.SetStatus(model.ResolutionNoISRC)
			sum.Processed++
			d.cp.Unit(l)
			log.Info("resolve: no lookup key", zap.Int("row", idx), zap.String("track", t.Name))
			continue
		}

		url, err := d.src.Resolve(ctx, t.ISRC)
		switch {
		case err != nil:
			t.SetStatus(model.ResolutionError)
			log.Warn("resolve: lookup failed",
				zap.Int("row", idx),
				zap.String("isrc", t.ISRC),
				zap.String("error", truncate(err.Error(), 200)),
			)
		case url == "":
			t.SetStatus(model.ResolutionNoCandidate)
			log.Info("resolve: no candidate", zap.Int("row", idx), zap.String("isrc", t.ISRC))
		default:
			if setErr := t.SetResolved(url, d.origin); setErr != nil {
				log.Warn("resolve: refusing to overwrite resolved row", zap.Int("row", idx), zap.Error(setErr))
			} else {
				sum.Updated++
				log.Info("resolve: resolved",
					zap.Int("row", idx),
					zap.String("track", t.Name),
					zap.String("url", url),
				)
			}
		}

		sum.Processed++
		d.cp.Unit(l)

		if n < len(todo)-1 {
			d.pacer.AfterUnit(ctx)
		}
	}

	sum.Elapsed = time.Since(start)
	log.Info("resolve: per-row pass finished",
		zap.Int("processed", sum.Processed),
		zap.Int("updated", sum.Updated),
		zap.Duration("elapsed", sum.Elapsed),
	)
	return sum, nil
}

func stopReached(ctx context.Context, start time.Time, opts Options, processed int) bool {
	if ctx.Err() != nil {
		return true
	}
	if opts.MaxRuntime > 0 && time.Since(start) > opts.MaxRuntime {
		return true
	}
	if opts.MaxUnits > 0 && processed >= opts.MaxUnits {
		return true
	}
	return false
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
