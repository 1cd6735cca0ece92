// Package merge combines two resolution passes over the same export into a
// single ledger. The primary pass wins wherever it found a URL; the
// secondary pass fills the gaps, with its contributions re-labelled so
// provenance survives the merge.
package merge

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tonearm/libsync/internal/ledger"
	"github.com/tonearm/libsync/internal/model"
)

// Accounting is the reconciliation arithmetic of one merge: every row in
// the result is exactly one of native, adopted, or unresolved.
type Accounting struct {
	Total      int
	Native     int
	Adopted    int
	Unresolved int
}

// Reconciles reports whether the three buckets partition the row set.
func (a Accounting) Reconciles() bool {
	return a.Native+a.Adopted+a.Unresolved == a.Total
}

// Merge overlays secondary's resolutions onto primary. The result has
// primary's rows in primary's order; a row resolved in primary keeps its
// URL and origin untouched, a row resolved only in secondary adopts the
// secondary URL under the fallback origin, and everything else keeps the
// primary row as-is. Neither input is modified.
func Merge(primary, secondary *ledger.Ledger, fallback model.Origin) (*ledger.Ledger, Accounting, error) {
	if fallback == "" {
		return nil, Accounting{}, eris.New("merge: fallback origin is required")
	}

	out := primary.Clone()
	acc := Accounting{Total: out.Len()}

	for i := 0; i < out.Len(); i++ {
		t := out.Track(i)
		if t.Resolved() {
			acc.Native++
			continue
		}

		sec, ok := secondary.Lookup(t.URI)
		if ok && sec.Resolved() {
			if err := t.SetResolved(sec.URL, fallback); err != nil {
				return nil, Accounting{}, eris.Wrap(err, "merge: adopting secondary resolution")
			}
			acc.Adopted++
			continue
		}

		// Neither pass found a URL. Prefer the more conclusive verdict:
		// a pending primary row inherits the secondary's terminal status
		// so the row is not pointlessly re-queried.
		if !ok {
			zap.L().Warn("merge: row missing from secondary ledger", zap.String("track_uri", t.URI))
		} else if t.Status == model.ResolutionPending &&
			(sec.Status == model.ResolutionNoCandidate || sec.Status == model.ResolutionNoISRC) {
			t.Status = sec.Status
		}
		acc.Unresolved++
	}

	zap.L().Info("merge: ledgers combined",
		zap.Int("total", acc.Total),
		zap.Int("native", acc.Native),
		zap.Int("adopted", acc.Adopted),
		zap.Int("unresolved", acc.Unresolved),
	)
	return out, acc, nil
}
