// Package report computes and renders summaries over ledgers: resolution
// coverage, provenance breakdowns, download outcomes, and the cross-ledger
// verification a merge should pass before its output replaces anything.
package report

import (
	"fmt"

	"github.com/tonearm/libsync/internal/ledger"
	"github.com/tonearm/libsync/internal/merge"
	"github.com/tonearm/libsync/internal/model"
)

// ResolutionBreakdown summarizes one ledger's resolution state.
type ResolutionBreakdown struct {
	Total    int
	Resolved int
	ByStatus map[model.ResolutionStatus]int
	ByOrigin map[model.Origin]int
}

// Coverage is the resolved fraction in percent.
func (b ResolutionBreakdown) Coverage() float64 {
	if b.Total == 0 {
		return 0
	}
	return float64(b.Resolved) / float64(b.Total) * 100
}

// Breakdown tallies a ledger's rows by resolution status and provenance.
func Breakdown(l *ledger.Ledger) ResolutionBreakdown {
	b := ResolutionBreakdown{
		Total:    l.Len(),
		ByStatus: make(map[model.ResolutionStatus]int),
		ByOrigin: make(map[model.Origin]int),
	}
	for i := 0; i < l.Len(); i++ {
		t := l.Track(i)
		b.ByStatus[t.Status]++
		if t.Resolved() {
			b.Resolved++
			b.ByOrigin[t.Origin]++
		}
	}
	return b
}

// DownloadBreakdown summarizes one ledger's retrieval state.
type DownloadBreakdown struct {
	Total      int
	Downloaded int
	Tagged     int
	ByStatus   map[model.DownloadStatus]int
}

// Downloads tallies a ledger's rows by download outcome.
func Downloads(l *ledger.Ledger) DownloadBreakdown {
	b := DownloadBreakdown{
		Total:    l.Len(),
		ByStatus: make(map[model.DownloadStatus]int),
	}
	for i := 0; i < l.Len(); i++ {
		t := l.Track(i)
		if t.DownloadStatus != model.DownloadPending {
			b.ByStatus[t.DownloadStatus]++
		}
		if bool(t.Downloaded) {
			b.Downloaded++
		}
		if t.TagsEmbedded == "yes" {
			b.Tagged++
		}
	}
	return b
}

// Check is one verification outcome.
type Check struct {
	Name   string
	OK     bool
	Detail string
}

// VerifyResult collects the checks of one verification pass.
type VerifyResult struct {
	Checks []Check
}

// OK reports whether every check passed.
func (v VerifyResult) OK() bool {
	for _, c := range v.Checks {
		if !c.OK {
			return false
		}
	}
	return true
}

func (v *VerifyResult) add(name string, ok bool, detail string) {
	v.Checks = append(v.Checks, Check{Name: name, OK: ok, Detail: detail})
}

// Verify cross-checks a merged ledger against its inputs: no rows lost,
// the accounting arithmetic reconciles, primary resolutions survived
// untouched, and every resolved row carries both URL and provenance.
func Verify(primary, merged *ledger.Ledger, acc merge.Accounting) VerifyResult {
	var v VerifyResult

	v.add("row count preserved", primary.Len() == merged.Len(),
		fmt.Sprintf("primary=%d merged=%d", primary.Len(), merged.Len()))

	v.add("accounting reconciles", acc.Reconciles(),
		fmt.Sprintf("native=%d adopted=%d unresolved=%d total=%d",
			acc.Native, acc.Adopted, acc.Unresolved, acc.Total))

	lost := 0
	overwritten := 0
	for i := 0; i < primary.Len(); i++ {
		p := primary.Track(i)
		m, ok := merged.Lookup(p.URI)
		if !ok {
			lost++
			continue
		}
		if p.Resolved() && (m.URL != p.URL || m.Origin != p.Origin) {
			overwritten++
		}
	}
	v.add("no rows lost", lost == 0, fmt.Sprintf("missing=%d", lost))
	v.add("primary resolutions preserved", overwritten == 0,
		fmt.Sprintf("overwritten=%d", overwritten))

	incomplete := 0
	for i := 0; i < merged.Len(); i++ {
		m := merged.Track(i)
		if m.Status == model.ResolutionDone && !m.Resolved() {
			incomplete++
		}
	}
	v.add("resolved rows carry url and origin", incomplete == 0,
		fmt.Sprintf("incomplete=%d", incomplete))

	b := Breakdown(merged)
	v.add("coverage computed", true,
		fmt.Sprintf("%d/%d resolved (%.1f%%)", b.Resolved, b.Total, b.Coverage()))

	return v
}
