package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonearm/libsync/internal/ledger"
	"github.com/tonearm/libsync/internal/model"
)

func mustLedger(t *testing.T, tracks ...model.Track) *ledger.Ledger {
	t.Helper()
	l, err := ledger.New(tracks)
	require.NoError(t, err)
	return l
}

func resolvedTrack(t *testing.T, uri, url string, origin model.Origin) model.Track {
	t.Helper()
	tr := model.Track{URI: uri}
	require.NoError(t, tr.SetResolved(url, origin))
	return tr
}

func TestMergePrimaryWins(t *testing.T) {
	primary := mustLedger(t,
		resolvedTrack(t, "t1", "https://www.youtube.com/watch?v=primary", model.OriginSongstats),
	)
	secondary := mustLedger(t,
		resolvedTrack(t, "t1", "https://www.youtube.com/watch?v=secondary", model.OriginDiscogs),
	)

	out, acc, err := Merge(primary, secondary, model.OriginDiscogsFallback)
	require.NoError(t, err)

	assert.Equal(t, "https://www.youtube.com/watch?v=primary", out.Track(0).URL)
	assert.Equal(t, model.OriginSongstats, out.Track(0).Origin)
	assert.Equal(t, Accounting{Total: 1, Native: 1}, acc)
}

func TestMergeAdoptsSecondaryUnderFallbackOrigin(t *testing.T) {
	primary := mustLedger(t,
		model.Track{URI: "t1", Status: model.ResolutionNoCandidate},
	)
	secondary := mustLedger(t,
		resolvedTrack(t, "t1", "https://www.youtube.com/watch?v=rescue", model.OriginDiscogs),
	)

	out, acc, err := Merge(primary, secondary, model.OriginDiscogsFallback)
	require.NoError(t, err)

	got := out.Track(0)
	assert.Equal(t, model.ResolutionDone, got.Status)
	assert.Equal(t, "https://www.youtube.com/watch?v=rescue", got.URL)
	assert.Equal(t, model.OriginDiscogsFallback, got.Origin)
	assert.Equal(t, Accounting{Total: 1, Adopted: 1}, acc)
}

func TestMergeAccountingReconciles(t *testing.T) {
	primary := mustLedger(t,
		resolvedTrack(t, "t1", "https://www.youtube.com/watch?v=a", model.OriginSongstats),
		model.Track{URI: "t2"},
		model.Track{URI: "t3", Status: model.ResolutionError},
		model.Track{URI: "t4", ISRC: "X"},
	)
	secondary := mustLedger(t,
		model.Track{URI: "t1"},
		resolvedTrack(t, "t2", "https://www.youtube.com/watch?v=b", model.OriginDiscogs),
		model.Track{URI: "t3", Status: model.ResolutionNoCandidate},
		model.Track{URI: "t4", ISRC: "X", Status: model.ResolutionNoCandidate},
	)

	out, acc, err := Merge(primary, secondary, model.OriginDiscogsFallback)
	require.NoError(t, err)

	assert.Equal(t, Accounting{Total: 4, Native: 1, Adopted: 1, Unresolved: 2}, acc)
	assert.True(t, acc.Reconciles())
	assert.Equal(t, primary.Len(), out.Len())

	// An error row keeps its own verdict; only pending rows inherit the
	// secondary's conclusive one.
	assert.Equal(t, model.ResolutionError, out.Track(2).Status)
	assert.Equal(t, model.ResolutionNoCandidate, out.Track(3).Status)
}

func TestMergeIsIdempotent(t *testing.T) {
	primary := mustLedger(t,
		model.Track{URI: "t1"},
		resolvedTrack(t, "t2", "https://www.youtube.com/watch?v=keep", model.OriginSongstats),
	)
	secondary := mustLedger(t,
		resolvedTrack(t, "t1", "https://www.youtube.com/watch?v=fill", model.OriginDiscogs),
		model.Track{URI: "t2"},
	)

	once, acc1, err := Merge(primary, secondary, model.OriginDiscogsFallback)
	require.NoError(t, err)
	twice, acc2, err := Merge(once, secondary, model.OriginDiscogsFallback)
	require.NoError(t, err)

	assert.Equal(t, once.Tracks(), twice.Tracks())
	assert.Equal(t, Accounting{Total: 2, Native: 1, Adopted: 1}, acc1)
	assert.Equal(t, Accounting{Total: 2, Native: 2}, acc2)
}

func TestMergeLeavesInputsUntouched(t *testing.T) {
	primary := mustLedger(t, model.Track{URI: "t1"})
	secondary := mustLedger(t,
		resolvedTrack(t, "t1", "https://www.youtube.com/watch?v=x", model.OriginDiscogs),
	)

	_, _, err := Merge(primary, secondary, model.OriginDiscogsFallback)
	require.NoError(t, err)

	assert.Empty(t, primary.Track(0).URL)
	assert.Equal(t, model.ResolutionPending, primary.Track(0).Status)
}

func TestMergeToleratesMissingSecondaryRows(t *testing.T) {
	primary := mustLedger(t,
		model.Track{URI: "t1"},
		model.Track{URI: "t2"},
	)
	secondary := mustLedger(t,
		resolvedTrack(t, "t2", "https://www.youtube.com/watch?v=y", model.OriginDiscogs),
	)

	out, acc, err := Merge(primary, secondary, model.OriginDiscogsFallback)
	require.NoError(t, err)

	assert.Equal(t, Accounting{Total: 2, Adopted: 1, Unresolved: 1}, acc)
	assert.Equal(t, model.ResolutionPending, out.Track(0).Status)
}

func TestMergeRequiresFallbackOrigin(t *testing.T) {
	primary := mustLedger(t, model.Track{URI: "t1"})
	_, _, err := Merge(primary, primary, "")
	assert.Error(t, err)
}
