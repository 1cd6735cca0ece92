package resolve

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonearm/libsync/internal/ledger"
	"github.com/tonearm/libsync/internal/model"
	"github.com/tonearm/libsync/internal/resilience"
)

type fakeRowLookup struct {
	urls  map[string]string
	fail  map[string]bool
	calls []string
}

func (f *fakeRowLookup) Resolve(_ context.Context, isrc string) (string, error) {
	f.calls = append(f.calls, isrc)
	if f.fail[isrc] {
		return "", eris.New("lookup blew up")
	}
	return f.urls[isrc], nil
}

func newTestLedger(t *testing.T, tracks ...model.Track) *ledger.Ledger {
	t.Helper()
	l, err := ledger.New(tracks)
	require.NoError(t, err)
	return l
}

func testCheckpointer(t *testing.T) *ledger.Checkpointer {
	t.Helper()
	return ledger.NewCheckpointer(filepath.Join(t.TempDir(), "out.csv"), 100)
}

func quietPacer() *resilience.Pacer {
	return resilience.NewPacer(resilience.PacerConfig{})
}

func TestRowDriverStatusTransitions(t *testing.T) {
	l := newTestLedger(t,
		model.Track{URI: "t1", ISRC: "ISRC1", Name: "Hit"},
		model.Track{URI: "t2", ISRC: "ISRC2", Name: "Missing"},
		model.Track{URI: "t3", Name: "No Key"},
		model.Track{URI: "t4", ISRC: "ISRC4", Name: "Flaky"},
	)
	src := &fakeRowLookup{
		urls: map[string]string{"ISRC1": "https://www.youtube.com/watch?v=ok"},
		fail: map[string]bool{"ISRC4": true},
	}
	d := NewRowDriver(src, model.OriginSongstats, testCheckpointer(t), quietPacer(), Options{})

	sum, err := d.Run(context.Background(), l)
	require.NoError(t, err)

	assert.Equal(t, 4, sum.Processed)
	assert.Equal(t, 1, sum.Updated)

	assert.Equal(t, model.ResolutionDone, l.Track(0).Status)
	assert.Equal(t, model.OriginSongstats, l.Track(0).Origin)
	assert.Equal(t, model.ResolutionNoCandidate, l.Track(1).Status)
	assert.Equal(t, model.ResolutionNoISRC, l.Track(2).Status)
	assert.Equal(t, model.ResolutionError, l.Track(3).Status)

	// The keyless row never hit the source.
	assert.Equal(t, []string{"ISRC1", "ISRC2", "ISRC4"}, src.calls)
}

func TestRowDriverSkipsResolvedAndSoftTerminalRows(t *testing.T) {
	resolved := model.Track{URI: "t1", ISRC: "ISRC1"}
	require.NoError(t, resolved.SetResolved("https://www.youtube.com/watch?v=keep", model.OriginDiscogs))

	l := newTestLedger(t,
		resolved,
		model.Track{URI: "t2", ISRC: "ISRC2", Status: model.ResolutionNoCandidate},
		model.Track{URI: "t3", ISRC: "ISRC3", Status: model.ResolutionError},
	)
	src := &fakeRowLookup{urls: map[string]string{
		"ISRC1": "https://www.youtube.com/watch?v=clobber",
		"ISRC2": "https://www.youtube.com/watch?v=soft",
		"ISRC3": "https://www.youtube.com/watch?v=retry",
	}}
	d := NewRowDriver(src, model.OriginSongstats, testCheckpointer(t), quietPacer(), Options{})

	_, err := d.Run(context.Background(), l)
	require.NoError(t, err)

	// Only the transient-error row was retried.
	assert.Equal(t, []string{"ISRC3"}, src.calls)
	assert.Equal(t, "https://www.youtube.com/watch?v=keep", l.Track(0).URL)
	assert.Equal(t, model.ResolutionNoCandidate, l.Track(1).Status)
	assert.Equal(t, model.ResolutionDone, l.Track(2).Status)
}

func TestRowDriverRetrySoftTerminalPolicy(t *testing.T) {
	l := newTestLedger(t,
		model.Track{URI: "t1", ISRC: "ISRC1", Status: model.ResolutionNoCandidate},
	)
	src := &fakeRowLookup{urls: map[string]string{"ISRC1": "https://www.youtube.com/watch?v=found"}}
	d := NewRowDriver(src, model.OriginSongstats, testCheckpointer(t), quietPacer(), Options{RetrySoftTerminal: true})

	sum, err := d.Run(context.Background(), l)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Updated)
	assert.Equal(t, model.ResolutionDone, l.Track(0).Status)
}

func TestRowDriverHonorsUnitCap(t *testing.T) {
	l := newTestLedger(t,
		model.Track{URI: "t1", ISRC: "ISRC1"},
		model.Track{URI: "t2", ISRC: "ISRC2"},
		model.Track{URI: "t3", ISRC: "ISRC3"},
	)
	src := &fakeRowLookup{}
	d := NewRowDriver(src, model.OriginSongstats, testCheckpointer(t), quietPacer(), Options{MaxUnits: 2})

	sum, err := d.Run(context.Background(), l)
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Processed)
	assert.Len(t, src.calls, 2)
	assert.Equal(t, model.ResolutionPending, l.Track(2).Status)
}

func TestRowDriverStopsOnCancelledContext(t *testing.T) {
	l := newTestLedger(t, model.Track{URI: "t1", ISRC: "ISRC1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewRowDriver(&fakeRowLookup{}, model.OriginSongstats, testCheckpointer(t), quietPacer(), Options{})
	sum, err := d.Run(ctx, l)
	require.NoError(t, err)
	assert.Zero(t, sum.Processed)
}
