// Package ledger holds the tabular track dataset and its durable,
// crash-safe persistence. Every pipeline pass reads and mutates one Ledger
// and commits it through a Checkpointer after each unit of work.
package ledger

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/tonearm/libsync/internal/model"
)

// Ledger is the in-memory row ledger: ordered track records indexed by
// track URI. Row order is stable across loads and saves.
type Ledger struct {
	tracks []model.Track
	byURI  map[string]int
}

// New builds a Ledger, validating that track URIs are present and unique.
func New(tracks []model.Track) (*Ledger, error) {
	byURI := make(map[string]int, len(tracks))
	for i := range tracks {
		uri := strings.TrimSpace(tracks[i].URI)
		if uri == "" {
			return nil, eris.Errorf("ledger: row %d has no track_uri", i)
		}
		if prev, dup := byURI[uri]; dup {
			return nil, eris.Errorf("ledger: duplicate track_uri %s at rows %d and %d", uri, prev, i)
		}
		tracks[i].URI = uri
		tracks[i].ISRC = strings.TrimSpace(tracks[i].ISRC)
		byURI[uri] = i
	}
	return &Ledger{tracks: tracks, byURI: byURI}, nil
}

// Len returns the row count.
func (l *Ledger) Len() int { return len(l.tracks) }

// Track returns a mutable pointer to the row at position i.
func (l *Ledger) Track(i int) *model.Track { return &l.tracks[i] }

// Tracks exposes the backing rows in ledger order.
func (l *Ledger) Tracks() []model.Track { return l.tracks }

// Lookup finds a row by track URI.
func (l *Ledger) Lookup(uri string) (*model.Track, bool) {
	i, ok := l.byURI[strings.TrimSpace(uri)]
	if !ok {
		return nil, false
	}
	return &l.tracks[i], true
}

// Clone deep-copies the ledger so a merge can stay a pure function of its
// inputs.
func (l *Ledger) Clone() *Ledger {
	tracks := make([]model.Track, len(l.tracks))
	copy(tracks, l.tracks)
	byURI := make(map[string]int, len(l.byURI))
	for k, v := range l.byURI {
		byURI[k] = v
	}
	return &Ledger{tracks: tracks, byURI: byURI}
}
