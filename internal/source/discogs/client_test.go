package discogs

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonearm/libsync/internal/resolve"
)

type fakeAPI struct {
	t            *testing.T
	searches     []string
	recordHits   []string
	searchResult map[string]any
	records      map[string]any
}

func (f *fakeAPI) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/database/search":
			f.searches = append(f.searches, r.URL.Query().Encode())
			key := r.URL.Query().Get("type") + "|" + r.URL.Query().Get("artist")
			body, ok := f.searchResult[key]
			if !ok {
				body = map[string]any{"results": []any{}}
			}
			require.NoError(f.t, json.NewEncoder(w).Encode(body))
		default:
			f.recordHits = append(f.recordHits, r.URL.Path)
			body, ok := f.records[r.URL.Path]
			if !ok {
				body = map[string]any{"videos": []any{}}
			}
			require.NoError(f.t, json.NewEncoder(w).Encode(body))
		}
	}
}

func newFakeServer(t *testing.T, f *fakeAPI) (*httptest.Server, *Client) {
	t.Helper()
	f.t = t
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	c := New(Config{BaseURL: srv.URL, RequestsPerSecond: 1000, Key: "k", Secret: "s"})
	return srv, c
}

func TestSearchFieldedMasterStrategyWins(t *testing.T) {
	f := &fakeAPI{}
	srv, c := newFakeServer(t, f)
	f.searchResult = map[string]any{
		"master|Portishead": map[string]any{"results": []any{
			map[string]any{"id": 1, "type": "master", "master_url": srv.URL + "/masters/42"},
		}},
	}
	f.records = map[string]any{
		"/masters/42": map[string]any{"videos": []any{
			map[string]any{"title": "Portishead - Mysterons", "uri": "https://www.youtube.com/watch?v=aaaaaaaaaaa"},
			map[string]any{"title": "some vimeo thing", "uri": "https://vimeo.com/123"},
		}},
	}

	got, err := c.Search(context.Background(), "Portishead", "Dummy")
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, resolve.Candidate{
		Label: "Portishead - Mysterons",
		URL:   "https://www.youtube.com/watch?v=aaaaaaaaaaa",
	}, got[0])
	assert.Equal(t, []string{"/masters/42"}, f.recordHits)
	require.NotEmpty(t, f.searches)
	assert.Contains(t, f.searches[0], "artist=Portishead")
	assert.Contains(t, f.searches[0], "release_title=Dummy")
}

func TestSearchConstructsMasterURLFromID(t *testing.T) {
	f := &fakeAPI{}
	_, c := newFakeServer(t, f)
	f.searchResult = map[string]any{
		"master|Portishead": map[string]any{"results": []any{
			map[string]any{"id": 7, "type": "release", "master_id": 42},
		}},
	}
	f.records = map[string]any{
		"/masters/42": map[string]any{"videos": []any{
			map[string]any{"title": "Glory Box", "uri": "https://www.youtube.com/watch?v=bbbbbbbbbbb"},
		}},
	}

	got, err := c.Search(context.Background(), "Portishead", "Dummy")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"/masters/42"}, f.recordHits)
}

func TestSearchFallsThroughStrategies(t *testing.T) {
	f := &fakeAPI{}
	srv, c := newFakeServer(t, f)
	// Only the no-type fielded search (strategy three) finds anything.
	f.searchResult = map[string]any{
		"|Portishead": map[string]any{"results": []any{
			map[string]any{"id": 9, "type": "release", "resource_url": srv.URL + "/releases/9"},
		}},
	}
	f.records = map[string]any{
		"/releases/9": map[string]any{"videos": []any{
			map[string]any{"title": "Roads", "uri": "https://youtu.be/ccccccccccc"},
		}},
	}

	got, err := c.Search(context.Background(), "Portishead", "Dummy")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Roads", got[0].Label)
	assert.GreaterOrEqual(t, len(f.searches), 3)
}

func TestSearchNothingFoundIsNotAnError(t *testing.T) {
	f := &fakeAPI{}
	_, c := newFakeServer(t, f)

	got, err := c.Search(context.Background(), "Nobody", "Nothing")
	require.NoError(t, err)
	assert.Empty(t, got)
	// All four strategies were tried.
	assert.Len(t, f.searches, 4)
}

func TestSearchSkipsVideolessResults(t *testing.T) {
	f := &fakeAPI{}
	srv, c := newFakeServer(t, f)
	f.searchResult = map[string]any{
		"master|X": map[string]any{"results": []any{
			map[string]any{"id": 1, "type": "master", "master_url": srv.URL + "/masters/1"},
			map[string]any{"id": 2, "type": "master", "master_url": srv.URL + "/masters/2"},
		}},
	}
	f.records = map[string]any{
		"/masters/1": map[string]any{"videos": []any{}},
		"/masters/2": map[string]any{"videos": []any{
			map[string]any{"title": "Found", "uri": "https://www.youtube.com/watch?v=ddddddddddd"},
		}},
	}

	got, err := c.Search(context.Background(), "X", "Y")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"/masters/1", "/masters/2"}, f.recordHits)
}
