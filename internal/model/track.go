package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ResolutionStatus is the state of a track within a resolution pass.
type ResolutionStatus string

const (
	// ResolutionPending means no source has been queried yet (or a prior
	// transient error left the row retryable).
	ResolutionPending ResolutionStatus = ""

	// ResolutionDone means a playable URL was found and frozen.
	ResolutionDone ResolutionStatus = "done"

	// ResolutionNoCandidate means a source was queried and had nothing
	// usable. Soft-terminal: not retried by default, retriable on demand.
	ResolutionNoCandidate ResolutionStatus = "no_yt"

	// ResolutionNoISRC means the row has no recording identifier to look up.
	ResolutionNoISRC ResolutionStatus = "no_isrc"

	// ResolutionError means the lookup adapter failed. Retried on every run.
	ResolutionError ResolutionStatus = "error"
)

// Terminal reports whether no further resolution pass should touch the row.
func (s ResolutionStatus) Terminal() bool {
	return s == ResolutionDone || s == ResolutionNoISRC
}

// SoftTerminal reports whether the status means "source queried, nothing
// found". Such rows are skipped by default but safe to force a re-scan.
func (s ResolutionStatus) SoftTerminal() bool {
	return s == ResolutionNoCandidate
}

// Origin records which source or strategy produced a track's URL.
type Origin string

const (
	OriginSongstats       Origin = "songstats"
	OriginDiscogs         Origin = "discogs"
	OriginDiscogsFallback Origin = "discogs_fallback"
	OriginSearch          Origin = "yt_search"
	OriginSearchFallback  Origin = "yt_search_fallback"
)

// DownloadStatus is the outcome code of the most recent retrieval attempt.
// The base set below is closed; the retrieval driver also writes composite
// codes ("search_fallback_from_<s>", "<s>_search_failed") built from it.
type DownloadStatus string

const (
	DownloadPending          DownloadStatus = ""
	DownloadDone             DownloadStatus = "downloaded"
	DownloadSearchDone       DownloadStatus = "search_downloaded"
	DownloadAlreadyExists    DownloadStatus = "already_exists"
	DownloadNoInfo           DownloadStatus = "no_info"
	DownloadDurationMismatch DownloadStatus = "duration_mismatch"
	DownloadSearchMismatch   DownloadStatus = "search_duration_mismatch"
	DownloadSignInRequired   DownloadStatus = "sign_in_required"
	DownloadPrivate          DownloadStatus = "private_video"
	DownloadUnavailable      DownloadStatus = "unavailable"
	DownloadAgeRestricted    DownloadStatus = "age_restricted"
	DownloadCopyright        DownloadStatus = "copyright_blocked"
	DownloadAccessDenied     DownloadStatus = "http_403_access_denied"
	DownloadRateLimited      DownloadStatus = "rate_limited"
	DownloadNoSearchResults  DownloadStatus = "no_search_results"
	DownloadNoValidMatch     DownloadStatus = "no_valid_match"
	DownloadError            DownloadStatus = "download_error"
	DownloadGenericError     DownloadStatus = "error"
)

// Flag is a yes/empty CSV boolean matching the ledger's "yes"/"" convention.
type Flag bool

// MarshalText implements encoding.TextMarshaler.
func (f Flag) MarshalText() ([]byte, error) {
	if f {
		return []byte("yes"), nil
	}
	return []byte(""), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Flag) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "yes", "true", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

// Track is one row of the ledger: a saved track plus its resolution and
// retrieval state. Identity and metadata columns come from the library
// export; the remaining columns are created empty on first load and filled
// by the drivers.
type Track struct {
	URI          string  `csv:"track_uri"`
	ISRC         string  `csv:"isrc"`
	Name         string  `csv:"track_name"`
	ArtistNames  string  `csv:"artist_name(s)"`
	AlbumName    string  `csv:"album_name"`
	AlbumArtists string  `csv:"album_artist_name(s)"`
	DurationMS   float64 `csv:"track_duration(ms)"`

	ReleaseDate  string `csv:"album_release_date"`
	TrackNumber  string `csv:"track_number"`
	DiscNumber   string `csv:"disc_number"`
	ArtistGenres string `csv:"artist_genres"`
	AlbumGenres  string `csv:"album_genres"`
	Label        string `csv:"label"`
	Copyrights   string `csv:"copyrights"`
	ImageURL     string `csv:"album_image_url"`

	URL    string           `csv:"yt_url"`
	Status ResolutionStatus `csv:"status"`
	Origin Origin           `csv:"yt_url_origin"`

	Downloaded     Flag           `csv:"downloaded"`
	DownloadStatus DownloadStatus `csv:"download_status"`
	DownloadDate   string         `csv:"download_date"`
	ActualDuration float64        `csv:"actual_duration"`
	SearchedURL    string         `csv:"searched_url"`
	TagsEmbedded   string         `csv:"metadata_embedded"`
}

// Resolved reports whether the track carries a trustworthy URL: status done,
// URL present, provenance recorded.
func (t *Track) Resolved() bool {
	return t.Status == ResolutionDone && strings.TrimSpace(t.URL) != "" && t.Origin != ""
}

// SetResolved freezes a URL on the track. First successful resolution wins:
// once resolved, the row can never be rewritten by a later pass.
func (t *Track) SetResolved(url string, origin Origin) error {
	if t.Resolved() {
		return eris.Errorf("track %s: already resolved from %s", t.URI, t.Origin)
	}
	if strings.TrimSpace(url) == "" {
		return eris.Errorf("track %s: empty url", t.URI)
	}
	if origin == "" {
		return eris.Errorf("track %s: empty origin", t.URI)
	}
	t.URL = url
	t.Origin = origin
	t.Status = ResolutionDone
	return nil
}

// SetStatus records a non-resolved outcome without touching a frozen row.
func (t *Track) SetStatus(s ResolutionStatus) {
	if t.Resolved() {
		return
	}
	t.Status = s
}

// PrimaryArtist returns the first artist of a comma-separated list.
func (t *Track) PrimaryArtist() string {
	name := t.ArtistNames
	if i := strings.Index(name, ","); i >= 0 {
		name = name[:i]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "Unknown Artist"
	}
	return name
}

// DisplayArtists cleans the artist list for tag embedding: multi-artist
// separators become slashes.
func (t *Track) DisplayArtists() string {
	cleaned := strings.TrimSpace(t.ArtistNames)
	if cleaned == "" {
		return "Unknown Artist"
	}
	return strings.ReplaceAll(cleaned, ", ", " / ")
}

// ExpectedSeconds converts the expected duration to seconds; zero when the
// export carried no duration.
func (t *Track) ExpectedSeconds() float64 {
	if t.DurationMS <= 0 {
		return 0
	}
	return t.DurationMS / 1000
}

// ReleaseYear extracts the year from the album release date (YYYY or
// YYYY-MM-DD exports).
func (t *Track) ReleaseYear() string {
	d := strings.TrimSpace(t.ReleaseDate)
	if len(d) >= 4 {
		return d[:4]
	}
	return ""
}

// Genre prefers artist genres over album genres, first entry only.
func (t *Track) Genre() string {
	g := t.ArtistGenres
	if strings.TrimSpace(g) == "" {
		g = t.AlbumGenres
	}
	if i := strings.Index(g, ","); i >= 0 {
		g = g[:i]
	}
	return strings.TrimSpace(g)
}
