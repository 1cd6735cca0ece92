package download

import (
	"strings"

	"github.com/tonearm/libsync/internal/model"
	"github.com/tonearm/libsync/internal/resolve"
)

// BuildSearchQuery turns a track row into a search string: primary artist
// plus the title with remaster/version suffixes stripped.
func BuildSearchQuery(t *model.Track) string {
	parts := make([]string, 0, 2)
	if strings.TrimSpace(t.ArtistNames) != "" {
		parts = append(parts, t.PrimaryArtist())
	}
	if title := resolve.CleanTrackTitle(t.Name); title != "" {
		parts = append(parts, title)
	}
	return strings.Join(parts, " ")
}
