package download

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/tonearm/libsync/internal/model"
)

var (
	illegalFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	repeatedSpaces       = regexp.MustCompile(`\s+`)
)

// Sanitize makes a tag value safe as a single path component on the common
// filesystems. Empty or fully-illegal values fall back to the placeholder.
func Sanitize(name, fallback string) string {
	s := illegalFilenameChars.ReplaceAllString(name, " ")
	s = repeatedSpaces.ReplaceAllString(s, " ")
	s = strings.Trim(s, " .")
	if s == "" {
		return fallback
	}
	if len(s) > 150 {
		s = strings.TrimRight(s[:150], " .")
	}
	return s
}

// OutputPath places a track at root/Artist/Album/Track.mp3, each component
// sanitized.
func OutputPath(root string, t *model.Track) string {
	artist := Sanitize(t.PrimaryArtist(), "Unknown Artist")
	album := Sanitize(t.AlbumName, "Unknown Album")
	title := Sanitize(t.Name, t.URI)
	return filepath.Join(root, artist, album, title+".mp3")
}
