package resolve

import (
	"regexp"
	"strings"
)

// Album-title edition tags that should not reach a catalog search: the
// catalog indexes "Dummy", not "Dummy (2008 Remastered Deluxe Edition)".
var albumTagWords = []string{
	"remaster", "remastered", "remastering",
	"deluxe", "edition", "editions",
	"expanded", "expansion",
	"anniversary", "special", "collector", "collectors",
	"limited", "ultimate", "definitive",
	"version", "edit", "mix", "mono", "stereo",
	"bonus", "reissue", "rerelease",
	"extended", "digitally", "digital",
	"explicit", "clean",
	"super", "luxury",
	"soundtrack",
}

var (
	bracketChunk  = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	yearRemaster  = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	trailingSep   = regexp.MustCompile(`^(.*?)\s*[-–—:]\s*([^-–—:]+)$`)
	spaceCollapse = regexp.MustCompile(`\s+`)
	danglingSep   = regexp.MustCompile(`\s*[-–—:]\s*$`)
)

func taggy(s string) bool {
	n := Normalize(s)
	if yearRemaster.MatchString(n) && (strings.Contains(n, "remaster") || strings.Contains(n, "reissue")) {
		return true
	}
	for _, w := range albumTagWords {
		if strings.Contains(n, w) {
			return true
		}
	}
	return false
}

// CleanAlbumTitle strips edition/remaster/deluxe decorations from an album
// title before it is used as a search term: taggy bracketed chunks, then
// taggy trailing "- Deluxe Edition" style suffixes. The original title is
// returned when cleaning would erase everything.
func CleanAlbumTitle(album string) string {
	if strings.TrimSpace(album) == "" {
		return album
	}

	cleaned := bracketChunk.ReplaceAllStringFunc(album, func(chunk string) string {
		inner := strings.TrimSpace(chunk[1 : len(chunk)-1])
		if inner != "" && taggy(inner) {
			return " "
		}
		return chunk
	})

	for {
		m := trailingSep.FindStringSubmatch(strings.TrimSpace(cleaned))
		if m == nil || !taggy(m[2]) {
			break
		}
		cleaned = m[1]
	}

	cleaned = spaceCollapse.ReplaceAllString(cleaned, " ")
	cleaned = danglingSep.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return album
	}
	return cleaned
}

// Track-title suffixes that hurt search queries ("Glory Box - 2011
// Remaster" searches worse than "Glory Box").
var (
	trackSuffix  = regexp.MustCompile(`(?i)\s*[-–]\s*(Remaster(ed)?|Remix|Live|Radio Edit|Single Version).*$`)
	trackBracket = regexp.MustCompile(`(?i)\s*\([^)]*Remaster[^)]*\)`)
)

// CleanTrackTitle strips remaster/version suffixes from a track title for
// use in a search query.
func CleanTrackTitle(title string) string {
	cleaned := trackSuffix.ReplaceAllString(title, "")
	cleaned = trackBracket.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return title
	}
	return cleaned
}
