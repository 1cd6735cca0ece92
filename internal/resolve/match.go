package resolve

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Candidate is one (label, url) pair returned by a group lookup source.
type Candidate struct {
	Label string
	URL   string
}

// DefaultMatchThreshold is the minimum token-containment score for a
// candidate label to claim a track title.
const DefaultMatchThreshold = 0.66

// stoplist holds edition/version noise words ignored when scoring titles.
// A label "Glory Box (2011 Remaster)" should still claim "Glory Box".
var stoplist = map[string]struct{}{
	"remaster": {}, "remastered": {}, "mix": {}, "edit": {}, "version": {},
	"mono": {}, "stereo": {}, "live": {}, "demo": {}, "radio": {},
	"explicit": {}, "clean": {}, "instrumental": {}, "bonus": {},
	"deluxe": {}, "anniversary": {}, "extended": {}, "feat": {},
	"featuring": {}, "official": {}, "video": {}, "audio": {},
	"lyrics": {}, "lyric": {}, "hd": {}, "4k": {},
}

var deaccent = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases, strips diacritics, and reduces punctuation to
// spaces so that titles from different sources compare equal.
func Normalize(s string) string {
	s = strings.ToLower(s)
	if out, _, err := transform.String(deaccent, s); err == nil {
		s = out
	}
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case r == '\'' || r == '’':
			// Apostrophes vanish: "don't" == "dont".
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Tokenize splits a normalized string into meaningful tokens, dropping the
// stoplist words.
func Tokenize(s string) []string {
	var out []string
	for _, tok := range strings.Fields(Normalize(s)) {
		if _, noise := stoplist[tok]; noise {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// TokenContainment scores in [0,1] how many of the track title's meaningful
// tokens appear in the candidate label's token set.
func TokenContainment(title, label string) float64 {
	tokens := Tokenize(title)
	if len(tokens) == 0 {
		return 0
	}
	labelSet := make(map[string]struct{})
	for _, tok := range Tokenize(label) {
		labelSet[tok] = struct{}{}
	}
	hits := 0
	for _, tok := range tokens {
		if _, ok := labelSet[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}

// MatchCandidates binds candidates to track titles. For each candidate in
// order, the first not-yet-claimed title that passes either test wins:
// normalized substring containment in either direction, or token
// containment >= threshold. Each title and each candidate is consumed at
// most once.
func MatchCandidates(candidates []Candidate, titles []string, threshold float64) map[int]Candidate {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}

	matched := make(map[int]Candidate)
	normTitles := make([]string, len(titles))
	for i, t := range titles {
		normTitles[i] = Normalize(t)
	}

	for _, c := range candidates {
		normLabel := Normalize(c.Label)
		for i, title := range titles {
			if _, taken := matched[i]; taken {
				continue
			}
			nt := normTitles[i]
			if nt != "" && normLabel != "" && (strings.Contains(normLabel, nt) || strings.Contains(nt, normLabel)) {
				matched[i] = c
				break
			}
			if TokenContainment(title, c.Label) >= threshold {
				matched[i] = c
				break
			}
		}
	}
	return matched
}
