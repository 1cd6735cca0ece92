package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Glory Box", "glory box"},
		{"Señorita (Édition Spéciale)", "senorita edition speciale"},
		{"Don't Stop", "dont stop"},
		{"Some-Track_Name!!", "some track name"},
		{"  spaced   out  ", "spaced out"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

func TestTokenizeDropsStoplistWords(t *testing.T) {
	assert.Equal(t, []string{"glory", "box"}, Tokenize("Glory Box (2011 Remaster)- live"))
	assert.Empty(t, Tokenize("Remastered Live Demo"))
}

func TestTokenContainmentScore(t *testing.T) {
	// Remaster decoration should not count against the score.
	assert.InDelta(t, 1.0, TokenContainment("Song Title", "Song Title (2011 Remaster)"), 1e-9)
	assert.InDelta(t, 0.0, TokenContainment("Song Title", "Completely Different Name"), 1e-9)
	assert.InDelta(t, 0.5, TokenContainment("Glory Box", "Box Set Intro"), 1e-9)
}

func TestMatchCandidatesSubstringEitherDirection(t *testing.T) {
	candidates := []Candidate{
		{Label: "Portishead - Glory Box (Official Video)", URL: "u1"},
	}
	matches := MatchCandidates(candidates, []string{"Glory Box"}, DefaultMatchThreshold)
	require.Len(t, matches, 1)
	assert.Equal(t, "u1", matches[0].URL)
}

func TestMatchCandidatesConsumesSlotsAndCandidatesOnce(t *testing.T) {
	candidates := []Candidate{
		{Label: "Roads", URL: "u1"},
		{Label: "Roads (Live)", URL: "u2"},
		{Label: "Glory Box", URL: "u3"},
	}
	titles := []string{"Roads", "Glory Box", "Mysterons"}

	matches := MatchCandidates(candidates, titles, DefaultMatchThreshold)

	require.Len(t, matches, 2)
	assert.Equal(t, "u1", matches[0].URL)
	assert.Equal(t, "u3", matches[1].URL)
	_, ok := matches[2]
	assert.False(t, ok, "unrelated title must stay unmatched")
}

func TestMatchCandidatesThreshold(t *testing.T) {
	candidates := []Candidate{{Label: "Name Song Compilation", URL: "u1"}}

	// Two of three meaningful tokens present: 0.66... passes the default
	// threshold, fails a stricter one.
	matches := MatchCandidates(candidates, []string{"Song Name Extra"}, 0.66)
	assert.Len(t, matches, 1)

	matches = MatchCandidates(candidates, []string{"Song Name Extra"}, 0.9)
	assert.Empty(t, matches)
}

func TestMatchCandidatesIgnoresEmptyLabels(t *testing.T) {
	matches := MatchCandidates([]Candidate{{Label: "", URL: "u1"}}, []string{"Roads"}, 0.66)
	assert.Empty(t, matches)
}

func TestCleanAlbumTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Album Name (2012 Remastered Num 4)", "Album Name"},
		{"Album Name (Deluxe Edition)", "Album Name"},
		{"Album Name [Expanded]", "Album Name"},
		{"Album Name - 2011 Remaster", "Album Name"},
		{"Album Name", "Album Name"},
		{"OK Computer (OKNOTOK 1997 2017)", "OK Computer (OKNOTOK 1997 2017)"},
		{"(Deluxe)", "(Deluxe)"}, // cleaning must never erase the whole title
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanAlbumTitle(tt.in), tt.in)
	}
}

func TestCleanTrackTitle(t *testing.T) {
	assert.Equal(t, "Glory Box", CleanTrackTitle("Glory Box - 2011 Remaster"))
	assert.Equal(t, "Glory Box", CleanTrackTitle("Glory Box (2011 Remaster)"))
	assert.Equal(t, "Roads", CleanTrackTitle("Roads"))
}
