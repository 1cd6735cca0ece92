package model

// AlbumGroup is the unit of work for album-batched lookups: the ledger rows
// sharing an (album, album artist) pair. Rows holds positions into the
// owning ledger, in ledger order.
type AlbumGroup struct {
	Album       string
	AlbumArtist string
	Rows        []int
}

// GroupByAlbum buckets the given row positions by (album, album artist),
// preserving first-appearance order. The order is deliberate: it keeps runs
// visually contiguous with the export so an interrupted session resumes
// where the operator last saw it.
func GroupByAlbum(tracks []Track, rows []int) []AlbumGroup {
	type key struct{ album, artist string }

	var groups []AlbumGroup
	index := make(map[key]int)

	for _, r := range rows {
		t := tracks[r]
		k := key{album: t.AlbumName, artist: t.AlbumArtists}
		gi, ok := index[k]
		if !ok {
			gi = len(groups)
			index[k] = gi
			groups = append(groups, AlbumGroup{Album: t.AlbumName, AlbumArtist: t.AlbumArtists})
		}
		groups[gi].Rows = append(groups[gi].Rows, r)
	}
	return groups
}
