package tag

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonearm/libsync/internal/model"
)

var pngSig = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func tempMP3(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "track.mp3")
	require.NoError(t, os.WriteFile(path, []byte("\xff\xfbaudio\x00\x00\x00\x00"), 0o644))
	return path
}

func readFrame(t *testing.T, path, id string) string {
	t.Helper()
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	defer tag.Close()
	return tag.GetTextFrame(id).Text
}

func TestEmbedWritesTextFrames(t *testing.T) {
	path := tempMP3(t)
	tr := &model.Track{
		URI:          "t1",
		ISRC:         "GBAAA9300032",
		Name:         "Mysterons",
		ArtistNames:  "Portishead",
		AlbumName:    "Dummy",
		AlbumArtists: "Portishead",
		ReleaseDate:  "1994-08-22",
		TrackNumber:  "1",
		DiscNumber:   "1",
		ArtistGenres: "trip hop, electronic",
		Label:        "Go! Beat",
		Copyrights:   "1994 Go! Beat Ltd.",
	}

	require.NoError(t, New(Config{}).Embed(context.Background(), path, tr))

	assert.Equal(t, "Mysterons", readFrame(t, path, "TIT2"))
	assert.Equal(t, "Portishead", readFrame(t, path, "TPE1"))
	assert.Equal(t, "Portishead", readFrame(t, path, "TPE2"))
	assert.Equal(t, "Dummy", readFrame(t, path, "TALB"))
	assert.Equal(t, "1994", readFrame(t, path, "TYER"))
	assert.Equal(t, "1", readFrame(t, path, "TRCK"))
	assert.Equal(t, "1", readFrame(t, path, "TPOS"))
	assert.Equal(t, "trip hop", readFrame(t, path, "TCON"))
	assert.Equal(t, "GBAAA9300032", readFrame(t, path, "TSRC"))
	assert.Equal(t, "Go! Beat", readFrame(t, path, "TPUB"))
	assert.Equal(t, "1994 Go! Beat Ltd.", readFrame(t, path, "TCOP"))
}

func TestEmbedJoinsMultipleArtists(t *testing.T) {
	path := tempMP3(t)
	tr := &model.Track{URI: "t1", Name: "Duet", ArtistNames: "First Artist, Second Artist"}

	require.NoError(t, New(Config{}).Embed(context.Background(), path, tr))
	assert.Equal(t, "First Artist / Second Artist", readFrame(t, path, "TPE1"))
}

func TestEmbedTruncatesLongCopyright(t *testing.T) {
	path := tempMP3(t)
	long := ""
	for len(long) < 300 {
		long += "c"
	}
	tr := &model.Track{URI: "t1", Name: "X", Copyrights: long}

	require.NoError(t, New(Config{}).Embed(context.Background(), path, tr))
	assert.Len(t, readFrame(t, path, "TCOP"), copyrightLimit)
}

func TestEmbedAttachesCoverArt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(pngSig)
	}))
	defer srv.Close()

	path := tempMP3(t)
	tr := &model.Track{URI: "t1", Name: "X", ImageURL: srv.URL + "/cover.png"}

	require.NoError(t, New(Config{EmbedArt: true}).Embed(context.Background(), path, tr))

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	defer tag.Close()

	frames := tag.GetFrames(tag.CommonID("Attached picture"))
	require.Len(t, frames, 1)
	pic, ok := frames[0].(id3v2.PictureFrame)
	require.True(t, ok)
	assert.Equal(t, "image/png", pic.MimeType)
	assert.Equal(t, pngSig, pic.Picture)
}

func TestEmbedSurvivesArtworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	path := tempMP3(t)
	tr := &model.Track{URI: "t1", Name: "Still Tagged", ImageURL: srv.URL + "/gone.png"}

	require.NoError(t, New(Config{EmbedArt: true}).Embed(context.Background(), path, tr))
	assert.Equal(t, "Still Tagged", readFrame(t, path, "TIT2"))
}
