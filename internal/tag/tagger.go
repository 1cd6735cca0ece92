// Package tag embeds library metadata into downloaded audio files as
// ID3v2.3 frames, including the album cover fetched from the export's
// artwork URL.
package tag

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bogem/id3v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tonearm/libsync/internal/model"
)

const copyrightLimit = 200

// Config configures the tagger.
type Config struct {
	// EmbedArt controls whether the cover art is fetched and attached.
	EmbedArt bool

	// ArtTimeout bounds the artwork fetch (default 20s).
	ArtTimeout time.Duration
}

// Tagger writes ID3v2.3 frames into MP3 files.
type Tagger struct {
	cfg    Config
	client *http.Client
}

// New creates a tagger.
func New(cfg Config) *Tagger {
	if cfg.ArtTimeout == 0 {
		cfg.ArtTimeout = 20 * time.Second
	}
	return &Tagger{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.ArtTimeout},
	}
}

// Embed writes the track's metadata into the file at path. Artwork
// failures degrade to a log line; the text frames still land.
func (t *Tagger) Embed(ctx context.Context, path string, tr *model.Track) error {
	id3, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return eris.Wrap(err, "tag: open file")
	}
	defer id3.Close() //nolint:errcheck

	id3.SetVersion(3)
	t.setTextFrames(id3, tr)

	if t.cfg.EmbedArt && tr.ImageURL != "" {
		if art, mime, artErr := t.fetchArt(ctx, tr.ImageURL); artErr != nil {
			zap.L().Warn("tag: artwork fetch failed",
				zap.String("track_uri", tr.URI),
				zap.Error(artErr),
			)
		} else {
			t.setArtwork(id3, art, mime)
		}
	}

	if err := id3.Save(); err != nil {
		return eris.Wrap(err, "tag: save frames")
	}
	return nil
}

func (t *Tagger) setTextFrames(id3 *id3v2.Tag, tr *model.Track) {
	id3.SetTitle(tr.Name)
	id3.SetArtist(tr.DisplayArtists())
	id3.SetAlbum(tr.AlbumName)

	if aa := strings.TrimSpace(tr.AlbumArtists); aa != "" {
		id3.AddTextFrame("TPE2", id3v2.EncodingUTF8, strings.ReplaceAll(aa, ", ", " / "))
	}
	if year := tr.ReleaseYear(); year != "" {
		id3.AddTextFrame("TYER", id3v2.EncodingUTF8, year)
		id3.AddTextFrame("TDRC", id3v2.EncodingUTF8, strings.TrimSpace(tr.ReleaseDate))
	}
	if n := strings.TrimSpace(tr.TrackNumber); n != "" {
		id3.AddTextFrame("TRCK", id3v2.EncodingUTF8, n)
	}
	if d := strings.TrimSpace(tr.DiscNumber); d != "" {
		id3.AddTextFrame("TPOS", id3v2.EncodingUTF8, d)
	}
	if g := tr.Genre(); g != "" {
		id3.SetGenre(g)
	}
	if isrc := strings.TrimSpace(tr.ISRC); isrc != "" {
		id3.AddTextFrame("TSRC", id3v2.EncodingUTF8, isrc)
	}
	if label := strings.TrimSpace(tr.Label); label != "" {
		id3.AddTextFrame("TPUB", id3v2.EncodingUTF8, label)
	}
	if c := strings.TrimSpace(tr.Copyrights); c != "" {
		if len(c) > copyrightLimit {
			c = c[:copyrightLimit]
		}
		id3.AddTextFrame("TCOP", id3v2.EncodingUTF8, c)
	}
}

func (t *Tagger) setArtwork(id3 *id3v2.Tag, art []byte, mime string) {
	id3.DeleteFrames(id3.CommonID("Attached picture"))
	id3.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    mime,
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     art,
	})
}

func (t *Tagger) fetchArt(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", eris.Wrap(err, "tag: create artwork request")
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, "", eris.Wrap(err, "tag: fetch artwork")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, "", eris.Errorf("tag: artwork fetch status %d", resp.StatusCode)
	}

	art, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, "", eris.Wrap(err, "tag: read artwork")
	}

	mime := http.DetectContentType(art)
	if !strings.HasPrefix(mime, "image/") {
		return nil, "", eris.New(fmt.Sprintf("tag: artwork is %s, not an image", mime))
	}
	return art, mime, nil
}
