package songstats

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	anchorHref = regexp.MustCompile(`href\s*=\s*["']([^"']*(?:youtube\.com|youtu\.be)[^"']*)["']`)
	looseLink  = regexp.MustCompile(`(?:https?:)?(?://)?(?:www\.|m\.|music\.)?(?:youtube\.com|youtu\.be)/[^\s"'<>\\]+`)
	videoID    = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// ExtractYouTubeURL scans rendered page HTML for the first usable YouTube
// link: anchors first, then a loose scan of the raw text for links that
// never made it into an href (script-rendered pages embed them in JSON
// blobs). Returns "" when the page holds none.
func ExtractYouTubeURL(html string) string {
	for _, m := range anchorHref.FindAllStringSubmatch(html, -1) {
		if canon, ok := CanonicalURL(m[1]); ok {
			return canon
		}
	}
	for _, raw := range looseLink.FindAllString(strings.ReplaceAll(html, `\/`, "/"), -1) {
		if canon, ok := CanonicalURL(raw); ok {
			return canon
		}
	}
	return ""
}

// CanonicalURL normalizes the many shapes a YouTube link arrives in
// (youtu.be, /shorts/, /embed/, bare-ID paths, missing schemes, JSON
// escaping) to https://www.youtube.com/watch?v=ID. The second return is
// false when no video ID can be recovered.
func CanonicalURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	raw = strings.ReplaceAll(raw, `\/`, "/")
	if raw == "" {
		return "", false
	}

	switch {
	case strings.HasPrefix(raw, "//"):
		raw = "https:" + raw
	case !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://"):
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	host = strings.TrimPrefix(host, "music.")

	var id string
	switch host {
	case "youtu.be":
		id = firstSegment(u.Path)
	case "youtube.com":
		segs := strings.Split(strings.Trim(u.Path, "/"), "/")
		switch {
		case segs[0] == "watch":
			id = u.Query().Get("v")
		case (segs[0] == "shorts" || segs[0] == "embed" || segs[0] == "v" || segs[0] == "live") && len(segs) > 1:
			id = segs[1]
		case len(segs) == 1:
			// Some embeds link the bare ID straight off the host.
			id = segs[0]
		}
	default:
		return "", false
	}

	if !videoID.MatchString(id) {
		return "", false
	}
	return "https://www.youtube.com/watch?v=" + id, true
}

func firstSegment(path string) string {
	return strings.SplitN(strings.Trim(path, "/"), "/", 2)[0]
}
