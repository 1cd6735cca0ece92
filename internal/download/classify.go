package download

import (
	"strings"

	"github.com/tonearm/libsync/internal/model"
)

// Classify maps a retrieval tool's error text onto the download status
// taxonomy. The patterns track yt-dlp's message wording; anything
// unrecognized is a generic download_error so it stays retryable.
func Classify(msg string) model.DownloadStatus {
	m := strings.ToLower(msg)
	switch {
	// Age checks come first: its message also starts with "Sign in to
	// confirm", but the remedy is different.
	case strings.Contains(m, "age restricted") ||
		strings.Contains(m, "age-restricted") ||
		strings.Contains(m, "confirm your age"):
		return model.DownloadAgeRestricted
	case strings.Contains(m, "sign in to confirm") ||
		strings.Contains(m, "sign in to verify") ||
		strings.Contains(m, "not a bot"):
		return model.DownloadSignInRequired
	case strings.Contains(m, "private video"):
		return model.DownloadPrivate
	case strings.Contains(m, "copyright") ||
		strings.Contains(m, "blocked it in your country") ||
		strings.Contains(m, "who has blocked it"):
		return model.DownloadCopyright
	case strings.Contains(m, "video unavailable") ||
		strings.Contains(m, "no longer available") ||
		strings.Contains(m, "has been removed") ||
		strings.Contains(m, "account associated with this video has been terminated"):
		return model.DownloadUnavailable
	case strings.Contains(m, "http error 403") ||
		strings.Contains(m, "403 forbidden") ||
		strings.Contains(m, "access denied"):
		return model.DownloadAccessDenied
	case strings.Contains(m, "http error 429") ||
		strings.Contains(m, "too many requests") ||
		strings.Contains(m, "rate limit") ||
		strings.Contains(m, "rate-limit"):
		return model.DownloadRateLimited
	default:
		return model.DownloadError
	}
}

// Permanent statuses are conclusive about the video itself. Rows carrying
// one are never reattempted.
func Permanent(s model.DownloadStatus) bool {
	return s == model.DownloadUnavailable || s == model.DownloadCopyright
}

// CookieDependent statuses can flip to success once a browser session
// cookie artifact is supplied; without one they are skipped like permanent
// failures.
func CookieDependent(s model.DownloadStatus) bool {
	switch s {
	case model.DownloadSignInRequired, model.DownloadPrivate, model.DownloadAgeRestricted:
		return true
	}
	return false
}

// Searchable statuses are worth a title search fallback: the recording
// likely exists under a different upload even though this URL failed.
func Searchable(s model.DownloadStatus) bool {
	switch s {
	case model.DownloadDurationMismatch,
		model.DownloadPrivate,
		model.DownloadUnavailable,
		model.DownloadAccessDenied,
		model.DownloadCopyright,
		model.DownloadError:
		return true
	}
	return false
}

// CountsTowardCooldown reports whether a failure looks like throttling or
// bot detection rather than a verdict on the track. The listed statuses
// are conclusive about the recording itself and reset the counter; any
// other failure, composite fallback codes included, advances it. A run of
// private videos is not a reason to pause; a run of no_info probes is.
func CountsTowardCooldown(s model.DownloadStatus) bool {
	switch s {
	case model.DownloadDurationMismatch,
		model.DownloadSearchMismatch,
		model.DownloadPrivate,
		model.DownloadUnavailable,
		model.DownloadAgeRestricted,
		model.DownloadCopyright,
		model.DownloadNoSearchResults,
		model.DownloadNoValidMatch:
		return false
	}
	return true
}
