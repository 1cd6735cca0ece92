package download

import (
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Session carries the per-run identity and the optional browser cookie
// artifact that unlocks sign-in-gated videos. It is passed into the driver
// explicitly; nothing session-scoped lives in package state.
type Session struct {
	ID          string
	CookiesPath string
	StartedAt   time.Time
}

// NewSession validates the cookie artifact (when one is configured) and
// stamps the run.
func NewSession(cookiesPath string) (*Session, error) {
	if cookiesPath != "" {
		if _, err := os.Stat(cookiesPath); err != nil {
			return nil, eris.Wrap(err, "session: cookie file not readable")
		}
	}
	s := &Session{
		ID:          uuid.NewString(),
		CookiesPath: cookiesPath,
		StartedAt:   time.Now().UTC(),
	}
	zap.L().Info("session: started",
		zap.String("session_id", s.ID),
		zap.Bool("cookies", s.HasCookies()),
	)
	return s, nil
}

// HasCookies reports whether sign-in-gated statuses are worth retrying.
func (s *Session) HasCookies() bool { return s != nil && s.CookiesPath != "" }

// Refresh re-stamps the session identity, typically after a long cooldown
// so the retrieval tool does not present a stale client fingerprint.
func (s *Session) Refresh() {
	old := s.ID
	s.ID = uuid.NewString()
	zap.L().Info("session: refreshed", zap.String("old", old), zap.String("new", s.ID))
}
