package sharing

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"
)

// tokenBytes yields a 32-character URL-safe token.
const tokenBytes = 24

var ErrNotFound = errors.New("share link not found")

// Link grants anonymous read access to one resume.
type Link struct {
	ID        int64
	ResumeID  int64
	Token     string
	CreatedAt time.Time
	ExpiresAt *time.Time
}

// Expired reports whether the link is past its expiry at now.
func (l Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && !now.Before(*l.ExpiresAt)
}

// Snapshot is the public view of a shared resume.
type Snapshot struct {
	Title          string         `json:"title"`
	Content        map[string]any `json:"content"`
	LatestAnalysis map[string]any `json:"latest_analysis"`
	Owner          string         `json:"owner"`
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
