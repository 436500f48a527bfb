// Package session implements the durable per-conversation transcript
// store: one JSON file per session, atomic saves, and strict session-id
// validation at every ingress point.
package session

import (
	"errors"
	"regexp"
	"time"

	"github.com/gearclaw/gearclaw/internal/providers"
)

// ErrInvalidID is returned when a session id violates the invariant in
// spec.md §3: non-empty, <=128 chars, ASCII alphanumeric plus -_.:, no
// .., no path separators.
var ErrInvalidID = errors.New("invalid session id")

var validIDPattern = regexp.MustCompile(`^[A-Za-z0-9\-_.:]+$`)

// ValidateID enforces the session id invariant. Every ingress (store,
// gateway, agent) must call this before using an id to key a session.
func ValidateID(id string) error {
	if id == "" || len(id) > 128 {
		return ErrInvalidID
	}
	if !validIDPattern.MatchString(id) {
		return ErrInvalidID
	}
	if containsDotDot(id) {
		return ErrInvalidID
	}
	return nil
}

func containsDotDot(id string) bool {
	for i := 0; i+1 < len(id); i++ {
		if id[i] == '.' && id[i+1] == '.' {
			return true
		}
	}
	return false
}

// Session is an ordered sequence of messages keyed by a session id.
type Session struct {
	ID       string              `json:"id"`
	Messages []providers.Message `json:"messages"`
	Cwd      string              `json:"cwd"`
	Created  time.Time           `json:"created_at"`
	Updated  time.Time           `json:"updated_at"`
}

// Clone returns a deep-enough copy safe to serialize without racing
// concurrent mutation of Messages.
func (s *Session) Clone() *Session {
	cp := *s
	cp.Messages = make([]providers.Message, len(s.Messages))
	copy(cp.Messages, s.Messages)
	return &cp
}
