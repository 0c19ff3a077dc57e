package service

import (
	"sync"
	"time"

	"github.com/okian/ladder/internal/domain/model"
)

// Anonymous is the actor used when a request names none.
const Anonymous = "anonymous"

// Session is the per-request context of one client: who is acting, which
// document versions they loaded, and what time it is for them.
type Session struct {
	Actor string

	mu       sync.Mutex
	versions map[model.Collection]string
	now      func() time.Time
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionClock fixes the session's notion of now.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithVersion seeds the version the client loaded for col.
func WithVersion(col model.Collection, version string) SessionOption {
	return func(s *Session) {
		if version != "" {
			s.versions[col] = version
		}
	}
}

// NewSession creates a session for actor.
func NewSession(actor string, opts ...SessionOption) *Session {
	if actor == "" {
		actor = Anonymous
	}
	s := &Session{
		Actor:    actor,
		versions: make(map[model.Collection]string),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Remember caches the version last seen for col.
func (s *Session) Remember(col model.Collection, version string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version == "" {
		delete(s.versions, col)
		return
	}
	s.versions[col] = version
}

// Version is the cached version for col, or "" when never loaded.
func (s *Session) Version(col model.Collection) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[col]
}

// Now is the session's current time in UTC.
func (s *Session) Now() time.Time { return s.now().UTC() }
