package registration

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rubyocorrencia-DRACO/Ruby-assistente-de-ocorrencia/internal/models"
)

// DefaultTTL is the inactivity window after which a session is discarded.
const DefaultTTL = 15 * time.Minute

// Session is the registration dialogue state of one user.
type Session struct {
	ExternalID int64
	Stage      Stage
	Pending    models.Technician // fields collected so far
	ExpiresAt  time.Time
	// Rewound is set when a commit lost the login to another technician; the next accepted
	// login goes straight back to confirmation.
	Rewound bool
}

// SessionStore keeps at most one live session per user. Expired sessions are dropped on
// access and by Sweep, both under the same mutex.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a store whose sessions expire ttl after their last update.
// A non-positive ttl selects DefaultTTL.
func NewSessionStore(ttl time.Duration, now func() time.Time) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	return &SessionStore{sessions: make(map[int64]Session), ttl: ttl, now: now}
}

// Get returns the live session for the user, discarding it first if it has expired.
func (s *SessionStore) Get(externalID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[externalID]
	if !ok {
		return Session{}, false
	}
	if !s.now().Before(session.ExpiresAt) {
		delete(s.sessions, externalID)
		return Session{}, false
	}
	return session, true
}

// Set stores the session and restarts its inactivity window.
func (s *SessionStore) Set(session Session) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session.ExpiresAt = s.now().Add(s.ttl)
	s.sessions[session.ExternalID] = session
	return session
}

// Delete removes the user's session, if any.
func (s *SessionStore) Delete(externalID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, externalID)
}

// Len reports the number of stored sessions, expired ones included.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

// Sweep removes every expired session and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *SessionStore) RunSweeper(ctx context.Context, log *slog.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				log.DebugContext(ctx, "Expired registration sessions removed", "count", removed, "active", s.Len())
			}
		}
	}
}
