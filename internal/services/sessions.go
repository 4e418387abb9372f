package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/poster/internal/metrics"
)

// sweepInterval bounds how often GetOrCreate scans for idle sessions.
const sweepInterval = time.Minute

// SessionStore keeps one PosterController per browser session, in memory only.
type SessionStore struct {
	factory func() *PosterController
	ttl     time.Duration
	now     func() time.Time

	mu        sync.Mutex
	sessions  map[uuid.UUID]*sessionEntry
	lastSweep time.Time
}

type sessionEntry struct {
	ctrl     *PosterController
	lastSeen time.Time
}

// NewSessionStore creates a store. factory builds the controller for a new session;
// sessions idle longer than ttl are evicted (ttl <= 0 keeps them forever).
func NewSessionStore(factory func() *PosterController, ttl time.Duration) *SessionStore {
	return &SessionStore{
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*sessionEntry),
	}
}

// GetOrCreate returns the controller for id, creating one (under a fresh id when id is uuid.Nil
// or unknown) when needed. created reports whether the returned id is new.
func (s *SessionStore) GetOrCreate(id uuid.UUID) (ctrl *PosterController, sessionID uuid.UUID, created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepInterval {
		s.sweepLocked(now)
	}

	if id != uuid.Nil {
		if entry, ok := s.sessions[id]; ok {
			entry.lastSeen = now
			return entry.ctrl, id, false
		}
	}

	sessionID = uuid.New()
	entry := &sessionEntry{ctrl: s.factory(), lastSeen: now}
	s.sessions[sessionID] = entry
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
	log.Debug().Str("session_id", sessionID.String()).Int("sessions", len(s.sessions)).Msg("Session created")
	return entry.ctrl, sessionID, true
}

// Get returns the controller for an existing session.
func (s *SessionStore) Get(id uuid.UUID) (*PosterController, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = s.now()
	return entry.ctrl, true
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// sweepLocked evicts idle sessions; a session that is Generating is never evicted.
func (s *SessionStore) sweepLocked(now time.Time) {
	s.lastSweep = now
	if s.ttl <= 0 {
		return
	}
	evicted := 0
	for id, entry := range s.sessions {
		if now.Sub(entry.lastSeen) < s.ttl {
			continue
		}
		if entry.ctrl.State().IsLoading {
			continue
		}
		delete(s.sessions, id)
		evicted++
	}
	if evicted > 0 {
		metrics.ActiveSessions.Set(float64(len(s.sessions)))
		log.Info().Int("evicted", evicted).Int("sessions", len(s.sessions)).Msg("Evicted idle sessions")
	}
}
