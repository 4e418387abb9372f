package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/snappy-loop/poster/internal/models"
)

func newTestStore(gen PosterGenerator, ttl time.Duration, now *time.Time) *SessionStore {
	s := NewSessionStore(func() *PosterController {
		return NewPosterController(gen, models.DefaultTopic, models.DefaultGrade)
	}, ttl)
	s.now = func() time.Time { return *now }
	return s
}

func TestSessionStore_GetOrCreate(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	s := newTestStore(&fakeGenerator{}, time.Hour, &now)

	c1, id1, created := s.GetOrCreate(uuid.Nil)
	if !created || id1 == uuid.Nil || c1 == nil {
		t.Fatalf("expected new session, got created=%v id=%s", created, id1)
	}
	if st := c1.State(); st.Topic != models.DefaultTopic || st.Grade != models.DefaultGrade {
		t.Errorf("new session state %+v", st)
	}

	c2, id2, created := s.GetOrCreate(id1)
	if created || id2 != id1 || c2 != c1 {
		t.Error("existing session should be returned")
	}

	unknown := uuid.New()
	c3, id3, created := s.GetOrCreate(unknown)
	if !created || id3 == unknown || c3 == c1 {
		t.Error("unknown id should get a fresh session under a new id")
	}
	if s.Len() != 2 {
		t.Errorf("Len = %d", s.Len())
	}

	if got, ok := s.Get(id1); !ok || got != c1 {
		t.Error("Get should find existing session")
	}
	if _, ok := s.Get(uuid.New()); ok {
		t.Error("Get should not find unknown session")
	}
}

func TestSessionStore_EvictsIdle(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	release := make(chan struct{})
	defer close(release)
	gen := &fakeGenerator{
		image: func(context.Context, string, models.GradeLevel) (*models.GeneratedImage, error) {
			<-release
			return &models.GeneratedImage{Data: []byte("x")}, nil
		},
	}
	s := newTestStore(gen, time.Hour, &now)

	_, idle, _ := s.GetOrCreate(uuid.Nil)
	busy, busyID, _ := s.GetOrCreate(uuid.Nil)
	if _, err := busy.Generate(context.Background()); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	now = now.Add(2 * time.Hour)
	_, _, _ = s.GetOrCreate(uuid.Nil) // triggers sweep

	if _, ok := s.Get(idle); ok {
		t.Error("idle session should be evicted")
	}
	if _, ok := s.Get(busyID); !ok {
		t.Error("generating session must not be evicted")
	}
}

func TestSessionStore_NoTTL(t *testing.T) {
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	s := newTestStore(&fakeGenerator{}, 0, &now)
	_, id, _ := s.GetOrCreate(uuid.Nil)
	now = now.Add(1000 * time.Hour)
	s.GetOrCreate(uuid.Nil)
	if _, ok := s.Get(id); !ok {
		t.Error("sessions should never expire without a TTL")
	}
}
