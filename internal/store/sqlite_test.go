package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"supportbot/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateSession_Duplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sess := domain.Session{CorrespondentID: 42, TopicID: 7, DisplayName: "Alice", Handle: "alice"}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("first create: %v", err)
	}

	sess.TopicID = 8
	err := s.CreateSession(ctx, sess)
	if !errors.Is(err, domain.ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}

	// Loser must observe the winner's topic, not its own.
	got, err := s.SessionByCorrespondent(ctx, 42)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.TopicID != 7 {
		t.Fatalf("expected topic 7, got %d", got.TopicID)
	}
}

func TestSessionByTopic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateSession(ctx, domain.Session{CorrespondentID: 1, TopicID: 100}); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.SessionByTopic(ctx, 100)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.CorrespondentID != 1 {
		t.Fatalf("expected correspondent 1, got %d", got.CorrespondentID)
	}

	if _, err := s.SessionByTopic(ctx, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown topic, got %v", err)
	}
}

func TestDeleteSession_AllowsRecreate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateSession(ctx, domain.Session{CorrespondentID: 5, TopicID: 10}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.DeleteSession(ctx, 5); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.SessionByCorrespondent(ctx, 5); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.CreateSession(ctx, domain.Session{CorrespondentID: 5, TopicID: 11}); err != nil {
		t.Fatalf("recreate: %v", err)
	}

	// Deleting a missing session is not an error.
	if err := s.DeleteSession(ctx, 12345); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestCountEvents_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	events := []domain.MessageEvent{
		{CorrespondentID: 1, Media: domain.MediaText, Direction: domain.DirectionInbound, Preview: "hi"},
		{CorrespondentID: 1, Media: domain.MediaPhoto, Direction: domain.DirectionInbound},
		{CorrespondentID: 1, Media: domain.MediaText, Direction: domain.DirectionOutbound, Preview: "hello"},
		{CorrespondentID: 2, Media: domain.MediaText, Direction: domain.DirectionInbound},
	}
	for _, ev := range events {
		if err := s.AppendEvent(ctx, ev); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter domain.EventFilter
		want   int
	}{
		{"all", domain.EventFilter{}, 4},
		{"by correspondent", domain.EventFilter{CorrespondentID: 1}, 3},
		{"inbound for correspondent", domain.EventFilter{CorrespondentID: 1, Direction: domain.DirectionInbound}, 2},
		{"outbound for correspondent", domain.EventFilter{CorrespondentID: 1, Direction: domain.DirectionOutbound}, 1},
		{"by direction only", domain.EventFilter{Direction: domain.DirectionInbound}, 3},
	}
	for _, tt := range tests {
		got, err := s.CountEvents(ctx, tt.filter)
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("%s: expected %d, got %d", tt.name, tt.want, got)
		}
	}
}

func TestCountSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n, err := s.CountSessions(ctx)
	if err != nil || n != 0 {
		t.Fatalf("expected 0 sessions, got %d (err %v)", n, err)
	}
	for i := int64(1); i <= 3; i++ {
		if err := s.CreateSession(ctx, domain.Session{CorrespondentID: i, TopicID: i * 10}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	n, err = s.CountSessions(ctx)
	if err != nil || n != 3 {
		t.Fatalf("expected 3 sessions, got %d (err %v)", n, err)
	}
}
