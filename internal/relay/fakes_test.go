package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"supportbot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory domain.SessionStore.
type fakeStore struct {
	mu       sync.Mutex
	sessions map[int64]domain.Session
	events   []domain.MessageEvent
	failNext error
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[int64]domain.Session)}
}

func (f *fakeStore) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeStore) CreateSession(ctx context.Context, s domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return err
	}
	if _, ok := f.sessions[s.CorrespondentID]; ok {
		return domain.ErrSessionExists
	}
	f.sessions[s.CorrespondentID] = s
	return nil
}

func (f *fakeStore) SessionByCorrespondent(ctx context.Context, id int64) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (f *fakeStore) SessionByTopic(ctx context.Context, topicID int64) (*domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	for _, s := range f.sessions {
		if s.TopicID == topicID {
			return &s, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) DeleteSession(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, id)
	return nil
}

func (f *fakeStore) AppendEvent(ctx context.Context, ev domain.MessageEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeStore) CountSessions(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions), nil
}

func (f *fakeStore) CountEvents(ctx context.Context, filter domain.EventFilter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ev := range f.events {
		if filter.CorrespondentID != 0 && ev.CorrespondentID != filter.CorrespondentID {
			continue
		}
		if filter.Direction != "" && ev.Direction != filter.Direction {
			continue
		}
		n++
	}
	return n, nil
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) eventCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// fakeGateway is a programmable domain.Gateway recording every call.
type fakeGateway struct {
	mu sync.Mutex

	nextTopicID  int64
	createErr    error
	sendErr      error
	missingTopic map[int64]bool // Forward into these topics fails with ErrTopicMissing

	created   []int64
	forwards  []int64 // topic IDs forwarded into
	sends     []int64 // correspondent IDs sent to
	posts     map[int64][]string
	sendDelay time.Duration
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		nextTopicID:  100,
		missingTopic: make(map[int64]bool),
		posts:        make(map[int64][]string),
	}
}

func (g *fakeGateway) CreateTopic(ctx context.Context, title string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return 0, g.createErr
	}
	g.nextTopicID++
	g.created = append(g.created, g.nextTopicID)
	return g.nextTopicID, nil
}

func (g *fakeGateway) Forward(ctx context.Context, topicID int64, ref domain.ForwardRef) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.missingTopic[topicID] {
		return fmt.Errorf("forward: %w", domain.ErrTopicMissing)
	}
	g.forwards = append(g.forwards, topicID)
	return nil
}

func (g *fakeGateway) Send(ctx context.Context, correspondentID int64, media domain.MediaType, payload domain.OutboundPayload) error {
	if g.sendDelay > 0 {
		time.Sleep(g.sendDelay)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return g.sendErr
	}
	g.sends = append(g.sends, correspondentID)
	return nil
}

func (g *fakeGateway) Post(ctx context.Context, topicID int64, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.posts[topicID] = append(g.posts[topicID], text)
	return nil
}

func (g *fakeGateway) createdCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.created)
}

func (g *fakeGateway) forwardCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.forwards)
}

func (g *fakeGateway) postsFor(topicID int64) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.posts[topicID]...)
}

func (g *fakeGateway) markMissing(topicID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.missingTopic[topicID] = true
}

var errBoom = errors.New("boom")
