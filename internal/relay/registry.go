package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"supportbot/internal/domain"
)

// ErrTopicCreate means the gateway could not create a topic for a new
// correspondent. No session is persisted in that case.
var ErrTopicCreate = errors.New("topic creation failed")

const topicTitleMaxLen = 20

// Registry owns the correspondent<->topic invariant: exactly one live topic
// per correspondent. Creation is serialized per correspondent, and the
// store's unique constraint makes concurrent creators from other processes
// converge on one winner.
type Registry struct {
	store  domain.SessionStore
	gw     domain.Gateway
	locks  *keyedLock
	logger *slog.Logger
}

func NewRegistry(store domain.SessionStore, gw domain.Gateway, logger *slog.Logger) *Registry {
	return &Registry{
		store:  store,
		gw:     gw,
		locks:  newKeyedLock(),
		logger: logger,
	}
}

// ResolveOrCreate returns the topic bound to the correspondent, creating
// topic and session if none exists. The fast path is a single store read
// with no gateway call.
func (r *Registry) ResolveOrCreate(ctx context.Context, correspondentID int64, displayName, handle string) (int64, error) {
	key := lockKey("corr", correspondentID)
	r.locks.lock(key)
	defer r.locks.unlock(key)

	sess, err := r.store.SessionByCorrespondent(ctx, correspondentID)
	if err == nil {
		return sess.TopicID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return 0, fmt.Errorf("session lookup: %w", err)
	}

	topicID, err := r.gw.CreateTopic(ctx, topicTitle(displayName))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTopicCreate, err)
	}

	now := time.Now()
	createErr := r.store.CreateSession(ctx, domain.Session{
		CorrespondentID: correspondentID,
		TopicID:         topicID,
		DisplayName:     displayName,
		Handle:          handle,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if errors.Is(createErr, domain.ErrSessionExists) {
		// Another creator won (different process; the keyed lock only
		// serializes this one). Re-read and use the winner's topic.
		winner, err := r.store.SessionByCorrespondent(ctx, correspondentID)
		if err != nil {
			return 0, fmt.Errorf("re-read after duplicate: %w", err)
		}
		r.logger.Warn("concurrent topic creation lost, using existing topic",
			"correspondent_id", correspondentID,
			"orphaned_topic", topicID,
			"topic_id", winner.TopicID,
		)
		return winner.TopicID, nil
	}
	if createErr != nil {
		return 0, fmt.Errorf("persist session: %w", createErr)
	}

	if err := r.gw.Post(ctx, topicID, introNotice(correspondentID, displayName, handle, now)); err != nil {
		// Session is already persisted; the intro is informational only.
		r.logger.Error("intro notice failed", "correspondent_id", correspondentID, "err", err)
	}

	r.logger.Info("created topic for correspondent",
		"correspondent_id", correspondentID,
		"topic_id", topicID,
		"name", displayName,
	)
	return topicID, nil
}

// Invalidate deletes the session row outright so the next ResolveOrCreate
// rebuilds from scratch. Call only after the gateway reported the topic
// itself gone.
func (r *Registry) Invalidate(ctx context.Context, correspondentID int64) error {
	if err := r.store.DeleteSession(ctx, correspondentID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	r.logger.Warn("session invalidated, topic will be recreated", "correspondent_id", correspondentID)
	return nil
}

// ReverseLookup resolves a topic back to its bound session for
// staff->correspondent routing. Returns domain.ErrNotFound for topics not
// bound to any correspondent.
func (r *Registry) ReverseLookup(ctx context.Context, topicID int64) (*domain.Session, error) {
	return r.store.SessionByTopic(ctx, topicID)
}

func lockKey(kind string, id int64) string {
	return fmt.Sprintf("%s:%d", kind, id)
}

func topicTitle(displayName string) string {
	name := displayName
	if name == "" {
		name = "User"
	}
	runes := []rune(name)
	if len(runes) > topicTitleMaxLen {
		name = string(runes[:topicTitleMaxLen])
	}
	return "👤 " + name
}

func introNotice(correspondentID int64, displayName, handle string, at time.Time) string {
	if handle == "" {
		handle = "None"
	}
	return fmt.Sprintf(
		"🆕 <b>New Conversation Started</b>\n\n"+
			"👤 <b>Name:</b> %s\n"+
			"🆔 <b>User ID:</b> <code>%d</code>\n"+
			"📱 <b>Username:</b> @%s\n"+
			"🕐 <b>Time:</b> %s",
		orUnknown(displayName), correspondentID, handle,
		at.Format("2006-01-02 15:04:05"),
	)
}
