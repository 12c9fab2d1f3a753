package domain

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested session does not exist.
var ErrNotFound = errors.New("not found")

// ErrSessionExists is returned when a session row for the correspondent is
// already present. A losing concurrent creator treats this as "someone else
// already created it" and re-reads.
var ErrSessionExists = errors.New("session already exists")

// EventFilter narrows CountEvents. Zero values mean "any".
type EventFilter struct {
	CorrespondentID int64
	Direction       Direction
}

// SessionStore is the durable correspondent<->topic mapping plus the
// append-only message-event log.
type SessionStore interface {
	// CreateSession inserts a new session row. Returns ErrSessionExists if
	// the correspondent already has one (store-level uniqueness).
	CreateSession(ctx context.Context, s Session) error

	// SessionByCorrespondent returns the session for a correspondent, or
	// ErrNotFound.
	SessionByCorrespondent(ctx context.Context, correspondentID int64) (*Session, error)

	// SessionByTopic returns the session bound to a topic, or ErrNotFound.
	// Used for staff->correspondent reverse routing.
	SessionByTopic(ctx context.Context, topicID int64) (*Session, error)

	// DeleteSession removes the session row outright. Deleting a missing
	// session is not an error.
	DeleteSession(ctx context.Context, correspondentID int64) error

	// AppendEvent records one successfully relayed message.
	AppendEvent(ctx context.Context, ev MessageEvent) error

	CountSessions(ctx context.Context) (int, error)
	CountEvents(ctx context.Context, f EventFilter) (int, error)

	Close() error
}
