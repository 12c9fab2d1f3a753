package domain

import (
	"context"
	"errors"
)

// ErrTopicMissing means the messaging surface reports that a previously
// known topic no longer exists. Callers repair by invalidating the session
// and recreating the topic once.
var ErrTopicMissing = errors.New("topic missing")

// ForwardRef points at a correspondent message so it can be forwarded into
// a topic verbatim, preserving its media type.
type ForwardRef struct {
	FromChatID int64
	MessageID  int
}

// OutboundPayload carries a staff reply to a correspondent. Text messages
// use Text; every other media type re-sends by FileID with an optional
// Caption.
type OutboundPayload struct {
	Text    string
	FileID  string
	Caption string
}

// Gateway is the messaging-transport capability the relay depends on.
// Implementations are safe for concurrent use.
type Gateway interface {
	// CreateTopic creates a new topic in the support group and returns its ID.
	CreateTopic(ctx context.Context, title string) (int64, error)

	// Forward copies a correspondent message into the given topic.
	// Returns an error wrapping ErrTopicMissing when the topic was deleted.
	Forward(ctx context.Context, topicID int64, ref ForwardRef) error

	// Send delivers a staff reply to the correspondent's private chat.
	Send(ctx context.Context, correspondentID int64, media MediaType, payload OutboundPayload) error

	// Post puts a service notice (intro, delivery diagnostics) into a topic.
	Post(ctx context.Context, topicID int64, text string) error
}
