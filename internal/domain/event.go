package domain

import "time"

// InboundEvent is one correspondent message to relay into the support group.
type InboundEvent struct {
	CorrespondentID int64
	DisplayName     string
	Handle          string
	Media           MediaType
	Ref             ForwardRef
	Preview         string
	Timestamp       time.Time
}

// OutboundEvent is one staff reply, written inside a topic, to relay back
// to the bound correspondent.
type OutboundEvent struct {
	TopicID   int64
	Media     MediaType
	Payload   OutboundPayload
	Preview   string
	Timestamp time.Time
}

// RelayEvent is what flows over the event bus: exactly one of the two
// directions is set.
type RelayEvent struct {
	Inbound  *InboundEvent
	Outbound *OutboundEvent
}
