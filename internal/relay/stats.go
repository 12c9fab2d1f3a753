package relay

import (
	"context"

	"supportbot/internal/domain"
)

// Totals is the group-wide rollup shown by /stats.
type Totals struct {
	Sessions int
	Events   int
}

// CorrespondentStats splits one correspondent's relayed messages by
// direction, shown by /userinfo inside their topic.
type CorrespondentStats struct {
	Inbound  int
	Outbound int
	Total    int
}

// Stats exposes read-only rollups over the session store.
type Stats struct {
	store domain.SessionStore
}

func NewStats(store domain.SessionStore) *Stats {
	return &Stats{store: store}
}

func (s *Stats) Totals(ctx context.Context) (Totals, error) {
	sessions, err := s.store.CountSessions(ctx)
	if err != nil {
		return Totals{}, err
	}
	events, err := s.store.CountEvents(ctx, domain.EventFilter{})
	if err != nil {
		return Totals{}, err
	}
	return Totals{Sessions: sessions, Events: events}, nil
}

func (s *Stats) Correspondent(ctx context.Context, correspondentID int64) (CorrespondentStats, error) {
	in, err := s.store.CountEvents(ctx, domain.EventFilter{
		CorrespondentID: correspondentID,
		Direction:       domain.DirectionInbound,
	})
	if err != nil {
		return CorrespondentStats{}, err
	}
	out, err := s.store.CountEvents(ctx, domain.EventFilter{
		CorrespondentID: correspondentID,
		Direction:       domain.DirectionOutbound,
	})
	if err != nil {
		return CorrespondentStats{}, err
	}
	return CorrespondentStats{Inbound: in, Outbound: out, Total: in + out}, nil
}
