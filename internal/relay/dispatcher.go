package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"supportbot/internal/domain"
	"supportbot/internal/metrics"
)

// ErrRelayFailed means an inbound message could not be forwarded even after
// the one allowed topic repair. The message is lost; there is no local
// queue or further retry.
var ErrRelayFailed = errors.New("relay failed")

// Dispatcher moves messages across the correspondent/staff boundary in both
// directions. Every entry point is a closed failure boundary: errors are
// returned for the worker to log, never allowed to take the process down,
// and the outbound path absorbs delivery failures entirely by reporting
// them in-topic.
type Dispatcher struct {
	registry *Registry
	gw       domain.Gateway
	store    domain.SessionStore
	acker    *Acker // nil when auto-ack is disabled
	locks    *keyedLock
	logger   *slog.Logger

	// failureReply is the best-effort notice sent to a correspondent whose
	// message could not be relayed.
	failureReply string
}

type DispatcherConfig struct {
	Registry     *Registry
	Gateway      domain.Gateway
	Store        domain.SessionStore
	Acker        *Acker
	FailureReply string
	Logger       *slog.Logger
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		registry:     cfg.Registry,
		gw:           cfg.Gateway,
		store:        cfg.Store,
		acker:        cfg.Acker,
		locks:        newKeyedLock(),
		logger:       cfg.Logger,
		failureReply: cfg.FailureReply,
	}
}

// Dispatch routes a bus event to the matching direction handler and logs
// the outcome. This is the worker entry point.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.RelayEvent) {
	switch {
	case ev.Inbound != nil:
		if err := d.Inbound(ctx, *ev.Inbound); err != nil {
			d.logger.Error("inbound relay failed",
				"correspondent_id", ev.Inbound.CorrespondentID,
				"media", ev.Inbound.Media,
				"err", err,
			)
		}
	case ev.Outbound != nil:
		if err := d.Outbound(ctx, *ev.Outbound); err != nil {
			d.logger.Error("outbound relay failed",
				"topic_id", ev.Outbound.TopicID,
				"media", ev.Outbound.Media,
				"err", err,
			)
		}
	}
}

// Inbound relays one correspondent message into their topic, creating or
// repairing the topic as needed. Events for the same correspondent are
// serialized; different correspondents run in parallel.
func (d *Dispatcher) Inbound(ctx context.Context, ev domain.InboundEvent) error {
	key := lockKey("corr", ev.CorrespondentID)
	d.locks.lock(key)
	defer d.locks.unlock(key)

	if d.acker != nil {
		// Fire-and-forget; the ack must never delay or fail the relay.
		go d.acker.Notify(ctx, ev.CorrespondentID)
	}

	topicID, err := d.registry.ResolveOrCreate(ctx, ev.CorrespondentID, ev.DisplayName, ev.Handle)
	if err != nil {
		d.notifyFailure(ctx, ev.CorrespondentID)
		return err
	}

	start := time.Now()
	err = d.gw.Forward(ctx, topicID, ev.Ref)
	if errors.Is(err, domain.ErrTopicMissing) {
		// The topic was deleted out-of-band. Repair once: drop the stale
		// session, create a fresh topic, retry the forward. A retried
		// forward may duplicate the message in the group; accepted.
		metrics.TopicRepairs.Inc()
		if ierr := d.registry.Invalidate(ctx, ev.CorrespondentID); ierr != nil {
			d.notifyFailure(ctx, ev.CorrespondentID)
			return ierr
		}
		topicID, err = d.registry.ResolveOrCreate(ctx, ev.CorrespondentID, ev.DisplayName, ev.Handle)
		if err != nil {
			d.notifyFailure(ctx, ev.CorrespondentID)
			return err
		}
		err = d.gw.Forward(ctx, topicID, ev.Ref)
		if err != nil {
			metrics.RelayFailures.Inc()
			d.notifyFailure(ctx, ev.CorrespondentID)
			return fmt.Errorf("%w: forward after topic repair: %v", ErrRelayFailed, err)
		}
	} else if err != nil {
		metrics.RelayFailures.Inc()
		d.notifyFailure(ctx, ev.CorrespondentID)
		return fmt.Errorf("%w: %v", ErrRelayFailed, err)
	}
	metrics.ForwardLatency.Observe(time.Since(start).Seconds())

	if err := d.store.AppendEvent(ctx, domain.MessageEvent{
		CorrespondentID: ev.CorrespondentID,
		Media:           ev.Media,
		Direction:       domain.DirectionInbound,
		Preview:         ev.Preview,
		CreatedAt:       ev.Timestamp,
	}); err != nil {
		return fmt.Errorf("append inbound event: %w", err)
	}

	metrics.InboundRelayed.Inc()
	d.logger.Info("relayed inbound message",
		"correspondent_id", ev.CorrespondentID,
		"topic_id", topicID,
		"media", ev.Media,
	)
	return nil
}

// Outbound routes a staff reply written inside a topic back to the bound
// correspondent. Delivery failures are never retried: they are deterministic
// facts (blocked, missing account) surfaced to staff as an in-topic notice.
func (d *Dispatcher) Outbound(ctx context.Context, ev domain.OutboundEvent) error {
	key := lockKey("topic", ev.TopicID)
	d.locks.lock(key)
	defer d.locks.unlock(key)

	sess, err := d.registry.ReverseLookup(ctx, ev.TopicID)
	if errors.Is(err, domain.ErrNotFound) {
		// Staff chatter outside a bound topic; nothing to route.
		d.logger.Debug("no session for topic, dropping", "topic_id", ev.TopicID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reverse lookup: %w", err)
	}

	if !supportedMedia(ev.Media) {
		d.logger.Debug("unsupported outbound media, dropping",
			"topic_id", ev.TopicID, "media", ev.Media,
		)
		return nil
	}

	if err := d.gw.Send(ctx, sess.CorrespondentID, ev.Media, ev.Payload); err != nil {
		notice := Classify(sess, err)
		metrics.DeliveryNotices.Inc()
		d.logger.Warn("staff reply undeliverable",
			"correspondent_id", sess.CorrespondentID,
			"kind", notice.Kind,
			"err", err,
		)
		if perr := d.gw.Post(ctx, ev.TopicID, notice.Text); perr != nil {
			d.logger.Error("failed to post delivery notice", "topic_id", ev.TopicID, "err", perr)
		}
		// Failure fully absorbed; staff act on the notice.
		return nil
	}

	if err := d.store.AppendEvent(ctx, domain.MessageEvent{
		CorrespondentID: sess.CorrespondentID,
		Media:           ev.Media,
		Direction:       domain.DirectionOutbound,
		Preview:         ev.Preview,
		CreatedAt:       ev.Timestamp,
	}); err != nil {
		return fmt.Errorf("append outbound event: %w", err)
	}

	metrics.OutboundRelayed.Inc()
	d.logger.Info("relayed staff reply",
		"correspondent_id", sess.CorrespondentID,
		"topic_id", ev.TopicID,
		"media", ev.Media,
	)
	return nil
}

// notifyFailure tells the correspondent their message was not processed.
// Best-effort, mirrors the acknowledgment path.
func (d *Dispatcher) notifyFailure(ctx context.Context, correspondentID int64) {
	if d.failureReply == "" {
		return
	}
	err := d.gw.Send(ctx, correspondentID, domain.MediaText, domain.OutboundPayload{Text: d.failureReply})
	if err != nil {
		d.logger.Error("failure notice undeliverable", "correspondent_id", correspondentID, "err", err)
	}
}

func supportedMedia(m domain.MediaType) bool {
	for _, known := range domain.MediaTypes() {
		if m == known {
			return true
		}
	}
	return false
}
