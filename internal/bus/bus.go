package bus

import (
	"log/slog"
	"sync"
	"time"

	"supportbot/internal/domain"
)

const publishTimeout = 10 * time.Second

// Bus is a bounded in-memory queue between the update listener and the
// relay workers.
type Bus struct {
	events chan domain.RelayEvent
	mu     sync.RWMutex
	closed bool
	logger *slog.Logger
}

// New creates a Bus with the given buffer size.
func New(bufferSize int, logger *slog.Logger) *Bus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Bus{
		events: make(chan domain.RelayEvent, bufferSize),
		logger: logger,
	}
}

// Publish enqueues an event. Blocks up to 10 seconds if the bus is full
// instead of dropping.
func (b *Bus) Publish(ev domain.RelayEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("attempted to publish to closed bus")
		return
	}

	select {
	case b.events <- ev:
	default:
		b.logger.Warn("event bus full, waiting...")
		timer := time.NewTimer(publishTimeout)
		defer timer.Stop()
		select {
		case b.events <- ev:
			b.logger.Info("event delivered after wait")
		case <-timer.C:
			b.logger.Error("event dropped: bus full for 10s")
		}
	}
}

// Subscribe returns the receive side of the queue. Workers range over it
// until Close.
func (b *Bus) Subscribe() <-chan domain.RelayEvent {
	return b.events
}

func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.events)
	}
}
