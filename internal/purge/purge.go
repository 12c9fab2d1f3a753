// Package purge implements bulk message deletion for the cleaner bot:
// a ranged delete driven in small batches so a stop request or context
// cancellation can interrupt a long run partway through.
package purge

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"supportbot/internal/metrics"
)

var (
	// ErrBusy is returned when a purge is already running in the chat.
	ErrBusy = errors.New("purge already running in this chat")
	// ErrStopped is reported in the result when the run was cancelled
	// by /stop before reaching the end of the range.
	ErrStopped = errors.New("purge stopped")
)

// Deleter is the one Telegram call the engine needs.
type Deleter interface {
	DeleteMessage(chatID int64, messageID int) error
}

// Result summarizes a finished run.
type Result struct {
	Requested int
	Deleted   int
	Failed    int
	Stopped   bool
}

// Progress is invoked periodically while a run is in flight so the
// caller can edit a status message.
type Progress func(deleted, total int)

const (
	progressEvery = 50
	batchPause    = 300 * time.Millisecond
)

// Purger runs at most one deletion per chat at a time.
type Purger struct {
	deleter   Deleter
	batchSize int
	logger    *slog.Logger

	mu     sync.Mutex
	active map[int64]context.CancelFunc
}

func NewPurger(deleter Deleter, batchSize int, logger *slog.Logger) *Purger {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Purger{
		deleter:   deleter,
		batchSize: batchSize,
		logger:    logger,
		active:    make(map[int64]context.CancelFunc),
	}
}

// Run deletes messages startID..endID inclusive in chatID. It blocks
// until the range is exhausted, the context is cancelled, or Stop is
// called for the chat. Individual delete failures (already-deleted or
// too-old messages) are counted and skipped, never fatal.
func (p *Purger) Run(ctx context.Context, chatID int64, startID, endID int, progress Progress) (Result, error) {
	runCtx, cancel, err := p.begin(ctx, chatID)
	if err != nil {
		return Result{}, err
	}
	defer p.end(chatID, cancel)

	total := endID - startID + 1
	res := Result{Requested: total}

	p.logger.Info("purge started",
		"chat_id", chatID, "start_id", startID, "end_id", endID, "total", total,
	)

	for id := startID; id <= endID; id += p.batchSize {
		if runCtx.Err() != nil {
			res.Stopped = true
			p.logger.Info("purge stopped early",
				"chat_id", chatID, "deleted", res.Deleted, "failed", res.Failed,
			)
			return res, ErrStopped
		}

		last := id + p.batchSize - 1
		if last > endID {
			last = endID
		}
		for msgID := id; msgID <= last; msgID++ {
			if err := p.deleter.DeleteMessage(chatID, msgID); err != nil {
				res.Failed++
			} else {
				res.Deleted++
			}
		}

		if progress != nil && res.Deleted > 0 && (res.Deleted+res.Failed)%progressEvery < p.batchSize {
			progress(res.Deleted, total)
		}
		if last < endID {
			time.Sleep(batchPause)
		}
	}

	p.logger.Info("purge finished",
		"chat_id", chatID, "deleted", res.Deleted, "failed", res.Failed,
	)
	return res, nil
}

// Stop cancels the run in chatID, if any. It reports whether a run was
// actually in flight.
func (p *Purger) Stop(chatID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	cancel, ok := p.active[chatID]
	if ok {
		cancel()
	}
	return ok
}

// Active reports whether a purge is currently running in chatID.
func (p *Purger) Active(chatID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.active[chatID]
	return ok
}

func (p *Purger) begin(ctx context.Context, chatID int64) (context.Context, context.CancelFunc, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.active[chatID]; busy {
		return nil, nil, ErrBusy
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.active[chatID] = cancel
	metrics.ActivePurges.Inc()
	return runCtx, cancel, nil
}

func (p *Purger) end(chatID int64, cancel context.CancelFunc) {
	cancel()
	p.mu.Lock()
	delete(p.active, chatID)
	p.mu.Unlock()
	metrics.ActivePurges.Dec()
}
