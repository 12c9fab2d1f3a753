package relay

import (
	"context"
	"log/slog"

	"supportbot/internal/domain"
)

// Acker sends the instant "message received" acknowledgment back to a
// correspondent. Strictly best-effort: failures are logged and never
// retried or surfaced to the relay path.
type Acker struct {
	gw      domain.Gateway
	message string
	logger  *slog.Logger
}

func NewAcker(gw domain.Gateway, message string, logger *slog.Logger) *Acker {
	return &Acker{gw: gw, message: message, logger: logger}
}

func (a *Acker) Notify(ctx context.Context, correspondentID int64) {
	err := a.gw.Send(ctx, correspondentID, domain.MediaText, domain.OutboundPayload{Text: a.message})
	if err != nil {
		a.logger.Error("auto-ack failed", "correspondent_id", correspondentID, "err", err)
		return
	}
	a.logger.Debug("auto-ack sent", "correspondent_id", correspondentID)
}
