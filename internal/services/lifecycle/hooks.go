package lifecycle

import (
	"context"

	"go.uber.org/zap"

	"matchmaking-engine/internal/models"
	"matchmaking-engine/internal/utils"
)

// hooks are the side effects shared by both match services.
type hooks struct {
	notifier    Notifier
	invalidator Invalidator
	clock       Clock
}

func newHooks(notifier Notifier, clock Clock) hooks {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return hooks{notifier: notifier, clock: clock}
}

// SetInvalidator registers the candidate cache to clear when matches are created.
func (h *hooks) SetInvalidator(inv Invalidator) {
	h.invalidator = inv
}

// notify hands the event to the notifier. Failures are logged only.
func (h *hooks) notify(ctx context.Context, event models.MatchEvent) {
	if err := h.notifier.Notify(ctx, event); err != nil {
		utils.Logger.Warn("Match notification failed",
			zap.String("event_id", event.EventID),
			zap.String("type", string(event.Type)),
			zap.Int64("match_id", event.MatchID),
			zap.Error(err),
		)
	}
}

func (h *hooks) invalidate(ctx context.Context, ids ...int64) {
	if h.invalidator == nil {
		return
	}
	for _, id := range ids {
		h.invalidator.Invalidate(ctx, id)
	}
}
