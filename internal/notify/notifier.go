package notify

import (
	"context"
	"log/slog"

	"github.com/gbone001/hall-frontline-pass/internal/model"
)

// Notifier receives moderation-relevant events. Delivery is best effort
// and must never block or fail the operation that raised the event.
type Notifier interface {
	NotifyDuplicate(ctx context.Context, existing, attempted model.PlayerLink)
}

// LogNotifier reports moderation events to the operator log
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyDuplicate(ctx context.Context, existing, attempted model.PlayerLink) {
	n.logger.Warn("duplicate player id claim",
		"player_id", existing.PlayerID,
		"existing_owner", existing.OwnerID,
		"attempted_owner", attempted.OwnerID,
		"existing_linked_at", existing.LinkedAt,
	)
}
