package rcon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gbone001/hall-frontline-pass/internal/model"
)

// addVipBody matches the console's AddVip command arguments. The command
// has no expiry field, so the expiry is folded into the description.
type addVipBody struct {
	PlayerID    string `json:"PlayerId"`
	Description string `json:"Description"`
}

// Transport adapts the single-session Client to the orchestrator's
// transport contract. Every grant runs on a fresh connection so that a
// poisoned session never leaks into the next attempt.
type Transport struct {
	cfg    Config
	logger *slog.Logger
}

func NewTransport(cfg Config, logger *slog.Logger) *Transport {
	return &Transport{cfg: cfg, logger: logger}
}

func (t *Transport) Kind() model.TransportKind {
	return model.TransportSocket
}

// GrantVip connects, authenticates and issues AddVip for the order
func (t *Transport) GrantVip(ctx context.Context, order model.GrantOrder) (string, error) {
	client := NewClient(t.cfg, t.logger)
	if err := client.Dial(ctx); err != nil {
		return "", err
	}
	defer client.Close()

	desc := order.Description
	if desc == "" {
		desc = "VIP"
	}
	if !order.ExpiresAtUTC.IsZero() {
		desc = fmt.Sprintf("%s (expires %s)", desc, order.ExpiresAtUTC.UTC().Format(time.RFC3339))
	}

	resp, err := client.Execute(ctx, "AddVip", addVipBody{
		PlayerID:    string(order.PlayerID),
		Description: desc,
	})
	if err != nil {
		return "", err
	}

	msg := resp.StatusMessage
	if msg == "" {
		msg = "VIP added"
	}
	t.logger.Info("console vip granted", "player_id", order.PlayerID, "expires_at", order.ExpiresAtUTC)
	return msg, nil
}
