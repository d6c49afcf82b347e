package response

import (
	"time"

	"github.com/gbone001/hall-frontline-pass/internal/directory"
	"github.com/gbone001/hall-frontline-pass/internal/model"
	"github.com/gbone001/hall-frontline-pass/internal/services/ratelimit"
)

// Grant represents a completed grant in API responses
type Grant struct {
	RequestID     string    `json:"request_id"`
	TransportUsed string    `json:"transport_used"`
	ExpiresAtUTC  time.Time `json:"expires_at_utc"`
	RawMessage    string    `json:"raw_message,omitempty"`
	StatusLines   []string  `json:"status_lines,omitempty"`
}

// GrantFromModel converts a model.GrantResult to a response Grant
func GrantFromModel(r *model.GrantResult) Grant {
	return Grant{
		RequestID:     r.RequestID,
		TransportUsed: string(r.TransportUsed),
		ExpiresAtUTC:  r.ExpiresAtUTC,
		RawMessage:    r.RawMessage,
		StatusLines:   r.StatusLines,
	}
}

// Link represents a player link in API responses
type Link struct {
	OwnerID  string    `json:"owner_id"`
	PlayerID string    `json:"player_id"`
	LinkedAt time.Time `json:"linked_at"`
}

// LinkFromModel converts a model.PlayerLink to a response Link
func LinkFromModel(l *model.PlayerLink) Link {
	return Link{
		OwnerID:  string(l.OwnerID),
		PlayerID: string(l.PlayerID),
		LinkedAt: l.LinkedAt,
	}
}

// VipStatus represents a player's VIP standing in API responses
type VipStatus struct {
	PlayerID     string     `json:"player_id"`
	Name         string     `json:"name,omitempty"`
	ExpiresAtUTC *time.Time `json:"expires_at_utc"`
}

// VipStatusFromModel converts a model.VipStatus to a response VipStatus
func VipStatusFromModel(s *model.VipStatus) VipStatus {
	return VipStatus{
		PlayerID:     string(s.PlayerID),
		Name:         s.Name,
		ExpiresAtUTC: s.ExpiresAtUTC,
	}
}

// Usage represents an operator's weekly quota standing
type Usage struct {
	OperatorID string    `json:"operator_id"`
	Count      int       `json:"count"`
	Limit      int       `json:"limit"`
	ResetAt    time.Time `json:"reset_at"`
}

// UsageFromReport converts a ratelimit.UsageReport to a response Usage
func UsageFromReport(r *ratelimit.UsageReport) Usage {
	return Usage{
		OperatorID: string(r.OperatorID),
		Count:      r.Count,
		Limit:      r.Limit,
		ResetAt:    r.ResetAt,
	}
}

// Limits represents the weekly quota settings
type Limits struct {
	Limit        int    `json:"limit"`
	ResetWeekday string `json:"reset_weekday"`
	ResetTime    string `json:"reset_time"`
	Timezone     string `json:"timezone"`
}

// Duration represents the default grant duration
type Duration struct {
	Hours float64 `json:"hours"`
}

// Player represents a directory search hit
type Player struct {
	PlayerID string `json:"player_id"`
	Name     string `json:"name"`
}

// PlayersFromEntries converts directory entries to response Players
func PlayersFromEntries(entries []directory.Entry) []Player {
	players := make([]Player, len(entries))
	for i, e := range entries {
		players[i] = Player{
			PlayerID: string(e.PlayerID),
			Name:     e.Name,
		}
	}
	return players
}

// Health represents service health in API responses
type Health struct {
	Status               string  `json:"status"`
	StorageBackend       string  `json:"storage_backend"`
	RegisteredLinks      int     `json:"registered_links"`
	DefaultDurationHours float64 `json:"default_duration_hours"`
}
