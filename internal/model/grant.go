package model

import "time"

// TransportKind identifies which transport served a grant
type TransportKind string

const (
	TransportHTTP   TransportKind = "HTTP"
	TransportSocket TransportKind = "SOCKET"
)

// GrantRequest describes one privilege grant to perform
type GrantRequest struct {
	OperatorID OperatorID
	OwnerID    OwnerID
	PlayerID   PlayerID
	// DurationHours overrides the stored default when > 0
	DurationHours float64
	Comment       string
}

// GrantOrder is the transport-level instruction derived from a GrantRequest
// once duration and expiry have been resolved
type GrantOrder struct {
	PlayerID     PlayerID
	PlayerName   string
	ExpiresAtUTC time.Time
	Description  string
}

// GrantResult is the normalized outcome of a successful grant
type GrantResult struct {
	RequestID     string
	TransportUsed TransportKind
	ExpiresAtUTC  time.Time
	RawMessage    string
	// StatusLines records the outcome of every transport attempt in order
	StatusLines []string
}

// VipStatus reports a player's current privilege state.
// A nil expiry means the privilege does not expire.
type VipStatus struct {
	PlayerID     PlayerID
	Name         string
	ExpiresAtUTC *time.Time
}
