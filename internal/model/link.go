package model

import "time"

// PlayerID is the game platform's unique identifier for a player account
type PlayerID string

// OwnerID identifies the external account that claimed a player id
type OwnerID string

// OperatorID identifies a privileged user permitted to assign grants
type OperatorID string

// PlayerLink ties an external owner to the player id they registered.
// PlayerID is unique across all links; an owner holds at most one active link.
type PlayerLink struct {
	OwnerID  OwnerID
	PlayerID PlayerID
	LinkedAt time.Time
}

// OperatorUsage tracks how many grants an operator has performed in the
// current weekly window. Mutated only by the rate limiter.
type OperatorUsage struct {
	OperatorID     OperatorID
	Count          int
	WindowStartUTC time.Time
}
