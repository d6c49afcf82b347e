package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Common errors used across the application
var (
	// Transport errors
	ErrAuth      = errors.New("authentication rejected")
	ErrProtocol  = errors.New("protocol violation")
	ErrTimeout   = errors.New("operation timed out")
	ErrTransport = errors.New("transport failure")

	// Business-rule errors
	ErrDuplicateID = errors.New("player id already linked to another account")
	ErrRateLimited = errors.New("weekly grant limit reached")
	ErrGrantFailed = errors.New("grant failed on all transports")

	// Storage errors
	ErrLinkNotFound     = errors.New("player link not found")
	ErrUsageNotFound    = errors.New("operator usage not found")
	ErrMetadataNotFound = errors.New("metadata key not found")
)

// DuplicateIDError reports an attempt to claim a player id that is already
// linked to a different owner. The existing link is left untouched.
type DuplicateIDError struct {
	PlayerID         PlayerID
	ExistingOwnerID  OwnerID
	AttemptedOwnerID OwnerID
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("player id %s is already linked to another account", e.PlayerID)
}

func (e *DuplicateIDError) Unwrap() error { return ErrDuplicateID }

// RateLimitError reports an operator exceeding their weekly grant quota
type RateLimitError struct {
	OperatorID OperatorID
	Limit      int
	ResetAt    time.Time
	Remaining  time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("weekly grant limit of %d reached, resets in %s",
		e.Limit, e.Remaining.Round(time.Second))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// TransportAttempt records the terminal outcome of one transport try
type TransportAttempt struct {
	Transport TransportKind
	Err       error
}

// GrantError aggregates the failure of every configured transport so the
// caller can report which transports were tried and why each failed.
type GrantError struct {
	Attempts []TransportAttempt
}

func (e *GrantError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Transport, a.Err))
	}
	return "grant failed on all transports: " + strings.Join(parts, "; ")
}

func (e *GrantError) Unwrap() error { return ErrGrantFailed }
