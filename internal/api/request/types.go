package request

// GrantRequest is the request body for granting VIP access
type GrantRequest struct {
	OperatorID    string  `json:"operator_id"`
	OwnerID       string  `json:"owner_id,omitempty"`
	PlayerID      string  `json:"player_id"`
	DurationHours float64 `json:"duration_hours,omitempty"`
	Comment       string  `json:"comment,omitempty"`
}

// RegisterLinkRequest is the request body for linking a player id to an owner
type RegisterLinkRequest struct {
	OwnerID  string `json:"owner_id"`
	PlayerID string `json:"player_id"`
}

// UpdateLimitsRequest is the request body for adjusting the weekly quota.
// Fields left null are left unchanged.
type UpdateLimitsRequest struct {
	Limit        *int    `json:"limit,omitempty"`
	ResetWeekday *string `json:"reset_weekday,omitempty"`
	ResetTime    *string `json:"reset_time,omitempty"`
}

// UpdateDurationRequest is the request body for adjusting the default
// grant duration
type UpdateDurationRequest struct {
	Hours float64 `json:"hours"`
}
