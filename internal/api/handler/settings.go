package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gbone001/hall-frontline-pass/internal/api/request"
	"github.com/gbone001/hall-frontline-pass/internal/api/response"
	"github.com/gbone001/hall-frontline-pass/internal/config"
	"github.com/gbone001/hall-frontline-pass/internal/model"
	"github.com/gbone001/hall-frontline-pass/internal/services/grant"
	"github.com/gbone001/hall-frontline-pass/internal/services/ratelimit"
)

// SettingsHandler handles quota and duration endpoints
type SettingsHandler struct {
	limiter      *ratelimit.Service
	grantService *grant.Service
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(limiter *ratelimit.Service, grantService *grant.Service) *SettingsHandler {
	return &SettingsHandler{
		limiter:      limiter,
		grantService: grantService,
	}
}

// GetLimits handles GET /api/v1/limits
func (h *SettingsHandler) GetLimits(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.currentLimits())
}

// UpdateLimits handles PUT /api/v1/limits
func (h *SettingsHandler) UpdateLimits(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateLimitsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Limit == nil && req.ResetWeekday == nil && req.ResetTime == nil {
		WriteError(w, NewInvalidRequestError("nothing to update"))
		return
	}

	if req.Limit != nil {
		if *req.Limit <= 0 {
			WriteError(w, NewInvalidRequestError("limit must be positive"))
			return
		}
		if err := h.limiter.SetLimit(r.Context(), *req.Limit); err != nil {
			WriteError(w, err)
			return
		}
	}

	if req.ResetWeekday != nil || req.ResetTime != nil {
		weekday, hour, minute := h.limiter.Anchor()
		if req.ResetWeekday != nil {
			parsed, err := config.ParseWeekday(*req.ResetWeekday)
			if err != nil {
				WriteError(w, NewInvalidRequestError(err.Error()))
				return
			}
			weekday = parsed
		}
		if req.ResetTime != nil {
			var err error
			hour, minute, err = config.ParseClockTime(*req.ResetTime)
			if err != nil {
				WriteError(w, NewInvalidRequestError(err.Error()))
				return
			}
		}
		if err := h.limiter.SetAnchor(r.Context(), weekday, hour, minute); err != nil {
			WriteError(w, err)
			return
		}
	}

	response.JSON(w, http.StatusOK, h.currentLimits())
}

// GetUsage handles GET /api/v1/operators/{operator_id}/usage
func (h *SettingsHandler) GetUsage(w http.ResponseWriter, r *http.Request) {
	operatorID := mux.Vars(r)["operator_id"]

	report, err := h.limiter.Usage(r.Context(), model.OperatorID(operatorID))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.UsageFromReport(report))
}

// GetDuration handles GET /api/v1/duration
func (h *SettingsHandler) GetDuration(w http.ResponseWriter, r *http.Request) {
	hours := h.grantService.DefaultDuration(r.Context())
	response.JSON(w, http.StatusOK, response.Duration{Hours: hours})
}

// UpdateDuration handles PUT /api/v1/duration
func (h *SettingsHandler) UpdateDuration(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateDurationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.Hours <= 0 {
		WriteError(w, NewInvalidRequestError("hours must be greater than zero"))
		return
	}

	if err := h.grantService.SetDefaultDuration(r.Context(), req.Hours); err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Duration{Hours: req.Hours})
}

func (h *SettingsHandler) currentLimits() response.Limits {
	weekday, hour, minute := h.limiter.Anchor()
	return response.Limits{
		Limit:        h.limiter.Limit(),
		ResetWeekday: weekday.String(),
		ResetTime:    fmt.Sprintf("%02d:%02d", hour, minute),
		Timezone:     h.limiter.Zone(),
	}
}
