package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gbone001/hall-frontline-pass/internal/api/request"
	"github.com/gbone001/hall-frontline-pass/internal/api/response"
	"github.com/gbone001/hall-frontline-pass/internal/model"
	"github.com/gbone001/hall-frontline-pass/internal/services/grant"
)

// GrantHandler handles VIP grant endpoints
type GrantHandler struct {
	grantService *grant.Service
}

// NewGrantHandler creates a new grant handler
func NewGrantHandler(grantService *grant.Service) *GrantHandler {
	return &GrantHandler{
		grantService: grantService,
	}
}

// Create handles POST /api/v1/grants
func (h *GrantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.GrantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.OperatorID == "" {
		WriteError(w, NewInvalidRequestError("operator_id is required"))
		return
	}
	if req.PlayerID == "" {
		WriteError(w, NewInvalidRequestError("player_id is required"))
		return
	}
	if req.DurationHours < 0 {
		WriteError(w, NewInvalidRequestError("duration_hours must not be negative"))
		return
	}

	result, err := h.grantService.Grant(r.Context(), model.GrantRequest{
		OperatorID:    model.OperatorID(req.OperatorID),
		OwnerID:       model.OwnerID(req.OwnerID),
		PlayerID:      model.PlayerID(req.PlayerID),
		DurationHours: req.DurationHours,
		Comment:       req.Comment,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.GrantFromModel(result))
}
