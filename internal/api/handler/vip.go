package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gbone001/hall-frontline-pass/internal/api/response"
	"github.com/gbone001/hall-frontline-pass/internal/model"
	"github.com/gbone001/hall-frontline-pass/internal/services/grant"
)

// VipHandler handles VIP status endpoints
type VipHandler struct {
	grantService *grant.Service
}

// NewVipHandler creates a new VIP status handler
func NewVipHandler(grantService *grant.Service) *VipHandler {
	return &VipHandler{
		grantService: grantService,
	}
}

// Get handles GET /api/v1/vips/{player_id}
func (h *VipHandler) Get(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["player_id"]

	status, err := h.grantService.QueryVip(r.Context(), model.PlayerID(playerID))
	if err != nil {
		WriteError(w, err)
		return
	}
	if status == nil {
		WriteError(w, NewVipNotFoundError())
		return
	}

	response.JSON(w, http.StatusOK, response.VipStatusFromModel(status))
}
