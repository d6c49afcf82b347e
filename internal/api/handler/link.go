package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gbone001/hall-frontline-pass/internal/api/request"
	"github.com/gbone001/hall-frontline-pass/internal/api/response"
	"github.com/gbone001/hall-frontline-pass/internal/model"
	"github.com/gbone001/hall-frontline-pass/internal/services/registry"
)

// LinkHandler handles player link endpoints
type LinkHandler struct {
	registryService *registry.Service
}

// NewLinkHandler creates a new link handler
func NewLinkHandler(registryService *registry.Service) *LinkHandler {
	return &LinkHandler{
		registryService: registryService,
	}
}

// Create handles POST /api/v1/links
func (h *LinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	if req.OwnerID == "" {
		WriteError(w, NewInvalidRequestError("owner_id is required"))
		return
	}
	if req.PlayerID == "" {
		WriteError(w, NewInvalidRequestError("player_id is required"))
		return
	}

	link, err := h.registryService.Register(r.Context(), model.OwnerID(req.OwnerID), model.PlayerID(req.PlayerID))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.LinkFromModel(link))
}

// Get handles GET /api/v1/links/{player_id}
func (h *LinkHandler) Get(w http.ResponseWriter, r *http.Request) {
	playerID := mux.Vars(r)["player_id"]

	link, err := h.registryService.LookupPlayer(r.Context(), model.PlayerID(playerID))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LinkFromModel(link))
}

// Delete handles DELETE /api/v1/links/{owner_id}
// Deleting an absent link succeeds; the end state is the same.
func (h *LinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID := mux.Vars(r)["owner_id"]

	if err := h.registryService.Unregister(r.Context(), model.OwnerID(ownerID)); err != nil {
		WriteError(w, err)
		return
	}

	response.NoContent(w)
}
