package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gbone001/hall-frontline-pass/internal/api/response"
	"github.com/gbone001/hall-frontline-pass/internal/directory"
)

// PlayerDirectory searches the game-server player database. The directory
// is optional; a nil handler dependency means search always comes up empty.
type PlayerDirectory interface {
	Search(ctx context.Context, prefix string, limit int) []directory.Entry
}

// PlayerHandler handles player directory endpoints
type PlayerHandler struct {
	directory PlayerDirectory
}

// NewPlayerHandler creates a new player handler
func NewPlayerHandler(directory PlayerDirectory) *PlayerHandler {
	return &PlayerHandler{
		directory: directory,
	}
}

// Search handles GET /api/v1/players?query=...&limit=...
func (h *PlayerHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		WriteError(w, NewInvalidRequestError("query is required"))
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteError(w, NewInvalidRequestError("limit must be a positive integer"))
			return
		}
		limit = n
	}

	if h.directory == nil {
		response.JSON(w, http.StatusOK, []response.Player{})
		return
	}

	entries := h.directory.Search(r.Context(), query, limit)
	response.JSON(w, http.StatusOK, response.PlayersFromEntries(entries))
}
