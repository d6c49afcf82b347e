package handler

import (
	"net/http"

	"github.com/gbone001/hall-frontline-pass/internal/api/response"
	"github.com/gbone001/hall-frontline-pass/internal/services/grant"
	"github.com/gbone001/hall-frontline-pass/internal/services/registry"
)

// HealthHandler reports service health
type HealthHandler struct {
	registryService *registry.Service
	grantService    *grant.Service
	storageBackend  string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(registryService *registry.Service, grantService *grant.Service, storageBackend string) *HealthHandler {
	return &HealthHandler{
		registryService: registryService,
		grantService:    grantService,
		storageBackend:  storageBackend,
	}
}

// Get handles GET /api/v1/health
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	count, err := h.registryService.Count(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.Health{
		Status:               "ok",
		StorageBackend:       h.storageBackend,
		RegisteredLinks:      count,
		DefaultDurationHours: h.grantService.DefaultDuration(r.Context()),
	})
}
