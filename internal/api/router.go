package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gbone001/hall-frontline-pass/internal/api/handler"
	apimiddleware "github.com/gbone001/hall-frontline-pass/internal/api/middleware"
	"github.com/gbone001/hall-frontline-pass/internal/middleware"
	"github.com/gbone001/hall-frontline-pass/internal/services/grant"
	"github.com/gbone001/hall-frontline-pass/internal/services/ratelimit"
	"github.com/gbone001/hall-frontline-pass/internal/services/registry"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger          *slog.Logger
	AdminTokenHash  string
	GrantService    *grant.Service
	RegistryService *registry.Service
	Limiter         *ratelimit.Service
	Directory       handler.PlayerDirectory
	StorageBackend  string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	grantHandler := handler.NewGrantHandler(cfg.GrantService)
	linkHandler := handler.NewLinkHandler(cfg.RegistryService)
	vipHandler := handler.NewVipHandler(cfg.GrantService)
	playerHandler := handler.NewPlayerHandler(cfg.Directory)
	settingsHandler := handler.NewSettingsHandler(cfg.Limiter, cfg.GrantService)
	healthHandler := handler.NewHealthHandler(cfg.RegistryService, cfg.GrantService, cfg.StorageBackend)

	// Create middleware
	authMiddleware := apimiddleware.Auth(cfg.AdminTokenHash)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := apimiddleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Health check endpoint (no auth)
	api.HandleFunc("/health", healthHandler.Get).Methods(http.MethodGet)

	// Everything else requires the admin token
	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware)

	// Grant routes
	protected.HandleFunc("/grants", grantHandler.Create).Methods(http.MethodPost)

	// Link routes
	protected.HandleFunc("/links", linkHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/links/{player_id}", linkHandler.Get).Methods(http.MethodGet)
	protected.HandleFunc("/links/{owner_id}", linkHandler.Delete).Methods(http.MethodDelete)

	// VIP status routes
	protected.HandleFunc("/vips/{player_id}", vipHandler.Get).Methods(http.MethodGet)

	// Player directory routes
	protected.HandleFunc("/players", playerHandler.Search).Methods(http.MethodGet)

	// Quota and duration routes
	protected.HandleFunc("/operators/{operator_id}/usage", settingsHandler.GetUsage).Methods(http.MethodGet)
	protected.HandleFunc("/limits", settingsHandler.GetLimits).Methods(http.MethodGet)
	protected.HandleFunc("/limits", settingsHandler.UpdateLimits).Methods(http.MethodPut)
	protected.HandleFunc("/duration", settingsHandler.GetDuration).Methods(http.MethodGet)
	protected.HandleFunc("/duration", settingsHandler.UpdateDuration).Methods(http.MethodPut)

	return r
}
