package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gbone001/hall-frontline-pass/internal/api"
	"github.com/gbone001/hall-frontline-pass/internal/config"
	"github.com/gbone001/hall-frontline-pass/internal/factory"
	"github.com/gbone001/hall-frontline-pass/internal/services/grant"
	"github.com/gbone001/hall-frontline-pass/internal/services/ratelimit"
	redisstorage "github.com/gbone001/hall-frontline-pass/internal/storage/redis"
	"github.com/gbone001/hall-frontline-pass/internal/transport/crcon"
	"github.com/gbone001/hall-frontline-pass/internal/transport/rcon"
)

func main() {
	// Set up logging with JSON output
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.MustLoad()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.Admin.TokenHash == "" {
		logger.Warn("ADMIN_TOKEN_HASH is not set; every endpoint except health will reject requests")
	}

	factoryCfg, err := buildFactoryConfig(cfg, logger)
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create application factory
	app, err := factory.New(ctx, factoryCfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("close error", slog.String("error", err.Error()))
		}
	}()

	// Create API router
	routerCfg := api.RouterConfig{
		Logger:          logger,
		AdminTokenHash:  cfg.Admin.TokenHash,
		GrantService:    app.GrantService,
		RegistryService: app.RegistryService,
		Limiter:         app.Limiter,
		StorageBackend:  cfg.Storage.Type,
	}
	if app.Directory != nil {
		routerCfg.Directory = app.Directory
	}
	router := api.NewRouter(routerCfg)

	// Create server
	server := api.NewServer(router, api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("storage", cfg.Storage.Type),
		slog.Bool("http_transport", cfg.CrconHTTP.Enabled()),
		slog.Bool("directory", cfg.Directory.Enabled()),
	)

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}

// buildFactoryConfig maps environment configuration onto the factory's
// wiring config
func buildFactoryConfig(cfg *config.Config, logger *slog.Logger) (factory.Config, error) {
	loc, err := cfg.Vip.Location()
	if err != nil {
		return factory.Config{}, err
	}
	weekday, err := config.ParseWeekday(cfg.Vip.ResetWeekday)
	if err != nil {
		return factory.Config{}, err
	}
	hour, minute, err := config.ParseClockTime(cfg.Vip.ResetTime)
	if err != nil {
		return factory.Config{}, err
	}

	factoryCfg := factory.Config{
		Logger:       logger,
		StorageType:  cfg.Storage.Type,
		DatabasePath: cfg.Storage.ResolveDatabasePath(),
		Rcon: rcon.Config{
			Host:             cfg.Rcon.Host,
			Port:             cfg.Rcon.Port,
			Password:         cfg.Rcon.Password,
			Version:          cfg.Rcon.Version,
			ConnectTimeout:   cfg.Rcon.ConnectTimeout,
			HandshakeTimeout: cfg.Rcon.HandshakeTimeout,
			ResponseTimeout:  cfg.Rcon.ResponseTimeout,
		},
		DirectoryURL:      cfg.Directory.DatabaseURL,
		DirectoryCacheTTL: cfg.Directory.CacheTTL,
		Grant: grant.Config{
			DefaultDurationHours: cfg.Vip.DurationHours,
		},
		RateLimit: ratelimit.Config{
			Limit:    cfg.Vip.WeeklyLimit,
			Weekday:  weekday,
			Hour:     hour,
			Minute:   minute,
			Location: loc,
		},
	}

	if cfg.Storage.Type == factory.StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Storage.RedisURL
		factoryCfg.RedisConfig = &redisCfg
	}

	if cfg.CrconHTTP.Enabled() {
		factoryCfg.CrconHTTP = &crcon.Config{
			BaseURL:     cfg.CrconHTTP.BaseURL,
			BearerToken: cfg.CrconHTTP.BearerToken,
			Username:    cfg.CrconHTTP.Username,
			Password:    cfg.CrconHTTP.Password,
			VerifyTLS:   cfg.CrconHTTP.Verify,
			Timeout:     cfg.CrconHTTP.Timeout(),
		}
	}

	return factoryCfg, nil
}
