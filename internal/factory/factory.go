package factory

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/gbone001/hall-frontline-pass/internal/dependencies/clock"
	"github.com/gbone001/hall-frontline-pass/internal/directory"
	"github.com/gbone001/hall-frontline-pass/internal/notify"
	"github.com/gbone001/hall-frontline-pass/internal/services/grant"
	"github.com/gbone001/hall-frontline-pass/internal/services/ratelimit"
	"github.com/gbone001/hall-frontline-pass/internal/services/registry"
	"github.com/gbone001/hall-frontline-pass/internal/storage"
	"github.com/gbone001/hall-frontline-pass/internal/storage/memory"
	redisstorage "github.com/gbone001/hall-frontline-pass/internal/storage/redis"
	"github.com/gbone001/hall-frontline-pass/internal/storage/sqlite"
	"github.com/gbone001/hall-frontline-pass/internal/transport/crcon"
	"github.com/gbone001/hall-frontline-pass/internal/transport/rcon"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
	StorageTypeSqlite = "sqlite"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock clock.Clock

	// Services
	RegistryService *registry.Service
	Limiter         *ratelimit.Service
	GrantService    *grant.Service

	// Directory is nil when no player database is configured
	Directory *directory.Directory
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("sqlite", "redis" or "memory")
	// If empty, defaults to "sqlite"
	StorageType string
	// DatabasePath is the sqlite file location (required if StorageType is "sqlite")
	DatabasePath string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// Rcon holds the game server console settings for the socket transport
	Rcon rcon.Config
	// CrconHTTP holds the web API settings; nil leaves the HTTP transport out
	CrconHTTP *crcon.Config
	// DirectoryURL is the CRCON player database DSN; empty disables name lookups
	DirectoryURL string
	// DirectoryCacheTTL bounds how long directory lookups are cached
	DirectoryCacheTTL time.Duration
	// Grant holds grant policy settings
	Grant grant.Config
	// RateLimit holds the initial weekly quota settings
	RateLimit ratelimit.Config
}

// New creates a new application with all dependencies wired
func New(ctx context.Context, cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	// Create storage based on type
	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeSqlite
	}

	switch storageType {
	case StorageTypeSqlite:
		if cfg.DatabasePath == "" {
			return nil, errors.New("DatabasePath required when StorageType is sqlite")
		}
		sqliteStore, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		store = sqliteStore
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	case StorageTypeMemory:
		store = memory.New()
	default:
		return nil, errors.New("invalid StorageType: must be 'sqlite', 'redis' or 'memory'")
	}

	// Create external dependencies
	clk := clock.New()

	// Transports in attempt order: the web API when configured, then the
	// game server console
	var transports []grant.Transport
	if cfg.CrconHTTP != nil {
		transports = append(transports, crcon.NewClient(*cfg.CrconHTTP, logger))
	}
	transports = append(transports, rcon.NewTransport(cfg.Rcon, logger))

	var dir *directory.Directory
	if cfg.DirectoryURL != "" {
		d, err := directory.New(cfg.DirectoryURL, cfg.DirectoryCacheTTL, clk, logger)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		dir = d
	}

	app := newWithDependencies(store, clk, transports, dir, cfg.Grant, cfg.RateLimit, logger)

	// Limit and anchor adjustments persisted by earlier runs win over the
	// configured settings
	if err := app.Limiter.RestoreState(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}

	return app, nil
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	transports []grant.Transport,
	dir *directory.Directory,
	grantCfg grant.Config,
	limitCfg ratelimit.Config,
	logger *slog.Logger,
) *App {
	notifier := notify.NewLogNotifier(logger)
	registryService := registry.New(store, clk, notifier)
	limiter := ratelimit.New(store, clk, limitCfg)

	// A nil *directory.Directory stored in the interface would not compare
	// equal to nil inside the orchestrator
	var names grant.NameResolver
	if dir != nil {
		names = dir
	}

	grantService := grant.New(grant.Deps{
		Transports: transports,
		Registry:   registryService,
		Limiter:    limiter,
		Storage:    store,
		Directory:  names,
		Clock:      clk,
		Logger:     logger,
	}, grantCfg)

	return &App{
		Storage:         store,
		Clock:           clk,
		RegistryService: registryService,
		Limiter:         limiter,
		GrantService:    grantService,
		Directory:       dir,
	}
}

// Close releases storage and directory connections
func (a *App) Close() error {
	var errs []error
	if a.Directory != nil {
		errs = append(errs, a.Directory.Close())
	}
	errs = append(errs, a.Storage.Close())
	return errors.Join(errs...)
}
