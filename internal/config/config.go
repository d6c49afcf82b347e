package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	Rcon      RconConfig
	CrconHTTP CrconHTTPConfig
	Directory DirectoryConfig
	Vip       VipConfig
	Storage   StorageConfig
	Admin     AdminConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// RconConfig holds the game server console connection settings.
type RconConfig struct {
	Host             string        `envconfig:"RCON_HOST" default:""`
	Port             int           `envconfig:"RCON_PORT" default:"0"`
	Password         string        `envconfig:"RCON_PASSWORD" default:""`
	Version          int           `envconfig:"RCON_VERSION" default:"2"`
	ConnectTimeout   time.Duration `envconfig:"RCON_CONNECT_TIMEOUT" default:"10s"`
	HandshakeTimeout time.Duration `envconfig:"RCON_HANDSHAKE_TIMEOUT" default:"10s"`
	ResponseTimeout  time.Duration `envconfig:"RCON_RESPONSE_TIMEOUT" default:"10s"`
}

// CrconHTTPConfig holds the CRCON web API settings. The whole transport is
// optional; it is enabled by setting the base URL.
type CrconHTTPConfig struct {
	BaseURL     string `envconfig:"CRCON_HTTP_BASE_URL" default:""`
	BearerToken string `envconfig:"CRCON_HTTP_BEARER_TOKEN" default:""`
	Username    string `envconfig:"CRCON_HTTP_USERNAME" default:""`
	Password    string `envconfig:"CRCON_HTTP_PASSWORD" default:""`
	Verify      bool   `envconfig:"CRCON_HTTP_VERIFY" default:"true"`
	// TimeoutSeconds is numeric seconds, matching the deployment convention
	TimeoutSeconds int `envconfig:"CRCON_HTTP_TIMEOUT" default:"20"`
}

// DirectoryConfig holds the optional CRCON player database settings used
// for name lookups.
type DirectoryConfig struct {
	DatabaseURL string        `envconfig:"CRCON_DATABASE_URL" default:""`
	CacheTTL    time.Duration `envconfig:"DIRECTORY_CACHE_TTL" default:"5m"`
}

// VipConfig holds grant policy settings.
type VipConfig struct {
	DurationHours float64 `envconfig:"VIP_DURATION_HOURS" default:"24"`
	TimezoneName  string  `envconfig:"LOCAL_TIMEZONE" default:"UTC"`
	WeeklyLimit   int     `envconfig:"VIP_WEEKLY_LIMIT" default:"5"`
	ResetWeekday  string  `envconfig:"VIP_RESET_WEEKDAY" default:"Monday"`
	ResetTime     string  `envconfig:"VIP_RESET_TIME" default:"01:00"`
}

// StorageConfig holds link/usage persistence settings.
type StorageConfig struct {
	Type         string `envconfig:"STORAGE_TYPE" default:"sqlite"` // sqlite, redis, or memory
	DatabasePath string `envconfig:"DATABASE_PATH" default:""`
	RedisURL     string `envconfig:"REDIS_URL" default:"redis://localhost:6379"`
}

// AdminConfig holds the management API credentials.
type AdminConfig struct {
	// TokenHash is the bcrypt hash of the admin bearer token. An empty
	// value disables the management endpoints that mutate state.
	TokenHash string `envconfig:"ADMIN_TOKEN_HASH" default:""`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Enabled reports whether the HTTP transport is configured.
func (c *CrconHTTPConfig) Enabled() bool {
	return c.BaseURL != ""
}

// Timeout returns the request timeout as a duration.
func (c *CrconHTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Enabled reports whether the player directory is configured.
func (d *DirectoryConfig) Enabled() bool {
	return d.DatabaseURL != ""
}

// Location resolves the configured IANA time zone.
func (v *VipConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(v.TimezoneName)
	if err != nil {
		return nil, fmt.Errorf("LOCAL_TIMEZONE must be a valid IANA timezone (got %q)", v.TimezoneName)
	}
	return loc, nil
}

// ResolveDatabasePath returns the sqlite file location. An explicit
// DATABASE_PATH wins; otherwise the first mounted data dir is used, so a
// Railway volume keeps the database across deploys.
func (s *StorageConfig) ResolveDatabasePath() string {
	if s.DatabasePath != "" {
		return s.DatabasePath
	}

	fallbackDirs := []string{
		os.Getenv("RAILWAY_VOLUME_MOUNT_PATH"),
		os.Getenv("RAILWAY_VOLUME_DIR"),
		os.Getenv("RAILWAY_DATA_DIR"),
		os.Getenv("DATA_DIR"),
	}
	for _, dir := range fallbackDirs {
		if dir != "" {
			return filepath.Join(dir, "vip-data.db")
		}
	}
	return "vip-data.db"
}

// Validate checks the settings the application cannot run without. All
// problems are reported together rather than one at a time.
func (c *Config) Validate() error {
	var errs []error

	if c.Rcon.Host == "" {
		errs = append(errs, errors.New("RCON_HOST is required"))
	}
	if c.Rcon.Port <= 0 || c.Rcon.Port > 65535 {
		errs = append(errs, errors.New("RCON_PORT must be a valid port"))
	}
	if c.Rcon.Password == "" {
		errs = append(errs, errors.New("RCON_PASSWORD is required"))
	}
	if c.Vip.DurationHours <= 0 {
		errs = append(errs, errors.New("VIP_DURATION_HOURS must be greater than zero"))
	}
	if c.Vip.WeeklyLimit <= 0 {
		errs = append(errs, errors.New("VIP_WEEKLY_LIMIT must be greater than zero"))
	}
	if _, err := c.Vip.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseWeekday(c.Vip.ResetWeekday); err != nil {
		errs = append(errs, err)
	}
	if _, _, err := ParseClockTime(c.Vip.ResetTime); err != nil {
		errs = append(errs, err)
	}
	if c.CrconHTTP.Enabled() {
		hasBearer := c.CrconHTTP.BearerToken != ""
		hasCreds := c.CrconHTTP.Username != "" && c.CrconHTTP.Password != ""
		if !hasBearer && !hasCreds {
			errs = append(errs, errors.New("CRCON_HTTP_BASE_URL is set but no bearer token or username/password given"))
		}
	}
	switch c.Storage.Type {
	case "sqlite", "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("STORAGE_TYPE must be sqlite, redis or memory (got %q)", c.Storage.Type))
	}

	return errors.Join(errs...)
}

// ParseWeekday maps a day name to time.Weekday, case-insensitively.
func ParseWeekday(name string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(name, d.String()) {
			return d, nil
		}
	}
	return 0, fmt.Errorf("VIP_RESET_WEEKDAY must be a day name (got %q)", name)
}

// ParseClockTime parses an HH:MM wall-clock string.
func ParseClockTime(s string) (hour, minute int, err error) {
	t, perr := time.Parse("15:04", s)
	if perr != nil {
		return 0, 0, fmt.Errorf("VIP_RESET_TIME must be HH:MM (got %q)", s)
	}
	return t.Hour(), t.Minute(), nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
