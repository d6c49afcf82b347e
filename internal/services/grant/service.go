package grant

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/gbone001/hall-frontline-pass/internal/dependencies/clock"
	"github.com/gbone001/hall-frontline-pass/internal/dependencies/keylock"
	"github.com/gbone001/hall-frontline-pass/internal/model"
	"github.com/gbone001/hall-frontline-pass/internal/services/ratelimit"
	"github.com/gbone001/hall-frontline-pass/internal/services/registry"
	"github.com/gbone001/hall-frontline-pass/internal/storage"
)

// metadataKeyDuration stores the runtime-adjusted default grant length
const metadataKeyDuration = "vip_duration_hours"

// Transport performs one privilege grant attempt against a game server
type Transport interface {
	Kind() model.TransportKind
	GrantVip(ctx context.Context, order model.GrantOrder) (string, error)
}

// StatusQuerier is the optional capability of transports that can report a
// player's current privilege state
type StatusQuerier interface {
	QueryVip(ctx context.Context, playerID model.PlayerID) (*model.VipStatus, error)
}

// NameResolver enriches orders with a display name. Lookups are best
// effort.
type NameResolver interface {
	LookupName(ctx context.Context, playerID model.PlayerID) string
}

// Config holds grant policy settings
type Config struct {
	// DefaultDurationHours applies when the request carries no duration
	// and no runtime override is stored
	DefaultDurationHours float64
	// AttemptTimeout bounds each transport attempt
	AttemptTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		DefaultDurationHours: 24,
		AttemptTimeout:       30 * time.Second,
	}
}

// Deps are the orchestrator's collaborators. Transports are tried in
// order; by convention the HTTP transport comes before the socket
// transport when both are configured.
type Deps struct {
	Transports []Transport
	Registry   *registry.Service
	Limiter    *ratelimit.Service
	Storage    storage.Storage
	Directory  NameResolver
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Service orchestrates privilege grants: it guards the registry, spends
// operator quota, resolves the grant window and walks the transport list
// until one succeeds.
type Service struct {
	transports []Transport
	registry   *registry.Service
	limiter    *ratelimit.Service
	storage    storage.Storage
	directory  NameResolver
	clock      clock.Clock
	logger     *slog.Logger
	locks      *keylock.KeyedMutex
	cfg        Config
}

// New creates the orchestrator
func New(deps Deps, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.DefaultDurationHours <= 0 {
		cfg.DefaultDurationHours = def.DefaultDurationHours
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = def.AttemptTimeout
	}
	return &Service{
		transports: deps.Transports,
		registry:   deps.Registry,
		limiter:    deps.Limiter,
		storage:    deps.Storage,
		directory:  deps.Directory,
		clock:      deps.Clock,
		logger:     deps.Logger,
		locks:      keylock.New(),
		cfg:        cfg,
	}
}

// Grant performs one privilege grant end to end. Work is serialized per
// player id. The registry claim happens before quota is spent, so a
// duplicate rejection costs the operator nothing; a quota unit spent on a
// grant that then fails on every transport is not refunded.
func (s *Service) Grant(ctx context.Context, req model.GrantRequest) (*model.GrantResult, error) {
	if req.PlayerID == "" {
		return nil, fmt.Errorf("player id is required")
	}
	if req.OperatorID == "" {
		return nil, fmt.Errorf("operator id is required")
	}
	if len(s.transports) == 0 {
		return nil, fmt.Errorf("%w: no transports configured", model.ErrTransport)
	}

	unlock := s.locks.Lock(string(req.PlayerID))
	defer unlock()

	if req.OwnerID != "" {
		if _, err := s.registry.Register(ctx, req.OwnerID, req.PlayerID); err != nil {
			return nil, err
		}
	}

	if err := s.limiter.TryConsume(ctx, req.OperatorID); err != nil {
		return nil, err
	}

	hours := req.DurationHours
	if hours <= 0 {
		hours = s.DefaultDuration(ctx)
	}

	now := s.clock.Now().UTC()
	expiry := now.Add(time.Duration(hours * float64(time.Hour)))

	order := model.GrantOrder{
		PlayerID:     req.PlayerID,
		ExpiresAtUTC: expiry,
		Description:  req.Comment,
	}
	if s.directory != nil {
		order.PlayerName = s.directory.LookupName(ctx, req.PlayerID)
	}

	requestID := uuid.New().String()
	var attempts []model.TransportAttempt
	var statusLines []string

	for _, transport := range s.transports {
		kind := transport.Kind()

		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
		msg, err := transport.GrantVip(attemptCtx, order)
		cancel()

		if err != nil {
			s.logger.Warn("transport attempt failed",
				"request_id", requestID,
				"transport", kind,
				"player_id", req.PlayerID,
				"error", err,
			)
			attempts = append(attempts, model.TransportAttempt{Transport: kind, Err: err})
			statusLines = append(statusLines, fmt.Sprintf("%s: failed: %v", kind, err))
			continue
		}

		statusLines = append(statusLines, fmt.Sprintf("%s: %s", kind, msg))
		s.logger.Info("vip granted",
			"request_id", requestID,
			"transport", kind,
			"player_id", req.PlayerID,
			"operator_id", req.OperatorID,
			"expires_at", expiry,
		)
		return &model.GrantResult{
			RequestID:     requestID,
			TransportUsed: kind,
			ExpiresAtUTC:  expiry,
			RawMessage:    msg,
			StatusLines:   statusLines,
		}, nil
	}

	return nil, &model.GrantError{Attempts: attempts}
}

// QueryVip asks the transports, in order, for the player's privilege
// state. The first transport able to answer is trusted; transports
// without query support are skipped.
func (s *Service) QueryVip(ctx context.Context, playerID model.PlayerID) (*model.VipStatus, error) {
	if playerID == "" {
		return nil, fmt.Errorf("player id is required")
	}

	var lastErr error
	queried := false
	for _, transport := range s.transports {
		querier, ok := transport.(StatusQuerier)
		if !ok {
			continue
		}
		queried = true

		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
		status, err := querier.QueryVip(attemptCtx, playerID)
		cancel()

		if err != nil {
			s.logger.Warn("vip status query failed",
				"transport", transport.Kind(),
				"player_id", playerID,
				"error", err,
			)
			lastErr = err
			continue
		}
		return status, nil
	}

	if !queried {
		return nil, fmt.Errorf("%w: no configured transport can query vip status", model.ErrTransport)
	}
	return nil, lastErr
}

// DefaultDuration returns the grant length used when a request does not
// specify one. A runtime override stored by SetDefaultDuration wins over
// the configured default.
func (s *Service) DefaultDuration(ctx context.Context) float64 {
	raw, err := s.storage.GetMetadata(ctx, metadataKeyDuration)
	if err == nil {
		if hours, perr := strconv.ParseFloat(raw, 64); perr == nil && hours > 0 {
			return hours
		}
		s.logger.Warn("stored vip duration is corrupt", "value", raw)
	}
	return s.cfg.DefaultDurationHours
}

// SetDefaultDuration adjusts the default grant length at runtime
func (s *Service) SetDefaultDuration(ctx context.Context, hours float64) error {
	if hours <= 0 {
		return fmt.Errorf("duration must be positive (got %g)", hours)
	}
	return s.storage.SetMetadata(ctx, metadataKeyDuration, strconv.FormatFloat(hours, 'g', -1, 64))
}
