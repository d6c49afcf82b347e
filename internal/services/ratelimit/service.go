package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gbone001/hall-frontline-pass/internal/dependencies/clock"
	"github.com/gbone001/hall-frontline-pass/internal/dependencies/keylock"
	"github.com/gbone001/hall-frontline-pass/internal/model"
	"github.com/gbone001/hall-frontline-pass/internal/storage"
)

// Metadata keys for runtime-adjusted settings
const (
	metadataKeyLimit   = "weekly_limit"
	metadataKeyWeekday = "limit_reset_weekday"
	metadataKeyTime    = "limit_reset_time"
)

// UsageReport is the operator-facing view of a usage window
type UsageReport struct {
	OperatorID model.OperatorID
	Count      int
	Limit      int
	ResetAt    time.Time
}

// Config holds the initial limiter settings. Runtime adjustments persist
// to storage metadata and win over these on restart.
type Config struct {
	Limit    int
	Weekday  time.Weekday
	Hour     int
	Minute   int
	Location *time.Location
}

func DefaultConfig() Config {
	return Config{
		Limit:    5,
		Weekday:  time.Monday,
		Hour:     1,
		Minute:   0,
		Location: time.UTC,
	}
}

// Service gates privileged assigns to a weekly per-operator budget. The
// week rolls over at a configured weekday and wall-clock time evaluated in
// the configured zone.
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	locks   *keylock.KeyedMutex

	mu      sync.RWMutex
	limit   int
	weekday time.Weekday
	hour    int
	minute  int
	loc     *time.Location
}

// New creates a rate limiter
func New(storage storage.Storage, clock clock.Clock, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.Limit <= 0 {
		cfg.Limit = def.Limit
	}
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	return &Service{
		storage: storage,
		clock:   clock,
		locks:   keylock.New(),
		limit:   cfg.Limit,
		weekday: cfg.Weekday,
		hour:    cfg.Hour,
		minute:  cfg.Minute,
		loc:     cfg.Location,
	}
}

// RestoreState applies limit and anchor adjustments persisted by earlier
// runs. Call once after construction.
func (s *Service) RestoreState(ctx context.Context) error {
	if raw, err := s.storage.GetMetadata(ctx, metadataKeyLimit); err == nil {
		n, perr := strconv.Atoi(raw)
		if perr != nil || n <= 0 {
			return fmt.Errorf("stored weekly limit is corrupt: %q", raw)
		}
		s.mu.Lock()
		s.limit = n
		s.mu.Unlock()
	} else if !errors.Is(err, model.ErrMetadataNotFound) {
		return err
	}

	if raw, err := s.storage.GetMetadata(ctx, metadataKeyWeekday); err == nil {
		n, perr := strconv.Atoi(raw)
		if perr != nil || n < int(time.Sunday) || n > int(time.Saturday) {
			return fmt.Errorf("stored reset weekday is corrupt: %q", raw)
		}
		s.mu.Lock()
		s.weekday = time.Weekday(n)
		s.mu.Unlock()
	} else if !errors.Is(err, model.ErrMetadataNotFound) {
		return err
	}

	if raw, err := s.storage.GetMetadata(ctx, metadataKeyTime); err == nil {
		t, perr := time.Parse("15:04", raw)
		if perr != nil {
			return fmt.Errorf("stored reset time is corrupt: %q", raw)
		}
		s.mu.Lock()
		s.hour, s.minute = t.Hour(), t.Minute()
		s.mu.Unlock()
	} else if !errors.Is(err, model.ErrMetadataNotFound) {
		return err
	}

	return nil
}

// TryConsume spends one unit of the operator's weekly budget. The
// read-modify-write is atomic per operator.
func (s *Service) TryConsume(ctx context.Context, operatorID model.OperatorID) error {
	unlock := s.locks.Lock(string(operatorID))
	defer unlock()

	now := s.clock.Now()
	windowStart, windowEnd := s.window(now)
	limit := s.Limit()

	usage, err := s.storage.GetUsage(ctx, operatorID)
	switch {
	case errors.Is(err, model.ErrUsageNotFound):
		usage = &model.OperatorUsage{OperatorID: operatorID, WindowStartUTC: windowStart}
	case err != nil:
		return err
	}

	// A stored window older than the latest anchor has rolled over
	if usage.WindowStartUTC.Before(windowStart) {
		usage.Count = 0
		usage.WindowStartUTC = windowStart
	}

	if usage.Count >= limit {
		return &model.RateLimitError{
			OperatorID: operatorID,
			Limit:      limit,
			ResetAt:    windowEnd,
			Remaining:  windowEnd.Sub(now),
		}
	}

	usage.Count++
	return s.storage.SaveUsage(ctx, usage)
}

// Usage reports the operator's spent budget and when it resets, without
// consuming anything.
func (s *Service) Usage(ctx context.Context, operatorID model.OperatorID) (*UsageReport, error) {
	unlock := s.locks.Lock(string(operatorID))
	defer unlock()

	now := s.clock.Now()
	windowStart, windowEnd := s.window(now)

	count := 0
	usage, err := s.storage.GetUsage(ctx, operatorID)
	switch {
	case errors.Is(err, model.ErrUsageNotFound):
	case err != nil:
		return nil, err
	default:
		if !usage.WindowStartUTC.Before(windowStart) {
			count = usage.Count
		}
	}

	return &UsageReport{
		OperatorID: operatorID,
		Count:      count,
		Limit:      s.Limit(),
		ResetAt:    windowEnd,
	}, nil
}

// SetLimit adjusts the weekly budget and persists the change
func (s *Service) SetLimit(ctx context.Context, n int) error {
	if n <= 0 {
		return fmt.Errorf("limit must be positive (got %d)", n)
	}
	if err := s.storage.SetMetadata(ctx, metadataKeyLimit, strconv.Itoa(n)); err != nil {
		return err
	}
	s.mu.Lock()
	s.limit = n
	s.mu.Unlock()
	return nil
}

// SetAnchor moves the weekly reset instant and persists the change
func (s *Service) SetAnchor(ctx context.Context, weekday time.Weekday, hour, minute int) error {
	if weekday < time.Sunday || weekday > time.Saturday {
		return fmt.Errorf("invalid weekday %d", weekday)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return fmt.Errorf("anchor time %02d:%02d out of range", hour, minute)
	}

	if err := s.storage.SetMetadata(ctx, metadataKeyWeekday, strconv.Itoa(int(weekday))); err != nil {
		return err
	}
	if err := s.storage.SetMetadata(ctx, metadataKeyTime, fmt.Sprintf("%02d:%02d", hour, minute)); err != nil {
		return err
	}

	s.mu.Lock()
	s.weekday, s.hour, s.minute = weekday, hour, minute
	s.mu.Unlock()
	return nil
}

// Limit returns the current weekly budget
func (s *Service) Limit() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limit
}

// Anchor returns the current weekly reset instant settings
func (s *Service) Anchor() (time.Weekday, int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weekday, s.hour, s.minute
}

// Zone returns the IANA name of the zone the anchor is evaluated in
func (s *Service) Zone() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loc.String()
}

// window returns the UTC bounds of the week containing now. The start is
// the most recent anchor instant at or before now; the end is the anchor
// one week later, computed on the calendar so DST shifts stay aligned to
// the wall clock.
func (s *Service) window(now time.Time) (start, end time.Time) {
	s.mu.RLock()
	weekday, hour, minute, loc := s.weekday, s.hour, s.minute, s.loc
	s.mu.RUnlock()

	local := now.In(loc)
	anchor := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	daysBack := (int(local.Weekday()) - int(weekday) + 7) % 7
	anchor = anchor.AddDate(0, 0, -daysBack)
	if anchor.After(local) {
		anchor = anchor.AddDate(0, 0, -7)
	}
	return anchor.UTC(), anchor.AddDate(0, 0, 7).UTC()
}
