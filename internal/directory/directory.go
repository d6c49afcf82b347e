package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"

	"github.com/gbone001/hall-frontline-pass/internal/dependencies/clock"
	"github.com/gbone001/hall-frontline-pass/internal/model"
)

// The CRCON database keeps every name a player has been seen with; the
// newest row wins.
const (
	latestNameQuery = `
		SELECT name
		FROM player_names
		WHERE playersteamid_id = $1
		ORDER BY last_seen DESC
		LIMIT 1`

	searchQuery = `
		SELECT DISTINCT ON (pn.playersteamid_id)
			pn.playersteamid_id,
			pn.name
		FROM player_names pn
		WHERE pn.name ILIKE $1
		ORDER BY pn.playersteamid_id, pn.last_seen DESC
		LIMIT $2`
)

// Entry is one directory search hit
type Entry struct {
	PlayerID model.PlayerID
	Name     string
}

// Directory resolves player display names from the CRCON database. Every
// lookup is best effort: database trouble degrades to empty results and a
// log line, never to a failed grant.
type Directory struct {
	db       *sql.DB
	logger   *slog.Logger
	clock    clock.Clock
	cacheTTL time.Duration

	mu    sync.Mutex
	cache map[model.PlayerID]cacheEntry
}

// cacheEntry also caches misses so unknown ids do not hammer the database
type cacheEntry struct {
	fetchedAt time.Time
	name      string
}

// New opens the CRCON player database
func New(databaseURL string, cacheTTL time.Duration, clock clock.Clock, logger *slog.Logger) (*Directory, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open player directory: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewWithDB(db, cacheTTL, clock, logger), nil
}

// NewWithDB wraps an existing handle
func NewWithDB(db *sql.DB, cacheTTL time.Duration, clock clock.Clock, logger *slog.Logger) *Directory {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Directory{
		db:       db,
		logger:   logger,
		clock:    clock,
		cacheTTL: cacheTTL,
		cache:    make(map[model.PlayerID]cacheEntry),
	}
}

// LookupName returns the player's most recently seen name, or "" when the
// player is unknown or the database is unreachable.
func (d *Directory) LookupName(ctx context.Context, playerID model.PlayerID) string {
	if playerID == "" {
		return ""
	}

	now := d.clock.Now()
	d.mu.Lock()
	if cached, ok := d.cache[playerID]; ok && now.Sub(cached.fetchedAt) <= d.cacheTTL {
		d.mu.Unlock()
		return cached.name
	}
	d.mu.Unlock()

	var name string
	err := d.db.QueryRowContext(ctx, latestNameQuery, string(playerID)).Scan(&name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		name = ""
	case err != nil:
		d.logger.Warn("player name lookup failed", "player_id", playerID, "error", err)
		name = ""
	default:
		name = strings.TrimSpace(name)
	}

	d.mu.Lock()
	d.cache[playerID] = cacheEntry{fetchedAt: now, name: name}
	d.mu.Unlock()
	return name
}

// Search returns players whose latest name starts with prefix
func (d *Directory) Search(ctx context.Context, prefix string, limit int) []Entry {
	if prefix == "" {
		return nil
	}
	limit = clampLimit(limit)

	rows, err := d.db.QueryContext(ctx, searchQuery, prefix+"%", limit)
	if err != nil {
		d.logger.Warn("player search failed", "prefix", prefix, "error", err)
		return nil
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var id, name sql.NullString
		if err := rows.Scan(&id, &name); err != nil {
			d.logger.Warn("player search row scan failed", "error", err)
			return entries
		}
		if !id.Valid || !name.Valid {
			continue
		}
		playerID := strings.TrimSpace(id.String)
		trimmed := strings.TrimSpace(name.String)
		if playerID == "" || trimmed == "" {
			continue
		}
		entries = append(entries, Entry{PlayerID: model.PlayerID(playerID), Name: trimmed})
	}
	if err := rows.Err(); err != nil {
		d.logger.Warn("player search failed mid-read", "prefix", prefix, "error", err)
	}
	return entries
}

// Close releases the database handle
func (d *Directory) Close() error {
	return d.db.Close()
}

func clampLimit(limit int) int {
	if limit < 1 {
		return 1
	}
	if limit > 100 {
		return 100
	}
	return limit
}
