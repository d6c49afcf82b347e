package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, no CGO required

	"github.com/gbone001/hall-frontline-pass/internal/model"
	"github.com/gbone001/hall-frontline-pass/internal/storage"
)

// Storage is a SQLite-backed implementation of the storage interface.
// Opened in WAL mode; a single writer connection avoids SQLITE_BUSY.
type Storage struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at path
func New(path string) (*Storage, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite supports a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Storage{db: db}, nil
}

func createTables(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS player_links (
		owner_id  TEXT NOT NULL UNIQUE,
		player_id TEXT NOT NULL UNIQUE,
		linked_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS operator_usage (
		operator_id      TEXT PRIMARY KEY,
		count            INTEGER NOT NULL,
		window_start_utc TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS metadata (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(query)
	return err
}

// Close closes the database
func (s *Storage) Close() error {
	return s.db.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player link operations

func (s *Storage) SaveLink(ctx context.Context, link *model.PlayerLink) error {
	query := `
		INSERT INTO player_links (owner_id, player_id, linked_at)
		VALUES (?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			player_id = excluded.player_id,
			linked_at = excluded.linked_at`

	_, err := s.db.ExecContext(ctx, query,
		string(link.OwnerID), string(link.PlayerID),
		link.LinkedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save link: %w", err)
	}
	return nil
}

func (s *Storage) GetLink(ctx context.Context, playerID model.PlayerID) (*model.PlayerLink, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT owner_id, player_id, linked_at FROM player_links WHERE player_id = ?`,
		string(playerID))
	return scanLink(row)
}

func (s *Storage) GetLinkByOwner(ctx context.Context, ownerID model.OwnerID) (*model.PlayerLink, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT owner_id, player_id, linked_at FROM player_links WHERE owner_id = ?`,
		string(ownerID))
	return scanLink(row)
}

func scanLink(row *sql.Row) (*model.PlayerLink, error) {
	var ownerID, playerID, linkedAt string
	if err := row.Scan(&ownerID, &playerID, &linkedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrLinkNotFound
		}
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339Nano, linkedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse linked_at: %w", err)
	}

	return &model.PlayerLink{
		OwnerID:  model.OwnerID(ownerID),
		PlayerID: model.PlayerID(playerID),
		LinkedAt: ts,
	}, nil
}

func (s *Storage) DeleteLink(ctx context.Context, playerID model.PlayerID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM player_links WHERE player_id = ?`, string(playerID))
	return err
}

func (s *Storage) CountLinks(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM player_links`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Operator usage operations

func (s *Storage) SaveUsage(ctx context.Context, usage *model.OperatorUsage) error {
	query := `
		INSERT INTO operator_usage (operator_id, count, window_start_utc)
		VALUES (?, ?, ?)
		ON CONFLICT(operator_id) DO UPDATE SET
			count = excluded.count,
			window_start_utc = excluded.window_start_utc`

	_, err := s.db.ExecContext(ctx, query,
		string(usage.OperatorID), usage.Count,
		usage.WindowStartUTC.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to save usage: %w", err)
	}
	return nil
}

func (s *Storage) GetUsage(ctx context.Context, operatorID model.OperatorID) (*model.OperatorUsage, error) {
	var opID, windowStart string
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT operator_id, count, window_start_utc FROM operator_usage WHERE operator_id = ?`,
		string(operatorID)).Scan(&opID, &count, &windowStart)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUsageNotFound
		}
		return nil, err
	}

	ts, err := time.Parse(time.RFC3339Nano, windowStart)
	if err != nil {
		return nil, fmt.Errorf("failed to parse window_start_utc: %w", err)
	}

	return &model.OperatorUsage{
		OperatorID:     model.OperatorID(opID),
		Count:          count,
		WindowStartUTC: ts,
	}, nil
}

// Metadata operations

func (s *Storage) SetMetadata(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	_, err := s.db.ExecContext(ctx, query, key, value)
	return err
}

func (s *Storage) GetMetadata(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", model.ErrMetadataNotFound
		}
		return "", err
	}
	return value, nil
}

func (s *Storage) DeleteMetadata(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key)
	return err
}
