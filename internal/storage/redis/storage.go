package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gbone001/hall-frontline-pass/internal/model"
	"github.com/gbone001/hall-frontline-pass/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player link operations

func (s *Storage) SaveLink(ctx context.Context, link *model.PlayerLink) error {
	data, err := json.Marshal(link)
	if err != nil {
		return err
	}

	// An owner holds one active link; find any previous one so its player
	// index entry can be dropped in the same pipeline
	prev, err := s.GetLinkByOwner(ctx, link.OwnerID)
	if err != nil && !errors.Is(err, model.ErrLinkNotFound) {
		return err
	}

	pipe := s.client.TxPipeline()
	if prev != nil && prev.PlayerID != link.PlayerID {
		pipe.Del(ctx, linkPlayerKey(prev.PlayerID))
		pipe.SRem(ctx, linkIndexKey(), string(prev.PlayerID))
	}
	pipe.Set(ctx, linkPlayerKey(link.PlayerID), data, 0)
	pipe.Set(ctx, linkOwnerKey(link.OwnerID), data, 0)
	pipe.SAdd(ctx, linkIndexKey(), string(link.PlayerID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetLink(ctx context.Context, playerID model.PlayerID) (*model.PlayerLink, error) {
	return s.getLink(ctx, linkPlayerKey(playerID))
}

func (s *Storage) GetLinkByOwner(ctx context.Context, ownerID model.OwnerID) (*model.PlayerLink, error) {
	return s.getLink(ctx, linkOwnerKey(ownerID))
}

func (s *Storage) getLink(ctx context.Context, key string) (*model.PlayerLink, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrLinkNotFound
		}
		return nil, err
	}

	var link model.PlayerLink
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *Storage) DeleteLink(ctx context.Context, playerID model.PlayerID) error {
	link, err := s.GetLink(ctx, playerID)
	if err != nil {
		if errors.Is(err, model.ErrLinkNotFound) {
			return nil
		}
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, linkPlayerKey(playerID))
	pipe.Del(ctx, linkOwnerKey(link.OwnerID))
	pipe.SRem(ctx, linkIndexKey(), string(playerID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) CountLinks(ctx context.Context) (int, error) {
	count, err := s.client.SCard(ctx, linkIndexKey()).Result()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// Operator usage operations

func (s *Storage) SaveUsage(ctx context.Context, usage *model.OperatorUsage) error {
	data, err := json.Marshal(usage)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, usageKey(usage.OperatorID), data, s.cfg.UsageTTL).Err()
}

func (s *Storage) GetUsage(ctx context.Context, operatorID model.OperatorID) (*model.OperatorUsage, error) {
	data, err := s.client.Get(ctx, usageKey(operatorID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUsageNotFound
		}
		return nil, err
	}

	var usage model.OperatorUsage
	if err := json.Unmarshal(data, &usage); err != nil {
		return nil, err
	}
	return &usage, nil
}

// Metadata operations

func (s *Storage) SetMetadata(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, metadataKey(key), value, 0).Err()
}

func (s *Storage) GetMetadata(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, metadataKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", model.ErrMetadataNotFound
		}
		return "", err
	}
	return value, nil
}

func (s *Storage) DeleteMetadata(ctx context.Context, key string) error {
	return s.client.Del(ctx, metadataKey(key)).Err()
}
