package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/gbone001/hall-frontline-pass/internal/model"
)

type StorageSuite struct {
	suite.Suite
	mini    *miniredis.Miniredis
	storage *Storage
	ctx     context.Context
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupTest() {
	s.mini = miniredis.RunT(s.T())

	client := redis.NewClient(&redis.Options{
		Addr: s.mini.Addr(),
	})

	cfg := DefaultConfig()
	cfg.UsageTTL = time.Hour

	s.storage = NewWithClient(client, cfg)
	s.ctx = context.Background()
}

func (s *StorageSuite) TearDownTest() {
	if s.storage != nil {
		_ = s.storage.Close()
	}
	if s.mini != nil {
		s.mini.Close()
	}
}

// Player link tests

func (s *StorageSuite) TestSaveAndGetLink() {
	link := &model.PlayerLink{
		OwnerID:  "owner-1",
		PlayerID: "76561198000000001",
		LinkedAt: time.Now().UTC(),
	}

	err := s.storage.SaveLink(s.ctx, link)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetLink(s.ctx, "76561198000000001")
	s.Require().NoError(err)
	s.Equal(link.OwnerID, retrieved.OwnerID)
	s.Equal(link.PlayerID, retrieved.PlayerID)
}

func (s *StorageSuite) TestGetLinkNotFound() {
	_, err := s.storage.GetLink(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrLinkNotFound)
}

func (s *StorageSuite) TestGetLinkByOwner() {
	link := &model.PlayerLink{OwnerID: "owner-1", PlayerID: "76561198000000001"}
	_ = s.storage.SaveLink(s.ctx, link)

	retrieved, err := s.storage.GetLinkByOwner(s.ctx, "owner-1")
	s.Require().NoError(err)
	s.Equal(link.PlayerID, retrieved.PlayerID)
}

func (s *StorageSuite) TestReLinkReplacesOldPlayerIndex() {
	_ = s.storage.SaveLink(s.ctx, &model.PlayerLink{OwnerID: "owner-1", PlayerID: "player-a"})
	_ = s.storage.SaveLink(s.ctx, &model.PlayerLink{OwnerID: "owner-1", PlayerID: "player-b"})

	_, err := s.storage.GetLink(s.ctx, "player-a")
	s.ErrorIs(err, model.ErrLinkNotFound)

	retrieved, err := s.storage.GetLink(s.ctx, "player-b")
	s.Require().NoError(err)
	s.Equal(model.OwnerID("owner-1"), retrieved.OwnerID)

	count, err := s.storage.CountLinks(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *StorageSuite) TestLinkHasNoTTL() {
	link := &model.PlayerLink{OwnerID: "owner-1", PlayerID: "player-a"}
	_ = s.storage.SaveLink(s.ctx, link)

	ttl := s.mini.TTL(linkPlayerKey("player-a"))
	s.Equal(time.Duration(0), ttl, "Links should not expire")
}

func (s *StorageSuite) TestDeleteLink() {
	link := &model.PlayerLink{OwnerID: "owner-1", PlayerID: "player-a"}
	_ = s.storage.SaveLink(s.ctx, link)

	err := s.storage.DeleteLink(s.ctx, "player-a")
	s.Require().NoError(err)

	_, err = s.storage.GetLink(s.ctx, "player-a")
	s.ErrorIs(err, model.ErrLinkNotFound)
	_, err = s.storage.GetLinkByOwner(s.ctx, "owner-1")
	s.ErrorIs(err, model.ErrLinkNotFound)

	count, err := s.storage.CountLinks(s.ctx)
	s.Require().NoError(err)
	s.Equal(0, count)
}

func (s *StorageSuite) TestDeleteLinkMissingIsNoop() {
	err := s.storage.DeleteLink(s.ctx, "nonexistent")
	s.NoError(err)
}

func (s *StorageSuite) TestCountLinks() {
	_ = s.storage.SaveLink(s.ctx, &model.PlayerLink{OwnerID: "owner-1", PlayerID: "player-a"})
	_ = s.storage.SaveLink(s.ctx, &model.PlayerLink{OwnerID: "owner-2", PlayerID: "player-b"})

	count, err := s.storage.CountLinks(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, count)
}

// Operator usage tests

func (s *StorageSuite) TestSaveAndGetUsage() {
	usage := &model.OperatorUsage{
		OperatorID:     "op-1",
		Count:          3,
		WindowStartUTC: time.Date(2024, 1, 1, 1, 0, 0, 0, time.UTC),
	}

	err := s.storage.SaveUsage(s.ctx, usage)
	s.Require().NoError(err)

	retrieved, err := s.storage.GetUsage(s.ctx, "op-1")
	s.Require().NoError(err)
	s.Equal(3, retrieved.Count)
	s.True(usage.WindowStartUTC.Equal(retrieved.WindowStartUTC))
}

func (s *StorageSuite) TestGetUsageNotFound() {
	_, err := s.storage.GetUsage(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrUsageNotFound)
}

func (s *StorageSuite) TestUsageTTL() {
	usage := &model.OperatorUsage{OperatorID: "op-1", Count: 1}
	_ = s.storage.SaveUsage(s.ctx, usage)

	ttl := s.mini.TTL(usageKey("op-1"))
	s.True(ttl > 0, "Usage windows should expire eventually")
}

// Metadata tests

func (s *StorageSuite) TestSetAndGetMetadata() {
	err := s.storage.SetMetadata(s.ctx, "vip_duration_hours", "48")
	s.Require().NoError(err)

	value, err := s.storage.GetMetadata(s.ctx, "vip_duration_hours")
	s.Require().NoError(err)
	s.Equal("48", value)
}

func (s *StorageSuite) TestGetMetadataNotFound() {
	_, err := s.storage.GetMetadata(s.ctx, "nonexistent")
	s.ErrorIs(err, model.ErrMetadataNotFound)
}

func (s *StorageSuite) TestDeleteMetadata() {
	_ = s.storage.SetMetadata(s.ctx, "key", "value")

	err := s.storage.DeleteMetadata(s.ctx, "key")
	s.Require().NoError(err)

	_, err = s.storage.GetMetadata(s.ctx, "key")
	s.ErrorIs(err, model.ErrMetadataNotFound)
}
