package registry

import (
	"context"
	"errors"

	"github.com/gbone001/hall-frontline-pass/internal/dependencies/clock"
	"github.com/gbone001/hall-frontline-pass/internal/dependencies/keylock"
	"github.com/gbone001/hall-frontline-pass/internal/model"
	"github.com/gbone001/hall-frontline-pass/internal/notify"
	"github.com/gbone001/hall-frontline-pass/internal/storage"
)

// Service guards the player link registry. A player id belongs to at most
// one owner at any instant; competing claims lose with a DuplicateIDError
// and raise a moderation notification.
type Service struct {
	storage  storage.Storage
	clock    clock.Clock
	notifier notify.Notifier
	locks    *keylock.KeyedMutex
}

// New creates a registry service
func New(storage storage.Storage, clock clock.Clock, notifier notify.Notifier) *Service {
	return &Service{
		storage:  storage,
		clock:    clock,
		notifier: notifier,
		locks:    keylock.New(),
	}
}

// Register claims a player id for an owner. Claims are serialized per
// player id, so two concurrent claims cannot both observe an empty slot.
// Re-registering an existing claim by the same owner is an idempotent
// update that refreshes the claim time; an owner claiming a new player id
// replaces their previous link.
func (s *Service) Register(ctx context.Context, ownerID model.OwnerID, playerID model.PlayerID) (*model.PlayerLink, error) {
	unlock := s.locks.Lock(string(playerID))
	defer unlock()

	existing, err := s.storage.GetLink(ctx, playerID)
	switch {
	case err == nil && existing.OwnerID != ownerID:
		attempted := model.PlayerLink{
			OwnerID:  ownerID,
			PlayerID: playerID,
			LinkedAt: s.clock.Now(),
		}
		s.notifier.NotifyDuplicate(ctx, *existing, attempted)
		return nil, &model.DuplicateIDError{
			PlayerID:         playerID,
			ExistingOwnerID:  existing.OwnerID,
			AttemptedOwnerID: ownerID,
		}
	case err != nil && !errors.Is(err, model.ErrLinkNotFound):
		return nil, err
	}

	link := &model.PlayerLink{
		OwnerID:  ownerID,
		PlayerID: playerID,
		LinkedAt: s.clock.Now(),
	}
	if err := s.storage.SaveLink(ctx, link); err != nil {
		return nil, err
	}
	return link, nil
}

// Lookup returns the owner's current link
func (s *Service) Lookup(ctx context.Context, ownerID model.OwnerID) (*model.PlayerLink, error) {
	return s.storage.GetLinkByOwner(ctx, ownerID)
}

// LookupPlayer returns the link holding a player id
func (s *Service) LookupPlayer(ctx context.Context, playerID model.PlayerID) (*model.PlayerLink, error) {
	return s.storage.GetLink(ctx, playerID)
}

// Unregister drops the owner's link. Missing links are not an error.
func (s *Service) Unregister(ctx context.Context, ownerID model.OwnerID) error {
	link, err := s.storage.GetLinkByOwner(ctx, ownerID)
	if errors.Is(err, model.ErrLinkNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(string(link.PlayerID))
	defer unlock()
	return s.storage.DeleteLink(ctx, link.PlayerID)
}

// Count reports how many links are registered
func (s *Service) Count(ctx context.Context) (int, error) {
	return s.storage.CountLinks(ctx)
}
