package memory

import (
	"context"
	"sync"

	"github.com/gbone001/hall-frontline-pass/internal/model"
	"github.com/gbone001/hall-frontline-pass/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	linksByPlayer map[model.PlayerID]*model.PlayerLink
	linksByOwner  map[model.OwnerID]*model.PlayerLink
	usage         map[model.OperatorID]*model.OperatorUsage
	metadata      map[string]string
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		linksByPlayer: make(map[model.PlayerID]*model.PlayerLink),
		linksByOwner:  make(map[model.OwnerID]*model.PlayerLink),
		usage:         make(map[model.OperatorID]*model.OperatorUsage),
		metadata:      make(map[string]string),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Player link operations

func (s *Storage) SaveLink(ctx context.Context, link *model.PlayerLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// An owner holds one active link; re-linking drops the old player index
	if prev, ok := s.linksByOwner[link.OwnerID]; ok && prev.PlayerID != link.PlayerID {
		delete(s.linksByPlayer, prev.PlayerID)
	}
	cp := *link
	s.linksByPlayer[cp.PlayerID] = &cp
	s.linksByOwner[cp.OwnerID] = &cp
	return nil
}

func (s *Storage) GetLink(ctx context.Context, playerID model.PlayerID) (*model.PlayerLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.linksByPlayer[playerID]
	if !ok {
		return nil, model.ErrLinkNotFound
	}
	cp := *link
	return &cp, nil
}

func (s *Storage) GetLinkByOwner(ctx context.Context, ownerID model.OwnerID) (*model.PlayerLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	link, ok := s.linksByOwner[ownerID]
	if !ok {
		return nil, model.ErrLinkNotFound
	}
	cp := *link
	return &cp, nil
}

func (s *Storage) DeleteLink(ctx context.Context, playerID model.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.linksByPlayer[playerID]
	if !ok {
		return nil
	}
	delete(s.linksByPlayer, playerID)
	delete(s.linksByOwner, link.OwnerID)
	return nil
}

func (s *Storage) CountLinks(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.linksByPlayer), nil
}

// Operator usage operations

func (s *Storage) SaveUsage(ctx context.Context, usage *model.OperatorUsage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *usage
	s.usage[cp.OperatorID] = &cp
	return nil
}

func (s *Storage) GetUsage(ctx context.Context, operatorID model.OperatorID) (*model.OperatorUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	usage, ok := s.usage[operatorID]
	if !ok {
		return nil, model.ErrUsageNotFound
	}
	cp := *usage
	return &cp, nil
}

// Metadata operations

func (s *Storage) SetMetadata(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata[key] = value
	return nil
}

func (s *Storage) GetMetadata(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.metadata[key]
	if !ok {
		return "", model.ErrMetadataNotFound
	}
	return value, nil
}

func (s *Storage) DeleteMetadata(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.metadata, key)
	return nil
}

// Close is a no-op for in-memory storage
func (s *Storage) Close() error {
	return nil
}
