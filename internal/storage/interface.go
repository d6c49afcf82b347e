package storage

import (
	"context"

	"github.com/gbone001/hall-frontline-pass/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// Player link operations
	SaveLink(ctx context.Context, link *model.PlayerLink) error
	GetLink(ctx context.Context, playerID model.PlayerID) (*model.PlayerLink, error)
	GetLinkByOwner(ctx context.Context, ownerID model.OwnerID) (*model.PlayerLink, error)
	DeleteLink(ctx context.Context, playerID model.PlayerID) error
	CountLinks(ctx context.Context) (int, error)

	// Operator usage operations
	SaveUsage(ctx context.Context, usage *model.OperatorUsage) error
	GetUsage(ctx context.Context, operatorID model.OperatorID) (*model.OperatorUsage, error)

	// Metadata operations (small string settings such as the default
	// grant duration, adjustable at runtime)
	SetMetadata(ctx context.Context, key, value string) error
	GetMetadata(ctx context.Context, key string) (string, error)
	DeleteMetadata(ctx context.Context, key string) error

	// Close releases any underlying connections
	Close() error
}
