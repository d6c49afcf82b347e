package redis

import (
	"fmt"

	"github.com/gbone001/hall-frontline-pass/internal/model"
)

// Key prefix for all grant-related data
const keyPrefix = "fpass"

// Key generation functions for each entity type

// linkPlayerKey returns the Redis key for a PlayerLink indexed by player id
func linkPlayerKey(playerID model.PlayerID) string {
	return fmt.Sprintf("%s:link:player:%s", keyPrefix, playerID)
}

// linkOwnerKey returns the Redis key for the owner -> PlayerLink index
func linkOwnerKey(ownerID model.OwnerID) string {
	return fmt.Sprintf("%s:link:owner:%s", keyPrefix, ownerID)
}

// linkIndexKey returns the Redis key for the SET of all linked player ids
func linkIndexKey() string {
	return fmt.Sprintf("%s:idx:links", keyPrefix)
}

// usageKey returns the Redis key for an operator's usage window
func usageKey(operatorID model.OperatorID) string {
	return fmt.Sprintf("%s:usage:%s", keyPrefix, operatorID)
}

// metadataKey returns the Redis key for a metadata setting
func metadataKey(key string) string {
	return fmt.Sprintf("%s:meta:%s", keyPrefix, key)
}
