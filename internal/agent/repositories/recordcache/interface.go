package recordcache

import (
	"context"
	"encoding/json"

	"fieldvault/internal/agent/models"
)

// CachedRecord is a read-through copy of a backend entity (job or task).
// The cache is not part of the evidence core and may be dropped and rebuilt
// from the backend at any time.
type CachedRecord struct {
	Type    models.QueueItemType
	ID      string
	Payload json.RawMessage
}

// Repository describes the read-through cache for backend entities.
type Repository interface {
	// Put inserts or refreshes a cached record.
	Put(ctx context.Context, rec *CachedRecord) error

	// Get returns a cached record or common.ErrorNotFound.
	Get(ctx context.Context, typ models.QueueItemType, id string) (*CachedRecord, error)

	// ListByType returns all cached records of one type.
	ListByType(ctx context.Context, typ models.QueueItemType) ([]*CachedRecord, error)

	// Clear drops the whole cache.
	Clear(ctx context.Context) error
}
