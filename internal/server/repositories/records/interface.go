package records

import (
	"context"

	"fieldvault/internal/server/models"
)

// Repository describes storage for synced business documents. Last write
// wins per (type, id); delete is a real removal, not a tombstone.
type Repository interface {
	// Upsert inserts or replaces the payload for (rec.Type, rec.ID).
	Upsert(ctx context.Context, rec *models.Record) error

	// Delete removes a document. Deleting an absent document is a no-op.
	Delete(ctx context.Context, recordType, id string) error

	// Get returns a document or common.ErrorNotFound.
	Get(ctx context.Context, recordType, id string) (*models.Record, error)
}
