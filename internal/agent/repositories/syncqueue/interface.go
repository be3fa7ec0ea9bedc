package syncqueue

import (
	"context"

	"fieldvault/internal/agent/models"
)

// Repository describes durable storage for the generic sync queue.
//
// Items are created by the caller mutating local state, drained by the sync
// engine, and removed on confirmed delivery. Attempts only ever increase;
// an item at or past the attempt cap is skipped by ListRunnable and stays
// inert until Reset.
type Repository interface {
	// Enqueue inserts a new queue item.
	Enqueue(ctx context.Context, item *models.SyncQueueItem) error

	// GetByID returns an item or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.SyncQueueItem, error)

	// GetByType lists items targeting the given backend collection.
	GetByType(ctx context.Context, typ models.QueueItemType) ([]*models.SyncQueueItem, error)

	// ListRunnable returns items with attempts < maxAttempts, oldest first.
	ListRunnable(ctx context.Context, maxAttempts int) ([]*models.SyncQueueItem, error)

	// MarkAttempt increments the attempt counter and records the failure
	// and attempt time.
	MarkAttempt(ctx context.Context, id, lastError string) error

	// Reset clears the attempt counter of an inert item so it is processed
	// again. This is the explicit manual reset.
	Reset(ctx context.Context, id string) error

	// Delete removes a delivered (or discarded) item.
	Delete(ctx context.Context, id string) error

	// Count returns the number of queued items.
	Count(ctx context.Context) (int64, error)

	// Clear removes all items.
	Clear(ctx context.Context) error
}
