package models

import (
	"encoding/json"
	"time"
)

// SyncQueueItem is a generalized pending mutation (entity create/update/
// delete) not yet confirmed by the backend. The payload is opaque to the
// queue itself.
type SyncQueueItem struct {
	ID     string
	Type   QueueItemType
	Action QueueAction

	// EntityID is the id of the mutated entity; together with Type it is the
	// idempotency key the backend uses to absorb duplicate submissions.
	EntityID string

	Payload json.RawMessage

	// Attempts increases monotonically; an item at or past the retry cap is
	// inert until explicitly reset.
	Attempts      int
	LastError     string
	LastAttemptAt *time.Time
	CreatedAt     time.Time
}
