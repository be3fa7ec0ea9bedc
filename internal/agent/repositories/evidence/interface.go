package evidence

import (
	"context"
	"time"

	"fieldvault/internal/agent/models"
)

// SyncedRef is a lightweight view of a synced record used by eviction:
// just enough to pick oldest-synced-first victims and account for space.
type SyncedRef struct {
	ID       string
	Size     int64
	SyncedAt time.Time
}

// Repository describes durable storage for evidence records.
//
// Every write is atomic per record; status-transition methods are guarded in
// SQL so a record can only leave the state the transition expects
// (common.ErrInvalidTransition otherwise). Implementations are backed by the
// agent's local SQLite database.
type Repository interface {
	// Put inserts a record or replaces it wholesale by ID.
	Put(ctx context.Context, rec *models.EvidenceRecord) error

	// GetByID returns a record or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.EvidenceRecord, error)

	// GetByTask lists records referencing the given task.
	GetByTask(ctx context.Context, taskID string) ([]*models.EvidenceRecord, error)

	// GetByStatus lists records in the given sync status.
	GetByStatus(ctx context.Context, status models.SyncStatus) ([]*models.EvidenceRecord, error)

	// ListRunnable returns pending records still under the retry cap,
	// oldest capture first. This is the sync engine's work discovery query.
	ListRunnable(ctx context.Context, maxRetries int) ([]*models.EvidenceRecord, error)

	// MarkUploading moves pending → uploading.
	MarkUploading(ctx context.Context, id string) error

	// MarkSynced moves uploading → synced (terminal) and records the
	// backend-reported photo location and sync time.
	MarkSynced(ctx context.Context, id, photoURL string, at time.Time) error

	// Requeue takes the single backward edge uploading → pending after a
	// transient failure, incrementing the retry counter.
	Requeue(ctx context.Context, id, lastError string) error

	// MarkFailed moves uploading → failed once the retry cap is exceeded.
	MarkFailed(ctx context.Context, id, lastError string) error

	// ResetFailed is the explicit manual reset: failed → pending with the
	// retry counter cleared.
	ResetFailed(ctx context.Context, id string) error

	// RecoverUploading returns every uploading record to pending and
	// reports how many were moved. A record is only ever in uploading
	// during a live drain cycle, so rows found there at startup were
	// interrupted mid-upload and would otherwise stay wedged.
	RecoverUploading(ctx context.Context) (int64, error)

	// Delete removes a record.
	Delete(ctx context.Context, id string) error

	// Count returns the total number of records.
	Count(ctx context.Context) (int64, error)

	// CountByStatus returns the number of records in the given status.
	CountByStatus(ctx context.Context, status models.SyncStatus) (int64, error)

	// TotalBytes returns the summed payload size of all records.
	TotalBytes(ctx context.Context) (int64, error)

	// ListSyncedOldestFirst returns synced records ordered by sync time,
	// oldest first, up to limit. Only synced records are ever returned.
	ListSyncedOldestFirst(ctx context.Context, limit int) ([]SyncedRef, error)

	// Clear removes all records.
	Clear(ctx context.Context) error
}
