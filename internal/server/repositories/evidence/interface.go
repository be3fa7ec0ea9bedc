package evidence

import (
	"context"

	"fieldvault/internal/server/models"
)

// Repository describes registered-evidence storage.
//
// Registration is idempotent by evidence ID: agents retry whole upload
// sequences after partial failures, so the same registration may arrive more
// than once and must collapse into a single row.
type Repository interface {
	// Register inserts the row unless an evidence with the same ID already
	// exists. It reports whether a new row was written; a duplicate is not
	// an error.
	Register(ctx context.Context, e *models.Evidence) (bool, error)

	// GetByID returns a row or common.ErrorNotFound.
	GetByID(ctx context.Context, id string) (*models.Evidence, error)

	// ListByTask returns all evidence referencing the given task.
	ListByTask(ctx context.Context, taskID string) ([]*models.Evidence, error)
}
