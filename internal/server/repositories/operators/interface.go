package operators

import (
	"context"

	"fieldvault/internal/server/models"
)

// Repository describes operator account storage.
type Repository interface {
	// Create inserts a new operator and returns it with generated fields set.
	Create(ctx context.Context, op *models.Operator) (*models.Operator, error)

	// GetByLogin returns an operator or common.ErrorNotFound.
	GetByLogin(ctx context.Context, login string) (*models.Operator, error)
}
