// Package operators provides the PostgreSQL-backed repository for operator
// accounts.
package operators

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fieldvault/internal/common"
	"fieldvault/internal/dbx"
	"fieldvault/internal/server/models"
)

// PostgresRepository implements operator storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, op *models.Operator) (*models.Operator, error) {
	query := `
		INSERT INTO operators (login, password_hash)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, op.Login, op.PasswordHash).
		Scan(&op.ID, &op.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create operator: %w", err)
	}
	return op, nil
}

func (r *PostgresRepository) GetByLogin(ctx context.Context, login string) (*models.Operator, error) {
	query := `SELECT id, login, password_hash, created_at FROM operators WHERE login=$1`

	var op models.Operator
	err := r.db.QueryRowContext(ctx, query, login).
		Scan(&op.ID, &op.Login, &op.PasswordHash, &op.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select operator: %w", err)
	}
	return &op, nil
}
