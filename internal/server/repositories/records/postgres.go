// Package records provides the PostgreSQL-backed repository for synced
// business documents.
package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fieldvault/internal/common"
	"fieldvault/internal/dbx"
	"fieldvault/internal/server/models"
)

// PostgresRepository implements record storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, rec *models.Record) error {
	query := `
		INSERT INTO records (record_type, id, operator_id, payload, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (record_type, id)
		DO UPDATE SET
			operator_id = EXCLUDED.operator_id,
			payload = EXCLUDED.payload,
			updated_at = now()
	`
	if _, err := r.db.ExecContext(ctx, query, rec.Type, rec.ID, rec.OperatorID, []byte(rec.Payload)); err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, recordType, id string) error {
	query := `DELETE FROM records WHERE record_type=$1 AND id=$2`
	if _, err := r.db.ExecContext(ctx, query, recordType, id); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, recordType, id string) (*models.Record, error) {
	query := `SELECT record_type, id, operator_id, payload, updated_at
		FROM records WHERE record_type=$1 AND id=$2`

	var rec models.Record
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, recordType, id).
		Scan(&rec.Type, &rec.ID, &rec.OperatorID, &payload, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select record: %w", err)
	}
	rec.Payload = payload
	return &rec, nil
}
