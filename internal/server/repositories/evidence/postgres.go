// Package evidence provides the PostgreSQL-backed repository for registered
// evidence metadata.
package evidence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fieldvault/internal/common"
	"fieldvault/internal/dbx"
	"fieldvault/internal/server/models"
)

const evidenceColumns = `id, operator_id, task_id, job_id, evidence_type, photo_stage,
	photo_url, photo_hash, latitude, longitude, gps_accuracy, captured_at, received_at`

// PostgresRepository implements evidence storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Register upserts by ID with do-nothing semantics: a retried registration
// leaves the original row untouched and reports inserted=false.
func (r *PostgresRepository) Register(ctx context.Context, e *models.Evidence) (bool, error) {
	query := `
		INSERT INTO evidence (id, operator_id, task_id, job_id, evidence_type, photo_stage,
			photo_url, photo_hash, latitude, longitude, gps_accuracy, captured_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		e.ID, e.OperatorID, e.TaskID, e.JobID, e.EvidenceType, e.PhotoStage,
		e.PhotoURL, e.PhotoHash, e.Latitude, e.Longitude, e.GPSAccuracy, e.CapturedAt)
	if err != nil {
		return false, fmt.Errorf("failed to register evidence: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Evidence, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidence WHERE id=$1`

	row := r.db.QueryRowContext(ctx, query, id)
	e, err := scanEvidence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select evidence: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) ListByTask(ctx context.Context, taskID string) ([]*models.Evidence, error) {
	query := `SELECT ` + evidenceColumns + ` FROM evidence WHERE task_id=$1 ORDER BY captured_at`

	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to select evidence: %w", err)
	}
	defer rows.Close()

	var result []*models.Evidence
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvidence(row rowScanner) (*models.Evidence, error) {
	var e models.Evidence
	err := row.Scan(
		&e.ID, &e.OperatorID, &e.TaskID, &e.JobID, &e.EvidenceType, &e.PhotoStage,
		&e.PhotoURL, &e.PhotoHash, &e.Latitude, &e.Longitude, &e.GPSAccuracy,
		&e.CapturedAt, &e.ReceivedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
