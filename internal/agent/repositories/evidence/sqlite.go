// Package evidence provides the SQLite-backed repository for evidence
// records: the agent's local durable store and its status state machine.
package evidence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fieldvault/internal/agent/models"
	"fieldvault/internal/common"
	"fieldvault/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Timestamps are stored as RFC 3339 text with nanoseconds so captured_at
// round-trips byte-for-byte into the integrity hash.
func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad stored timestamp %q: %w", s, err)
	}
	return t, nil
}

const evidenceColumns = `id, task_id, job_id, evidence_type, photo_stage, photo, thumbnail,
	integrity_hash, operator_id, captured_at, latitude, longitude, accuracy,
	sync_status, retry_count, last_error, photo_url, synced_at, created_at`

func (r *SQLiteRepository) Put(ctx context.Context, rec *models.EvidenceRecord) error {
	query := ` INSERT INTO evidence (` + evidenceColumns + `)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				photo = excluded.photo,
				thumbnail = excluded.thumbnail,
				sync_status = excluded.sync_status,
				retry_count = excluded.retry_count,
				last_error = excluded.last_error,
				photo_url = excluded.photo_url,
				synced_at = excluded.synced_at
	`

	var lat, lon, acc any
	if rec.Geo != nil {
		lat, lon, acc = rec.Geo.Latitude, rec.Geo.Longitude, rec.Geo.Accuracy
	}
	var syncedAt any
	if rec.SyncedAt != nil {
		syncedAt = fmtTime(*rec.SyncedAt)
	}

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.TaskID, rec.JobID, rec.EvidenceType, string(rec.PhotoStage),
		rec.PhotoBytes, rec.ThumbnailBytes, rec.IntegrityHash, rec.OperatorID,
		fmtTime(rec.CapturedAt), lat, lon, acc,
		string(rec.SyncStatus), rec.RetryCount, rec.LastError, rec.PhotoURL,
		syncedAt, fmtTime(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert evidence record: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.EvidenceRecord, error) {
	var (
		rec            models.EvidenceRecord
		stage, status  string
		capturedAt     string
		createdAt      string
		syncedAt       sql.NullString
		lat, lon, acc  sql.NullFloat64
	)

	if err := row.Scan(&rec.ID, &rec.TaskID, &rec.JobID, &rec.EvidenceType, &stage,
		&rec.PhotoBytes, &rec.ThumbnailBytes, &rec.IntegrityHash, &rec.OperatorID,
		&capturedAt, &lat, &lon, &acc,
		&status, &rec.RetryCount, &rec.LastError, &rec.PhotoURL,
		&syncedAt, &createdAt); err != nil {
		return nil, err
	}

	ps, err := models.ParsePhotoStage(stage)
	if err != nil {
		return nil, err
	}
	rec.PhotoStage = ps

	ss, err := models.ParseSyncStatus(status)
	if err != nil {
		return nil, err
	}
	rec.SyncStatus = ss

	if rec.CapturedAt, err = parseTime(capturedAt); err != nil {
		return nil, err
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if syncedAt.Valid {
		t, err := parseTime(syncedAt.String)
		if err != nil {
			return nil, err
		}
		rec.SyncedAt = &t
	}

	// all three geo columns are written together, so checking one suffices
	if lat.Valid {
		rec.Geo = &models.GeoFix{Latitude: lat.Float64, Longitude: lon.Float64, Accuracy: acc.Float64}
	}

	return &rec, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.EvidenceRecord, error) {
	query := `select ` + evidenceColumns + ` from evidence where id=?`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return rec, nil
}

func (r *SQLiteRepository) selectRecords(ctx context.Context, query string, args ...any) ([]*models.EvidenceRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select evidence records: %w", err)
	}
	defer rows.Close()

	var result []*models.EvidenceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetByTask(ctx context.Context, taskID string) ([]*models.EvidenceRecord, error) {
	query := `select ` + evidenceColumns + ` from evidence where task_id=? order by created_at`
	return r.selectRecords(ctx, query, taskID)
}

func (r *SQLiteRepository) GetByStatus(ctx context.Context, status models.SyncStatus) ([]*models.EvidenceRecord, error) {
	query := `select ` + evidenceColumns + ` from evidence where sync_status=? order by created_at`
	return r.selectRecords(ctx, query, string(status))
}

func (r *SQLiteRepository) ListRunnable(ctx context.Context, maxRetries int) ([]*models.EvidenceRecord, error) {
	query := `select ` + evidenceColumns + ` from evidence
		where sync_status=? and retry_count < ? order by created_at`
	return r.selectRecords(ctx, query, string(models.SyncStatusPending), maxRetries)
}

// transition executes a guarded status update and maps "no rows changed" to
// ErrInvalidTransition, so callers learn when a record was not in the state
// the edge expects.
func (r *SQLiteRepository) transition(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update evidence status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return common.ErrInvalidTransition
	}
	return nil
}

func (r *SQLiteRepository) MarkUploading(ctx context.Context, id string) error {
	query := `update evidence set sync_status=? where id=? and sync_status=?`
	return r.transition(ctx, query, string(models.SyncStatusUploading), id, string(models.SyncStatusPending))
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id, photoURL string, at time.Time) error {
	query := `update evidence set sync_status=?, photo_url=?, synced_at=?, last_error=''
		where id=? and sync_status=?`
	return r.transition(ctx, query, string(models.SyncStatusSynced), photoURL, fmtTime(at),
		id, string(models.SyncStatusUploading))
}

func (r *SQLiteRepository) Requeue(ctx context.Context, id, lastError string) error {
	query := `update evidence set sync_status=?, retry_count=retry_count+1, last_error=?
		where id=? and sync_status=?`
	return r.transition(ctx, query, string(models.SyncStatusPending), lastError,
		id, string(models.SyncStatusUploading))
}

func (r *SQLiteRepository) MarkFailed(ctx context.Context, id, lastError string) error {
	query := `update evidence set sync_status=?, retry_count=retry_count+1, last_error=?
		where id=? and sync_status=?`
	return r.transition(ctx, query, string(models.SyncStatusFailed), lastError,
		id, string(models.SyncStatusUploading))
}

func (r *SQLiteRepository) ResetFailed(ctx context.Context, id string) error {
	query := `update evidence set sync_status=?, retry_count=0, last_error=''
		where id=? and sync_status=?`
	return r.transition(ctx, query, string(models.SyncStatusPending),
		id, string(models.SyncStatusFailed))
}

func (r *SQLiteRepository) RecoverUploading(ctx context.Context) (int64, error) {
	query := `update evidence set sync_status=? where sync_status=?`
	res, err := r.db.ExecContext(ctx, query,
		string(models.SyncStatusPending), string(models.SyncStatusUploading))
	if err != nil {
		return 0, fmt.Errorf("failed to recover interrupted uploads: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `delete from evidence where id=?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete evidence record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n != 1 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `select count(*) from evidence`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count evidence records: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) CountByStatus(ctx context.Context, status models.SyncStatus) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `select count(*) from evidence where sync_status=?`, string(status)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count evidence records: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) TotalBytes(ctx context.Context) (int64, error) {
	var n int64
	query := `select coalesce(sum(length(photo) + coalesce(length(thumbnail), 0)), 0) from evidence`
	if err := r.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to sum evidence sizes: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) ListSyncedOldestFirst(ctx context.Context, limit int) ([]SyncedRef, error) {
	query := `select id, length(photo) + coalesce(length(thumbnail), 0), synced_at
		from evidence where sync_status=? and synced_at is not null
		order by synced_at asc limit ?`
	rows, err := r.db.QueryContext(ctx, query, string(models.SyncStatusSynced), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select synced records: %w", err)
	}
	defer rows.Close()

	var result []SyncedRef
	for rows.Next() {
		var (
			ref SyncedRef
			at  string
		)
		if err := rows.Scan(&ref.ID, &ref.Size, &at); err != nil {
			return nil, err
		}
		if ref.SyncedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		result = append(result, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `delete from evidence`); err != nil {
		return fmt.Errorf("failed to clear evidence records: %w", err)
	}
	return nil
}
