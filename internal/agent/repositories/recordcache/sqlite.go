// Package recordcache provides a small SQLite-backed read-through cache for
// jobs and tasks fetched from the backend.
package recordcache

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

func (r *SQLiteRepository) Put(ctx context.Context, rec *CachedRecord) error {
	query := ` INSERT INTO record_cache (type, id, payload, fetched_at)
			values (?, ?, ?, ?)
			ON CONFLICT(type, id) DO UPDATE SET
				payload = excluded.payload,
				fetched_at = excluded.fetched_at
	`
	_, err := r.db.ExecContext(ctx, query,
		string(rec.Type), rec.ID, []byte(rec.Payload), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to upsert cached record: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, typ models.QueueItemType, id string) (*CachedRecord, error) {
	query := `select payload from record_cache where type=? and id=?`
	var payload []byte
	if err := r.db.QueryRowContext(ctx, query, string(typ), id).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return &CachedRecord{Type: typ, ID: id, Payload: payload}, nil
}

func (r *SQLiteRepository) ListByType(ctx context.Context, typ models.QueueItemType) ([]*CachedRecord, error) {
	query := `select id, payload from record_cache where type=? order by id`
	rows, err := r.db.QueryContext(ctx, query, string(typ))
	if err != nil {
		return nil, fmt.Errorf("failed to select cached records: %w", err)
	}
	defer rows.Close()

	var result []*CachedRecord
	for rows.Next() {
		rec := &CachedRecord{Type: typ}
		var payload []byte
		if err := rows.Scan(&rec.ID, &payload); err != nil {
			return nil, err
		}
		rec.Payload = payload
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `delete from record_cache`); err != nil {
		return fmt.Errorf("failed to clear record cache: %w", err)
	}
	return nil
}
