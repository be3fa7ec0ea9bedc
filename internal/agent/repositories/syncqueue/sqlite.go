// Package syncqueue provides the SQLite-backed repository for pending
// mutations awaiting delivery to the backend.
package syncqueue

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

const queueColumns = `id, type, action, entity_id, payload, attempts, last_error, last_attempt_at, created_at`

func (r *SQLiteRepository) Enqueue(ctx context.Context, item *models.SyncQueueItem) error {
	query := ` INSERT INTO sync_queue (` + queueColumns + `)
			values (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var lastAttempt any
	if item.LastAttemptAt != nil {
		lastAttempt = fmtTime(*item.LastAttemptAt)
	}
	_, err := r.db.ExecContext(ctx, query,
		item.ID, string(item.Type), string(item.Action), item.EntityID, []byte(item.Payload),
		item.Attempts, item.LastError, lastAttempt, fmtTime(item.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to enqueue item: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.SyncQueueItem, error) {
	var (
		item          models.SyncQueueItem
		typ, action   string
		payload       []byte
		lastAttemptAt sql.NullString
		createdAt     string
	)
	if err := row.Scan(&item.ID, &typ, &action, &item.EntityID, &payload,
		&item.Attempts, &item.LastError, &lastAttemptAt, &createdAt); err != nil {
		return nil, err
	}

	parsedType, err := models.ParseQueueItemType(typ)
	if err != nil {
		return nil, err
	}
	item.Type = parsedType

	parsedAction, err := models.ParseQueueAction(action)
	if err != nil {
		return nil, err
	}
	item.Action = parsedAction

	item.Payload = payload
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if lastAttemptAt.Valid {
		t, err := parseTime(lastAttemptAt.String)
		if err != nil {
			return nil, err
		}
		item.LastAttemptAt = &t
	}
	return &item, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.SyncQueueItem, error) {
	query := `select ` + queueColumns + ` from sync_queue where id=?`
	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return item, nil
}

func (r *SQLiteRepository) selectItems(ctx context.Context, query string, args ...any) ([]*models.SyncQueueItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select queue items: %w", err)
	}
	defer rows.Close()

	var result []*models.SyncQueueItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) GetByType(ctx context.Context, typ models.QueueItemType) ([]*models.SyncQueueItem, error) {
	query := `select ` + queueColumns + ` from sync_queue where type=? order by created_at`
	return r.selectItems(ctx, query, string(typ))
}

func (r *SQLiteRepository) ListRunnable(ctx context.Context, maxAttempts int) ([]*models.SyncQueueItem, error) {
	query := `select ` + queueColumns + ` from sync_queue where attempts < ? order by created_at`
	return r.selectItems(ctx, query, maxAttempts)
}

func (r *SQLiteRepository) MarkAttempt(ctx context.Context, id, lastError string) error {
	query := `update sync_queue set attempts=attempts+1, last_error=?, last_attempt_at=? where id=?`
	res, err := r.db.ExecContext(ctx, query, lastError, fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("failed to mark attempt: %w", err)
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

func (r *SQLiteRepository) Reset(ctx context.Context, id string) error {
	query := `update sync_queue set attempts=0, last_error='' where id=?`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to reset item: %w", err)
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

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `delete from sync_queue where id=?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete queue item: %w", err)
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
	if err := r.db.QueryRowContext(ctx, `select count(*) from sync_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count queue items: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `delete from sync_queue`); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}
	return nil
}
