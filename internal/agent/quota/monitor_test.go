package quota

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldvault/internal/agent/models"
	"fieldvault/internal/agent/store"
	"fieldvault/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// putSized inserts a record whose payload is exactly size bytes.
func putSized(t *testing.T, s *store.Store, id string, size int, status models.SyncStatus, syncedAt time.Time) {
	t.Helper()
	rec := &models.EvidenceRecord{
		ID:            id,
		TaskID:        "task-1",
		JobID:         "job-1",
		EvidenceType:  "meter_reading",
		PhotoBytes:    bytes.Repeat([]byte{0xAB}, size),
		IntegrityHash: "hash-" + id,
		OperatorID:    "op-1",
		CapturedAt:    time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		SyncStatus:    status,
		CreatedAt:     time.Now().UTC(),
	}
	if status == models.SyncStatusSynced {
		rec.SyncedAt = &syncedAt
		rec.PhotoURL = "photos/" + id
	}
	require.NoError(t, s.Repos.Evidence.Put(context.Background(), rec))
}

func TestCheck_UnderThresholdsIsQuiet(t *testing.T) {
	s := setupStore(t)
	m := NewMonitor(s.Repos.Evidence, testLogger(), Options{QuotaBytes: 1000})

	putSized(t, s, "ev-1", 500, models.SyncStatusPending, time.Time{})

	rep, err := m.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, rep.Warned)
	assert.Zero(t, rep.Evicted)
	assert.EqualValues(t, 500, rep.UsedBytes)
}

func TestCheck_WarnsOncePerCrossing(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	m := NewMonitor(s.Repos.Evidence, testLogger(), Options{QuotaBytes: 1000})

	var warnings int
	m.OnWarn = func(Report) { warnings++ }

	putSized(t, s, "ev-1", 850, models.SyncStatusPending, time.Time{})

	rep, err := m.Check(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Warned)

	rep, err = m.Check(ctx)
	require.NoError(t, err)
	assert.False(t, rep.Warned, "warning fires once per crossing, not per check")
	assert.Equal(t, 1, warnings)

	// fall below, then cross again
	require.NoError(t, s.Repos.Evidence.Delete(ctx, "ev-1"))
	_, err = m.Check(ctx)
	require.NoError(t, err)

	putSized(t, s, "ev-2", 900, models.SyncStatusPending, time.Time{})
	rep, err = m.Check(ctx)
	require.NoError(t, err)
	assert.True(t, rep.Warned)
	assert.Equal(t, 2, warnings)
}

func TestCheck_EvictsSyncedOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	m := NewMonitor(s.Repos.Evidence, testLogger(), Options{QuotaBytes: 1000})

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	putSized(t, s, "old-synced", 400, models.SyncStatusSynced, base)
	putSized(t, s, "new-synced", 400, models.SyncStatusSynced, base.Add(time.Hour))
	putSized(t, s, "pending", 300, models.SyncStatusPending, time.Time{})

	// 1100 of 1000 used; ceiling is 900, so only the oldest must go
	rep, err := m.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Evicted)
	assert.False(t, rep.Exhausted)

	_, err = s.Repos.Evidence.GetByID(ctx, "old-synced")
	require.Error(t, err, "oldest synced record must be evicted")
	_, err = s.Repos.Evidence.GetByID(ctx, "new-synced")
	require.NoError(t, err)
	_, err = s.Repos.Evidence.GetByID(ctx, "pending")
	require.NoError(t, err)

	used, err := s.Repos.Evidence.TotalBytes(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 700, used)
}

func TestCheck_NeverEvictsUndelivered(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	m := NewMonitor(s.Repos.Evidence, testLogger(), Options{QuotaBytes: 1000})

	putSized(t, s, "p-1", 600, models.SyncStatusPending, time.Time{})
	putSized(t, s, "f-1", 600, models.SyncStatusFailed, time.Time{})

	rep, err := m.Check(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Evicted)
	assert.True(t, rep.Exhausted, "over quota with nothing evictable must be reported")
	assert.True(t, rep.Warned)

	n, err := s.Repos.Evidence.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n, "undelivered records must survive storage pressure")
}

func TestCheck_EvictsAcrossBatches(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	m := NewMonitor(s.Repos.Evidence, testLogger(), Options{QuotaBytes: 10000})

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		putSized(t, s, fmt.Sprintf("s-%03d", i), 200, models.SyncStatusSynced, base.Add(time.Duration(i)*time.Minute))
	}

	// 12000 of 10000 used; ceiling 9000 needs 16 evictions, beyond one batch
	// only if the batch were smaller, but the loop must re-list regardless
	rep, err := m.Check(ctx)
	require.NoError(t, err)
	assert.Equal(t, 16, rep.Evicted)

	used, err := s.Repos.Evidence.TotalBytes(ctx)
	require.NoError(t, err)
	assert.Less(t, used, int64(9000))

	// the survivors are the newest
	_, err = s.Repos.Evidence.GetByID(ctx, "s-015")
	require.Error(t, err)
	_, err = s.Repos.Evidence.GetByID(ctx, "s-016")
	require.NoError(t, err)
}
