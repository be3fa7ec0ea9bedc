package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldvault/internal/agent/models"
	"fieldvault/internal/agent/store"
	"fieldvault/internal/agent/upload"
	"fieldvault/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeUploader is a controllable network double.
type fakeUploader struct {
	uploads   atomic.Int32
	mutations atomic.Int32

	uploadErr   error
	mutationErr error

	// failFirst lists record IDs whose first attempt fails.
	failFirst map[string]bool

	// when set, UploadEvidence signals started and blocks until release closes
	started chan struct{}
	release chan struct{}

	mu       sync.Mutex
	attempts map[string]int
}

func (f *fakeUploader) UploadEvidence(_ context.Context, _ string, rec *models.EvidenceRecord) (string, error) {
	f.uploads.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	if f.attempts == nil {
		f.attempts = make(map[string]int)
	}
	f.attempts[rec.ID]++
	attempt := f.attempts[rec.ID]
	f.mu.Unlock()

	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	if f.failFirst[rec.ID] && attempt == 1 {
		return "", errors.New("transient network failure")
	}
	return "photos/" + rec.ID, nil
}

func (f *fakeUploader) SubmitMutation(_ context.Context, _ string, item *models.SyncQueueItem) error {
	f.mutations.Add(1)
	if f.mutationErr != nil && item.EntityID == "flaky" {
		return f.mutationErr
	}
	return nil
}

// countingCreds hands out a static token and counts fetches.
type countingCreds struct {
	calls atomic.Int32
	err   error
}

func (c *countingCreds) Token(context.Context) (string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	return "tok", nil
}

var _ upload.Uploader = (*fakeUploader)(nil)
var _ upload.CredentialProvider = (*countingCreds)(nil)

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestEngine(t *testing.T, s *store.Store, up *fakeUploader, creds *countingCreds, opts Options) *Engine {
	t.Helper()
	return NewEngine(s.Repos.Evidence, s.Repos.SyncQueue, up, creds, testLogger(), opts)
}

func pendingRecord(id string) *models.EvidenceRecord {
	return &models.EvidenceRecord{
		ID:            id,
		TaskID:        "task-1",
		JobID:         "job-1",
		EvidenceType:  "meter_reading",
		PhotoStage:    models.PhotoStageAfter,
		PhotoBytes:    []byte("jpeg"),
		IntegrityHash: "hash-" + id,
		OperatorID:    "op-1",
		CapturedAt:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		SyncStatus:    models.SyncStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestDrainCycle_PendingBecomesSynced(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	up := &fakeUploader{}
	creds := &countingCreds{}
	e := newTestEngine(t, s, up, creds, Options{})

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Repos.Evidence.Put(ctx, pendingRecord(fmt.Sprintf("ev-%d", i))))
	}

	e.drainCycle(ctx, TriggerManual)

	stats, err := e.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.Pending)
	assert.EqualValues(t, 3, stats.Synced)
	assert.EqualValues(t, 3, up.uploads.Load())
	assert.EqualValues(t, 1, creds.calls.Load(), "token must be fetched once per cycle, not per record")

	rec, err := s.Repos.Evidence.GetByID(ctx, "ev-0")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSynced, rec.SyncStatus)
	assert.Equal(t, "photos/ev-0", rec.PhotoURL)
	require.NotNil(t, rec.SyncedAt)
}

func TestDrainCycle_RetryCapMarksFailed(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	up := &fakeUploader{uploadErr: errors.New("server down")}
	e := newTestEngine(t, s, up, &countingCreds{}, Options{MaxRetries: 5})

	require.NoError(t, s.Repos.Evidence.Put(ctx, pendingRecord("ev-1")))

	// one extra cycle past the cap; it must find nothing runnable
	for i := 0; i < 6; i++ {
		e.drainCycle(ctx, TriggerTimer)
	}

	assert.EqualValues(t, 5, up.uploads.Load(), "attempts must stop at the retry cap")

	rec, err := s.Repos.Evidence.GetByID(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusFailed, rec.SyncStatus)
	assert.Equal(t, 5, rec.RetryCount)
	assert.Contains(t, rec.LastError, "server down")
}

func TestDrainCycle_TransientFailureRequeuesThenSucceeds(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	up := &fakeUploader{failFirst: map[string]bool{"ev-flaky": true}}
	e := newTestEngine(t, s, up, &countingCreds{}, Options{})

	require.NoError(t, s.Repos.Evidence.Put(ctx, pendingRecord("ev-flaky")))
	require.NoError(t, s.Repos.Evidence.Put(ctx, pendingRecord("ev-ok")))

	e.drainCycle(ctx, TriggerTimer)

	rec, err := s.Repos.Evidence.GetByID(ctx, "ev-flaky")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusPending, rec.SyncStatus)
	assert.Equal(t, 1, rec.RetryCount)

	e.drainCycle(ctx, TriggerTimer)

	rec, err = s.Repos.Evidence.GetByID(ctx, "ev-flaky")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusSynced, rec.SyncStatus)
}

func TestDrainCycle_BacklogNeverGrows(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	up := &fakeUploader{failFirst: map[string]bool{"ev-0": true, "ev-3": true}}
	e := newTestEngine(t, s, up, &countingCreds{}, Options{BatchSize: 2})

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Repos.Evidence.Put(ctx, pendingRecord(fmt.Sprintf("ev-%d", i))))
	}

	prev := int64(5)
	for i := 0; i < 4; i++ {
		e.drainCycle(ctx, TriggerTimer)
		stats, err := e.Stats(ctx)
		require.NoError(t, err)
		assert.LessOrEqual(t, stats.Pending, prev, "pending backlog must be monotone non-increasing")
		prev = stats.Pending
	}
	assert.EqualValues(t, 0, prev)
}

func TestDrainCycle_QueueItemDeliveredAndRemoved(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	up := &fakeUploader{mutationErr: errors.New("conflict")}
	e := newTestEngine(t, s, up, &countingCreds{}, Options{})

	require.NoError(t, s.Repos.SyncQueue.Enqueue(ctx, &models.SyncQueueItem{
		ID: "q-ok", Type: models.QueueItemTask, Action: models.QueueActionUpdate,
		EntityID: "task-9", Payload: []byte(`{"status":"done"}`),
	}))
	require.NoError(t, s.Repos.SyncQueue.Enqueue(ctx, &models.SyncQueueItem{
		ID: "q-bad", Type: models.QueueItemTask, Action: models.QueueActionUpdate,
		EntityID: "flaky", Payload: []byte(`{}`),
	}))

	e.drainCycle(ctx, TriggerManual)

	n, err := s.Repos.SyncQueue.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "delivered item must be removed, failed item kept")

	item, err := s.Repos.SyncQueue.GetByID(ctx, "q-bad")
	require.NoError(t, err)
	assert.Equal(t, 1, item.Attempts)
	assert.Contains(t, item.LastError, "conflict")
}

func TestDrainCycle_CredentialFailureLeavesBacklogUntouched(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	up := &fakeUploader{}
	e := newTestEngine(t, s, up, &countingCreds{err: errors.New("auth down")}, Options{})

	require.NoError(t, s.Repos.Evidence.Put(ctx, pendingRecord("ev-1")))

	e.drainCycle(ctx, TriggerManual)

	assert.EqualValues(t, 0, up.uploads.Load())
	rec, err := s.Repos.Evidence.GetByID(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusPending, rec.SyncStatus)
	assert.Equal(t, 0, rec.RetryCount, "a skipped cycle must not burn a retry")
}

func TestTrigger_DroppedWhileCycleRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := setupStore(t)
	up := &fakeUploader{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	e := newTestEngine(t, s, up, &countingCreds{}, Options{SyncInterval: time.Hour})

	require.NoError(t, s.Repos.Evidence.Put(context.Background(), pendingRecord("ev-1")))

	go e.Run(ctx)

	// Run may not be listening yet
	require.Eventually(t, func() bool {
		return e.Trigger(TriggerManual)
	}, 2*time.Second, 5*time.Millisecond)

	<-up.started // cycle is now mid-upload

	assert.False(t, e.Trigger(TriggerManual), "trigger must be dropped while a cycle is active")
	assert.False(t, e.Trigger(TriggerOnline))

	close(up.release)

	require.Eventually(t, func() bool {
		rec, err := s.Repos.Evidence.GetByID(context.Background(), "ev-1")
		return err == nil && rec.SyncStatus == models.SyncStatusSynced
	}, 2*time.Second, 5*time.Millisecond)

	assert.EqualValues(t, 1, up.uploads.Load(), "dropped triggers must not cause extra uploads")
}

func TestSetOnline_TransitionStartsCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := setupStore(t)
	up := &fakeUploader{}
	e := newTestEngine(t, s, up, &countingCreds{}, Options{SyncInterval: time.Hour})

	require.NoError(t, s.Repos.Evidence.Put(context.Background(), pendingRecord("ev-1")))

	go e.Run(ctx)

	require.Eventually(t, func() bool {
		// flap until Run is listening; only the offline → online edge triggers
		e.SetOnline(false)
		e.SetOnline(true)
		rec, err := s.Repos.Evidence.GetByID(context.Background(), "ev-1")
		return err == nil && rec.SyncStatus == models.SyncStatusSynced
	}, 2*time.Second, 10*time.Millisecond)

	assert.True(t, e.Online())
}

func TestRun_RecoversInterruptedUpload(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := setupStore(t)
	up := &fakeUploader{}
	e := newTestEngine(t, s, up, &countingCreds{}, Options{SyncInterval: time.Hour})

	// a previous process died mid-upload, leaving the record in uploading
	require.NoError(t, s.Repos.Evidence.Put(context.Background(), pendingRecord("ev-1")))
	require.NoError(t, s.Repos.Evidence.MarkUploading(context.Background(), "ev-1"))

	go e.Run(ctx)

	// Run's recovery step precedes the trigger loop, so once a trigger is
	// accepted the record is back in pending and drains normally
	require.Eventually(t, func() bool {
		return e.Trigger(TriggerManual)
	}, 2*time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		rec, err := s.Repos.Evidence.GetByID(context.Background(), "ev-1")
		return err == nil && rec.SyncStatus == models.SyncStatusSynced
	}, 2*time.Second, 5*time.Millisecond)

	assert.EqualValues(t, 1, up.uploads.Load())
}

func TestOptions_Defaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, 5, o.MaxRetries)
	assert.Equal(t, 5, o.BatchSize)
	assert.Equal(t, 60*time.Second, o.SyncInterval)
}
