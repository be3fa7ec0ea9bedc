package cli

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldvault/internal/agent/config"
	"fieldvault/internal/agent/models"
	"fieldvault/internal/agent/quota"
	"fieldvault/internal/agent/store"
	engine "fieldvault/internal/agent/sync"
	"fieldvault/internal/agent/upload"
	"fieldvault/internal/hashx"
	"fieldvault/internal/logging"
)

func newTestApp(t *testing.T) *App {
	t.Helper()

	origPrint := printlnFn
	printlnFn = func(...any) (int, error) { return 0, nil }
	t.Cleanup(func() { printlnFn = origPrint })

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.OperatorID = "op-1"

	st, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	app := &App{
		config: cfg,
		store:  st,
		client: upload.NewHTTPClient("http://127.0.0.1:1", time.Second),
		log:    log,
		mode:   ModeOffline,
		reader: bufio.NewReader(strings.NewReader("")),
		out:    io.Discard,
	}
	app.engine = engine.NewEngine(st.Repos.Evidence, st.Repos.SyncQueue, app.client, &app.session, log, engine.Options{})
	app.quota = quota.NewMonitor(st.Repos.Evidence, log, quota.Options{QuotaBytes: cfg.QuotaBytes})
	return app
}

func writeTestPhoto(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: 128, A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "photo.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestCaptureCommand_CreatesPendingRecord(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	photo := writeTestPhoto(t)

	err := app.Capture(ctx, []string{photo, "-task", "t1", "-job", "j1", "-type", "meter_reading", "-stage", "after", "-lat", "60.17", "-lon", "24.94"})
	require.NoError(t, err)

	records, err := app.store.Repos.Evidence.GetByStatus(ctx, models.SyncStatusPending)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "t1", rec.TaskID)
	assert.Equal(t, models.PhotoStageAfter, rec.PhotoStage)
	assert.Equal(t, "op-1", rec.OperatorID)
	require.NotNil(t, rec.Geo)
	assert.Equal(t, 60.17, rec.Geo.Latitude)
	require.NoError(t, hashx.Verify(rec.IntegrityHash, rec.PhotoBytes, rec.CapturedAt, rec.OperatorID))
}

func TestCaptureCommand_MissingTaskFails(t *testing.T) {
	app := newTestApp(t)
	photo := writeTestPhoto(t)

	err := app.Capture(context.Background(), []string{photo})
	require.Error(t, err)

	n, err := app.store.Repos.Evidence.Count(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func putRecord(t *testing.T, app *App, id string, status models.SyncStatus) *models.EvidenceRecord {
	t.Helper()
	capturedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	photo := []byte("jpeg-" + id)
	rec := &models.EvidenceRecord{
		ID:            id,
		TaskID:        "t1",
		JobID:         "j1",
		EvidenceType:  "photo",
		PhotoBytes:    photo,
		IntegrityHash: hashx.Sum(photo, capturedAt, "op-1"),
		OperatorID:    "op-1",
		CapturedAt:    capturedAt,
		SyncStatus:    status,
		CreatedAt:     time.Now().UTC(),
	}
	if status == models.SyncStatusFailed {
		rec.RetryCount = 5
		rec.LastError = "server down"
	}
	if status == models.SyncStatusSynced {
		now := time.Now().UTC()
		rec.SyncedAt = &now
		rec.PhotoURL = "photos/" + id
	}
	require.NoError(t, app.store.Repos.Evidence.Put(context.Background(), rec))
	return rec
}

func TestRetryCommand_ResetsFailedRecord(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	putRecord(t, app, "ev-1", models.SyncStatusFailed)

	require.NoError(t, app.Retry(ctx, "ev-1"))

	rec, err := app.store.Repos.Evidence.GetByID(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, models.SyncStatusPending, rec.SyncStatus)
	assert.Equal(t, 0, rec.RetryCount)
}

func TestRetryCommand_RefusesNonFailedRecord(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	putRecord(t, app, "ev-1", models.SyncStatusPending)

	require.Error(t, app.Retry(ctx, "ev-1"))
}

func TestVerifyCommand(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	rec := putRecord(t, app, "ev-1", models.SyncStatusPending)

	require.NoError(t, app.Verify(ctx, "ev-1"))

	// tamper with the stored photo
	rec.PhotoBytes = []byte("tampered")
	require.NoError(t, app.store.Repos.Evidence.Put(ctx, rec))
	require.Error(t, app.Verify(ctx, "ev-1"))
}

func TestDiscardCommand_SyncedGoesWithoutConfirmation(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	putRecord(t, app, "ev-1", models.SyncStatusSynced)

	require.NoError(t, app.Discard(ctx, "ev-1"))

	_, err := app.store.Repos.Evidence.GetByID(ctx, "ev-1")
	require.Error(t, err)
}

func TestDiscardCommand_UndeliveredNeedsConfirmation(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	putRecord(t, app, "ev-1", models.SyncStatusPending)

	app.reader = bufio.NewReader(strings.NewReader("no\n"))
	require.NoError(t, app.Discard(ctx, "ev-1"))
	_, err := app.store.Repos.Evidence.GetByID(ctx, "ev-1")
	require.NoError(t, err, "declined confirmation must keep the record")

	app.reader = bufio.NewReader(strings.NewReader("yes\n"))
	require.NoError(t, app.Discard(ctx, "ev-1"))
	_, err = app.store.Repos.Evidence.GetByID(ctx, "ev-1")
	require.Error(t, err)
}

func TestDiscardCommand_RefusesUploading(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	putRecord(t, app, "ev-1", models.SyncStatusUploading)

	require.NoError(t, app.Discard(ctx, "ev-1"))
	_, err := app.store.Repos.Evidence.GetByID(ctx, "ev-1")
	require.NoError(t, err, "records mid-upload must not be deleted")
}

func TestRecordCommand_CachesAndQueues(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)

	err := app.Record(ctx, []string{"task", "t9", `{"status":"open"}`})
	require.NoError(t, err)

	cached, err := app.store.Repos.RecordCache.Get(ctx, models.QueueItemTask, "t9")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"open"}`, string(cached.Payload))

	items, err := app.store.Repos.SyncQueue.GetByType(ctx, models.QueueItemTask)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.QueueActionCreate, items[0].Action)
	assert.Equal(t, "t9", items[0].EntityID)

	// a second note on the same entity is an update of the cached copy
	err = app.Record(ctx, []string{"task", "t9", `{"status":"done"}`})
	require.NoError(t, err)

	cached, err = app.store.Repos.RecordCache.Get(ctx, models.QueueItemTask, "t9")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"done"}`, string(cached.Payload))

	items, err = app.store.Repos.SyncQueue.GetByType(ctx, models.QueueItemTask)
	require.NoError(t, err)
	require.Len(t, items, 2)
	actions := map[models.QueueAction]int{}
	for _, item := range items {
		actions[item.Action]++
	}
	assert.Equal(t, map[models.QueueAction]int{
		models.QueueActionCreate: 1,
		models.QueueActionUpdate: 1,
	}, actions)
}

func TestRecordCommand_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)

	require.Error(t, app.Record(ctx, []string{"evidence", "e1", `{}`}),
		"evidence flows through capture, not record")
	require.Error(t, app.Record(ctx, []string{"task", "t9", `not json`}))

	n, err := app.store.Repos.SyncQueue.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestRecordsCommand_ListsCached(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)

	require.NoError(t, app.Record(ctx, []string{"task", "t9", `{"status":"open"}`}))
	require.NoError(t, app.Record(ctx, []string{"job", "j1", `{"site":"north"}`}))

	var lines []string
	origPrint := printlnFn
	printlnFn = func(args ...any) (int, error) {
		line := make([]string, 0, len(args))
		for _, a := range args {
			line = append(line, fmt.Sprint(a))
		}
		lines = append(lines, strings.Join(line, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = origPrint })

	require.NoError(t, app.Records(ctx, nil))
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "job j1")
	assert.Contains(t, lines[1], "task t9")

	lines = nil
	require.NoError(t, app.Records(ctx, []string{"task"}))
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "task t9")

	require.Error(t, app.Records(ctx, []string{"bogus"}))
}

func TestStatusCommand(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	putRecord(t, app, "ev-1", models.SyncStatusPending)
	putRecord(t, app, "ev-2", models.SyncStatusFailed)

	require.NoError(t, app.Status(ctx))
}

func TestClearCommand(t *testing.T) {
	ctx := context.Background()
	app := newTestApp(t)
	putRecord(t, app, "ev-1", models.SyncStatusPending)

	app.reader = bufio.NewReader(strings.NewReader("yes\n"))
	require.NoError(t, app.Clear(ctx))

	n, err := app.store.Repos.Evidence.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}
