// Package sync implements the drain state machine that delivers pending
// evidence records and queued mutations to the backend.
//
// At most one drain cycle is active at a time. A trigger arriving while a
// cycle is in progress is dropped; the next natural trigger picks up any
// remaining work. Within a cycle items are processed with bounded
// concurrency and no ordering guarantee; each item succeeds or fails
// independently, and a failed item is simply retried on the next cycle.
package sync

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"fieldvault/internal/agent/models"
	"fieldvault/internal/agent/repositories/evidence"
	"fieldvault/internal/agent/repositories/syncqueue"
	"fieldvault/internal/agent/upload"
	"fieldvault/internal/logging"
)

// Options tune the engine. Zero values are replaced by defaults.
type Options struct {
	// MaxRetries is the per-item attempt cap; at the cap the item becomes
	// terminal (failed / inert) until an explicit manual reset.
	MaxRetries int

	// BatchSize bounds upload concurrency within a cycle.
	BatchSize int

	// SyncInterval is the periodic trigger, gated on being online.
	SyncInterval time.Duration

	// StartupDelay postpones the first cycle so authentication can settle.
	StartupDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxRetries == 0 {
		o.MaxRetries = 5
	}
	if o.BatchSize == 0 {
		o.BatchSize = 5
	}
	if o.SyncInterval == 0 {
		o.SyncInterval = 60 * time.Second
	}
	return o
}

// Stats is a point-in-time summary of the local backlog.
type Stats struct {
	Pending int64
	Failed  int64
	Synced  int64
	Queued  int64
}

// Engine drains the local store against the network. It is an explicit
// instance with injected dependencies; constructing several independent
// engines (e.g. in tests) is safe.
type Engine struct {
	evidence evidence.Repository
	queue    syncqueue.Repository
	uploader upload.Uploader
	creds    upload.CredentialProvider
	log      logging.Logger
	opts     Options

	triggers chan TriggerReason
	busy     atomic.Bool
	online   atomic.Bool

	// test seam
	now func() time.Time
}

// NewEngine wires a drain engine. All dependencies are required.
func NewEngine(ev evidence.Repository, q syncqueue.Repository, up upload.Uploader,
	creds upload.CredentialProvider, log logging.Logger, opts Options) *Engine {
	return &Engine{
		evidence: ev,
		queue:    q,
		uploader: up,
		creds:    creds,
		log:      log.With("component", "sync"),
		opts:     opts.withDefaults(),
		triggers: make(chan TriggerReason),
		now:      time.Now,
	}
}

// Trigger requests a drain cycle. The send is non-blocking: when the engine
// is mid-cycle (or Run is not listening), the trigger is dropped and Trigger
// reports false.
func (e *Engine) Trigger(reason TriggerReason) bool {
	select {
	case e.triggers <- reason:
		return true
	default:
		return false
	}
}

// SetOnline records connectivity as observed by the hosting application.
// The offline → online transition pushes a drain trigger.
func (e *Engine) SetOnline(online bool) {
	was := e.online.Swap(online)
	if online && !was {
		e.Trigger(TriggerOnline)
	}
}

// Online reports the last connectivity state pushed via SetOnline.
func (e *Engine) Online() bool {
	return e.online.Load()
}

// Run owns the trigger loop until ctx is cancelled. Exactly one Run per
// engine; the loop serializes cycles, which is what guarantees mutual
// exclusion between triggers.
func (e *Engine) Run(ctx context.Context) {
	// records stranded in uploading by a previous process rejoin the drain
	if n, err := e.evidence.RecoverUploading(ctx); err != nil {
		e.log.Error(ctx, "failed to recover interrupted uploads", "error", err)
	} else if n > 0 {
		e.log.Info(ctx, "interrupted uploads returned to pending", "count", n)
	}

	ticker := time.NewTicker(e.opts.SyncInterval)
	defer ticker.Stop()

	var startup <-chan time.Time
	if e.opts.StartupDelay > 0 {
		startup = time.After(e.opts.StartupDelay)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-startup:
			startup = nil
			e.drainCycle(ctx, TriggerStartup)
		case <-ticker.C:
			if e.Online() {
				e.drainCycle(ctx, TriggerTimer)
			}
		case reason := <-e.triggers:
			e.drainCycle(ctx, reason)
		}
	}
}

// drainCycle runs one pass over all runnable work. The busy flag is a
// belt-and-braces guard for callers outside the Run loop.
func (e *Engine) drainCycle(ctx context.Context, reason TriggerReason) {
	if !e.busy.CompareAndSwap(false, true) {
		return
	}
	defer e.busy.Store(false)

	// one credential fetch per cycle, not per item
	token, err := e.creds.Token(ctx)
	if err != nil {
		e.log.Warn(ctx, "credential fetch failed, cycle skipped", "reason", reason, "error", err)
		return
	}

	records, err := e.evidence.ListRunnable(ctx, e.opts.MaxRetries)
	if err != nil {
		e.log.Error(ctx, "failed to list runnable evidence", "error", err)
		return
	}
	items, err := e.queue.ListRunnable(ctx, e.opts.MaxRetries)
	if err != nil {
		e.log.Error(ctx, "failed to list runnable queue items", "error", err)
		return
	}
	if len(records) == 0 && len(items) == 0 {
		return
	}

	e.log.Info(ctx, "drain cycle started",
		"reason", reason, "evidence", len(records), "queue", len(items))

	var synced, requeued, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.BatchSize)

	for _, rec := range records {
		g.Go(func() error {
			switch e.uploadOne(gctx, token, rec) {
			case models.SyncStatusSynced:
				synced.Add(1)
			case models.SyncStatusPending:
				requeued.Add(1)
			case models.SyncStatusFailed:
				failed.Add(1)
			}
			return nil
		})
	}

	for _, item := range items {
		g.Go(func() error {
			if e.submitOne(gctx, token, item) {
				synced.Add(1)
			} else {
				requeued.Add(1)
			}
			return nil
		})
	}

	// workers never return errors; failures are per-item state transitions
	_ = g.Wait()

	e.log.Info(ctx, "drain cycle finished", "reason", reason,
		"synced", synced.Load(), "requeued", requeued.Load(), "failed", failed.Load())
}

// uploadOne moves a single record through pending → uploading → terminal
// and reports the status it ended up in.
func (e *Engine) uploadOne(ctx context.Context, token string, rec *models.EvidenceRecord) models.SyncStatus {
	if err := e.evidence.MarkUploading(ctx, rec.ID); err != nil {
		// someone else moved it; leave it alone
		e.log.Warn(ctx, "record not in pending state, skipped", "id", rec.ID, "error", err)
		return ""
	}

	photoURL, err := e.uploader.UploadEvidence(ctx, token, rec)
	if err != nil {
		if rec.RetryCount+1 >= e.opts.MaxRetries {
			e.log.Warn(ctx, "retry cap exceeded, record failed",
				"id", rec.ID, "retries", rec.RetryCount+1, "error", err)
			if dberr := e.evidence.MarkFailed(ctx, rec.ID, err.Error()); dberr != nil {
				e.log.Error(ctx, "failed to mark record failed", "id", rec.ID, "error", dberr)
			}
			return models.SyncStatusFailed
		}
		e.log.Warn(ctx, "upload failed, requeued", "id", rec.ID, "error", err)
		if dberr := e.evidence.Requeue(ctx, rec.ID, err.Error()); dberr != nil {
			e.log.Error(ctx, "failed to requeue record", "id", rec.ID, "error", dberr)
		}
		return models.SyncStatusPending
	}

	if err := e.evidence.MarkSynced(ctx, rec.ID, photoURL, e.now().UTC()); err != nil {
		e.log.Error(ctx, "failed to mark record synced", "id", rec.ID, "error", err)
		return ""
	}
	return models.SyncStatusSynced
}

// submitOne delivers a single queue item, reporting success.
func (e *Engine) submitOne(ctx context.Context, token string, item *models.SyncQueueItem) bool {
	if err := e.uploader.SubmitMutation(ctx, token, item); err != nil {
		e.log.Warn(ctx, "mutation delivery failed", "id", item.ID, "type", item.Type, "error", err)
		if dberr := e.queue.MarkAttempt(ctx, item.ID, err.Error()); dberr != nil {
			e.log.Error(ctx, "failed to record attempt", "id", item.ID, "error", dberr)
		}
		return false
	}
	if err := e.queue.Delete(ctx, item.ID); err != nil {
		e.log.Error(ctx, "failed to remove delivered item", "id", item.ID, "error", err)
		return false
	}
	return true
}

// Stats summarizes the local backlog.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	var s Stats
	var err error
	if s.Pending, err = e.evidence.CountByStatus(ctx, models.SyncStatusPending); err != nil {
		return s, err
	}
	if s.Failed, err = e.evidence.CountByStatus(ctx, models.SyncStatusFailed); err != nil {
		return s, err
	}
	if s.Synced, err = e.evidence.CountByStatus(ctx, models.SyncStatusSynced); err != nil {
		return s, err
	}
	if s.Queued, err = e.queue.Count(ctx); err != nil {
		return s, err
	}
	return s, nil
}
