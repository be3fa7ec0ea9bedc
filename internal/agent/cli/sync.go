package cli

import (
	"context"

	"fieldvault/internal/agent/models"
	engine "fieldvault/internal/agent/sync"
	"fieldvault/internal/hashx"
)

// Sync requests a drain cycle right away.
func (a *App) Sync(_ context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Log in first")
		return errNotLoggedIn
	}
	if a.engine.Trigger(engine.TriggerManual) {
		printlnFn("Sync started")
	} else {
		printlnFn("Sync already in progress")
	}
	return nil
}

// Retry puts a failed record back in the queue with a clean retry counter.
func (a *App) Retry(ctx context.Context, id string) error {
	if err := a.store.Repos.Evidence.ResetFailed(ctx, id); err != nil {
		printlnFn("error:", err.Error())
		return err
	}
	printlnFn("Record", id, "queued again")
	return nil
}

// Discard deletes a local record. Records mid-upload are refused; anything
// else, delivered or not, goes when the operator says so.
func (a *App) Discard(ctx context.Context, id string) error {
	rec, err := a.store.Repos.Evidence.GetByID(ctx, id)
	if err != nil {
		printlnFn("error:", err.Error())
		return err
	}
	if rec.SyncStatus == models.SyncStatusUploading {
		printlnFn("Record is being uploaded, try again later")
		return nil
	}
	if rec.SyncStatus != models.SyncStatusSynced {
		printlnFn("Record has not been delivered; it will be lost permanently.")
		answer, err := GetSimpleText(a.reader, "Type yes to discard", a.out)
		if err != nil || answer != "yes" {
			printlnFn("Cancelled")
			return nil
		}
	}
	if err := a.store.Repos.Evidence.Delete(ctx, id); err != nil {
		printlnFn("error:", err.Error())
		return err
	}
	printlnFn("Record", id, "discarded")
	return nil
}

// Verify re-hashes a record's photo and compares it with the hash frozen at
// capture time.
func (a *App) Verify(ctx context.Context, id string) error {
	rec, err := a.store.Repos.Evidence.GetByID(ctx, id)
	if err != nil {
		printlnFn("error:", err.Error())
		return err
	}

	if err := hashx.Verify(rec.IntegrityHash, rec.PhotoBytes, rec.CapturedAt, rec.OperatorID); err != nil {
		printlnFn("INTEGRITY CHECK FAILED:", err.Error())
		return err
	}
	printlnFn("Record", id, "is intact")
	return nil
}
