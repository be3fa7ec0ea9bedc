package cli

import (
	"context"
	"fmt"

	"fieldvault/internal/agent/models"
)

var listOrder = []models.SyncStatus{
	models.SyncStatusPending,
	models.SyncStatusUploading,
	models.SyncStatusFailed,
	models.SyncStatusSynced,
}

// List prints all local evidence grouped by sync status.
func (a *App) List(ctx context.Context) error {
	for _, status := range listOrder {
		records, err := a.store.Repos.Evidence.GetByStatus(ctx, status)
		if err != nil {
			printlnFn("error:", err.Error())
			return err
		}
		if len(records) == 0 {
			continue
		}
		printlnFn(string(status) + ":")
		for _, rec := range records {
			printlnFn(" ", summaryLine(rec))
		}
	}
	return nil
}

// Pending prints the records still waiting for delivery.
func (a *App) Pending(ctx context.Context) error {
	for _, status := range []models.SyncStatus{models.SyncStatusPending, models.SyncStatusUploading} {
		records, err := a.store.Repos.Evidence.GetByStatus(ctx, status)
		if err != nil {
			printlnFn("error:", err.Error())
			return err
		}
		for _, rec := range records {
			printlnFn(summaryLine(rec))
		}
	}
	return nil
}

// Show prints one record in detail. Photo bytes are summarized, not dumped.
func (a *App) Show(ctx context.Context, id string) error {
	rec, err := a.store.Repos.Evidence.GetByID(ctx, id)
	if err != nil {
		printlnFn("error:", err.Error())
		return err
	}

	printlnFn("id:        ", rec.ID)
	printlnFn("task:      ", rec.TaskID)
	printlnFn("job:       ", rec.JobID)
	printlnFn("type:      ", rec.EvidenceType)
	if rec.PhotoStage != models.PhotoStageNone {
		printlnFn("stage:     ", string(rec.PhotoStage))
	}
	printlnFn("photo:     ", formatBytes(int64(len(rec.PhotoBytes))))
	printlnFn("hash:      ", rec.IntegrityHash)
	printlnFn("operator:  ", rec.OperatorID)
	printlnFn("captured:  ", rec.CapturedAt.Format("2006-01-02 15:04:05 MST"))
	if rec.Geo != nil {
		printlnFn("location:  ", fmt.Sprintf("%.5f, %.5f (±%.0fm)", rec.Geo.Latitude, rec.Geo.Longitude, rec.Geo.Accuracy))
	} else {
		printlnFn("location:   none")
	}
	printlnFn("status:    ", string(rec.SyncStatus))
	if rec.RetryCount > 0 {
		printlnFn("retries:   ", rec.RetryCount)
	}
	if rec.LastError != "" {
		printlnFn("last error:", rec.LastError)
	}
	if rec.SyncedAt != nil {
		printlnFn("synced:    ", rec.SyncedAt.Format("2006-01-02 15:04:05 MST"), "as", rec.PhotoURL)
	}
	return nil
}

func summaryLine(rec *models.EvidenceRecord) string {
	return fmt.Sprintf("%s  task=%s  %s  %s  %s",
		rec.ID, rec.TaskID, rec.EvidenceType,
		formatBytes(int64(len(rec.PhotoBytes))),
		rec.CapturedAt.Format("2006-01-02 15:04"))
}
