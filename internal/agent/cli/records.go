package cli

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"fieldvault/internal/agent/models"
	"fieldvault/internal/agent/repositories/recordcache"
	"fieldvault/internal/common"
)

// Record stores a job or task mutation locally and queues it for delivery.
// The local cache copy is the read-through state the listing shows; whether
// the backend sees a create or an update depends on what the cache already
// holds, so replaying the command is safe.
func (a *App) Record(ctx context.Context, args []string) error {
	typ, err := models.ParseQueueItemType(args[0])
	if err != nil || typ == models.QueueItemEvidence {
		printlnFn("Record type must be job or task")
		return errors.New("bad record type")
	}
	id := args[1]
	payload := strings.Join(args[2:], " ")
	if !json.Valid([]byte(payload)) {
		printlnFn("Payload must be valid JSON")
		return errors.New("bad record payload")
	}

	action := models.QueueActionCreate
	if _, err := a.store.Repos.RecordCache.Get(ctx, typ, id); err == nil {
		action = models.QueueActionUpdate
	} else if !errors.Is(err, common.ErrorNotFound) {
		printlnFn("error:", err.Error())
		return err
	}

	if err := a.store.Repos.RecordCache.Put(ctx, &recordcache.CachedRecord{
		Type: typ, ID: id, Payload: json.RawMessage(payload),
	}); err != nil {
		printlnFn("error:", err.Error())
		return err
	}

	if err := a.store.Repos.SyncQueue.Enqueue(ctx, &models.SyncQueueItem{
		ID:        uuid.NewString(),
		Type:      typ,
		Action:    action,
		EntityID:  id,
		Payload:   json.RawMessage(payload),
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		printlnFn("error:", err.Error())
		return err
	}

	printlnFn("Recorded", string(typ), id, "("+string(action)+"), queued for sync")
	return nil
}

// Records lists the cached jobs and tasks, optionally filtered by type.
func (a *App) Records(ctx context.Context, args []string) error {
	types := []models.QueueItemType{models.QueueItemJob, models.QueueItemTask}
	if len(args) > 0 {
		typ, err := models.ParseQueueItemType(args[0])
		if err != nil || typ == models.QueueItemEvidence {
			printlnFn("Record type must be job or task")
			return errors.New("bad record type")
		}
		types = []models.QueueItemType{typ}
	}

	total := 0
	for _, typ := range types {
		cached, err := a.store.Repos.RecordCache.ListByType(ctx, typ)
		if err != nil {
			printlnFn("error:", err.Error())
			return err
		}
		for _, rec := range cached {
			printlnFn(string(rec.Type), rec.ID, string(rec.Payload))
			total++
		}
	}
	if total == 0 {
		printlnFn("No cached records")
	}
	return nil
}
