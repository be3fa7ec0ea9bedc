// Package capture turns raw camera and geolocation input into size-bounded,
// hashed evidence records persisted in the local durable store.
package capture

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fieldvault/internal/agent/models"
	"fieldvault/internal/agent/repositories/evidence"
	"fieldvault/internal/hashx"
	"fieldvault/internal/logging"
)

// Request carries the task/job/classification context for one capture.
type Request struct {
	TaskID       string
	JobID        string
	EvidenceType string
	Stage        models.PhotoStage
}

func (r Request) validate() error {
	if r.TaskID == "" {
		return fmt.Errorf("task id is required")
	}
	if r.JobID == "" {
		return fmt.Errorf("job id is required")
	}
	if r.EvidenceType == "" {
		return fmt.Errorf("evidence type is required")
	}
	if _, err := models.ParsePhotoStage(string(r.Stage)); err != nil {
		return err
	}
	return nil
}

// Pipeline produces evidence records. It is constructed once with its
// dependencies injected; it holds no global state.
type Pipeline struct {
	repo       evidence.Repository
	geo        GeoProvider
	operatorID string
	opts       CompressOptions
	log        logging.Logger

	// test seams
	now   func() time.Time
	newID func() string
}

// New builds a capture pipeline for the given operator.
func New(repo evidence.Repository, geo GeoProvider, operatorID string, opts CompressOptions, log logging.Logger) *Pipeline {
	return &Pipeline{
		repo:       repo,
		geo:        geo,
		operatorID: operatorID,
		opts:       opts,
		log:        log.With("component", "capture"),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Capture reads a photo from src, compresses it under the configured size
// ceiling, freezes the integrity hash over the final compressed bytes, and
// persists a pending evidence record.
//
// A source failure aborts with no record created. A location failure alone
// never blocks capture: the record is stored with null geo fields.
func (p *Pipeline) Capture(ctx context.Context, src Source, req Request) (*models.EvidenceRecord, error) {
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("invalid capture request: %w", err)
	}

	raw, err := src.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture failed: %w", err)
	}

	photo, thumb, err := Compress(raw, p.opts)
	if err != nil {
		return nil, fmt.Errorf("capture failed: %w", err)
	}

	capturedAt := p.now().UTC()

	geo, err := p.geo.Fix(ctx)
	if err != nil {
		p.log.Warn(ctx, "gps unavailable, capturing without location", "error", err)
		geo = nil
	}

	rec := &models.EvidenceRecord{
		ID:             p.newID(),
		TaskID:         req.TaskID,
		JobID:          req.JobID,
		EvidenceType:   req.EvidenceType,
		PhotoStage:     req.Stage,
		PhotoBytes:     photo,
		ThumbnailBytes: thumb,
		// frozen here; never recomputed afterwards
		IntegrityHash: hashx.Sum(photo, capturedAt, p.operatorID),
		OperatorID:    p.operatorID,
		CapturedAt:    capturedAt,
		Geo:           geo,
		SyncStatus:    models.SyncStatusPending,
		CreatedAt:     p.now().UTC(),
	}

	if err := p.repo.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist evidence record: %w", err)
	}

	p.log.Info(ctx, "evidence captured",
		"id", rec.ID, "task", rec.TaskID, "bytes", len(photo), "gps", geo != nil)

	return rec, nil
}
