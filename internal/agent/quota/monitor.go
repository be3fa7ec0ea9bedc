// Package quota watches local storage usage and frees space by evicting
// evidence that has already been delivered to the backend.
//
// Eviction only ever removes synced records, oldest sync first; pending,
// uploading and failed records are never touched, whatever the pressure.
// When everything on disk is still undelivered the monitor can only warn.
package quota

import (
	"context"
	"time"

	"fieldvault/internal/agent/models"
	"fieldvault/internal/agent/repositories/evidence"
	"fieldvault/internal/logging"
)

// evictBatch bounds how many synced rows are fetched per eviction pass.
const evictBatch = 50

// Options tune the monitor. Zero values are replaced by defaults.
type Options struct {
	// QuotaBytes is the storage budget for evidence payloads.
	QuotaBytes int64

	// WarnRatio is the usage fraction at which a warning is raised.
	WarnRatio float64

	// EvictRatio is the usage fraction at which eviction starts; eviction
	// continues until usage drops below this ceiling.
	EvictRatio float64
}

func (o Options) withDefaults() Options {
	if o.QuotaBytes == 0 {
		o.QuotaBytes = 512 << 20
	}
	if o.WarnRatio == 0 {
		o.WarnRatio = 0.80
	}
	if o.EvictRatio == 0 {
		o.EvictRatio = 0.90
	}
	return o
}

// Report is the outcome of one quota check.
type Report struct {
	UsedBytes  int64
	QuotaBytes int64
	Warned     bool
	Evicted    int
	// Exhausted is set when usage stays above the eviction ceiling because
	// no synced records remain to delete.
	Exhausted bool
}

// Ratio returns used/quota.
func (r Report) Ratio() float64 {
	if r.QuotaBytes == 0 {
		return 0
	}
	return float64(r.UsedBytes) / float64(r.QuotaBytes)
}

// Monitor checks usage against the quota and evicts when needed.
type Monitor struct {
	repo evidence.Repository
	log  logging.Logger
	opts Options

	// OnWarn, when set, is called once per warn-threshold crossing.
	OnWarn func(Report)

	warned bool
}

// NewMonitor wires a quota monitor over the evidence repository.
func NewMonitor(repo evidence.Repository, log logging.Logger, opts Options) *Monitor {
	return &Monitor{
		repo: repo,
		log:  log.With("component", "quota"),
		opts: opts.withDefaults(),
	}
}

// Check measures usage, warns on the 80% crossing, and evicts synced records
// oldest-first while usage sits at or above the eviction ceiling. It is
// called after each capture and periodically; it is not safe for concurrent
// use with itself, which matches the single-loop apps that own it.
func (m *Monitor) Check(ctx context.Context) (Report, error) {
	used, err := m.repo.TotalBytes(ctx)
	if err != nil {
		return Report{}, err
	}

	rep := Report{UsedBytes: used, QuotaBytes: m.opts.QuotaBytes}

	if rep.Ratio() >= m.opts.EvictRatio {
		evicted, exhausted, err := m.evict(ctx, &rep)
		if err != nil {
			return rep, err
		}
		rep.Evicted = evicted
		rep.Exhausted = exhausted
	}

	// warn state resets once usage falls back under the threshold
	if rep.Ratio() >= m.opts.WarnRatio {
		if !m.warned {
			m.warned = true
			rep.Warned = true
			m.log.Warn(ctx, "storage usage above warning threshold",
				"used_bytes", rep.UsedBytes, "quota_bytes", rep.QuotaBytes)
			if m.OnWarn != nil {
				m.OnWarn(rep)
			}
		}
	} else {
		m.warned = false
	}

	return rep, nil
}

// evict deletes synced records, oldest sync first, until usage drops below
// the eviction ceiling or no synced records remain.
func (m *Monitor) evict(ctx context.Context, rep *Report) (int, bool, error) {
	ceiling := int64(m.opts.EvictRatio * float64(m.opts.QuotaBytes))
	evicted := 0

	for rep.UsedBytes >= ceiling {
		refs, err := m.repo.ListSyncedOldestFirst(ctx, evictBatch)
		if err != nil {
			return evicted, false, err
		}
		if len(refs) == 0 {
			m.log.Error(ctx, "storage over quota but nothing evictable remains",
				"used_bytes", rep.UsedBytes, "quota_bytes", rep.QuotaBytes)
			return evicted, true, nil
		}

		for _, ref := range refs {
			if rep.UsedBytes < ceiling {
				break
			}
			if err := m.repo.Delete(ctx, ref.ID); err != nil {
				return evicted, false, err
			}
			rep.UsedBytes -= ref.Size
			evicted++
			m.log.Info(ctx, "evicted synced record",
				"id", ref.ID, "size", ref.Size, "synced_at", ref.SyncedAt)
		}
	}

	return evicted, false, nil
}

// Run re-checks on a fixed interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Check(ctx); err != nil {
				m.log.Error(ctx, "quota check failed", "error", err)
			}
		}
	}
}

// Usage returns current usage and per-status record counts for status output.
func (m *Monitor) Usage(ctx context.Context) (used int64, synced int64, err error) {
	if used, err = m.repo.TotalBytes(ctx); err != nil {
		return 0, 0, err
	}
	if synced, err = m.repo.CountByStatus(ctx, models.SyncStatusSynced); err != nil {
		return 0, 0, err
	}
	return used, synced, nil
}
