// Package models defines the agent-side data model: evidence records captured
// on the device and the generic queue of pending mutations awaiting delivery.
package models

import "time"

// GeoFix is a best-effort location reading. The three fields are always
// present or absent together; a record captured without GPS carries a nil
// *GeoFix and downstream consumers must treat it as "GPS unavailable",
// not as a defect.
type GeoFix struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
}

// EvidenceRecord is one captured, hashed, geotagged photo awaiting or having
// completed delivery to the backend.
type EvidenceRecord struct {
	// ID is assigned by the capture pipeline and doubles as the idempotency
	// key for upload: the backend treats a resubmission with a known ID as
	// a no-op.
	ID string

	// TaskID and JobID reference external entities not owned by the agent.
	// Both are single required foreign keys.
	TaskID string
	JobID  string

	// EvidenceType and PhotoStage classify the capture; immutable afterwards.
	EvidenceType string
	PhotoStage   PhotoStage

	// PhotoBytes is the compressed payload that will be uploaded;
	// ThumbnailBytes is a small preview kept for local listing.
	PhotoBytes     []byte
	ThumbnailBytes []byte

	// IntegrityHash = SHA-256(PhotoBytes ∥ CapturedAt ∥ OperatorID),
	// computed once at capture and never recomputed or mutated.
	IntegrityHash string

	OperatorID string
	CapturedAt time.Time

	// Geo is nil when no fix was available at capture time.
	Geo *GeoFix

	SyncStatus SyncStatus
	RetryCount int
	LastError  string

	// PhotoURL is the storage location reported back by the backend once
	// the record has been registered.
	PhotoURL string

	// SyncedAt is set when the record reaches the synced state; eviction
	// removes synced records oldest-first by this timestamp.
	SyncedAt *time.Time

	CreatedAt time.Time
}

// Size returns the local storage footprint of the record in bytes.
func (r *EvidenceRecord) Size() int64 {
	return int64(len(r.PhotoBytes) + len(r.ThumbnailBytes))
}
