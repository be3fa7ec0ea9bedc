// Package upload implements the agent's protocol client for delivering
// evidence and queued mutations to the backend.
//
// Evidence upload is a three-step sequence per record: acquire a presigned
// write location, transfer the compressed photo bytes to it, then register
// the evidence metadata. The client never resumes a partial upload; on any
// step failing, the caller retries the whole sequence on the next drain
// cycle, and the backend absorbs duplicates by the record's id.
package upload

import (
	"context"

	"fieldvault/internal/agent/models"
)

// Uploader is the network boundary the sync engine calls through.
type Uploader interface {
	// UploadEvidence runs the full three-step sequence for one record and
	// returns the registered photo location.
	UploadEvidence(ctx context.Context, token string, rec *models.EvidenceRecord) (photoURL string, err error)

	// SubmitMutation delivers one queued entity mutation.
	SubmitMutation(ctx context.Context, token string, item *models.SyncQueueItem) error
}

// CredentialProvider hands out a fresh access token. The sync engine calls
// it once per drain cycle, not once per item.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// RegistrationPayload is the evidence metadata registered with the backend
// after the bytes have been transferred.
type RegistrationPayload struct {
	ID           string   `json:"id"`
	TaskID       string   `json:"task_id"`
	JobID        string   `json:"job_id"`
	EvidenceType string   `json:"evidence_type"`
	PhotoStage   *string  `json:"photo_stage"`
	PhotoURL     string   `json:"photo_url"`
	PhotoHash    string   `json:"photo_hash"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	GPSAccuracy  *float64 `json:"gps_accuracy"`
	CapturedAt   string   `json:"captured_at"`
}
