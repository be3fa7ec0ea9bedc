package models

import "time"

// Evidence is one registered evidence row. The photo itself lives in object
// storage under PhotoURL; this row carries the metadata and the integrity
// hash frozen on the device at capture time.
//
// The row is immutable once written: agents retry whole upload sequences, so
// registration must be idempotent by ID.
type Evidence struct {
	ID           string
	OperatorID   string
	TaskID       string
	JobID        string
	EvidenceType string
	PhotoStage   *string
	PhotoURL     string
	PhotoHash    string
	Latitude     *float64
	Longitude    *float64
	GPSAccuracy  *float64
	CapturedAt   time.Time
	ReceivedAt   time.Time
}
