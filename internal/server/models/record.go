package models

import (
	"encoding/json"
	"time"
)

// Record is a synced business document (task, job, ...) delivered from an
// agent's sync queue. The payload stays opaque JSON; the server only keys it
// by collection and id.
type Record struct {
	Type       string
	ID         string
	OperatorID string
	Action     string
	Payload    json.RawMessage
	UpdatedAt  time.Time
}
