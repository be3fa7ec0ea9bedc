package models

import "time"

// Operator is a field worker account allowed to upload evidence.
type Operator struct {
	ID           string
	Login        string
	PasswordHash string
	CreatedAt    time.Time
}
