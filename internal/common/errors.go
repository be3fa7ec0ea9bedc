// Package common defines shared constants and sentinel errors used across
// the agent and server layers of FieldVault. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// ErrInvalidTransition is returned when a status change is attempted
	// on a record that is not in the expected source state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrHashMismatch is a verification failure: the recomputed integrity
	// hash does not match the stored one. It must never be "repaired".
	ErrHashMismatch = errors.New("integrity hash mismatch")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
