// Package hashx implements the evidence integrity hash.
//
// The hash commits to exactly the bytes that will be uploaded plus their
// provenance: SHA-256 over photoBytes ∥ capturedAt ∥ operatorID, hex encoded.
// It is computed once at capture time and never recomputed or mutated
// afterwards; verification reproduces the digest from the same inputs and
// compares, and a mismatch is always a verification failure.
package hashx

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"time"

	"fieldvault/internal/common"
)

// Sum computes the integrity hash for a captured photo.
//
// capturedAt is normalized to UTC and serialized as RFC 3339 with nanoseconds
// before hashing, so the digest is independent of the machine's time zone.
func Sum(photo []byte, capturedAt time.Time, operatorID string) string {
	h := sha256.New()
	h.Write(photo)
	h.Write([]byte(capturedAt.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte(operatorID))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// Verify recomputes the hash from the delivered inputs and compares it with
// the stored digest in constant time. It returns common.ErrHashMismatch when
// the values differ; the stored hash must never be "fixed up" to match.
func Verify(stored string, photo []byte, capturedAt time.Time, operatorID string) error {
	computed := Sum(photo, capturedAt, operatorID)
	if subtle.ConstantTimeCompare([]byte(stored), []byte(computed)) != 1 {
		return fmt.Errorf("%w: stored %.12s..., computed %.12s...", common.ErrHashMismatch, stored, computed)
	}
	return nil
}
