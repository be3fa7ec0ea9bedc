package capture

import (
	"context"
	"errors"

	"fieldvault/internal/agent/models"
)

// ErrNoFix reports that no location could be obtained. It is not a capture
// error: the record is created with null geo fields.
var ErrNoFix = errors.New("no gps fix available")

// GeoProvider returns a best-effort location fix. Implementations must not
// block capture: return ErrNoFix (or any error) promptly when no fix exists.
type GeoProvider interface {
	Fix(ctx context.Context) (*models.GeoFix, error)
}

// StaticProvider always reports the same fix. Used when the host passes
// coordinates through from an external receiver, and in tests.
type StaticProvider models.GeoFix

func (p StaticProvider) Fix(_ context.Context) (*models.GeoFix, error) {
	fix := models.GeoFix(p)
	return &fix, nil
}

// UnavailableProvider models a device without GPS.
type UnavailableProvider struct{}

func (UnavailableProvider) Fix(_ context.Context) (*models.GeoFix, error) {
	return nil, ErrNoFix
}
