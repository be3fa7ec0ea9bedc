package capture

import (
	"context"
	"fmt"
	"os"
)

// Source supplies raw image bytes from whatever camera the host exposes.
// A Source failure is a capture error: it is surfaced synchronously to the
// caller and no record is created.
type Source interface {
	Read(ctx context.Context) ([]byte, error)
}

// FileSource reads a photo from the local filesystem. It is the camera
// implementation of the CLI agent, where capture hardware hands finished
// files to a spool directory.
type FileSource struct {
	Path string
}

func (s FileSource) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read photo %s: %w", s.Path, err)
	}
	return data, nil
}

// BytesSource wraps an in-memory photo, mainly for tests.
type BytesSource []byte

func (s BytesSource) Read(_ context.Context) ([]byte, error) {
	return s, nil
}
