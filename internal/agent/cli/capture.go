package cli

import (
	"context"
	"flag"

	"fieldvault/internal/agent/capture"
	"fieldvault/internal/agent/models"
)

// Capture compresses a photo file into a pending evidence record. Location
// is attached only when -lat/-lon are given; a device shell would feed the
// receiver's fix here instead.
func (a *App) Capture(ctx context.Context, args []string) error {
	file := args[0]

	fs := flag.NewFlagSet("capture", flag.ContinueOnError)
	taskID := fs.String("task", "", "task identifier")
	jobID := fs.String("job", "", "job identifier")
	evType := fs.String("type", "photo", "evidence type")
	stage := fs.String("stage", "", "photo stage (before/after)")
	lat := fs.Float64("lat", 0, "latitude")
	lon := fs.Float64("lon", 0, "longitude")
	acc := fs.Float64("acc", 0, "gps accuracy (meters)")

	if err := fs.Parse(args[1:]); err != nil {
		printlnFn("error:", err.Error())
		return err
	}

	var geo capture.GeoProvider = capture.UnavailableProvider{}
	gpsGiven := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "lat" || f.Name == "lon" {
			gpsGiven = true
		}
	})
	if gpsGiven {
		geo = capture.StaticProvider{Latitude: *lat, Longitude: *lon, Accuracy: *acc}
	}

	pipeline := capture.New(a.store.Repos.Evidence, geo, a.operatorID(), capture.CompressOptions{
		TargetBytes:  a.config.TargetPhotoBytes,
		MaxDimension: a.config.MaxDimension,
	}, a.log)

	rec, err := pipeline.Capture(ctx, capture.FileSource{Path: file}, capture.Request{
		TaskID:       *taskID,
		JobID:        *jobID,
		EvidenceType: *evType,
		Stage:        models.PhotoStage(*stage),
	})
	if err != nil {
		printlnFn("Capture failed:", err.Error())
		return err
	}

	printlnFn("Captured", rec.ID, formatBytes(int64(len(rec.PhotoBytes))), "hash", rec.IntegrityHash[:12])

	if _, err := a.quota.Check(ctx); err != nil {
		a.log.Error(ctx, "quota check failed", "error", err)
	}

	return nil
}

// operatorID prefers the configured device identity and falls back to the
// logged-in operator name.
func (a *App) operatorID() string {
	if a.config.OperatorID != "" {
		return a.config.OperatorID
	}
	operator, _ := a.session.get()
	return operator
}
