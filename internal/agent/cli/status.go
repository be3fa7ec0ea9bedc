package cli

import (
	"context"
	"fmt"
)

// Status prints connectivity, backlog and storage usage.
func (a *App) Status(ctx context.Context) error {
	stats, err := a.engine.Stats(ctx)
	if err != nil {
		printlnFn("error:", err.Error())
		return err
	}
	used, _, err := a.quota.Usage(ctx)
	if err != nil {
		printlnFn("error:", err.Error())
		return err
	}

	printlnFn("mode:    ", string(a.getMode()))
	printlnFn("pending: ", stats.Pending)
	printlnFn("failed:  ", stats.Failed)
	printlnFn("synced:  ", stats.Synced)
	printlnFn("queued:  ", stats.Queued)
	printlnFn("storage: ", formatBytes(used), "of", formatBytes(a.config.QuotaBytes))
	return nil
}

// Clear wipes every local collection after an explicit confirmation.
func (a *App) Clear(ctx context.Context) error {
	printlnFn("This deletes ALL local data, including undelivered evidence.")
	answer, err := GetSimpleText(a.reader, "Type yes to proceed", a.out)
	if err != nil || answer != "yes" {
		printlnFn("Cancelled")
		return nil
	}

	if err := a.store.ClearAll(ctx); err != nil {
		printlnFn("error:", err.Error())
		return err
	}
	printlnFn("Local data cleared")
	return nil
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1f GiB", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
