package commands

import (
	"time"

	"github.com/leapstack-labs/leaplineage/internal/cli/output"
	"github.com/leapstack-labs/leaplineage/internal/engine"
)

func renderSyncReport(r *output.Renderer, report *engine.SyncReport) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(report)
	}
	r.Header(1, "Buffer Sync")
	r.KeyValues([]output.KeyValue{
		{Key: "Run", Value: report.RunID},
		{Key: "Duration", Value: report.Duration.Round(time.Millisecond)},
		{Key: "Processes", Value: report.Processes},
		{Key: "Candidates", Value: report.Candidates},
		{Key: "Created", Value: report.Created},
		{Key: "Unchanged", Value: report.Unchanged},
		{Key: "Skipped", Value: report.Skipped},
		{Key: "Chain failures", Value: report.ChainFailures},
		{Key: "Resolver failures", Value: report.ResolverFailures},
	})
	return nil
}

func renderUpdateReport(r *output.Renderer, report *engine.UpdateReport) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(report)
	}
	r.Header(1, "Incremental Update")
	r.KeyValues([]output.KeyValue{
		{Key: "Run", Value: report.RunID},
		{Key: "Duration", Value: report.Duration.Round(time.Millisecond)},
		{Key: "Since", Value: formatTime(report.Since)},
		{Key: "Fetched", Value: report.Fetched},
		{Key: "Created", Value: report.Created},
		{Key: "Updated", Value: report.Updated},
		{Key: "Rejected", Value: report.Rejected},
		{Key: "Checkpoint", Value: formatTime(report.Checkpoint)},
		{Key: "Advanced", Value: report.Advanced},
	})
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format(time.RFC3339Nano)
}
