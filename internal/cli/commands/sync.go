package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one buffer-to-main lineage pass",
		Long: `Resolve every process in the buffer graph into column-level lineage in
the main graph, once, and print a summary.

For each process, the input columns are found by following its input ports
and the output columns through its output ports. Each input column is traced
back through derivation edges to the column that holds it in the main graph,
and a Process vertex with LineageMapping edges is created between them.
Running the pass again creates nothing new.`,
		Example: `  # Run a single pass
  leaplineage sync

  # Emit the report as JSON
  leaplineage sync --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd)
		},
	}
}

func runSync(cmd *cobra.Command) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := cmdCtx.Engine.RunBufferSync(cmd.Context())
	if err != nil {
		return fmt.Errorf("buffer sync failed: %w", err)
	}
	return renderSyncReport(cmdCtx.Renderer, report)
}
