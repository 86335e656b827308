package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplineage/internal/cli/output"
)

// NewCheckpointCommand creates the checkpoint command.
func NewCheckpointCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "checkpoint",
		Short: "Show the incremental update checkpoint",
		Long: `Print the time up to which catalog changes have been applied to the main
graph. The next incremental update asks the catalog for entities changed
after this time.`,
		Example: `  leaplineage checkpoint
  leaplineage checkpoint --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheckpoint(cmd)
		},
	}
}

func runCheckpoint(cmd *cobra.Command) error {
	cfg, err := getConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateIncrementalUpdate(); err != nil {
		return err
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	key, ts, ok, err := cmdCtx.Engine.Checkpoint(cmd.Context())
	if err != nil {
		return err
	}

	out := output.CheckpointOutput{Key: key}
	if ok {
		out.Timestamp = &ts
	}
	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	r.Header(1, "Checkpoint")
	r.KeyValues([]output.KeyValue{
		{Key: "Key", Value: key},
		{Key: "Timestamp", Value: formatTime(ts)},
	})
	return nil
}
