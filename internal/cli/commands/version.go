package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplineage/pkg/graph"
)

// BuildInfo is stamped into the binary at link time.
type BuildInfo struct {
	Version   string
	GitCommit string
	BuildDate string
}

// NewVersionCommand creates the version command.
func NewVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the LeapLineage version, build metadata and the graph backends compiled into this binary.`,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "LeapLineage v%s\n", info.Version)
			_, _ = fmt.Fprintln(out, "Column-level lineage graph builder")
			_, _ = fmt.Fprintf(out, "commit: %s, built: %s\n", info.GitCommit, info.BuildDate)
			_, _ = fmt.Fprintf(out, "graph backends: %s\n", strings.Join(graph.ListBackends(), ", "))
		},
	}
}
