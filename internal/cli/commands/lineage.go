package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplineage/internal/cli/output"
	"github.com/leapstack-labs/leaplineage/internal/lineage"
	"github.com/leapstack-labs/leaplineage/pkg/core"
)

// LineageOptions holds options for the lineage command.
type LineageOptions struct {
	Upstream   bool
	Downstream bool
	Depth      int
}

// NewLineageCommand creates the lineage command.
func NewLineageCommand() *cobra.Command {
	opts := &LineageOptions{}

	cmd := &cobra.Command{
		Use:   "lineage <guid>",
		Short: "Show column lineage for a main graph vertex",
		Long: `Display the columns that feed a vertex (upstream) and the columns it
feeds (downstream), following LineageMapping edges in the main graph.

Depth is the number of LineageMapping hops from the vertex. A column and the
process between it and the next column are one hop apart.`,
		Example: `  # Show full lineage for a column
  leaplineage lineage 6f1c2a9e-orders-customer_id

  # Show only upstream sources
  leaplineage lineage 6f1c2a9e-orders-customer_id --downstream=false

  # Limit traversal depth
  leaplineage lineage 6f1c2a9e-orders-customer_id --depth 2

  # Output as JSON
  leaplineage lineage 6f1c2a9e-orders-customer_id --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLineage(cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Upstream, "upstream", true, "Include upstream sources")
	cmd.Flags().BoolVar(&opts.Downstream, "downstream", true, "Include downstream dependents")
	cmd.Flags().IntVar(&opts.Depth, "depth", 0, "Max traversal depth (0 = unlimited)")

	return cmd
}

func runLineage(cmd *cobra.Command, guid string, opts *LineageOptions) error {
	var dir lineage.TraceDirection
	if opts.Upstream {
		dir |= lineage.Upstream
	}
	if opts.Downstream {
		dir |= lineage.Downstream
	}
	if dir == 0 {
		return errors.New("nothing to show: --upstream and --downstream are both false")
	}
	if opts.Depth < 0 {
		return fmt.Errorf("--depth must not be negative, got %d", opts.Depth)
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	trace, err := cmdCtx.Engine.Trace(cmd.Context(), guid, dir, opts.Depth)
	if err != nil {
		if errors.Is(err, core.ErrVertexNotFound) {
			return fmt.Errorf("vertex not found in main graph: %s", guid)
		}
		return err
	}

	out := lineageOutput(trace)
	r := cmdCtx.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}
	renderLineage(r, out, opts)
	return nil
}

func lineageOutput(trace *lineage.Trace) output.LineageOutput {
	out := output.LineageOutput{
		Root:  lineageNode(trace.Root),
		Nodes: make([]output.LineageNode, 0, len(trace.Nodes)),
		Edges: make([]output.LineageEdge, 0, len(trace.Edges)),
	}
	for _, n := range trace.Nodes {
		out.Nodes = append(out.Nodes, lineageNode(n))
		if n.Depth < 0 {
			out.Stats.UpstreamCount++
		} else {
			out.Stats.DownstreamCount++
		}
	}
	for _, e := range trace.Edges {
		out.Edges = append(out.Edges, output.LineageEdge{From: e.From, To: e.To})
	}
	out.Stats.TotalNodes = len(out.Nodes)
	return out
}

func lineageNode(n lineage.TraceNode) output.LineageNode {
	return output.LineageNode{GUID: n.GUID, Label: n.Label, Name: n.Name, Depth: n.Depth}
}

func renderLineage(r *output.Renderer, out output.LineageOutput, opts *LineageOptions) {
	title := out.Root.GUID
	if out.Root.Name != "" {
		title = fmt.Sprintf("%s (%s)", out.Root.Name, out.Root.GUID)
	}
	r.Header(1, "Lineage for: "+title)

	section := func(name string, upstream bool) {
		var rows [][]any
		for _, n := range out.Nodes {
			if (n.Depth < 0) != upstream {
				continue
			}
			depth := n.Depth
			if depth < 0 {
				depth = -depth
			}
			rows = append(rows, []any{depth, n.GUID, n.Label, n.Name})
		}
		r.Println("")
		r.Header(2, fmt.Sprintf("%s (%d)", name, len(rows)))
		if len(rows) == 0 {
			r.Println("  (none)")
			return
		}
		r.Table([]string{"Depth", "GUID", "Label", "Name"}, rows)
	}

	if opts.Upstream {
		section("Upstream", true)
	}
	if opts.Downstream {
		section("Downstream", false)
	}
}
