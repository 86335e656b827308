package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplineage/internal/catalog/catalogtest"
	"github.com/leapstack-labs/leaplineage/internal/cli/config"
	"github.com/leapstack-labs/leaplineage/internal/cli/output"
	"github.com/leapstack-labs/leaplineage/internal/engine"
	"github.com/leapstack-labs/leaplineage/internal/testutil"
	"github.com/leapstack-labs/leaplineage/pkg/adapters/sqlite"
	"github.com/leapstack-labs/leaplineage/pkg/core"
)

func TestNewLineageCommand(t *testing.T) {
	cmd := NewLineageCommand()

	assert.Equal(t, "lineage <guid>", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")

	// Verify flags exist (output is a global flag on root, not local)
	for _, flag := range []string{"upstream", "downstream", "depth"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestNewSeedCommand(t *testing.T) {
	cmd := NewSeedCommand()

	assert.Equal(t, "seed <file>", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
	for _, flag := range []string{"graph", "reset"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
}

func TestJobCommandsMetadata(t *testing.T) {
	for _, cmd := range []*cobra.Command{
		NewServeCommand(),
		NewSyncCommand(),
		NewUpdateCommand(),
		NewCheckpointCommand(),
	} {
		assert.NotEmpty(t, cmd.Short, "%s: Short should not be empty", cmd.Use)
		assert.NotEmpty(t, cmd.Long, "%s: Long should not be empty", cmd.Use)
		assert.NotEmpty(t, cmd.Example, "%s: Example should not be empty", cmd.Use)
	}
}

// testConfig returns a configuration with file-backed sqlite graphs in a
// temporary directory, so consecutive commands see each other's writes.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Log:    config.LogConfig{Level: "info", Format: "text"},
		Output: string(output.ModeJSON),
		BufferGraph: core.GraphConfig{
			Backend: "sqlite",
			Path:    filepath.Join(dir, "graphs", "buffer.db"),
			Name:    "buffer",
		},
		MainGraph: core.GraphConfig{
			Backend: "sqlite",
			Path:    filepath.Join(dir, "graphs", "main.db"),
			Name:    "main",
		},
		BufferSync: config.BufferSyncConfig{
			Enabled:       true,
			Interval:      time.Hour,
			RunOnStart:    true,
			MaxChainDepth: 64,
		},
		IncrementalUpdate: config.IncrementalUpdateConfig{
			Interval:   time.Hour,
			EntityType: config.DefaultEntityType,
		},
	}
}

func execute(t *testing.T, ctx context.Context, cfg *config.Config, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	ctx = config.WithConfig(ctx, cfg)
	ctx = config.WithLogger(ctx, testutil.NewTestLogger(t))
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

func seedScenario(t *testing.T, cfg *config.Config) {
	t.Helper()
	_, err := execute(t, context.Background(), cfg, NewSeedCommand(), "testdata/buffer.yaml")
	require.NoError(t, err)
	_, err = execute(t, context.Background(), cfg, NewSeedCommand(), "testdata/main.yaml", "--graph", "main")
	require.NoError(t, err)
}

func openMain(t *testing.T, cfg *config.Config) *sqlite.Graph {
	t.Helper()
	g, err := sqlite.Open(context.Background(), cfg.MainGraph, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestSeedSyncLineage(t *testing.T) {
	cfg := testConfig(t)

	out, err := execute(t, context.Background(), cfg, NewSeedCommand(), "testdata/buffer.yaml")
	require.NoError(t, err)
	var seeded output.SeedOutput
	require.NoError(t, json.Unmarshal([]byte(out), &seeded))
	assert.Equal(t, "buffer", seeded.Graph)
	assert.Equal(t, 8, seeded.Vertices)
	assert.Equal(t, 7, seeded.Edges)

	_, err = execute(t, context.Background(), cfg, NewSeedCommand(), "testdata/main.yaml", "--graph", "main")
	require.NoError(t, err)

	out, err = execute(t, context.Background(), cfg, NewSyncCommand())
	require.NoError(t, err)
	var report engine.SyncReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Processes)
	assert.Equal(t, 1, report.Created)
	assert.Zero(t, report.ChainFailures)

	out, err = execute(t, context.Background(), cfg, NewLineageCommand(), "colOut", "--downstream=false")
	require.NoError(t, err)
	var lin output.LineageOutput
	require.NoError(t, json.Unmarshal([]byte(out), &lin))
	assert.Equal(t, "colOut", lin.Root.GUID)
	assert.Equal(t, 2, lin.Stats.UpstreamCount)
	assert.Zero(t, lin.Stats.DownstreamCount)
	require.Len(t, lin.Nodes, 2)
	assert.Equal(t, "pA", lin.Nodes[0].GUID)
	assert.Equal(t, -1, lin.Nodes[0].Depth)
	assert.Equal(t, "colIn", lin.Nodes[1].GUID)

	// A second pass finds everything in place.
	out, err = execute(t, context.Background(), cfg, NewSyncCommand())
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Zero(t, report.Created)
	assert.Equal(t, 1, report.Unchanged)
}

func TestLineage_TextOutput(t *testing.T) {
	cfg := testConfig(t)
	seedScenario(t, cfg)
	_, err := execute(t, context.Background(), cfg, NewSyncCommand())
	require.NoError(t, err)

	cfg.Output = string(output.ModeText)
	out, err := execute(t, context.Background(), cfg, NewLineageCommand(), "colIn")
	require.NoError(t, err)

	assert.Contains(t, out, "Lineage for: customer_id (colIn)")
	assert.Contains(t, out, "Upstream (0)")
	assert.Contains(t, out, "Downstream (2)")
	assert.Contains(t, out, "customer_key")
}

func TestLineage_Errors(t *testing.T) {
	cfg := testConfig(t)

	_, err := execute(t, context.Background(), cfg, NewLineageCommand(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vertex not found in main graph: missing")

	_, err = execute(t, context.Background(), cfg, NewLineageCommand(), "colIn", "--upstream=false", "--downstream=false")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to show")

	_, err = execute(t, context.Background(), cfg, NewLineageCommand(), "colIn", "--depth", "-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--depth must not be negative")
}

func TestSeed_Reset(t *testing.T) {
	cfg := testConfig(t)

	for range 2 {
		_, err := execute(t, context.Background(), cfg, NewSeedCommand(), "testdata/main.yaml", "--graph", "main", "--reset")
		require.NoError(t, err)
	}

	g := openMain(t, cfg)
	assert.Equal(t, 2, testutil.CountVertices(t, g, core.LabelSchemaAttribute))
}

func TestSeed_Errors(t *testing.T) {
	cfg := testConfig(t)

	_, err := execute(t, context.Background(), cfg, NewSeedCommand(), "testdata/main.yaml", "--graph", "other")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid --graph "other"`)

	_, err = execute(t, context.Background(), cfg, NewSeedCommand(), "testdata/absent.yaml")
	require.Error(t, err)
}

func TestUpdate_RequiresCatalog(t *testing.T) {
	cfg := testConfig(t)

	_, err := execute(t, context.Background(), cfg, NewUpdateCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.base_url")

	_, err = execute(t, context.Background(), cfg, NewCheckpointCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog.base_url")
}

func TestUpdateAndCheckpoint(t *testing.T) {
	srv := catalogtest.NewServer(t)
	srv.Token = "t0ken"
	srv.AddEntities(core.Entity{
		GUID:       "term-1",
		TypeName:   config.DefaultEntityType,
		Properties: core.Properties{"name": "Customer"},
		UpdatedAt:  time.Now().Add(-time.Hour),
	})

	cfg := testConfig(t)
	cfg.Catalog = config.CatalogConfig{BaseURL: srv.URL, Token: "t0ken", Timeout: 5 * time.Second}
	cfg.IncrementalUpdate.ServerName = "catalog"
	cfg.IncrementalUpdate.UserID = "lineage-bot"

	out, err := execute(t, context.Background(), cfg, NewCheckpointCommand())
	require.NoError(t, err)
	var cp output.CheckpointOutput
	require.NoError(t, json.Unmarshal([]byte(out), &cp))
	assert.Equal(t, "incremental-update.GlossaryTerm", cp.Key)
	assert.Nil(t, cp.Timestamp)

	out, err = execute(t, context.Background(), cfg, NewUpdateCommand())
	require.NoError(t, err)
	var report engine.UpdateReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 1, report.Fetched)
	assert.Equal(t, 1, report.Created)
	assert.True(t, report.Advanced)

	out, err = execute(t, context.Background(), cfg, NewCheckpointCommand())
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &cp))
	require.NotNil(t, cp.Timestamp)
	assert.True(t, cp.Timestamp.Equal(report.Checkpoint))

	requests := srv.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "catalog", requests[0].Server)
	assert.Equal(t, "lineage-bot", requests[0].User)
	assert.True(t, requests[0].Since.IsZero())
}

func TestServe_Validation(t *testing.T) {
	cfg := testConfig(t)
	cfg.IncrementalUpdate.Enabled = true

	_, err := execute(t, context.Background(), cfg, NewServeCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incremental_update.enabled to false")

	cfg.IncrementalUpdate.Enabled = false
	cfg.BufferSync.Enabled = false
	_, err = execute(t, context.Background(), cfg, NewServeCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no jobs enabled")
}

func TestServe_RunsUntilCancelled(t *testing.T) {
	cfg := testConfig(t)
	seedScenario(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	_, err := execute(t, ctx, cfg, NewServeCommand())
	require.NoError(t, err)

	// The run-on-start pass completed before shutdown.
	g := openMain(t, cfg)
	procs := testutil.FindVertices(t, g, core.LabelProcess, core.Properties{core.PropGUID: "pA"})
	assert.Len(t, procs, 1)
}
