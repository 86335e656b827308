package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplineage/internal/engine"
	"github.com/leapstack-labs/leaplineage/internal/scheduler"
	"github.com/leapstack-labs/leaplineage/internal/testutil"
	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"
)

func TestBufferSync_EndToEnd(t *testing.T) {
	ctx := context.Background()
	buffer := scenarioBuffer(t)
	main := testutil.NewMemoryGraph(t, "main")
	testutil.Seed(t, main, mainColumns)

	job := engine.NewBufferSyncJob(buffer, main, 0, testutil.NewTestLogger(t))
	report, err := job.Sync(ctx)
	require.NoError(t, err)

	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.Processes)
	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, 1, report.Created)
	assert.Zero(t, report.ChainFailures)
	assert.Zero(t, report.ResolverFailures)

	procs := testutil.FindVertices(t, main, core.LabelProcess, nil)
	require.Len(t, procs, 1)
	assert.Equal(t, "pA", procs[0].GUID())
	assert.Equal(t, "P1", procs[0].Name())

	testutil.View(t, main, func(tx graph.Tx) {
		in, err := tx.Neighbors(ctx, procs[0], core.EdgeLineageMapping, graph.In)
		require.NoError(t, err)
		require.Len(t, in, 1)
		assert.Equal(t, "colIn", in[0].GUID())

		out, err := tx.Neighbors(ctx, procs[0], core.EdgeLineageMapping, graph.Out)
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, "colOut", out[0].GUID())
	})
	assert.Equal(t, 2, testutil.CountEdges(t, main, core.EdgeLineageMapping))

	// the buffer graph is never written
	assert.Equal(t, 1, testutil.CountEdges(t, buffer, core.EdgeLineageMapping))
}

func TestBufferSync_Idempotent(t *testing.T) {
	ctx := context.Background()
	main := testutil.NewMemoryGraph(t, "main")
	testutil.Seed(t, main, mainColumns)
	job := engine.NewBufferSyncJob(scenarioBuffer(t), main, 0, testutil.NewTestLogger(t))

	_, err := job.Sync(ctx)
	require.NoError(t, err)
	edges := testutil.CountEdges(t, main, "")

	report, err := job.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Created)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, edges, testutil.CountEdges(t, main, ""))
	assert.Equal(t, 1, testutil.CountVertices(t, main, core.LabelProcess))
}

func TestBufferSync_BrokenChainDoesNotStopPass(t *testing.T) {
	ctx := context.Background()
	buffer := testutil.NewMemoryGraph(t, "buffer")
	testutil.Seed(t, buffer, `
vertices:
  - {ref: pBroken, label: Process}
  - {ref: portB, label: Port, properties: {portType: INPUT_PORT}}
  - {ref: schemaB, label: SchemaType}
  - {ref: attrB, label: SchemaAttribute}
  - {ref: colB, label: SchemaAttribute}
  - {ref: deadEnd, label: SchemaAttribute}
  - {ref: pGood, label: Process}
  - {ref: portG, label: Port, properties: {portType: INPUT_PORT}}
  - {ref: schemaG, label: SchemaType}
  - {ref: attrG, label: SchemaAttribute}
  - {ref: colIn, label: SchemaAttribute}
  - {ref: colOut, label: SchemaAttribute}
  - {ref: holderB, label: Port}
  - {ref: holderG, label: Port}
edges:
  - {label: ProcessPort, from: pBroken, to: holderB}
  - {label: PortDelegation, from: holderB, to: portB}
  - {label: PortSchema, from: portB, to: schemaB}
  - {label: AttributeForSchema, from: schemaB, to: attrB}
  - {label: SchemaAttributeType, from: attrB, to: colB}
  - {label: LineageMapping, from: colB, to: deadEnd}
  - {label: ProcessPort, from: pGood, to: holderG}
  - {label: PortDelegation, from: holderG, to: portG}
  - {label: PortSchema, from: portG, to: schemaG}
  - {label: AttributeForSchema, from: schemaG, to: attrG}
  - {label: SchemaAttributeType, from: attrG, to: colIn}
  - {label: SchemaAttributeType, from: colIn, to: colOut}
`)
	main := testutil.NewMemoryGraph(t, "main")
	testutil.Seed(t, main, mainColumns)

	report, err := engine.NewBufferSyncJob(buffer, main, 0, testutil.NewTestLogger(t)).Sync(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Processes)
	assert.Equal(t, 2, report.Candidates)
	assert.Equal(t, 1, report.ChainFailures)
	assert.Equal(t, 1, report.Created)

	procs := testutil.FindVertices(t, main, core.LabelProcess, nil)
	require.Len(t, procs, 1)
	assert.Equal(t, "pGood", procs[0].GUID())
}

func TestBufferSync_MissingMainColumnMakesNoChange(t *testing.T) {
	main := testutil.NewMemoryGraph(t, "main")
	testutil.Seed(t, main, `
vertices:
  - {ref: colIn, label: SchemaAttribute}
`)

	report, err := engine.NewBufferSyncJob(scenarioBuffer(t), main, 0, testutil.NewTestLogger(t)).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)
	assert.Zero(t, report.Created)
	assert.Zero(t, testutil.CountVertices(t, main, core.LabelProcess))
	assert.Zero(t, testutil.CountEdges(t, main, ""))
}

func TestBufferSync_BufferStorageErrorAbortsPass(t *testing.T) {
	buffer := scenarioBuffer(t)
	buffer.failNeighbors = errors.New("buffer graph unavailable")
	main := testutil.NewMemoryGraph(t, "main")
	testutil.Seed(t, main, mainColumns)

	_, err := engine.NewBufferSyncJob(buffer, main, 0, testutil.NewTestLogger(t)).Sync(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "buffer graph unavailable")
	assert.Zero(t, testutil.CountEdges(t, main, ""))
}

func TestBufferSync_ResolverFailureIsCounted(t *testing.T) {
	base := testutil.NewMemoryGraph(t, "main")
	testutil.Seed(t, base, mainColumns)
	main := &testGraph{Graph: base, failCreate: errors.New("main graph read-only")}

	report, err := engine.NewBufferSyncJob(scenarioBuffer(t), main, 0, testutil.NewTestLogger(t)).Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.ResolverFailures)
	assert.Zero(t, report.Created)
}

func TestBufferSync_NonReentrant(t *testing.T) {
	ctx := context.Background()
	buffer := scenarioBuffer(t)
	main := testutil.NewMemoryGraph(t, "main")
	testutil.Seed(t, main, mainColumns)
	job := engine.NewBufferSyncJob(buffer, main, 0, testutil.NewTestLogger(t))

	entered, release := buffer.blockBegin()
	defer release()

	done := make(chan error, 1)
	go func() {
		_, err := job.Sync(ctx)
		done <- err
	}()
	<-entered

	report, err := job.Sync(ctx)
	assert.ErrorIs(t, err, scheduler.ErrAlreadyRunning)
	assert.Nil(t, report)

	release()
	require.NoError(t, <-done)
	assert.Equal(t, 1, testutil.CountVertices(t, main, core.LabelProcess))
	assert.Equal(t, 2, testutil.CountEdges(t, main, core.EdgeLineageMapping))
}
