package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leaplineage/internal/lineage"
	"github.com/leapstack-labs/leaplineage/internal/scheduler"
	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"
)

// BufferSyncJobName identifies the buffer-to-main job in logs and the scheduler.
const BufferSyncJobName = "buffer-sync"

// inputColumnSteps leads from a Process to the columns feeding its input ports.
var inputColumnSteps = []graph.Step{
	graph.OutE(core.EdgeProcessPort),
	{Edge: core.EdgePortDelegation, Dir: graph.Out, Where: core.Properties{core.PropPortType: core.PortTypeInput}},
	graph.OutE(core.EdgePortSchema),
	graph.OutE(core.EdgeAttributeForSchema),
	graph.OutE(core.EdgeSchemaAttributeType),
}

// BufferSyncJob derives main graph lineage from the buffer graph. Each pass
// reads the whole buffer graph and is safe to repeat.
type BufferSyncJob struct {
	buffer   graph.Graph
	finder   *lineage.PathFinder
	resolver *lineage.Resolver
	guard    scheduler.Guard
	logger   *slog.Logger
}

var _ scheduler.Job = (*BufferSyncJob)(nil)

// NewBufferSyncJob creates the job. maxChainDepth bounds derivation chains.
func NewBufferSyncJob(buffer, main graph.Graph, maxChainDepth int, logger *slog.Logger) *BufferSyncJob {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger = logger.With("job", BufferSyncJobName)
	return &BufferSyncJob{
		buffer:   buffer,
		finder:   lineage.NewPathFinder(maxChainDepth, logger),
		resolver: lineage.NewResolver(main, logger),
		logger:   logger,
	}
}

// Name implements scheduler.Job.
func (j *BufferSyncJob) Name() string { return BufferSyncJobName }

// Run implements scheduler.Job.
func (j *BufferSyncJob) Run(ctx context.Context) error {
	_, err := j.Sync(ctx)
	return err
}

// Sync runs one pass. It returns scheduler.ErrAlreadyRunning without doing
// anything when a pass is already in progress.
func (j *BufferSyncJob) Sync(ctx context.Context) (*SyncReport, error) {
	var report *SyncReport
	err := j.guard.TryRun(func() error {
		var err error
		report, err = j.pass(ctx)
		return err
	})
	return report, err
}

func (j *BufferSyncJob) pass(ctx context.Context) (*SyncReport, error) {
	report := &SyncReport{RunID: newRunID(), StartedAt: time.Now().UTC()}
	log := j.logger.With("run_id", report.RunID)
	log.Info("starting buffer sync")

	tx, err := j.buffer.Begin(ctx, graph.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin buffer graph transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	processes, err := tx.FindVertices(ctx, core.LabelProcess, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate buffer graph processes: %w", err)
	}

	for _, p := range processes {
		report.Processes++
		if err := j.syncProcess(ctx, tx, p, report, log); err != nil {
			log.Error("buffer sync aborted", "process", p.Ref(), "error", err.Error())
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit buffer graph transaction: %w", err)
	}

	report.Duration = time.Since(report.StartedAt)
	log.Info("buffer sync completed",
		"processes", report.Processes,
		"candidates", report.Candidates,
		"created", report.Created,
		"unchanged", report.Unchanged,
		"skipped", report.Skipped,
		"chain_failures", report.ChainFailures,
		"resolver_failures", report.ResolverFailures,
		"duration", report.Duration)
	return report, nil
}

// syncProcess resolves every input column of one process. Only buffer graph
// storage errors are returned; everything else is counted and logged.
func (j *BufferSyncJob) syncProcess(ctx context.Context, tx graph.Tx, p *core.Vertex, report *SyncReport, log *slog.Logger) error {
	candidates, err := graph.Traverse(ctx, tx, []*core.Vertex{p}, inputColumnSteps...)
	if err != nil {
		return fmt.Errorf("failed to enumerate input columns of %s: %w", p.Ref(), err)
	}
	if len(candidates) == 0 {
		log.Debug("process has no input columns", "process", p.Ref())
		return nil
	}
	if p.GUID() == "" {
		log.Warn("process without guid, skipping", "process", p.Ref())
		report.Skipped += len(candidates)
		return nil
	}

	proc := lineage.Process{GUID: p.GUID(), Name: p.Name()}
	for _, in := range candidates {
		report.Candidates++

		out, err := j.finder.Resolve(ctx, tx, in)
		if err != nil {
			if !lineage.IsChainError(err) {
				return err
			}
			report.ChainFailures++
			log.Info("derivation chain not resolved", "process", p.Ref(), "column", in.Ref(), "error", err.Error())
			continue
		}
		if in.GUID() == "" || out.GUID() == "" {
			report.Skipped++
			log.Debug("column without guid, skipping", "process", p.Ref(), "input", in.Ref(), "output", out.Ref())
			continue
		}

		result, err := j.resolver.Resolve(ctx, in.GUID(), proc, out.GUID())
		if err != nil {
			report.ResolverFailures++
			log.Warn("failed to write lineage", "process", p.Ref(), "input", in.GUID(), "output", out.GUID(), "error", err.Error())
			continue
		}
		switch result {
		case lineage.ResolveCreated:
			report.Created++
		case lineage.ResolveUnchanged:
			report.Unchanged++
		default:
			report.Skipped++
		}
	}
	return nil
}
