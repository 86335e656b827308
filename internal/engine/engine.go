// Package engine builds the main lineage graph from the buffer graph and
// keeps it in step with the asset catalog.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leaplineage/internal/catalog"
	"github.com/leapstack-labs/leaplineage/internal/checkpoint"
	"github.com/leapstack-labs/leaplineage/internal/lineage"
	"github.com/leapstack-labs/leaplineage/internal/scheduler"
	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"
)

// ErrUpdateDisabled is returned by RunIncrementalUpdate when no catalog
// client is configured.
var ErrUpdateDisabled = errors.New("incremental update is not configured")

// Engine owns the two graph handles and the jobs operating on them.
type Engine struct {
	buffer     graph.Graph
	main       graph.Graph
	ownsGraphs bool

	sync        *BufferSyncJob
	update      *IncrementalUpdateJob
	checkpoints *checkpoint.Store
	tracer      *lineage.Tracer

	logger *slog.Logger
}

// Config holds engine configuration.
type Config struct {
	// BufferGraph and MainGraph are opened through the backend registry.
	BufferGraph core.GraphConfig
	MainGraph   core.GraphConfig

	// Buffer and Main, when both set, are used instead of opening graphs.
	// The engine does not close injected graphs.
	Buffer graph.Graph
	Main   graph.Graph

	// MaxChainDepth bounds derivation chains (default lineage.DefaultMaxDepth).
	MaxChainDepth int

	// Catalog enables the incremental update job when set.
	Catalog catalog.Client
	Update  UpdateConfig

	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New opens both graphs and wires the jobs. Errors here are fatal for the
// caller: a graph that cannot be opened means no lineage processing.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if cfg.Catalog != nil && core.IsReservedLabel(cfg.Update.EntityType) {
		return nil, fmt.Errorf("invalid entity type %q: %w", cfg.Update.EntityType, core.ErrReservedLabel)
	}

	e := &Engine{logger: logger}
	if cfg.Buffer != nil && cfg.Main != nil {
		e.buffer, e.main = cfg.Buffer, cfg.Main
	} else {
		if err := e.open(ctx, cfg); err != nil {
			return nil, err
		}
		e.ownsGraphs = true
	}

	e.sync = NewBufferSyncJob(e.buffer, e.main, cfg.MaxChainDepth, logger)
	e.checkpoints = checkpoint.New(e.main, logger)
	e.tracer = lineage.NewTracer(e.main, logger)
	if cfg.Catalog != nil {
		e.update = NewIncrementalUpdateJob(e.main, cfg.Catalog, e.checkpoints, cfg.Update, logger)
	}

	logger.Debug("engine initialized",
		"buffer_graph", e.buffer.Name(),
		"main_graph", e.main.Name(),
		"incremental_update", e.update != nil)
	return e, nil
}

func (e *Engine) open(ctx context.Context, cfg Config) error {
	if cfg.BufferGraph.Name == "" {
		cfg.BufferGraph.Name = "buffer"
	}
	if cfg.MainGraph.Name == "" {
		cfg.MainGraph.Name = "main"
	}

	buffer, err := graph.Open(ctx, cfg.BufferGraph, e.logger)
	if err != nil {
		return err
	}
	main, err := graph.Open(ctx, cfg.MainGraph, e.logger)
	if err != nil {
		_ = buffer.Close()
		return err
	}
	e.buffer, e.main = buffer, main
	return nil
}

// Close closes the graphs the engine opened.
func (e *Engine) Close() error {
	if !e.ownsGraphs {
		return nil
	}
	return errors.Join(e.buffer.Close(), e.main.Close())
}

// BufferGraph returns the buffer graph handle.
func (e *Engine) BufferGraph() graph.Graph { return e.buffer }

// MainGraph returns the main graph handle.
func (e *Engine) MainGraph() graph.Graph { return e.main }

// RunBufferSync runs one buffer-to-main pass.
func (e *Engine) RunBufferSync(ctx context.Context) (*SyncReport, error) {
	return e.sync.Sync(ctx)
}

// RunIncrementalUpdate runs the incremental update once.
func (e *Engine) RunIncrementalUpdate(ctx context.Context) (*UpdateReport, error) {
	if e.update == nil {
		return nil, ErrUpdateDisabled
	}
	return e.update.Update(ctx)
}

// Trace returns the lineage neighbourhood of a main graph vertex.
func (e *Engine) Trace(ctx context.Context, guid string, dir lineage.TraceDirection, maxDepth int) (*lineage.Trace, error) {
	return e.tracer.Trace(ctx, guid, dir, maxDepth)
}

// Checkpoint returns the incremental update checkpoint.
func (e *Engine) Checkpoint(ctx context.Context) (key string, ts time.Time, ok bool, err error) {
	if e.update == nil {
		return "", time.Time{}, false, ErrUpdateDisabled
	}
	key = e.update.CheckpointKey()
	ts, ok, err = e.checkpoints.Get(ctx, key)
	return key, ts, ok, err
}

// Schedule describes when a job runs.
type Schedule struct {
	Enabled    bool
	Interval   time.Duration
	RunOnStart bool
}

// Schedule registers the enabled jobs with s.
func (e *Engine) Schedule(s *scheduler.Scheduler, syncSched, updateSched Schedule) (int, error) {
	n := 0
	if syncSched.Enabled {
		if err := s.Add(e.sync, syncSched.Interval, syncSched.RunOnStart); err != nil {
			return n, err
		}
		n++
	}
	if updateSched.Enabled {
		if e.update == nil {
			return n, fmt.Errorf("cannot schedule %s: %w", IncrementalUpdateJobName, ErrUpdateDisabled)
		}
		if err := s.Add(e.update, updateSched.Interval, updateSched.RunOnStart); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
