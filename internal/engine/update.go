package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leaplineage/internal/catalog"
	"github.com/leapstack-labs/leaplineage/internal/scheduler"
	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"
)

// IncrementalUpdateJobName identifies the incremental update job.
const IncrementalUpdateJobName = "incremental-update"

// Checkpoints stores run watermarks.
type Checkpoints interface {
	Get(ctx context.Context, key string) (time.Time, bool, error)
	// Set stores t unless an equal or later value is stored, and returns
	// the value in effect afterwards.
	Set(ctx context.Context, key string, t time.Time) (time.Time, error)
}

// UpdateConfig configures the incremental update job.
type UpdateConfig struct {
	ServerName string
	UserID     string
	EntityType string
	// CheckpointKey defaults to "incremental-update.<EntityType>".
	CheckpointKey string
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

func (c UpdateConfig) checkpointKey() string {
	if c.CheckpointKey != "" {
		return c.CheckpointKey
	}
	return IncrementalUpdateJobName + "." + c.EntityType
}

// IncrementalUpdateJob mirrors catalog entities changed since the last
// successful run into the main graph.
type IncrementalUpdateJob struct {
	main        graph.Graph
	client      catalog.Client
	checkpoints Checkpoints
	cfg         UpdateConfig
	guard       scheduler.Guard
	logger      *slog.Logger
}

var _ scheduler.Job = (*IncrementalUpdateJob)(nil)

// NewIncrementalUpdateJob creates the job.
func NewIncrementalUpdateJob(main graph.Graph, client catalog.Client, checkpoints Checkpoints, cfg UpdateConfig, logger *slog.Logger) *IncrementalUpdateJob {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &IncrementalUpdateJob{
		main:        main,
		client:      client,
		checkpoints: checkpoints,
		cfg:         cfg,
		logger:      logger.With("job", IncrementalUpdateJobName),
	}
}

// Name implements scheduler.Job.
func (j *IncrementalUpdateJob) Name() string { return IncrementalUpdateJobName }

// CheckpointKey returns the key the job stores its watermark under.
func (j *IncrementalUpdateJob) CheckpointKey() string { return j.cfg.checkpointKey() }

// Run implements scheduler.Job.
func (j *IncrementalUpdateJob) Run(ctx context.Context) error {
	_, err := j.Update(ctx)
	return err
}

// Update runs once. The checkpoint advances to the run's start time only
// when every fetched entity was applied; otherwise the next run requests
// the same window again.
func (j *IncrementalUpdateJob) Update(ctx context.Context) (*UpdateReport, error) {
	var report *UpdateReport
	err := j.guard.TryRun(func() error {
		var err error
		report, err = j.run(ctx)
		return err
	})
	return report, err
}

func (j *IncrementalUpdateJob) run(ctx context.Context) (*UpdateReport, error) {
	started := time.Now()
	key := j.cfg.checkpointKey()
	since, _, err := j.checkpoints.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", key, err)
	}

	now := j.cfg.Now().UTC()
	report := &UpdateReport{RunID: newRunID(), StartedAt: now, Since: since, Checkpoint: since}
	log := j.logger.With("run_id", report.RunID)
	log.Info("starting incremental update", "entity_type", j.cfg.EntityType, "since", since)

	entities, err := j.client.FetchChangedEntities(ctx, j.cfg.ServerName, j.cfg.UserID, j.cfg.EntityType, since)
	if err != nil {
		var cerr *catalog.Error
		if errors.As(err, &cerr) {
			log.Warn("catalog request failed, checkpoint not advanced", "kind", cerr.Kind.String(), "status", cerr.Status, "error", err.Error())
		}
		return report, fmt.Errorf("failed to fetch changed entities: %w", err)
	}
	report.Fetched = len(entities)

	if err := j.apply(ctx, entities, report, log); err != nil {
		log.Warn("failed to apply changes, checkpoint not advanced", "error", err.Error())
		return report, err
	}

	stored, err := j.checkpoints.Set(ctx, key, now)
	if err != nil {
		return report, fmt.Errorf("failed to advance checkpoint %s: %w", key, err)
	}
	report.Checkpoint = stored
	report.Advanced = stored.Equal(now) && now.After(since)
	report.Duration = time.Since(started)
	if !stored.Equal(now) {
		log.Warn("stored checkpoint is later than the run start, left unchanged",
			"checkpoint", stored,
			"started_at", now)
	}

	log.Info("incremental update completed",
		"fetched", report.Fetched,
		"created", report.Created,
		"updated", report.Updated,
		"rejected", report.Rejected,
		"checkpoint", stored)
	return report, nil
}

// apply upserts all entities in one main graph transaction. Entities whose
// type differs from the configured entity type are rejected: the main graph
// holds engine-managed Process and Checkpoint vertices the catalog must not
// touch.
func (j *IncrementalUpdateJob) apply(ctx context.Context, entities []core.Entity, report *UpdateReport, log *slog.Logger) error {
	if len(entities) == 0 {
		return nil
	}

	tx, err := j.main.Begin(ctx, graph.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin main graph transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var created, updated, rejected int
	for _, e := range entities {
		label := e.TypeName
		if label == "" {
			label = j.cfg.EntityType
		}
		if label != j.cfg.EntityType || core.IsReservedLabel(label) {
			log.Warn("entity rejected",
				"guid", e.GUID,
				"type_name", e.TypeName,
				"entity_type", j.cfg.EntityType)
			rejected++
			continue
		}
		v, err := tx.FindVertex(ctx, label, core.Properties{core.PropGUID: e.GUID})
		switch {
		case errors.Is(err, core.ErrVertexNotFound):
			if _, err := tx.CreateVertex(ctx, label, e.VertexProperties()); err != nil {
				return fmt.Errorf("failed to create %s %s: %w", label, e.GUID, err)
			}
			created++
		case err != nil:
			return fmt.Errorf("failed to look up %s %s: %w", label, e.GUID, err)
		default:
			if err := tx.SetProperties(ctx, v, e.VertexProperties()); err != nil {
				return fmt.Errorf("failed to update %s %s: %w", label, e.GUID, err)
			}
			updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit changes: %w", err)
	}
	report.Created, report.Updated, report.Rejected = created, updated, rejected
	return nil
}
