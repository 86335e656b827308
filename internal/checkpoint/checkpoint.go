// Package checkpoint persists named watermarks as Checkpoint vertices in
// the main graph.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/leaplineage/pkg/core"
	"github.com/leapstack-labs/leaplineage/pkg/graph"
)

// Store reads and advances checkpoints. A checkpoint never moves backwards.
type Store struct {
	graph  graph.Graph
	logger *slog.Logger
}

// New creates a store backed by the given graph.
func New(g graph.Graph, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{graph: g, logger: logger}
}

// Get returns the checkpoint for key. ok is false when none was stored.
func (s *Store) Get(ctx context.Context, key string) (time.Time, bool, error) {
	tx, err := s.graph.Begin(ctx, graph.TxOptions{ReadOnly: true})
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	v, err := find(ctx, tx, key)
	if err != nil || v == nil {
		return time.Time{}, false, err
	}
	ts, err := timestampOf(v)
	if err != nil {
		return time.Time{}, false, err
	}
	return ts, true, nil
}

// Set stores t for key and returns the checkpoint now in effect. A t
// earlier than or equal to the stored value leaves it unchanged, in which
// case the stored value is returned.
func (s *Store) Set(ctx context.Context, key string, t time.Time) (time.Time, error) {
	if key == "" {
		return time.Time{}, fmt.Errorf("checkpoint key is required")
	}

	tx, err := s.graph.Begin(ctx, graph.TxOptions{})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	t = t.UTC()
	v, err := find(ctx, tx, key)
	if err != nil {
		return time.Time{}, err
	}

	if v == nil {
		_, err = tx.CreateVertex(ctx, core.LabelCheckpoint, core.Properties{
			core.PropKey:       key,
			core.PropTimestamp: format(t),
		})
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to create checkpoint %s: %w", key, err)
		}
	} else {
		current, err := timestampOf(v)
		if err != nil {
			return time.Time{}, err
		}
		if !t.After(current) {
			s.logger.Debug("checkpoint not advanced",
				"key", key,
				"current", current,
				"requested", t)
			return current, nil
		}
		if err := tx.SetProperties(ctx, v, core.Properties{core.PropTimestamp: format(t)}); err != nil {
			return time.Time{}, fmt.Errorf("failed to update checkpoint %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return time.Time{}, fmt.Errorf("failed to commit checkpoint %s: %w", key, err)
	}
	s.logger.Debug("checkpoint advanced", "key", key, "timestamp", t)
	return t, nil
}

func find(ctx context.Context, tx graph.Tx, key string) (*core.Vertex, error) {
	v, err := tx.FindVertex(ctx, core.LabelCheckpoint, core.Properties{core.PropKey: key})
	if errors.Is(err, core.ErrVertexNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint %s: %w", key, err)
	}
	return v, nil
}

func timestampOf(v *core.Vertex) (time.Time, error) {
	raw := v.String(core.PropTimestamp)
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid checkpoint timestamp %q: %w", raw, err)
	}
	return ts, nil
}

func format(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
