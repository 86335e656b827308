package graph

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/leaplineage/pkg/core"
)

// Opener opens a graph instance for a backend.
type Opener func(ctx context.Context, cfg core.GraphConfig, logger *slog.Logger) (Graph, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Opener)
)

// Register adds a backend to the registry.
// Called by backend implementations in their init() functions.
func Register(name string, opener Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(name)] = opener
}

// Open opens a graph instance using the backend named in cfg.
// The logger is passed to the backend (nil uses a discard logger).
func Open(ctx context.Context, cfg core.GraphConfig, logger *slog.Logger) (Graph, error) {
	if cfg.Backend == "" {
		return nil, fmt.Errorf("graph backend not specified")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	registryMu.RLock()
	opener, ok := registry[strings.ToLower(cfg.Backend)]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownBackendError{
			Backend:   cfg.Backend,
			Available: ListBackends(),
		}
	}

	g, err := opener(ctx, cfg, logger.With("graph", cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s graph %q: %w", cfg.Backend, cfg.Name, err)
	}
	return g, nil
}

// ListBackends returns all registered backend names (sorted).
func ListBackends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[strings.ToLower(name)]
	return ok
}

// UnknownBackendError is returned when an unknown backend is requested.
type UnknownBackendError struct {
	Backend   string
	Available []string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown graph backend %q\nAvailable backends: %v\nHint: Check buffer_graph.backend and main_graph.backend in leaplineage.yaml", e.Backend, e.Available)
}
