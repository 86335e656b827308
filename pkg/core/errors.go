package core

import "errors"

// Storage errors.
var (
	// ErrVertexNotFound is returned by lookups that match no vertex.
	ErrVertexNotFound = errors.New("vertex not found")

	// ErrReservedLabel rejects catalog entity types that would collide with
	// Process or Checkpoint vertices.
	ErrReservedLabel = errors.New("label is reserved for engine-managed vertices")
)

// Structural errors reported by the path finder. They describe a single
// derivation chain and are never fatal for a synchronization pass.
var (
	ErrBrokenChain  = errors.New("broken derivation chain")
	ErrCyclicChain  = errors.New("cyclic derivation chain")
	ErrChainTooDeep = errors.New("derivation chain exceeds maximum depth")
)

// IsChainError reports whether err describes a structural chain problem.
func IsChainError(err error) bool {
	return errors.Is(err, ErrBrokenChain) ||
		errors.Is(err, ErrCyclicChain) ||
		errors.Is(err, ErrChainTooDeep)
}
