// File: internal/fixregistry/boundary.go
package fixregistry

import (
	"sync"

	"go.uber.org/zap"

	"github.com/reqini/catalogo-indumentaria-sub000/api/schemas"
)

// BoundaryState is what the render boundary presents after handling a
// failure: either a recoverable state (retry the render) or a
// restart-required state, driven by the fix result.
type BoundaryState struct {
	Recovered       bool
	RestartRequired bool
	Result          schemas.FixResult
}

// Boundary catches lifecycle-level failures and attempts exactly one fix per
// failure instance. The idempotency set prevents retry storms when the same
// failure fires repeatedly.
type Boundary struct {
	logger   *zap.Logger
	registry *Registry

	mu      sync.Mutex
	handled map[string]BoundaryState
}

// NewBoundary creates a render boundary over the registry.
func NewBoundary(logger *zap.Logger, registry *Registry) *Boundary {
	return &Boundary{
		logger:   logger.Named("boundary"),
		registry: registry,
		handled:  make(map[string]BoundaryState),
	}
}

// Handle processes one failure. The first occurrence of a failure identity
// runs the registry; repeats return the recorded state without re-applying
// the fix.
func (b *Boundary) Handle(err error) BoundaryState {
	key := schemas.AlertKey(schemas.CategoryComponents, err.Error())

	b.mu.Lock()
	if state, seen := b.handled[key]; seen {
		b.mu.Unlock()
		b.logger.Debug("Failure already handled; skipping fix retry", zap.String("key", key))
		return state
	}
	// Reserve the key before releasing the lock so a concurrent duplicate
	// cannot trigger a second fix attempt.
	b.handled[key] = BoundaryState{}
	b.mu.Unlock()

	result := b.registry.FindAndApplyFix(err)
	state := BoundaryState{
		Recovered:       result.Success && !result.RequiresRestart,
		RestartRequired: result.RequiresRestart,
		Result:          result,
	}

	b.mu.Lock()
	b.handled[key] = state
	b.mu.Unlock()

	b.logger.Warn("Render boundary handled failure",
		zap.String("error", err.Error()),
		zap.Bool("recovered", state.Recovered),
		zap.Bool("restart_required", state.RestartRequired))
	return state
}

// Reset clears the idempotency set, e.g. after a successful restart.
func (b *Boundary) Reset() {
	b.mu.Lock()
	b.handled = make(map[string]BoundaryState)
	b.mu.Unlock()
}
