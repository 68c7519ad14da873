package output

import (
	"context"

	"portal-agent/internal/domain/entity"
)

// ExecutorPort executes one atomic action and reports a structured
// observation. Implementations may be a read-only proxy over a static
// snapshot (deterministic, used for planning and tests) or a live
// browser driver; the core works against either without modification.
type ExecutorPort interface {
	Execute(ctx context.Context, action entity.Action) (entity.Observation, error)
}
