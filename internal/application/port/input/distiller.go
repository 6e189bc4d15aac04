package input

import (
	"context"

	"webagent/internal/domain/entity"
)

type Distiller interface {
	// Distill replaces the previous index arena with the one of the new view.
	Distill(ctx context.Context, mode entity.DistillMode) (entity.DistilledView, error)
	// Resolve maps an index of the latest view to a locator.
	Resolve(index int) (string, error)
}
