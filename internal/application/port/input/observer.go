package input

import (
	"context"

	"webagent/internal/domain/entity"
)

type ChangeObserver interface {
	Arm(ctx context.Context) error
	Disarm(ctx context.Context) entity.ChangeReport
}
