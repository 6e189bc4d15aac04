package input

import (
	"context"

	"webagent/internal/domain/entity"
)

type SubtaskRunner interface {
	Run(ctx context.Context, subtask entity.Subtask) (*entity.SubtaskResult, error)
}

type PlanExecutor interface {
	Execute(ctx context.Context, plan entity.Plan) (*entity.PlanResult, error)
}
