package output

import (
	"context"

	"webagent/internal/domain/entity"
)

type ProgressReporter interface {
	ShowSubtask(ctx context.Context, subtask entity.Subtask)
	ShowIteration(ctx context.Context, iteration, maxIterations int)
	ShowThinking(ctx context.Context, content string)
	ShowAction(ctx context.Context, action entity.Action)
	ShowActionResult(ctx context.Context, result entity.ActionResult)
	ShowSubtaskResult(ctx context.Context, result *entity.SubtaskResult)
}
