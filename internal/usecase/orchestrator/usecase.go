package orchestrator

import (
	"context"
	"fmt"
	"time"

	"webagent/internal/application/port/input"
	"webagent/internal/application/port/output"
	"webagent/internal/domain/entity"
)

var _ input.PlanExecutor = (*UseCase)(nil)

// UseCase feeds the subtasks of an externally produced plan to the state
// machine one at a time. The first failed subtask ends the plan.
type UseCase struct {
	runner  input.SubtaskRunner
	browser output.BrowserPort
	logger  output.LoggerPort
	now     func() time.Time
}

func New(runner input.SubtaskRunner, browser output.BrowserPort, logger output.LoggerPort) *UseCase {
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &UseCase{
		runner:  runner,
		browser: browser,
		logger:  logger,
		now:     time.Now,
	}
}

func (uc *UseCase) Execute(ctx context.Context, plan entity.Plan) (*entity.PlanResult, error) {
	start := uc.now()
	result := &entity.PlanResult{Results: []*entity.SubtaskResult{}}
	uc.logger.Info("Executing plan", "goal", plan.Goal, "subtasks", len(plan.Subtasks))

	if plan.StartURL != "" {
		if err := uc.browser.Navigate(ctx, plan.StartURL); err != nil {
			return nil, fmt.Errorf("failed to open start url: %w", err)
		}
	}

	result.Success = true
	for i, st := range plan.Subtasks {
		if st.ID == "" {
			st.ID = fmt.Sprintf("subtask-%d", i+1)
		}

		res, err := uc.runner.Run(ctx, st)
		if res != nil {
			result.Results = append(result.Results, res)
			result.TokensUsed += res.TokensUsed
		}
		if err != nil {
			result.Success = false
			result.Duration = uc.now().Sub(start)
			return result, fmt.Errorf("subtask %s: %w", st.ID, err)
		}
		if !res.Success {
			result.Success = false
			uc.logger.Warn("Plan stopped at failed subtask", "subtask", st.ID, "index", i, "error", res.Error)
			break
		}
	}

	result.Duration = uc.now().Sub(start)
	uc.logger.Info("Plan finished", "success", result.Success, "tokens", result.TokensUsed, "duration", result.Duration)
	return result, nil
}
