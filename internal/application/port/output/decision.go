package output

import (
	"context"

	"webagent/internal/domain/entity"
)

type DecisionMaker interface {
	Decide(ctx context.Context, req entity.DecisionRequest) (entity.Decision, error)
}

type CompletionTrigger string

const (
	TriggerPrecheck  CompletionTrigger = "precheck"
	TriggerClaim     CompletionTrigger = "claim"
	TriggerHeuristic CompletionTrigger = "heuristic"
)

type CompletionQuery struct {
	Subtask    entity.Subtask
	Trigger    CompletionTrigger
	LastResult *entity.ActionResult
}

type CompletionVerdict struct {
	Satisfied bool
	Evidence  string
}

// CompletionChecker judges a subtask against the current page, never against
// what the decision maker or the action result claim.
type CompletionChecker interface {
	Check(ctx context.Context, q CompletionQuery) (CompletionVerdict, error)
}
