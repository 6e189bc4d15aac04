package entity

type DecisionStatus string

const (
	StatusContinue DecisionStatus = "continue"
	StatusDone     DecisionStatus = "done"
	StatusFail     DecisionStatus = "fail"
)

type Decision struct {
	Action     Action
	Status     DecisionStatus
	Reasoning  string
	TokensUsed int
	// Fallback is set when the model output could not be used and a wait was substituted.
	Fallback bool
}

// DecisionRequest is everything the decision maker sees for one step.
type DecisionRequest struct {
	Subtask       Subtask
	View          DistilledView
	History       []HistoryEntry
	Step          int
	MaxSteps      int
	DuplicateOf   *ActionResult
	BudgetWarning string
	StagnantSteps int
}
