package entity

import (
	"encoding/json"
	"time"
)

// Subtask is the unit of work handed to the state machine by the orchestrating layer.
type Subtask struct {
	ID           string `json:"id"`
	Description  string `json:"description"`
	Action       string `json:"action,omitempty"`
	Verification string `json:"verification,omitempty"`
}

// Plan is an ordered list of subtasks produced by an external planner.
type Plan struct {
	Goal     string    `json:"goal"`
	StartURL string    `json:"startUrl,omitempty"`
	Subtasks []Subtask `json:"subtasks"`
}

// ExecutionOutcome is what the action backend reports for one action.
type ExecutionOutcome struct {
	Success bool   `json:"success"`
	Before  string `json:"before,omitempty"`
	After   string `json:"after,omitempty"`
}

type ActionResult struct {
	Action         Action        `json:"action"`
	Success        bool          `json:"success"`
	Error          string        `json:"error,omitempty"`
	ErrorCategory  ErrorCategory `json:"errorCategory,omitempty"`
	Duration       time.Duration `json:"durationMs"`
	VerbalFeedback string        `json:"verbalFeedback"`
	Mutations      []DOMChange   `json:"mutations,omitempty"`
	URLChanged     bool          `json:"urlChanged,omitempty"`
	Duplicate      bool          `json:"duplicate,omitempty"`
}

func (r ActionResult) MarshalJSON() ([]byte, error) {
	type alias ActionResult
	return json.Marshal(struct {
		alias
		Duration int64 `json:"durationMs"`
	}{alias(r), r.Duration.Milliseconds()})
}

type HistoryKind string

const (
	HistoryAction       HistoryKind = "action"
	HistoryVerification HistoryKind = "verification"
)

// HistoryEntry is one line of the history shown to the decision maker. It is
// either an executed action or a note about a rejected completion claim.
type HistoryEntry struct {
	Kind   HistoryKind
	Step   int
	Result *ActionResult
	Note   string
}

// SubtaskExecutionState is owned by a single run and discarded when it ends.
type SubtaskExecutionState struct {
	Step                int
	ConsecutiveFailures int
	StagnantSteps       int
	Fingerprint         string
	History             []HistoryEntry
	Attempts            []ActionResult
	TokensUsed          int
	Retries             int
}

type Timing struct {
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Duration   time.Duration `json:"duration"`
}

type SubtaskResult struct {
	RunID      string         `json:"runId"`
	SubtaskID  string         `json:"subtaskId"`
	Success    bool           `json:"success"`
	Steps      []ActionResult `json:"steps"`
	Error      *SubtaskError  `json:"error,omitempty"`
	TokensUsed int            `json:"tokensUsed"`
	RetryCount int            `json:"retryCount"`
	Timing     Timing         `json:"timing"`
}

type PlanResult struct {
	Success    bool             `json:"success"`
	Results    []*SubtaskResult `json:"results"`
	TokensUsed int              `json:"tokensUsed"`
	Duration   time.Duration    `json:"duration"`
}
