package decision

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"webagent/internal/domain/entity"
)

var ErrNoJSON = errors.New("no JSON object in model output")

type wireDecision struct {
	Reasoning string          `json:"reasoning"`
	Status    string          `json:"status"`
	Action    string          `json:"action"`
	Params    json.RawMessage `json:"params"`
}

// ParseDecision treats model output as untrusted text: it slices out the
// outermost JSON object, repairs it when strict decoding fails and decodes
// the action into its typed form.
func ParseDecision(raw string) (entity.Decision, error) {
	raw = strings.TrimSpace(raw)
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		// an unterminated object is still worth repairing
		if start == -1 {
			return entity.Decision{}, ErrNoJSON
		}
		end = len(raw) - 1
	}
	jsonStr := raw[start : end+1]

	var w wireDecision
	if err := json.Unmarshal([]byte(jsonStr), &w); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(jsonStr)
		if repairErr != nil {
			return entity.Decision{}, fmt.Errorf("failed to parse JSON: %w", err)
		}
		if err := json.Unmarshal([]byte(repaired), &w); err != nil {
			return entity.Decision{}, fmt.Errorf("failed to parse repaired JSON: %w", err)
		}
	}

	d := entity.Decision{Reasoning: strings.TrimSpace(w.Reasoning)}
	status := strings.ToLower(strings.TrimSpace(w.Status))
	action := strings.ToLower(strings.TrimSpace(w.Action))
	if status == "" && (action == "done" || action == "fail") {
		status = action
	}

	switch entity.DecisionStatus(status) {
	case entity.StatusDone, entity.StatusFail:
		d.Status = entity.DecisionStatus(status)
		return d, nil
	case entity.StatusContinue, "":
		d.Status = entity.StatusContinue
	default:
		return entity.Decision{}, fmt.Errorf("unknown status %q", w.Status)
	}

	a, err := entity.DecodeAction(action, w.Params)
	if err != nil {
		return entity.Decision{}, err
	}
	d.Action = a
	return d, nil
}
