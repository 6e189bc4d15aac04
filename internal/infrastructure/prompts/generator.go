package prompts

import (
	"bytes"
	"text/template"

	"webagent/internal/domain/entity"
)

type ActionInfo struct {
	Name   string
	Params string
}

type DecisionPromptData struct {
	Actions []ActionInfo
}

var actionParams = map[entity.ActionType]string{
	entity.ActionClick:    `{"index": int}`,
	entity.ActionTypeText: `{"index": int, "text": string} replaces the field content`,
	entity.ActionClear:    `{"index": int}`,
	entity.ActionSelect:   `{"index": int, "value": string} option value or text`,
	entity.ActionCheck:    `{"index": int}`,
	entity.ActionUncheck:  `{"index": int}`,
	entity.ActionHover:    `{"index": int}`,
	entity.ActionScroll:   `{"direction": "up"|"down"|"top"|"bottom", "amount": pixels}`,
	entity.ActionScrollTo: `{"index": int}`,
	entity.ActionFocus:    `{"index": int}`,
	entity.ActionPressKey: `{"key": "Enter"|"Tab"|"Escape"|...}`,
	entity.ActionWait:     `{"ms": int}`,
	entity.ActionNavigate: `{"url": string}`,
	entity.ActionBack:     `{}`,
	entity.ActionForward:  `{}`,
	entity.ActionRefresh:  `{}`,
}

// DefaultActions describes the whole action vocabulary in prompt order.
func DefaultActions() []ActionInfo {
	out := make([]ActionInfo, 0, len(entity.ActionTypes))
	for _, t := range entity.ActionTypes {
		out = append(out, ActionInfo{Name: string(t), Params: actionParams[t]})
	}
	return out
}

func GenerateDecisionPrompt(baseTemplate string, actions []ActionInfo) (string, error) {
	tmpl, err := template.New("decision").Parse(baseTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, DecisionPromptData{Actions: actions}); err != nil {
		return "", err
	}

	return buf.String(), nil
}
