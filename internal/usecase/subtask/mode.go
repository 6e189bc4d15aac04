package subtask

import (
	"strings"

	"webagent/internal/domain/entity"
)

var (
	inputVerbs = map[string]bool{"type": true, "fill": true, "select": true, "login": true, "search": true}
	textVerbs  = map[string]bool{"read": true, "extract": true, "verify": true, "find": true}
)

// ModeFor routes a subtask to a distillation mode by its verb: the explicit
// action if set, else the first word of the description.
func ModeFor(st entity.Subtask) entity.DistillMode {
	verb := strings.ToLower(strings.TrimSpace(st.Action))
	if verb == "" {
		if fields := strings.Fields(strings.ToLower(st.Description)); len(fields) > 0 {
			verb = strings.Trim(fields[0], ".,:;!?")
		}
	}
	switch {
	case inputVerbs[verb]:
		return entity.ModeInput
	case textVerbs[verb]:
		return entity.ModeText
	}
	return entity.ModeInteractive
}
