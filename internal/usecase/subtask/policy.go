package subtask

import (
	"strings"

	"webagent/internal/domain/entity"
)

// ImplicitSuccessPolicy decides whether a page transition after a successful
// action completes the subtask on its own.
type ImplicitSuccessPolicy interface {
	Applies(st entity.Subtask, action entity.Action) bool
}

type KeywordNavigationPolicy struct {
	Keywords []string
}

func DefaultImplicitPolicy() KeywordNavigationPolicy {
	return KeywordNavigationPolicy{
		Keywords: []string{"submit", "login", "log in", "sign in", "checkout", "continue", "confirm", "navigate"},
	}
}

func (p KeywordNavigationPolicy) Applies(st entity.Subtask, action entity.Action) bool {
	if action.Type() == entity.ActionNavigate {
		return true
	}
	text := strings.ToLower(st.Description + " " + st.Action)
	for _, kw := range p.Keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// NeverImplicit always requires an explicit, corroborated completion.
type NeverImplicit struct{}

func (NeverImplicit) Applies(entity.Subtask, entity.Action) bool { return false }
