package subtask

import (
	"strings"

	"webagent/internal/domain/entity"
)

// Fingerprint summarizes a view as its URL plus (tag, truncated text) of the
// first elements. Order matters.
func Fingerprint(view entity.DistilledView, elements, textLen int) string {
	var sb strings.Builder
	sb.WriteString(view.Header().URL)
	summaries := view.Summaries()
	if len(summaries) > elements {
		summaries = summaries[:elements]
	}
	for _, s := range summaries {
		text := []rune(s.Text)
		if len(text) > textLen {
			text = text[:textLen]
		}
		sb.WriteString("|")
		sb.WriteString(s.Tag)
		sb.WriteString(":")
		sb.WriteString(string(text))
	}
	return sb.String()
}
