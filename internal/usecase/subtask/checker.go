package subtask

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"webagent/internal/application/port/input"
	"webagent/internal/application/port/output"
	"webagent/internal/domain/entity"
)

var (
	urlFragmentPattern = regexp.MustCompile(`https?://[^\s"'<>]+|(?:^|\s)(/[A-Za-z0-9._~%!$&+=:@/-]+)`)
	quotedPattern      = regexp.MustCompile(`"([^"]+)"|'([^']+)'|“([^”]+)”`)
	wordPattern        = regexp.MustCompile(`[\p{L}\p{N}]+`)
	successPhrases     = []string{"success", "thank you", "confirmed", "completed", "welcome"}
)

var stopwords = map[string]bool{
	"that": true, "this": true, "with": true, "from": true, "have": true, "been": true,
	"will": true, "should": true, "would": true, "page": true, "shows": true, "show": true,
	"shown": true, "displayed": true, "visible": true, "appear": true, "appears": true,
	"contains": true, "contain": true, "there": true, "their": true, "then": true,
	"than": true, "into": true, "onto": true, "after": true, "before": true, "when": true,
	"where": true, "which": true, "while": true, "about": true, "least": true, "some": true,
	"each": true, "every": true, "user": true, "your": true, "url": true, "text": true,
}

// URLFragment extracts the first URL or absolute path mentioned in a hint.
func URLFragment(hint string) string {
	m := urlFragmentPattern.FindStringSubmatch(hint)
	if m == nil {
		return ""
	}
	frag := m[0]
	if m[1] != "" {
		frag = m[1]
	}
	return strings.TrimRight(strings.TrimSpace(frag), `.,;:)!?"'`)
}

func quotedPhrases(hint string) []string {
	var out []string
	for _, m := range quotedPattern.FindAllStringSubmatch(hint, -1) {
		for _, g := range m[1:] {
			if g = strings.TrimSpace(g); g != "" {
				out = append(out, strings.ToLower(g))
			}
		}
	}
	return out
}

func keyTerms(hint string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, w := range wordPattern.FindAllString(strings.ToLower(hint), -1) {
		if len([]rune(w)) < 4 || stopwords[w] || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}

func hasSuccessPhrase(feedback string) bool {
	lower := strings.ToLower(feedback)
	for _, p := range successPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// PageCompletionChecker corroborates completion against a fresh text view
// of the page. It must have a distiller of its own so that checking does not
// replace the index arena the state machine resolves against.
type PageCompletionChecker struct {
	distiller input.Distiller
	logger    output.LoggerPort
}

var _ output.CompletionChecker = (*PageCompletionChecker)(nil)

func NewPageCompletionChecker(distiller input.Distiller, logger output.LoggerPort) *PageCompletionChecker {
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &PageCompletionChecker{distiller: distiller, logger: logger}
}

func (c *PageCompletionChecker) Check(ctx context.Context, q output.CompletionQuery) (output.CompletionVerdict, error) {
	hint := strings.TrimSpace(q.Subtask.Verification)
	if hint == "" {
		return c.checkWithoutHint(q), nil
	}

	view, err := c.distiller.Distill(ctx, entity.ModeText)
	if err != nil {
		return output.CompletionVerdict{}, fmt.Errorf("distill for completion check: %w", err)
	}
	h := view.Header()

	if frag := URLFragment(hint); frag != "" && strings.Contains(h.URL, frag) {
		return output.CompletionVerdict{Satisfied: true, Evidence: "url contains " + frag}, nil
	}

	var sb strings.Builder
	sb.WriteString(strings.ToLower(h.Title))
	if tv, ok := view.(*entity.TextView); ok {
		for _, u := range tv.Units {
			sb.WriteString("\n")
			sb.WriteString(strings.ToLower(u.Content))
		}
	}
	page := sb.String()

	if phrases := quotedPhrases(hint); len(phrases) > 0 {
		for _, p := range phrases {
			if !strings.Contains(page, p) {
				return output.CompletionVerdict{Evidence: fmt.Sprintf("%q not found on page", p)}, nil
			}
		}
		return output.CompletionVerdict{Satisfied: true, Evidence: "page shows " + strings.Join(phrases, ", ")}, nil
	}

	terms := keyTerms(hint)
	if len(terms) < 2 {
		return output.CompletionVerdict{Evidence: "hint has nothing to match against the page"}, nil
	}
	var found []string
	for _, t := range terms {
		if strings.Contains(page, t) {
			found = append(found, t)
		}
	}
	if len(found)*3 >= len(terms)*2 {
		return output.CompletionVerdict{Satisfied: true, Evidence: "page mentions " + strings.Join(found, ", ")}, nil
	}
	return output.CompletionVerdict{
		Evidence: fmt.Sprintf("only %d of %d key terms on page", len(found), len(terms)),
	}, nil
}

// checkWithoutHint accepts an explicit claim only right after an action that
// succeeded and visibly changed the page.
func (c *PageCompletionChecker) checkWithoutHint(q output.CompletionQuery) output.CompletionVerdict {
	if q.Trigger == output.TriggerPrecheck {
		return output.CompletionVerdict{Evidence: "no verification hint"}
	}
	r := q.LastResult
	if r != nil && r.Success && (r.URLChanged || len(r.Mutations) > 0) {
		return output.CompletionVerdict{Satisfied: true, Evidence: "last action changed the page"}
	}
	return output.CompletionVerdict{Evidence: "no verification hint and no page change"}
}
