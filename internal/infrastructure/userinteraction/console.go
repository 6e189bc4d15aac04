package userinteraction

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"

	"webagent/internal/application/port/output"
	"webagent/internal/domain/entity"
)

var _ output.ProgressReporter = (*ConsoleReporter)(nil)

// ConsoleReporter prints step-by-step progress of subtask runs.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
}

func NewConsoleReporter() *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout)
}

func NewConsoleReporterTo(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: w}
}

func (c *ConsoleReporter) ShowSubtask(ctx context.Context, st entity.Subtask) {
	c.mu.Lock()
	defer c.mu.Unlock()
	color.New(color.FgMagenta, color.Bold).Fprintf(c.out, "\n▶ %s", st.Description)
	if st.ID != "" {
		color.New(color.Faint).Fprintf(c.out, " [%s]", st.ID)
	}
	fmt.Fprintln(c.out)
	if st.Verification != "" {
		color.New(color.Faint).Fprintf(c.out, "   done when: %s\n", truncate(st.Verification, 100))
	}
}

func (c *ConsoleReporter) ShowIteration(ctx context.Context, iteration, maxIterations int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	color.New(color.FgCyan, color.Bold).Fprintf(c.out, "\n━━━ Step %d/%d ━━━\n", iteration, maxIterations)
}

func (c *ConsoleReporter) ShowThinking(ctx context.Context, content string) {
	if content == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	color.New(color.FgBlue).Fprint(c.out, "💭 ")
	color.New(color.Faint).Fprintln(c.out, truncate(content, 500))
}

func (c *ConsoleReporter) ShowAction(ctx context.Context, action entity.Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	icon, name := actionDisplay(action.Type())
	color.New(color.FgYellow, color.Bold).Fprintf(c.out, "%s %s", icon, name)
	if summary := actionSummary(action); summary != "" {
		color.New(color.Faint).Fprintf(c.out, "  %s", summary)
	}
	fmt.Fprintln(c.out)
}

func (c *ConsoleReporter) ShowActionResult(ctx context.Context, result entity.ActionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !result.Success {
		color.New(color.FgRed).Fprintf(c.out, "❌ %s: ", result.ErrorCategory)
		color.New(color.Faint).Fprintln(c.out, truncate(result.Error, 300))
		return
	}
	line := result.VerbalFeedback
	if result.Duplicate {
		line += " (repeated action)"
	}
	color.New(color.FgGreen).Fprintf(c.out, "✓ %s\n", truncate(line, 150))
}

func (c *ConsoleReporter) ShowSubtaskResult(ctx context.Context, result *entity.SubtaskResult) {
	if result == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if result.Success {
		color.New(color.FgGreen, color.Bold).Fprintf(c.out, "\n✔ Subtask %s done in %d step(s), %d tokens\n",
			result.SubtaskID, len(result.Steps), result.TokensUsed)
		return
	}
	msg := "stopped"
	if result.Error != nil {
		msg = fmt.Sprintf("%s at step %d: %s", result.Error.Code, result.Error.Step, truncate(result.Error.Message, 200))
	}
	color.New(color.FgRed, color.Bold).Fprintf(c.out, "\n✘ Subtask %s failed: %s\n", result.SubtaskID, msg)
}

func actionDisplay(t entity.ActionType) (string, string) {
	displays := map[entity.ActionType][2]string{
		entity.ActionNavigate: {"🌐", "Navigate"},
		entity.ActionClick:    {"🖱️", "Click"},
		entity.ActionTypeText: {"✏️", "Type"},
		entity.ActionClear:    {"🧹", "Clear"},
		entity.ActionSelect:   {"📋", "Select"},
		entity.ActionCheck:    {"☑️", "Check"},
		entity.ActionUncheck:  {"☐", "Uncheck"},
		entity.ActionHover:    {"👆", "Hover"},
		entity.ActionScroll:   {"📜", "Scroll"},
		entity.ActionScrollTo: {"📜", "Scroll to"},
		entity.ActionFocus:    {"🎯", "Focus"},
		entity.ActionPressKey: {"⏎", "Press"},
		entity.ActionWait:     {"⏳", "Wait"},
		entity.ActionBack:     {"⬅️", "Back"},
		entity.ActionForward:  {"➡️", "Forward"},
		entity.ActionRefresh:  {"🔄", "Refresh"},
	}
	if display, ok := displays[t]; ok {
		return display[0], display[1]
	}
	return "🔧", string(t)
}

func actionSummary(action entity.Action) string {
	switch p := action.Params.(type) {
	case entity.NavigateParams:
		return "URL: " + truncate(p.URL, 80)
	case entity.TypeParams:
		return fmt.Sprintf("#%d → %s", p.Index, truncate(p.Text, 40))
	case entity.SelectParams:
		return fmt.Sprintf("#%d → %s", p.Index, truncate(p.Value, 40))
	case entity.ScrollParams:
		directions := map[string]string{
			"up":     "⬆️ up",
			"down":   "⬇️ down",
			"top":    "⬆️ to top",
			"bottom": "⬇️ to bottom",
		}
		if display, ok := directions[p.Direction]; ok {
			return display
		}
		return p.Direction
	case entity.PressKeyParams:
		return p.Key
	case entity.WaitParams:
		return fmt.Sprintf("%dms", p.Ms)
	case entity.Targeted:
		return fmt.Sprintf("#%d", p.TargetIndex())
	}
	return ""
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
