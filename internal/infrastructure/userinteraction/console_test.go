package userinteraction

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"webagent/internal/domain/entity"
)

func newTestReporter(t *testing.T) (*ConsoleReporter, *bytes.Buffer) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
	var buf bytes.Buffer
	return NewConsoleReporterTo(&buf), &buf
}

func TestConsoleReporter_Step(t *testing.T) {
	r, buf := newTestReporter(t)
	ctx := context.Background()

	r.ShowIteration(ctx, 2, 15)
	r.ShowAction(ctx, entity.NewAction(entity.TypeParams{Index: 3, Text: "alice@example.com"}))
	r.ShowActionResult(ctx, entity.ActionResult{Success: true, VerbalFeedback: "1 added, 0 removed, 0 modified", Duplicate: true})

	out := buf.String()
	assert.Contains(t, out, "Step 2/15")
	assert.Contains(t, out, "Type  #3 → alice@example.com")
	assert.Contains(t, out, "✓ 1 added, 0 removed, 0 modified (repeated action)")
}

func TestConsoleReporter_FailureLines(t *testing.T) {
	r, buf := newTestReporter(t)
	ctx := context.Background()

	r.ShowActionResult(ctx, entity.ActionResult{ErrorCategory: entity.CategoryElementNotFound, Error: "index 5 out of range"})
	r.ShowSubtaskResult(ctx, &entity.SubtaskResult{
		SubtaskID: "login",
		Error:     &entity.SubtaskError{Code: entity.CodeConsecutiveFailures, Step: 3, Message: "3 consecutive failures"},
	})

	out := buf.String()
	assert.Contains(t, out, "❌ ELEMENT_NOT_FOUND: index 5 out of range")
	assert.Contains(t, out, "Subtask login failed: CONSECUTIVE_FAILURES at step 3")
}

func TestActionSummary(t *testing.T) {
	tests := []struct {
		action entity.Action
		want   string
	}{
		{entity.NewAction(entity.ClickParams{Index: 7}), "#7"},
		{entity.NewAction(entity.ScrollParams{Direction: "down"}), "⬇️ down"},
		{entity.NewAction(entity.NavigateParams{URL: "https://a.example/"}), "URL: https://a.example/"},
		{entity.WaitAction(1000), "1000ms"},
		{entity.NewAction(entity.BackParams{}), ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, actionSummary(tt.action), tt.action.String())
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
	assert.Equal(t, strings.Repeat("é", 3)+"...", truncate(strings.Repeat("é", 10), 3))
}
