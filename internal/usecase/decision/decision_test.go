package decision

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webagent/internal/application/port/output"
	"webagent/internal/domain/entity"
	"webagent/internal/infrastructure/prompts"
)

func TestParseDecision_ValidJSON(t *testing.T) {
	d, err := ParseDecision(`{"reasoning":"open search","status":"continue","action":"click","params":{"index":3}}`)

	require.NoError(t, err)
	assert.Equal(t, entity.StatusContinue, d.Status)
	assert.Equal(t, entity.NewAction(entity.ClickParams{Index: 3}), d.Action)
	assert.Equal(t, "open search", d.Reasoning)
}

func TestParseDecision_WithTextAround(t *testing.T) {
	d, err := ParseDecision("Sure, here you go:\n```json\n{\"action\":\"type\",\"params\":{\"index\":1,\"text\":\"shoes\"}}\n```")

	require.NoError(t, err)
	assert.Equal(t, entity.StatusContinue, d.Status)
	assert.Equal(t, entity.NewAction(entity.TypeParams{Index: 1, Text: "shoes"}), d.Action)
}

func TestParseDecision_RepairsMalformedJSON(t *testing.T) {
	d, err := ParseDecision(`{"status": "continue", "action": "navigate", "params": {"url": "https://example.com",},}`)

	require.NoError(t, err)
	assert.Equal(t, entity.NewAction(entity.NavigateParams{URL: "https://example.com"}), d.Action)
}

func TestParseDecision_TerminalStatuses(t *testing.T) {
	d, err := ParseDecision(`{"status":"done","reasoning":"order placed"}`)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDone, d.Status)

	d, err = ParseDecision(`{"action":"fail","reasoning":"no such product"}`)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusFail, d.Status)
}

func TestParseDecision_CheckAndUncheck(t *testing.T) {
	d, err := ParseDecision(`{"action":"uncheck","params":{"index":4}}`)
	require.NoError(t, err)
	assert.Equal(t, entity.ActionUncheck, d.Action.Type())

	d, err = ParseDecision(`{"action":"check","params":{"index":4}}`)
	require.NoError(t, err)
	assert.Equal(t, entity.NewAction(entity.CheckParams{Index: 4, Checked: true}), d.Action)
}

func TestParseDecision_Rejects(t *testing.T) {
	_, err := ParseDecision("I think we should click the button")
	assert.ErrorIs(t, err, ErrNoJSON)

	_, err = ParseDecision(`{"action":"teleport","params":{}}`)
	assert.ErrorIs(t, err, entity.ErrUnknownAction)

	_, err = ParseDecision(`{"status":"maybe"}`)
	assert.Error(t, err)

	_, err = ParseDecision(`{"action":"click","params":{"index":"first"}}`)
	assert.ErrorIs(t, err, entity.ErrValidation)
}

type fakeLLM struct {
	content string
	usage   entity.Usage
	err     error
	last    output.ChatRequest
}

func (f *fakeLLM) Chat(_ context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &output.ChatResponse{
		Message: entity.Message{Role: entity.RoleAssistant, Content: f.content},
		Usage:   f.usage,
	}, nil
}

func newMaker(t *testing.T, llm output.LLMPort) *Maker {
	t.Helper()
	m, err := New(llm, nil, "system", prompts.StepTemplate, DefaultConfig())
	require.NoError(t, err)
	m.countTokens = func(s string) int { return len(s) }
	return m
}

func sampleRequest() entity.DecisionRequest {
	view := &entity.InteractiveView{
		ViewHeader: entity.ViewHeader{Mode: entity.ModeInteractive, URL: "https://shop.example.com/", Title: "Shop"},
		Elements: []entity.InteractiveElement{{DistilledElement: entity.DistilledElement{
			Index: 0, Tag: "button", Kind: entity.KindButton, Text: "Search",
		}}},
	}
	click := entity.ActionResult{Action: entity.NewAction(entity.ClickParams{Index: 0}), Success: true, VerbalFeedback: "No significant changes detected"}
	return entity.DecisionRequest{
		Subtask:  entity.Subtask{Description: "Click search button", Verification: "results are listed"},
		View:     view,
		Step:     12,
		MaxSteps: 15,
		History: []entity.HistoryEntry{
			{Kind: entity.HistoryAction, Step: 1, Result: &click},
			{Kind: entity.HistoryVerification, Step: 2, Note: "no results on page"},
		},
		DuplicateOf:   &click,
		StagnantSteps: 2,
		BudgetWarning: "Only 3 steps remain.",
	}
}

func TestDecide_UsesReportedUsage(t *testing.T) {
	llm := &fakeLLM{content: `{"action":"scroll","params":{"direction":"down"}}`, usage: entity.Usage{TotalTokens: 321}}
	m := newMaker(t, llm)

	d, err := m.Decide(context.Background(), sampleRequest())

	require.NoError(t, err)
	assert.False(t, d.Fallback)
	assert.Equal(t, 321, d.TokensUsed)
	assert.Equal(t, entity.NewAction(entity.ScrollParams{Direction: "down"}), d.Action)
	require.Len(t, llm.last.Messages, 2)
	assert.Equal(t, entity.RoleSystem, llm.last.Messages[0].Role)
	assert.True(t, llm.last.JSONMode)
}

func TestDecide_RendersStepContext(t *testing.T) {
	llm := &fakeLLM{content: `{"status":"done"}`, usage: entity.Usage{TotalTokens: 1}}
	m := newMaker(t, llm)

	_, err := m.Decide(context.Background(), sampleRequest())
	require.NoError(t, err)

	msg := llm.last.Messages[1].Content
	for _, want := range []string{
		"Subtask: Click search button",
		"Success looks like: results are listed",
		"Step 12 of 15",
		"Page: Shop (https://shop.example.com/)",
		`"text":"Search"`,
		`step 1: click {"index":0} -> ok; No significant changes detected`,
		"step 2: completion claim rejected: no results on page",
		`WARNING: your last action repeated an earlier one (click {"index":0})`,
		"has not changed for 2 step(s)",
		"Only 3 steps remain.",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestDecide_UnparsableOutputFallsBackToWait(t *testing.T) {
	llm := &fakeLLM{content: "Let me think about it..."}
	m := newMaker(t, llm)

	d, err := m.Decide(context.Background(), sampleRequest())

	require.NoError(t, err)
	assert.True(t, d.Fallback)
	assert.Equal(t, entity.WaitAction(1000), d.Action)
	assert.Equal(t, entity.StatusContinue, d.Status)
	assert.Positive(t, d.TokensUsed, "tokens are estimated when usage is missing")
}

func TestDecide_TransportErrorIsReturned(t *testing.T) {
	llm := &fakeLLM{err: errors.New("connection reset")}
	m := newMaker(t, llm)

	_, err := m.Decide(context.Background(), sampleRequest())

	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "connection reset"))
}

func TestHistoryLines_KeepsMostRecent(t *testing.T) {
	var history []entity.HistoryEntry
	for i := 1; i <= 15; i++ {
		r := entity.ActionResult{Action: entity.WaitAction(10), Success: i%2 == 0, Error: "timeout"}
		history = append(history, entity.HistoryEntry{Kind: entity.HistoryAction, Step: i, Result: &r})
	}

	lines := historyLines(history, 10)

	require.Len(t, lines, 10)
	assert.True(t, strings.HasPrefix(lines[0], "step 6: "))
	assert.Contains(t, lines[0], "ok")
	assert.Contains(t, lines[1], "FAILED: timeout")
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens("   "))
	assert.Equal(t, 1, EstimateTokens("hi"))
	assert.Equal(t, 3, EstimateTokens("one two three"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("a", 100)))
}

func TestTruncate_CutsOnRuneBoundary(t *testing.T) {
	s := strings.Repeat("ж", 10)
	got := truncate(s, 3)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, "жжж...", got)
	assert.Equal(t, "short", truncate("  short  ", 10))
}
