package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webagent/internal/domain/entity"
)

type stubRunner struct {
	outcomes map[string]bool
	err      error
	ran      []entity.Subtask
}

func (r *stubRunner) Run(_ context.Context, st entity.Subtask) (*entity.SubtaskResult, error) {
	r.ran = append(r.ran, st)
	res := &entity.SubtaskResult{SubtaskID: st.ID, Success: r.outcomes[st.ID], TokensUsed: 100}
	if !res.Success {
		res.Error = &entity.SubtaskError{Code: entity.CodeMaxStepsExceeded}
	}
	return res, r.err
}

type stubBrowser struct {
	visited []string
	err     error
}

func (b *stubBrowser) Navigate(_ context.Context, url string) error {
	b.visited = append(b.visited, url)
	return b.err
}

func (b *stubBrowser) Execute(context.Context, entity.Action, string) (entity.ExecutionOutcome, error) {
	return entity.ExecutionOutcome{Success: true}, nil
}

func (b *stubBrowser) CurrentURL() string { return "" }
func (b *stubBrowser) Close()             {}

func threeStepPlan() entity.Plan {
	return entity.Plan{
		Goal:     "buy socks",
		StartURL: "https://shop.example.com",
		Subtasks: []entity.Subtask{
			{ID: "search", Description: "Search for socks"},
			{ID: "open", Description: "Open the first result"},
			{Description: "Add it to the cart"},
		},
	}
}

func TestExecute_AllSucceed(t *testing.T) {
	runner := &stubRunner{outcomes: map[string]bool{"search": true, "open": true, "subtask-3": true}}
	browser := &stubBrowser{}

	res, err := New(runner, browser, nil).Execute(context.Background(), threeStepPlan())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Len(t, res.Results, 3)
	assert.Equal(t, 300, res.TokensUsed)
	assert.Equal(t, []string{"https://shop.example.com"}, browser.visited)
	assert.Equal(t, "subtask-3", runner.ran[2].ID)
}

func TestExecute_StopsAtFirstFailure(t *testing.T) {
	runner := &stubRunner{outcomes: map[string]bool{"search": true}}

	res, err := New(runner, &stubBrowser{}, nil).Execute(context.Background(), threeStepPlan())
	require.NoError(t, err)

	assert.False(t, res.Success)
	require.Len(t, res.Results, 2)
	assert.Equal(t, entity.CodeMaxStepsExceeded, res.Results[1].Error.Code)
	assert.Len(t, runner.ran, 2)
}

func TestExecute_StartURLFailure(t *testing.T) {
	runner := &stubRunner{}

	_, err := New(runner, &stubBrowser{err: errors.New("dns")}, nil).Execute(context.Background(), threeStepPlan())

	require.Error(t, err)
	assert.Empty(t, runner.ran)
}

func TestExecute_CancellationKeepsPartialResults(t *testing.T) {
	runner := &stubRunner{outcomes: map[string]bool{"search": true}, err: context.Canceled}

	res, err := New(runner, &stubBrowser{}, nil).Execute(context.Background(), threeStepPlan())

	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, res.Success)
	assert.Len(t, res.Results, 1)
}
