package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webagent/internal/domain/entity"
)

func TestTelemetryCounters(t *testing.T) {
	tel := New()

	tel.ObserveDistill(entity.ModeInput, 4)
	tel.ObserveDistill(entity.ModeInput, 2)
	tel.ObserveAction(entity.ActionClick, true)
	tel.ObserveAction(entity.ActionClick, false)
	tel.ObserveAction(entity.ActionClick, false)
	tel.ObserveTokens(120)
	tel.ObserveTokens(0)
	tel.ObserveSubtask(true, "")
	tel.ObserveSubtask(false, entity.CodeNoProgress)
	tel.ObserveSubtask(false, "")

	assert.Equal(t, 2.0, testutil.ToFloat64(tel.distills.WithLabelValues("input")))
	assert.Equal(t, 6.0, testutil.ToFloat64(tel.elements.WithLabelValues("input")))
	assert.Equal(t, 2.0, testutil.ToFloat64(tel.actions.WithLabelValues("click", "false")))
	assert.Equal(t, 120.0, testutil.ToFloat64(tel.tokens))
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.subtasks.WithLabelValues("NO_PROGRESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tel.subtasks.WithLabelValues("CANCELLED")))
}

func TestRegistryExposition(t *testing.T) {
	tel := New()
	tel.ObserveTokens(7)

	expected := `
# HELP webagent_decision_tokens_total Tokens spent on decisions.
# TYPE webagent_decision_tokens_total counter
webagent_decision_tokens_total 7
`
	require.NoError(t, testutil.GatherAndCompare(tel.Registry(), strings.NewReader(expected), "webagent_decision_tokens_total"))
}

func TestTotals(t *testing.T) {
	tel := New()
	tel.ObserveAction(entity.ActionClick, true)
	tel.ObserveAction(entity.ActionClick, true)
	tel.ObserveTokens(40)
	tel.ObserveSubtask(false, entity.CodeMaxStepsExceeded)

	totals, err := tel.Totals()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{
		`webagent_actions_total{action="click",success="true"}`: 2,
		`webagent_decision_tokens_total`:                        40,
		`webagent_subtasks_total{outcome="MAX_STEPS_EXCEEDED"}`: 1,
	}, totals)
}

func TestWriteText(t *testing.T) {
	tel := New()
	tel.ObserveDistill(entity.ModeText, 3)

	var sb strings.Builder
	require.NoError(t, tel.WriteText(&sb))
	out := sb.String()
	assert.Contains(t, out, "# TYPE webagent_distills_total counter")
	assert.Contains(t, out, `webagent_distills_total{mode="text"} 1`)
	assert.Contains(t, out, `webagent_distilled_elements_total{mode="text"} 3`)
}
