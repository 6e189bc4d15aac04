// Package metrics exposes run counters through a prometheus registry.
package metrics

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"webagent/internal/application/port/output"
	"webagent/internal/domain/entity"
)

var _ output.Telemetry = (*Telemetry)(nil)

const namespace = "webagent"

type Telemetry struct {
	distills *prometheus.CounterVec
	elements *prometheus.CounterVec
	actions  *prometheus.CounterVec
	tokens   prometheus.Counter
	subtasks *prometheus.CounterVec
	registry *prometheus.Registry
}

// New registers the counters on a fresh registry.
func New() *Telemetry {
	t := &Telemetry{
		distills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "distills_total",
			Help:      "Page distillations by mode.",
		}, []string{"mode"}),
		elements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "distilled_elements_total",
			Help:      "Elements emitted by distillation, by mode.",
		}, []string{"mode"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Executed actions by type and outcome.",
		}, []string{"action", "success"}),
		tokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decision_tokens_total",
			Help:      "Tokens spent on decisions.",
		}),
		subtasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subtasks_total",
			Help:      "Finished subtasks by outcome code.",
		}, []string{"outcome"}),
		registry: prometheus.NewRegistry(),
	}
	t.registry.MustRegister(t.distills, t.elements, t.actions, t.tokens, t.subtasks)
	return t
}

func (t *Telemetry) Registry() *prometheus.Registry { return t.registry }

// Totals flattens every gathered counter into `name{label="value",...}` keys.
func (t *Telemetry) Totals() (map[string]float64, error) {
	families, err := t.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			if labels := m.GetLabel(); len(labels) > 0 {
				parts := make([]string, 0, len(labels))
				for _, l := range labels {
					parts = append(parts, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
				}
				key += "{" + strings.Join(parts, ",") + "}"
			}
			out[key] = m.GetCounter().GetValue()
		}
	}
	return out, nil
}

// WriteText writes the registry in the prometheus text exposition format.
func (t *Telemetry) WriteText(w io.Writer) error {
	families, err := t.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func (t *Telemetry) ObserveDistill(mode entity.DistillMode, elements int) {
	t.distills.WithLabelValues(string(mode)).Inc()
	t.elements.WithLabelValues(string(mode)).Add(float64(elements))
}

func (t *Telemetry) ObserveAction(action entity.ActionType, success bool) {
	t.actions.WithLabelValues(string(action), strconv.FormatBool(success)).Inc()
}

func (t *Telemetry) ObserveTokens(n int) {
	if n > 0 {
		t.tokens.Add(float64(n))
	}
}

func (t *Telemetry) ObserveSubtask(success bool, code entity.ErrorCode) {
	outcome := "SUCCESS"
	if !success {
		outcome = string(code)
		if outcome == "" {
			outcome = "CANCELLED"
		}
	}
	t.subtasks.WithLabelValues(outcome).Inc()
}
