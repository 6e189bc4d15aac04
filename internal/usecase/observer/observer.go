// Package observer captures page mutations around a single action and
// reduces them to a ChangeReport.
package observer

import (
	"context"
	"fmt"
	"sync"

	"webagent/internal/application/port/input"
	"webagent/internal/application/port/output"
	"webagent/internal/domain/entity"
)

const (
	feedbackNotArmed  = "No changes observed"
	feedbackNoChanges = "No significant changes detected"
)

// Observer owns at most one open observation window. Arming while armed
// restarts the window with a fresh baseline.
type Observer struct {
	source output.MutationSource
	logger output.LoggerPort

	mu       sync.Mutex
	armed    bool
	baseline entity.PageInfo
}

var _ input.ChangeObserver = (*Observer)(nil)

func New(source output.MutationSource, logger output.LoggerPort) *Observer {
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &Observer{source: source, logger: logger}
}

func (o *Observer) Arm(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	info, err := o.source.PageInfo(ctx)
	if err != nil {
		return fmt.Errorf("read baseline: %w", err)
	}
	if err := o.source.StartCapture(ctx); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	o.armed = true
	o.baseline = info
	return nil
}

// Disarm closes the window. Capture failures degrade to a report built from
// whatever was obtained.
func (o *Observer) Disarm(ctx context.Context) entity.ChangeReport {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.armed {
		return entity.ChangeReport{Mutations: []entity.DOMChange{}, VerbalFeedback: feedbackNotArmed}
	}
	o.armed = false

	records, err := o.source.StopCapture(ctx)
	if err != nil {
		o.logger.Warn("stop capture failed", "error", err)
	}
	current, err := o.source.PageInfo(ctx)
	if err != nil {
		o.logger.Warn("read page info failed", "error", err)
		current = o.baseline
	}

	report := Reduce(o.baseline, current, records)
	o.logger.Debug("observation window closed",
		"records", len(records),
		"changes", len(report.Mutations),
		"feedback", report.VerbalFeedback,
	)
	return report
}

func (o *Observer) Armed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.armed
}
