package subtask

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"webagent/internal/application/port/input"
	"webagent/internal/application/port/output"
	"webagent/internal/domain/entity"
)

var _ input.SubtaskRunner = (*Machine)(nil)

// Deps are the collaborators of a Machine. Reporter and Telemetry may be nil.
type Deps struct {
	Distiller input.Distiller
	Observer  input.ChangeObserver
	Browser   output.BrowserPort
	Decider   output.DecisionMaker
	Checker   output.CompletionChecker
	Policy    ImplicitSuccessPolicy
	Reporter  output.ProgressReporter
	Telemetry output.Telemetry
	Logger    output.LoggerPort
}

// Machine drives one subtask through distill, decide, act and observe until
// it succeeds or hits one of the failure outcomes.
type Machine struct {
	deps Deps
	cfg  Config
	now  func() time.Time
}

func New(deps Deps, cfg Config) *Machine {
	if deps.Logger == nil {
		deps.Logger = output.NopLogger{}
	}
	if deps.Policy == nil {
		deps.Policy = DefaultImplicitPolicy()
	}
	if deps.Reporter == nil {
		deps.Reporter = nopReporter{}
	}
	if deps.Telemetry == nil {
		deps.Telemetry = nopTelemetry{}
	}
	return &Machine{deps: deps, cfg: cfg, now: time.Now}
}

type run struct {
	subtask entity.Subtask
	mode    entity.DistillMode
	state   entity.SubtaskExecutionState
	result  *entity.SubtaskResult
	logger  output.LoggerPort
}

func (r *run) last() *entity.ActionResult {
	if len(r.state.Attempts) == 0 {
		return nil
	}
	return &r.state.Attempts[len(r.state.Attempts)-1]
}

// Run executes the subtask. The only error it returns is the context's; every
// other failure is reported through SubtaskResult.Error.
func (m *Machine) Run(ctx context.Context, st entity.Subtask) (res *entity.SubtaskResult, err error) {
	runID := uuid.NewString()
	r := &run{
		subtask: st,
		mode:    ModeFor(st),
		result: &entity.SubtaskResult{
			RunID:     runID,
			SubtaskID: st.ID,
			Steps:     []entity.ActionResult{},
			Timing:    entity.Timing{StartedAt: m.now()},
		},
		logger: m.deps.Logger.WithFields(map[string]any{"subtask": st.ID, "run": runID}),
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("Subtask aborted by panic", "panic", p)
			res, err = m.fail(ctx, r, entity.CodeActionFailed, fmt.Sprintf("panic: %v", p)), nil
		}
	}()

	m.deps.Reporter.ShowSubtask(ctx, st)
	r.logger.Info("Starting subtask", "description", st.Description, "mode", r.mode)

	if m.precheck(ctx, r) {
		return m.succeed(ctx, r, "already satisfied"), nil
	}

	for r.state.Step < m.cfg.MaxSteps {
		if err := ctx.Err(); err != nil {
			return m.cancel(ctx, r, err)
		}
		m.deps.Reporter.ShowIteration(ctx, r.state.Step+1, m.cfg.MaxSteps)

		view, err := m.deps.Distiller.Distill(ctx, r.mode)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return m.cancel(ctx, r, ctxErr)
			}
			r.logger.Warn("Distillation failed", "step", r.state.Step, "error", err)
			r.state.Step++
			r.state.ConsecutiveFailures++
			if r.state.ConsecutiveFailures >= m.cfg.MaxConsecutiveFailures {
				return m.fail(ctx, r, entity.CodeConsecutiveFailures, "page could not be distilled: "+err.Error()), nil
			}
			continue
		}

		if r.state.Step > 0 && m.heuristicHit(r, view) {
			if m.corroborated(ctx, r, output.TriggerHeuristic) {
				return m.succeed(ctx, r, "completion signal corroborated"), nil
			}
		}

		fp := Fingerprint(view, m.cfg.FingerprintElements, m.cfg.FingerprintTextLen)
		if r.state.Fingerprint != "" {
			if last := r.last(); fp == r.state.Fingerprint || (last != nil && last.Duplicate) {
				r.state.StagnantSteps++
			} else {
				r.state.StagnantSteps = 0
			}
		}
		if fp != r.state.Fingerprint {
			r.logger.Debug("Page state changed", "step", r.state.Step, "elements", view.Len())
		}
		r.state.Fingerprint = fp
		if r.state.StagnantSteps >= m.cfg.MaxStagnantSteps {
			return m.fail(ctx, r, entity.CodeNoProgress,
				fmt.Sprintf("page unchanged for %d steps", r.state.StagnantSteps)), nil
		}

		decision := m.decide(ctx, r, view)
		if err := ctx.Err(); err != nil {
			return m.cancel(ctx, r, err)
		}

		switch decision.Status {
		case entity.StatusDone:
			verdict, ok := m.verify(ctx, r, output.TriggerClaim)
			if ok {
				return m.succeed(ctx, r, verdict.Evidence), nil
			}
			r.state.Step++
			r.state.History = append(r.state.History, entity.HistoryEntry{
				Kind: entity.HistoryVerification,
				Step: r.state.Step,
				Note: verdict.Evidence,
			})
			r.logger.Info("Completion claim rejected", "step", r.state.Step, "evidence", verdict.Evidence)
			continue
		case entity.StatusFail:
			msg := decision.Reasoning
			if msg == "" {
				msg = "decision maker gave up"
			}
			return m.fail(ctx, r, entity.CodeModelReportedFailure, msg), nil
		}

		action := decision.Action
		m.deps.Reporter.ShowAction(ctx, action)

		if err := action.Params.Validate(); err != nil {
			m.record(ctx, r, entity.ActionResult{
				Action:        action,
				Error:         err.Error(),
				ErrorCategory: entity.CategoryValidation,
			})
			return m.fail(ctx, r, entity.CodeActionFailed, err.Error()), nil
		}

		duplicate := m.isDuplicate(r, action)

		var result entity.ActionResult
		locator, err := m.locate(action)
		if err != nil {
			result = entity.ActionResult{
				Action:        action,
				Error:         err.Error(),
				ErrorCategory: entity.CategoryOf(err),
			}
		} else {
			result = m.execute(ctx, action, locator)
		}
		result.Duplicate = duplicate
		m.record(ctx, r, result)

		if !result.Success {
			r.state.ConsecutiveFailures++
			r.state.Retries++
			r.logger.Warn("Action failed", "step", r.state.Step, "action", action.String(), "error", result.Error)
			if !result.ErrorCategory.Recoverable() {
				return m.fail(ctx, r, entity.CodeActionFailed, result.Error), nil
			}
			if r.state.ConsecutiveFailures >= m.cfg.MaxConsecutiveFailures {
				return m.fail(ctx, r, entity.CodeConsecutiveFailures,
					fmt.Sprintf("%d consecutive failures, last: %s", r.state.ConsecutiveFailures, result.Error)), nil
			}
			continue
		}
		r.state.ConsecutiveFailures = 0

		if result.URLChanged && m.deps.Policy.Applies(r.subtask, action) {
			return m.succeed(ctx, r, "navigation after "+string(action.Type())), nil
		}
	}

	return m.fail(ctx, r, entity.CodeMaxStepsExceeded,
		fmt.Sprintf("no completion within %d steps", m.cfg.MaxSteps)), nil
}

func (m *Machine) precheck(ctx context.Context, r *run) bool {
	if strings.TrimSpace(r.subtask.Verification) == "" {
		return false
	}
	return m.corroborated(ctx, r, output.TriggerPrecheck)
}

func (m *Machine) corroborated(ctx context.Context, r *run, trigger output.CompletionTrigger) bool {
	_, ok := m.verify(ctx, r, trigger)
	return ok
}

func (m *Machine) verify(ctx context.Context, r *run, trigger output.CompletionTrigger) (output.CompletionVerdict, bool) {
	verdict, err := m.deps.Checker.Check(ctx, output.CompletionQuery{
		Subtask:    r.subtask,
		Trigger:    trigger,
		LastResult: r.last(),
	})
	if err != nil {
		r.logger.Warn("Completion check failed", "trigger", trigger, "error", err)
		return output.CompletionVerdict{Evidence: "completion could not be checked: " + err.Error()}, false
	}
	r.logger.Debug("Completion checked", "trigger", trigger, "satisfied", verdict.Satisfied, "evidence", verdict.Evidence)
	return verdict, verdict.Satisfied
}

func (m *Machine) heuristicHit(r *run, view entity.DistilledView) bool {
	if last := r.last(); last != nil && last.Success && hasSuccessPhrase(last.VerbalFeedback) {
		return true
	}
	frag := URLFragment(r.subtask.Verification)
	return frag != "" && strings.Contains(view.Header().URL, frag)
}

func (m *Machine) decide(ctx context.Context, r *run, view entity.DistilledView) entity.Decision {
	req := entity.DecisionRequest{
		Subtask:       r.subtask,
		View:          view,
		History:       r.state.History,
		Step:          r.state.Step,
		MaxSteps:      m.cfg.MaxSteps,
		StagnantSteps: r.state.StagnantSteps,
	}
	if last := r.last(); last != nil && last.Duplicate {
		req.DuplicateOf = last
	}
	if r.state.Step >= int(math.Ceil(m.cfg.BudgetWarningRatio*float64(m.cfg.MaxSteps))) {
		req.BudgetWarning = fmt.Sprintf("%d of %d steps used. Finish or report failure soon.", r.state.Step, m.cfg.MaxSteps)
	}

	decision, err := m.deps.Decider.Decide(ctx, req)
	r.state.TokensUsed += decision.TokensUsed
	m.deps.Telemetry.ObserveTokens(decision.TokensUsed)
	if err != nil {
		r.logger.Warn("Decision failed, waiting instead", "step", r.state.Step, "error", err)
		return entity.Decision{Action: entity.WaitAction(m.cfg.FallbackWaitMs), Status: entity.StatusContinue, Fallback: true}
	}
	if decision.Reasoning != "" {
		m.deps.Reporter.ShowThinking(ctx, decision.Reasoning)
	}
	if decision.Status == entity.StatusContinue || decision.Status == "" {
		if decision.Action.Params == nil {
			decision.Action = entity.WaitAction(m.cfg.FallbackWaitMs)
			decision.Fallback = true
		}
		decision.Status = entity.StatusContinue
	}
	return decision
}

func (m *Machine) isDuplicate(r *run, action entity.Action) bool {
	attempts := r.state.Attempts
	if len(attempts) > m.cfg.DuplicateWindow {
		attempts = attempts[len(attempts)-m.cfg.DuplicateWindow:]
	}
	for _, a := range attempts {
		if a.Action.Type() == action.Type() && cmp.Equal(a.Action.Params, action.Params) {
			return true
		}
	}
	return false
}

func (m *Machine) locate(action entity.Action) (string, error) {
	t, ok := action.Params.(entity.Targeted)
	if !ok {
		return "", nil
	}
	return m.deps.Distiller.Resolve(t.TargetIndex())
}

// execute runs one action inside an armed observation window. The window is
// closed even if the backend panics.
func (m *Machine) execute(ctx context.Context, action entity.Action, locator string) entity.ActionResult {
	start := m.now()
	urlBefore := m.deps.Browser.CurrentURL()

	if err := m.deps.Observer.Arm(ctx); err != nil {
		m.deps.Logger.Warn("Observer could not be armed", "error", err)
	}
	var report entity.ChangeReport
	outcome, err := func() (entity.ExecutionOutcome, error) {
		defer func() { report = m.deps.Observer.Disarm(context.WithoutCancel(ctx)) }()
		return m.deps.Browser.Execute(ctx, action, locator)
	}()

	result := entity.ActionResult{
		Action:         action,
		Success:        err == nil && outcome.Success,
		Duration:       m.now().Sub(start),
		VerbalFeedback: report.VerbalFeedback,
		Mutations:      report.Mutations,
		URLChanged:     report.URLChanged || m.deps.Browser.CurrentURL() != urlBefore,
	}
	switch {
	case err != nil:
		result.Error = err.Error()
		result.ErrorCategory = entity.CategoryOf(err)
	case !outcome.Success:
		result.Error = "backend reported the action had no effect"
		result.ErrorCategory = entity.CategoryBackend
	}
	return result
}

func (m *Machine) record(ctx context.Context, r *run, result entity.ActionResult) {
	r.state.Step++
	r.state.Attempts = append(r.state.Attempts, result)
	entry := result
	r.state.History = append(r.state.History, entity.HistoryEntry{
		Kind:   entity.HistoryAction,
		Step:   r.state.Step,
		Result: &entry,
	})
	r.result.Steps = append(r.result.Steps, result)
	r.logger.Info("Step executed",
		"step", r.state.Step,
		"action", result.Action.String(),
		"success", result.Success,
		"feedback", result.VerbalFeedback,
		"duplicate", result.Duplicate)
	m.deps.Telemetry.ObserveAction(result.Action.Type(), result.Success)
	m.deps.Reporter.ShowActionResult(ctx, result)
}

func (m *Machine) succeed(ctx context.Context, r *run, evidence string) *entity.SubtaskResult {
	r.result.Success = true
	r.logger.Info("Subtask succeeded", "steps", r.state.Step, "evidence", evidence)
	return m.finish(ctx, r)
}

func (m *Machine) fail(ctx context.Context, r *run, code entity.ErrorCode, msg string) *entity.SubtaskResult {
	r.result.Success = false
	r.result.Error = &entity.SubtaskError{Code: code, Message: msg, Step: r.state.Step}
	r.logger.Warn("Subtask failed", "code", code, "step", r.state.Step, "message", msg)
	return m.finish(ctx, r)
}

func (m *Machine) cancel(ctx context.Context, r *run, err error) (*entity.SubtaskResult, error) {
	r.logger.Info("Subtask cancelled", "step", r.state.Step, "error", err)
	return m.finish(context.WithoutCancel(ctx), r), err
}

func (m *Machine) finish(ctx context.Context, r *run) *entity.SubtaskResult {
	r.result.TokensUsed = r.state.TokensUsed
	r.result.RetryCount = r.state.Retries
	r.result.Timing.FinishedAt = m.now()
	r.result.Timing.Duration = r.result.Timing.FinishedAt.Sub(r.result.Timing.StartedAt)

	code := entity.ErrorCode("")
	if r.result.Error != nil {
		code = r.result.Error.Code
	}
	m.deps.Telemetry.ObserveSubtask(r.result.Success, code)
	m.deps.Reporter.ShowSubtaskResult(ctx, r.result)
	return r.result
}

type nopReporter struct{}

func (nopReporter) ShowSubtask(context.Context, entity.Subtask)              {}
func (nopReporter) ShowIteration(context.Context, int, int)                  {}
func (nopReporter) ShowThinking(context.Context, string)                     {}
func (nopReporter) ShowAction(context.Context, entity.Action)                {}
func (nopReporter) ShowActionResult(context.Context, entity.ActionResult)    {}
func (nopReporter) ShowSubtaskResult(context.Context, *entity.SubtaskResult) {}

type nopTelemetry struct{}

func (nopTelemetry) ObserveDistill(entity.DistillMode, int) {}
func (nopTelemetry) ObserveAction(entity.ActionType, bool)  {}
func (nopTelemetry) ObserveTokens(int)                      {}
func (nopTelemetry) ObserveSubtask(bool, entity.ErrorCode)  {}
