// Package decision asks the language model for the next action.
package decision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"webagent/internal/application/port/output"
	"webagent/internal/domain/entity"
)

type Config struct {
	Temperature    float32
	MaxTokens      int
	HistoryLimit   int
	FallbackWaitMs int
}

func DefaultConfig() Config {
	return Config{
		Temperature:    0.1,
		MaxTokens:      1024,
		HistoryLimit:   10,
		FallbackWaitMs: 1000,
	}
}

type Maker struct {
	llm          output.LLMPort
	logger       output.LoggerPort
	systemPrompt string
	step         *template.Template
	cfg          Config
	countTokens  func(string) int
}

var _ output.DecisionMaker = (*Maker)(nil)

func New(llm output.LLMPort, logger output.LoggerPort, systemPrompt, stepTemplate string, cfg Config) (*Maker, error) {
	if logger == nil {
		logger = output.NopLogger{}
	}
	tmpl, err := template.New("step").Parse(stepTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse step template: %w", err)
	}
	return &Maker{
		llm:          llm,
		logger:       logger,
		systemPrompt: systemPrompt,
		step:         tmpl,
		cfg:          cfg,
		countTokens:  CountTokens,
	}, nil
}

// Decide returns an error only when the model could not be reached. Output
// that cannot be parsed yields a wait decision marked as fallback.
func (m *Maker) Decide(ctx context.Context, req entity.DecisionRequest) (entity.Decision, error) {
	userMsg, err := m.renderStep(req)
	if err != nil {
		return entity.Decision{}, fmt.Errorf("render step: %w", err)
	}

	messages := []entity.Message{
		{Role: entity.RoleSystem, Content: m.systemPrompt},
		{Role: entity.RoleUser, Content: userMsg},
	}
	resp, err := m.llm.Chat(ctx, output.ChatRequest{
		Messages:    messages,
		Temperature: m.cfg.Temperature,
		MaxTokens:   m.cfg.MaxTokens,
		JSONMode:    true,
	})
	if err != nil {
		return entity.Decision{}, fmt.Errorf("decision llm request failed: %w", err)
	}

	tokens := resp.Usage.TotalTokens
	if tokens == 0 {
		tokens = m.countTokens(m.systemPrompt) + m.countTokens(userMsg) + m.countTokens(resp.Message.Content)
	}

	d, err := ParseDecision(resp.Message.Content)
	if err != nil {
		m.logger.Warn("Failed to parse decision, falling back to wait",
			"error", err,
			"response", truncate(resp.Message.Content, 300),
		)
		return entity.Decision{
			Action:     entity.WaitAction(m.cfg.FallbackWaitMs),
			Status:     entity.StatusContinue,
			Reasoning:  "unusable model output",
			TokensUsed: tokens,
			Fallback:   true,
		}, nil
	}
	d.TokensUsed = tokens

	m.logger.Info("Decision made",
		"status", d.Status,
		"action", d.Action.String(),
		"tokens", tokens,
	)
	return d, nil
}

type stepData struct {
	Subtask       entity.Subtask
	Step          int
	MaxSteps      int
	Title         string
	URL           string
	Mode          entity.DistillMode
	View          string
	History       []string
	Duplicate     string
	Stagnant      int
	BudgetWarning string
}

func (m *Maker) renderStep(req entity.DecisionRequest) (string, error) {
	data := stepData{
		Subtask:       req.Subtask,
		Step:          req.Step,
		MaxSteps:      req.MaxSteps,
		History:       historyLines(req.History, m.cfg.HistoryLimit),
		Stagnant:      req.StagnantSteps,
		BudgetWarning: req.BudgetWarning,
	}
	if req.View != nil {
		h := req.View.Header()
		data.Title, data.URL, data.Mode = h.Title, h.URL, h.Mode
		view, err := json.Marshal(req.View)
		if err != nil {
			return "", err
		}
		data.View = string(view)
	}
	if req.DuplicateOf != nil {
		data.Duplicate = req.DuplicateOf.Action.String()
	}

	var buf bytes.Buffer
	if err := m.step.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func historyLines(history []entity.HistoryEntry, limit int) []string {
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}
	lines := make([]string, 0, len(history))
	for _, h := range history {
		switch h.Kind {
		case entity.HistoryVerification:
			lines = append(lines, fmt.Sprintf("step %d: completion claim rejected: %s", h.Step, h.Note))
		default:
			if h.Result == nil {
				continue
			}
			r := h.Result
			outcome := "ok"
			if !r.Success {
				outcome = "FAILED: " + r.Error
			}
			line := fmt.Sprintf("step %d: %s -> %s; %s", h.Step, r.Action.String(), outcome, r.VerbalFeedback)
			if r.Duplicate {
				line += " (repeated action)"
			}
			lines = append(lines, line)
		}
	}
	return lines
}

// truncate keeps at most n runes.
func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
