// Package distiller reduces a document snapshot to a compact, indexed view
// for one of three modes, and keeps the index to locator arena of the latest
// view for action execution.
package distiller

import (
	"context"
	"fmt"
	"time"

	"webagent/internal/application/port/input"
	"webagent/internal/application/port/output"
	"webagent/internal/domain/dom"
	"webagent/internal/domain/entity"
)

type Engine struct {
	source    output.SnapshotSource
	logger    output.LoggerPort
	telemetry output.Telemetry
	cfg       Config
	arena     Arena
	now       func() time.Time
}

var _ input.Distiller = (*Engine)(nil)

func New(source output.SnapshotSource, logger output.LoggerPort, cfg Config) *Engine {
	if logger == nil {
		logger = output.NopLogger{}
	}
	return &Engine{
		source: source,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

func (e *Engine) WithTelemetry(t output.Telemetry) *Engine {
	e.telemetry = t
	return e
}

func (e *Engine) Distill(ctx context.Context, mode entity.DistillMode) (entity.DistilledView, error) {
	doc, err := e.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	view, locators := e.DistillDocument(doc, mode)
	e.arena.reset(doc, locators)

	h := view.Header()
	e.logger.Debug("distilled page",
		"mode", h.Mode,
		"requested", mode,
		"elements", view.Len(),
		"tokens", h.TokenCount,
		"url", h.URL,
	)
	if e.telemetry != nil {
		e.telemetry.ObserveDistill(h.Mode, view.Len())
	}
	return view, nil
}

func (e *Engine) Resolve(index int) (string, error) {
	return e.arena.Resolve(index)
}

// DistillDocument is the pure part of Distill. It returns the view together
// with the locator of every index, without touching the arena.
func (e *Engine) DistillDocument(doc *dom.Document, mode entity.DistillMode) (entity.DistilledView, []string) {
	b := newBuilder(e.cfg, doc)
	header := entity.ViewHeader{
		URL:         doc.URL(),
		Title:       doc.Title(),
		ExtractedAt: e.now(),
	}

	var textCands []candidate
	if mode == entity.ModeAuto {
		mode, textCands = e.chooseMode(b)
	}

	var (
		view     entity.DistilledView
		locators []string
	)
	switch mode {
	case entity.ModeText:
		if textCands == nil {
			textCands = b.collectText()
		}
		v, locs := b.textView(textCands)
		header.Mode = entity.ModeText
		v.ViewHeader = header
		v.TokenCount = estimateTokens(v, e.cfg.TokenFactor)
		view, locators = v, locs
	case entity.ModeInput:
		v, locs := b.inputView(b.collectInputs())
		header.Mode = entity.ModeInput
		v.ViewHeader = header
		v.TokenCount = estimateTokens(v, e.cfg.TokenFactor)
		view, locators = v, locs
	default:
		v, locs := b.interactiveView(b.collectInteractive())
		header.Mode = entity.ModeInteractive
		v.ViewHeader = header
		v.TokenCount = estimateTokens(v, e.cfg.TokenFactor)
		view, locators = v, locs
	}
	return view, locators
}

// chooseMode picks input mode for form-heavy pages, text mode for long
// reading pages with few links and no inputs, and interactive otherwise.
// The text candidates are returned so they are not collected twice.
func (e *Engine) chooseMode(b *builder) (entity.DistillMode, []candidate) {
	inputs := len(b.collectInputs())
	links := b.countLinks()
	if inputs >= e.cfg.AutoMinInputs && inputs*2 >= links {
		return entity.ModeInput, nil
	}
	if inputs > 0 || links > e.cfg.AutoMaxTextLinks {
		return entity.ModeInteractive, nil
	}
	text := b.collectText()
	chars := 0
	for _, c := range text {
		chars += len([]rune(c.text))
	}
	if chars >= e.cfg.AutoMinTextChars {
		return entity.ModeText, text
	}
	return entity.ModeInteractive, nil
}
