package di

import (
	"context"
	"fmt"
	"io"
	"os"

	"webagent/internal/application/port/input"
	"webagent/internal/application/port/output"
	"webagent/internal/infrastructure/browser/rod"
	"webagent/internal/infrastructure/config"
	"webagent/internal/infrastructure/llm/openrouter"
	"webagent/internal/infrastructure/logger"
	"webagent/internal/infrastructure/metrics"
	"webagent/internal/infrastructure/prompts"
	"webagent/internal/infrastructure/userinteraction"
	"webagent/internal/usecase/decision"
	"webagent/internal/usecase/distiller"
	"webagent/internal/usecase/observer"
	"webagent/internal/usecase/orchestrator"
	"webagent/internal/usecase/subtask"
)

// Page is everything the agent needs from a browser tab.
type Page interface {
	output.BrowserPort
	output.SnapshotSource
	output.MutationSource
}

type Container struct {
	Config    *config.Config
	Browser   Page
	LLM       output.LLMPort
	Logger    output.LoggerPort
	Telemetry *metrics.Telemetry
	Distiller input.Distiller
	Runner    input.SubtaskRunner
	Plans     input.PlanExecutor
}

type Options struct {
	// Task names the log file.
	Task string
	// Console mirrors log lines; nil keeps logs in the file only.
	Console io.Writer
	// Progress defaults to a console reporter on stdout.
	Progress output.ProgressReporter
	// DistillOnly skips the model client, leaving Runner and Plans nil.
	DistillOnly bool
}

// Components are the externally owned parts Assemble wires together.
type Components struct {
	Page     Page
	LLM      output.LLMPort
	Logger   output.LoggerPort
	Progress output.ProgressReporter
}

func NewContainer(ctx context.Context, cfg *config.Config, opts Options) (*Container, error) {
	log, err := logger.NewLoggerAdapter(logger.Options{
		Dir:     cfg.Get(config.KeyLogDir),
		Task:    opts.Task,
		Level:   cfg.Get(config.KeyLogLevel),
		Console: opts.Console,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	var llm output.LLMPort
	if !opts.DistillOnly {
		apiKey, err := cfg.Require(config.KeyAPIKey)
		if err != nil {
			log.Close()
			return nil, err
		}
		llmCfg := openrouter.DefaultConfig(apiKey, cfg.Get(config.KeyModel))
		llmCfg.BaseURL = cfg.Get(config.KeyBaseURL)
		llmCfg.Logger = log.WithField("component", "llm")
		llm = openrouter.NewOpenRouterAdapter(llmCfg)
	}

	browserCfg := rod.DefaultConfig()
	browserCfg.Headless = cfg.Bool(config.KeyHeadless)
	browserCfg.Logger = log.WithField("component", "browser")
	if timeout := cfg.Duration(config.KeyBrowserTimeout); timeout > 0 {
		browserCfg.Timeout = timeout
	}
	browser, err := rod.NewBrowserAdapter(ctx, browserCfg)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create browser: %w", err)
	}

	progress := opts.Progress
	if progress == nil {
		progress = userinteraction.NewConsoleReporterTo(os.Stdout)
	}

	c, err := Assemble(cfg, Components{Page: browser, LLM: llm, Logger: log, Progress: progress})
	if err != nil {
		browser.Close()
		log.Close()
		return nil, err
	}
	return c, nil
}

// Assemble builds the use cases on top of already constructed adapters.
// A nil LLM yields a container that can only distill.
func Assemble(cfg *config.Config, parts Components) (*Container, error) {
	log := parts.Logger
	if log == nil {
		log = output.NopLogger{}
	}
	tel := metrics.New()

	distCfg := distiller.DefaultConfig()
	c := &Container{
		Config:    cfg,
		Browser:   parts.Page,
		LLM:       parts.LLM,
		Logger:    log,
		Telemetry: tel,
		Distiller: distiller.New(parts.Page, log.WithField("component", "distiller"), distCfg).WithTelemetry(tel),
	}
	if parts.LLM == nil {
		return c, nil
	}

	systemPrompt, err := prompts.GenerateDecisionPrompt(prompts.DecisionPrompt, prompts.DefaultActions())
	if err != nil {
		return nil, fmt.Errorf("failed to render decision prompt: %w", err)
	}
	decCfg := decision.DefaultConfig()
	maker, err := decision.New(parts.LLM, log.WithField("component", "decision"), systemPrompt, prompts.StepTemplate, decCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create decision maker: %w", err)
	}

	// the checker distills on its own arena so index resolution for the
	// running subtask is never disturbed
	checkDistiller := distiller.New(parts.Page, log.WithField("component", "checker"), distCfg)

	var policy subtask.ImplicitSuccessPolicy = subtask.DefaultImplicitPolicy()
	if !cfg.Bool(config.KeyImplicitSuccess) {
		policy = subtask.NeverImplicit{}
	}

	machine := subtask.New(subtask.Deps{
		Distiller: c.Distiller,
		Observer:  observer.New(parts.Page, log.WithField("component", "observer")),
		Browser:   parts.Page,
		Decider:   maker,
		Checker:   subtask.NewPageCompletionChecker(checkDistiller, log.WithField("component", "checker")),
		Policy:    policy,
		Reporter:  parts.Progress,
		Telemetry: tel,
		Logger:    log,
	}, SubtaskConfig(cfg, decCfg.FallbackWaitMs))

	c.Runner = machine
	c.Plans = orchestrator.New(machine, parts.Page, log.WithField("component", "orchestrator"))
	return c, nil
}

// SubtaskConfig reads the state machine limits, keeping defaults for unset
// or non-positive values.
func SubtaskConfig(cfg *config.Config, fallbackWaitMs int) subtask.Config {
	sc := subtask.DefaultConfig()
	if v := cfg.Int(config.KeyMaxSteps); v > 0 {
		sc.MaxSteps = v
	}
	if v := cfg.Int(config.KeyMaxConsecutiveFailures); v > 0 {
		sc.MaxConsecutiveFailures = v
	}
	if v := cfg.Int(config.KeyMaxStagnantSteps); v > 0 {
		sc.MaxStagnantSteps = v
	}
	if v := cfg.Int(config.KeyDuplicateWindow); v > 0 {
		sc.DuplicateWindow = v
	}
	if v := cfg.Float(config.KeyBudgetWarningRatio); v > 0 && v <= 1 {
		sc.BudgetWarningRatio = v
	}
	if fallbackWaitMs > 0 {
		sc.FallbackWaitMs = fallbackWaitMs
	}
	return sc
}

func (c *Container) Close() {
	if c.Browser != nil {
		c.Browser.Close()
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}
