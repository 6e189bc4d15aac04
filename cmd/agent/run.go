package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"webagent/internal/application/port/output"
	"webagent/internal/di"
	"webagent/internal/domain/entity"
	"webagent/internal/infrastructure/config"
	"webagent/internal/infrastructure/metrics"
)

var errEmptyGoal = errors.New("no goal given")

type runOptions struct {
	url          string
	goal         string
	verification string
	planFile     string
	timeout      time.Duration
	jsonOut      bool
	metricsOut   bool
}

// runReport is the --json output.
type runReport struct {
	Result  *entity.PlanResult `json:"result"`
	Metrics map[string]float64 `json:"metrics"`
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a goal or a JSON plan of subtasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			plan, err := opts.plan(cmd.InOrStdin(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			return executePlan(cmd, cfg, plan, opts)
		},
	}
	cmd.Flags().StringVar(&opts.url, "url", "", "page to open before the first subtask")
	cmd.Flags().StringVar(&opts.goal, "goal", "", "single goal to run as one subtask (prompted for when empty)")
	cmd.Flags().StringVar(&opts.verification, "verify", "", "completion hint for --goal, e.g. 'URL contains /account'")
	cmd.Flags().StringVar(&opts.planFile, "plan", "", "JSON plan file; takes precedence over --goal")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Minute, "overall deadline")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print the plan result and counters as JSON")
	cmd.Flags().BoolVar(&opts.metricsOut, "metrics", false, "print counters in prometheus text format when done")
	return cmd
}

// plan builds the plan to run: the plan file when given, otherwise the goal
// as a single subtask, asking on stdin when no goal was passed.
func (o *runOptions) plan(in io.Reader, out io.Writer) (entity.Plan, error) {
	if o.planFile != "" {
		plan, err := loadPlan(o.planFile)
		if err != nil {
			return entity.Plan{}, err
		}
		if o.url != "" {
			plan.StartURL = o.url
		}
		return plan, nil
	}

	goal := strings.TrimSpace(o.goal)
	if goal == "" {
		fmt.Fprintln(out, "Enter a goal for the agent:")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return entity.Plan{}, fmt.Errorf("failed to read goal: %w", err)
		}
		goal = strings.TrimSpace(line)
	}
	if goal == "" {
		return entity.Plan{}, errEmptyGoal
	}
	return entity.Plan{
		Goal:     goal,
		StartURL: o.url,
		Subtasks: []entity.Subtask{{ID: "goal", Description: goal, Verification: o.verification}},
	}, nil
}

func loadPlan(path string) (entity.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entity.Plan{}, fmt.Errorf("failed to read plan: %w", err)
	}
	var plan entity.Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		return entity.Plan{}, fmt.Errorf("failed to parse plan %s: %w", path, err)
	}
	if len(plan.Subtasks) == 0 {
		return entity.Plan{}, fmt.Errorf("plan %s has no subtasks", path)
	}
	return plan, nil
}

func executePlan(cmd *cobra.Command, cfg *config.Config, plan entity.Plan, opts *runOptions) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	container, err := di.NewContainer(ctx, cfg, di.Options{Task: plan.Goal})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer container.Close()

	container.Logger.Info("Plan started", "goal", plan.Goal, "subtasks", len(plan.Subtasks))
	result, err := container.Plans.Execute(ctx, plan)
	if result != nil && !result.Success && cfg.Bool(config.KeyScreenshotOnFailure) {
		saveFailureScreenshot(ctx, container, cfg.Get(config.KeyLogDir), result)
	}
	if err != nil {
		container.Logger.Error("Plan aborted", "error", err)
		return err
	}

	container.Logger.Info("Plan finished", "success", result.Success, "tokens", result.TokensUsed, "duration", result.Duration)
	if err := writeReport(cmd.OutOrStdout(), result, container.Telemetry, opts); err != nil {
		return err
	}
	if !result.Success {
		return failureError(result)
	}
	return nil
}

func writeReport(w io.Writer, result *entity.PlanResult, tel *metrics.Telemetry, opts *runOptions) error {
	if opts.jsonOut {
		totals, err := tel.Totals()
		if err != nil {
			return err
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(runReport{Result: result, Metrics: totals}); err != nil {
			return err
		}
	}
	if opts.metricsOut {
		return tel.WriteText(w)
	}
	return nil
}

func failureError(result *entity.PlanResult) error {
	for _, r := range result.Results {
		if !r.Success && r.Error != nil {
			return fmt.Errorf("subtask %s failed: %w", r.SubtaskID, r.Error)
		}
	}
	return errors.New("plan failed")
}

func saveFailureScreenshot(ctx context.Context, c *di.Container, dir string, result *entity.PlanResult) {
	shooter, ok := c.Browser.(output.Screenshotter)
	if !ok || len(result.Results) == 0 {
		return
	}
	last := result.Results[len(result.Results)-1]

	// the plan context may already be done
	img, err := shooter.Screenshot(context.WithoutCancel(ctx))
	if err != nil {
		c.Logger.Warn("Failure screenshot not taken", "error", err)
		return
	}
	name := fmt.Sprintf("%s_%s_failure.jpg", time.Now().Format("2006-01-02_15-04-05"), last.SubtaskID)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, img, 0o644); err != nil {
		c.Logger.Warn("Failure screenshot not saved", "path", path, "error", err)
		return
	}
	c.Logger.Info("Failure screenshot saved", "path", path)
}
