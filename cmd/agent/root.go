package main

import (
	"github.com/spf13/cobra"

	"webagent/internal/infrastructure/config"
)

type rootOptions struct {
	configDir string
	appEnv    string
	headless  bool
	logLevel  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "agent",
		Short:         "Drive a browser towards a goal, one distilled page view at a time",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", ".", "directory holding .env files and agent.yaml")
	cmd.PersistentFlags().StringVar(&opts.appEnv, "env", "", "environment suffix for .env.<env> (default $APP_ENV or dev)")
	cmd.PersistentFlags().BoolVar(&opts.headless, "headless", true, "run the browser without a window")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override LOG_LEVEL")

	cmd.AddCommand(newRunCmd(opts), newDistillCmd(opts))
	return cmd
}

// loadConfig applies explicitly set persistent flags over file and env values.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(config.Options{Dir: o.configDir, AppEnv: o.appEnv})
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("headless") {
		cfg.Set(config.KeyHeadless, o.headless)
	}
	if o.logLevel != "" {
		cfg.Set(config.KeyLogLevel, o.logLevel)
	}
	return cfg, nil
}
