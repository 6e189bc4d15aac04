package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"webagent/internal/di"
	"webagent/internal/domain/entity"
)

func newDistillCmd(root *rootOptions) *cobra.Command {
	var (
		url     string
		mode    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "distill",
		Short: "Open a page and print its distilled view as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, ok := entity.ParseDistillMode(mode)
			if !ok {
				return fmt.Errorf("unknown mode %q", mode)
			}
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			container, err := di.NewContainer(ctx, cfg, di.Options{Task: "distill", DistillOnly: true})
			if err != nil {
				return fmt.Errorf("failed to initialize: %w", err)
			}
			defer container.Close()

			if err := container.Browser.Navigate(ctx, url); err != nil {
				return err
			}
			view, err := container.Distiller.Distill(ctx, m)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(view)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "page to distill")
	cmd.Flags().StringVar(&mode, "mode", string(entity.ModeAuto), "text, input, interactive or auto")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall deadline")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}
