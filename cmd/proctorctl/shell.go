package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/exam-proctor/internal/shell"
)

func newShellCmd(g *globalOptions) *cobra.Command {
	var (
		url      string
		bin      string
		headless bool
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Open the web exam client in a desktop window",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := shell.New(shell.Config{
				URL:         url,
				LoadTimeout: timeout,
			}, shell.RodLauncher{Bin: bin, Headless: headless}, g.logger(cmd))

			err := app.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&url, "url", envOr("PROCTOR_WEB_URL", "http://localhost:3000"), "web client URL")
	cmd.Flags().StringVar(&bin, "browser-bin", "", "Chromium binary (default: auto-detect)")
	cmd.Flags().BoolVar(&headless, "headless", false, "run without a visible window")
	cmd.Flags().DurationVar(&timeout, "load-timeout", 15*time.Second, "time allowed for the web client to load")
	return cmd
}
