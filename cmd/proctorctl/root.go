package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/exam-proctor/internal/client"
	"github.com/gokatarajesh/exam-proctor/internal/logging"
)

type globalOptions struct {
	baseURL string
	token   string
	env     string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "proctorctl",
		Short:         "Operate and take exams against an exam-proctor API",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", envOr("PROCTOR_BASE_URL", "http://localhost:8080"), "API base URL")
	root.PersistentFlags().StringVar(&opts.token, "token", os.Getenv("PROCTOR_TOKEN"), "bearer token")
	root.PersistentFlags().StringVar(&opts.env, "env", envOr("APP_ENV", "development"), "logging environment")

	root.AddCommand(
		newSmokeCmd(opts),
		newSignupCmd(opts),
		newLoginCmd(opts),
		newExamCmd(opts),
		newShellCmd(opts),
	)
	return root
}

func (o *globalOptions) logger(cmd *cobra.Command) zerolog.Logger {
	return logging.NewWithWriter(cmd.ErrOrStderr(), "proctorctl", o.env)
}

func (o *globalOptions) client(cmd *cobra.Command) *client.Client {
	return client.New(o.baseURL, client.Options{Token: o.token}, o.logger(cmd))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
