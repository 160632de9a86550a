package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/exam-proctor/internal/client"
)

var errSmokeFailed = errors.New("smoke test failed")

type smokeOptions struct {
	student    string
	exam       string
	instructor string
	email      string
	password   string
}

func newSmokeCmd(g *globalOptions) *cobra.Command {
	o := &smokeOptions{}
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Shut down then power on a student's session and check both succeed",
		Long: `Fires POST /api/instructors/students/{id}/shutdown followed by
POST /api/instructors/students/{id}/poweron against --base-url and logs
each response. Exits non-zero unless both report success.

Authenticate with --token, or with --email and --password of an instructor.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger(cmd)
			c := g.client(cmd)
			if c.Token() == "" && o.email != "" {
				res, err := c.Login(cmd.Context(), o.email, o.password)
				if err != nil {
					return fmt.Errorf("login: %w", err)
				}
				if res.TwoFactorRequired {
					return errors.New("login: two-factor required, pass --token instead")
				}
				c = c.WithToken(res.AccessToken)
			}
			return runSmoke(cmd.Context(), c, o, logger)
		},
	}

	cmd.Flags().StringVar(&o.student, "student", "", "student user id")
	cmd.Flags().StringVar(&o.exam, "exam", "", "exam id")
	cmd.Flags().StringVar(&o.instructor, "instructor", "", "instructor user id sent with the shutdown request")
	cmd.Flags().StringVar(&o.email, "email", "", "instructor email used to obtain a token")
	cmd.Flags().StringVar(&o.password, "password", "", "instructor password")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("exam")
	return cmd
}

func runSmoke(ctx context.Context, c *client.Client, o *smokeOptions, logger zerolog.Logger) error {
	studentID, err := uuid.Parse(o.student)
	if err != nil {
		return fmt.Errorf("invalid --student: %w", err)
	}
	examID, err := uuid.Parse(o.exam)
	if err != nil {
		return fmt.Errorf("invalid --exam: %w", err)
	}
	var instructorID *uuid.UUID
	if o.instructor != "" {
		id, err := uuid.Parse(o.instructor)
		if err != nil {
			return fmt.Errorf("invalid --instructor: %w", err)
		}
		instructorID = &id
	}

	var failures []error

	res, err := c.Shutdown(ctx, studentID, examID, instructorID)
	if ferr := report(logger, "shutdown", res, err); ferr != nil {
		failures = append(failures, ferr)
	}

	res, err = c.PowerOn(ctx, studentID, examID)
	if ferr := report(logger, "poweron", res, err); ferr != nil {
		failures = append(failures, ferr)
	}

	if len(failures) > 0 {
		return fmt.Errorf("%w: %w", errSmokeFailed, errors.Join(failures...))
	}
	logger.Info().Msg("smoke test passed")
	return nil
}

func report(logger zerolog.Logger, action string, res *client.ControlResult, err error) error {
	if err != nil {
		evt := logger.Error().Str("action", action).Err(err)
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			evt = evt.Int("status", apiErr.Status).Str("code", apiErr.Code)
		}
		evt.Msg("control request failed")
		return fmt.Errorf("%s: %w", action, err)
	}

	evt := logger.Info().Str("action", action).Bool("success", res.Success).Str("message", res.Message)
	if res.Session != nil {
		evt = evt.Str("status", res.Session.Status)
	}
	evt.Msg("control response")

	if !res.Success {
		return fmt.Errorf("%s: response did not report success", action)
	}
	return nil
}
