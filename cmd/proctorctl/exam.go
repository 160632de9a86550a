package main

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gokatarajesh/exam-proctor/internal/delivery"
	"github.com/gokatarajesh/exam-proctor/internal/examui"
)

func newExamCmd(g *globalOptions) *cobra.Command {
	var examFlag string
	cmd := &cobra.Command{
		Use:   "exam",
		Short: "Take an exam in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			examID, err := uuid.Parse(examFlag)
			if err != nil {
				return errors.New("invalid --exam: must be a UUID")
			}
			if g.token == "" {
				return errors.New("--token is required")
			}

			logger := g.logger(cmd)
			c := g.client(cmd)
			session := delivery.NewSession(c, examID)
			p := tea.NewProgram(examui.NewModel(session, examui.DefaultStyles()), tea.WithContext(cmd.Context()))

			go func() {
				err := c.WatchSession(cmd.Context(), examID, func(status string) {
					p.Send(examui.SessionStatusMsg{Status: status})
				})
				if err != nil && cmd.Context().Err() == nil {
					logger.Warn().Err(err).Msg("session updates unavailable")
				}
			}()

			_, err = p.Run()
			if errors.Is(err, tea.ErrProgramKilled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&examFlag, "exam", "", "exam id")
	_ = cmd.MarkFlagRequired("exam")
	return cmd
}
