// Package examui is the terminal exam-taking client.
package examui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gokatarajesh/exam-proctor/internal/client"
	"github.com/gokatarajesh/exam-proctor/internal/delivery"
	"github.com/gokatarajesh/exam-proctor/internal/proctor"
)

type loadedMsg struct{ err error }

// SessionStatusMsg reports a proctoring status change pushed by the server.
type SessionStatusMsg struct {
	Status string
}

// Model renders one question at a time from a delivery.Session.
type Model struct {
	session     *delivery.Session
	styles      Styles
	loadTimeout time.Duration

	selected int
	shutdown bool
	quitting bool
}

func NewModel(session *delivery.Session, styles Styles) Model {
	return Model{session: session, styles: styles, loadTimeout: 15 * time.Second}
}

func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	session, timeout := m.session, m.loadTimeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return loadedMsg{err: session.Load(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		m.selected = 0
		return m, nil

	case SessionStatusMsg:
		m.shutdown = msg.Status == proctor.StatusShutdown
		if !m.shutdown && m.session.State() == delivery.StateFailed {
			return m, m.load()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	}

	if m.shutdown {
		return m, nil
	}

	switch msg.String() {
	case "r":
		if m.session.State() == delivery.StateFailed {
			return m, m.load()
		}
	case "n", "right", "enter":
		if m.session.Next() {
			m.selected = 0
		}
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if v, err := m.session.Render(); err == nil && m.selected < len(v.Choices)-1 {
			m.selected++
		}
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.Header.Render("Exam"))
	b.WriteString("\n\n")

	if m.shutdown {
		b.WriteString(m.styles.Banner.Render("Your exam session has been paused by the instructor."))
		b.WriteString("\n\n")
		b.WriteString(m.styles.Muted.Render("Waiting for the session to be powered on. q: quit"))
		return b.String()
	}

	if m.session.State() == delivery.StateFailed {
		b.WriteString(m.styles.Error.Render("Could not load questions: " + errorText(m.session.Err())))
		b.WriteString("\n\n")
		b.WriteString(m.styles.Muted.Render("r: retry  q: quit"))
		return b.String()
	}

	v, err := m.session.Render()
	if err != nil {
		b.WriteString(m.styles.Error.Render(err.Error()))
		b.WriteString("\n\n")
		b.WriteString(m.styles.Muted.Render("n: skip  q: quit"))
		return b.String()
	}
	if v.Placeholder {
		b.WriteString(m.styles.Muted.Render(v.Text))
		return b.String()
	}

	b.WriteString(m.styles.Muted.Render(fmt.Sprintf("Question %d of %d", v.Position, v.Total)))
	b.WriteString("\n")
	b.WriteString(m.styles.Question.Render(v.Text))
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render(v.Prompt))
	b.WriteString("\n")
	for i, choice := range v.Choices {
		if i == m.selected {
			b.WriteString(m.styles.Selected.Render("> " + choice))
		} else {
			b.WriteString(m.styles.Choice.Render("  " + choice))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.session.IsLast() {
		b.WriteString(m.styles.Muted.Render("Last question. q: quit"))
	} else {
		b.WriteString(m.styles.Muted.Render("n: next  up/down: choose  q: quit"))
	}
	return b.String()
}

func errorText(err error) string {
	if err == nil {
		return "unknown error"
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
