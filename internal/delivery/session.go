// Package delivery steps a student through the questions of one exam.
package delivery

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/gokatarajesh/exam-proctor/internal/exam"
)

// Fetcher loads the ordered questions of an exam.
type Fetcher interface {
	ExamQuestions(ctx context.Context, examID uuid.UUID) ([]exam.Question, error)
}

// State is the load state of a Session.
type State int

const (
	StateLoading State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// LoadingText is shown while no question is available.
const LoadingText = "Loading questions..."

// Session holds the fetched question list and the current position in it.
// The index always stays within [0, len-1] once questions are loaded.
type Session struct {
	examID uuid.UUID
	fetch  Fetcher

	mu        sync.RWMutex
	questions []exam.Question
	index     int
	state     State
	err       error
}

func NewSession(fetch Fetcher, examID uuid.UUID) *Session {
	return &Session{examID: examID, fetch: fetch}
}

// Load fetches the question list. It is a no-op once the list has been
// loaded; after a failure it may be called again to retry.
func (s *Session) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateReady {
		s.mu.Unlock()
		return nil
	}
	s.state = StateLoading
	s.err = nil
	s.mu.Unlock()

	questions, err := s.fetch.ExamQuestions(ctx, s.examID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateFailed
		s.err = err
		return fmt.Errorf("load exam %s: %w", s.examID, err)
	}
	s.questions = questions
	s.index = 0
	s.state = StateReady
	return nil
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err is the last load failure, if any.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Session) Index() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.questions)
}

// Current returns the question at the current index.
func (s *Session) Current() (exam.Question, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.questions) == 0 {
		return exam.Question{}, false
	}
	return s.questions[s.index], true
}

// Next advances by one question. It reports false and leaves the index
// untouched when already at the last question.
func (s *Session) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index >= len(s.questions)-1 {
		return false
	}
	s.index++
	return true
}

// IsLast reports whether the current question is the final one.
func (s *Session) IsLast() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.questions) > 0 && s.index == len(s.questions)-1
}

// View is a renderable snapshot of the current question.
type View struct {
	Placeholder bool
	Position    int
	Total       int
	Prompt      string
	Text        string
	Choices     []string
}

// Render produces the view of the current question. An empty or unloaded
// list renders the loading placeholder. Unknown question kinds return
// exam.ErrUnsupportedQuestionType instead of an empty view.
func (s *Session) Render() (View, error) {
	s.mu.RLock()
	if len(s.questions) == 0 {
		s.mu.RUnlock()
		return View{Placeholder: true, Text: LoadingText}, nil
	}
	q := s.questions[s.index]
	v := View{
		Position: s.index + 1,
		Total:    len(s.questions),
		Text:     q.Text,
	}
	s.mu.RUnlock()

	switch q.Type {
	case exam.KindMCQ:
		v.Prompt = "Choose one answer"
	case exam.KindTrueFalse:
		v.Prompt = "True or false?"
	default:
		return View{}, fmt.Errorf("question %d: %w: %q", v.Position, exam.ErrUnsupportedQuestionType, q.Type)
	}

	choices, err := q.Choices()
	if err != nil {
		return View{}, err
	}
	v.Choices = choices
	return v, nil
}
