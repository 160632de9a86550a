// Package exam serves the ordered question list of an exam.
package exam

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Kind discriminates how a question is answered.
type Kind string

const (
	KindMCQ       Kind = "mcq"
	KindTrueFalse Kind = "truefalse"
)

var (
	ErrExamNotFound            = errors.New("exam not found")
	ErrSessionShutdown         = errors.New("exam session is shut down")
	ErrUnsupportedQuestionType = errors.New("unsupported question type")
)

// Question is the delivered form of a stored question. It never carries the answer.
type Question struct {
	ID      uuid.UUID `json:"id"`
	Type    Kind      `json:"type"`
	Text    string    `json:"text"`
	Options []string  `json:"options,omitempty"`
}

// Validate fails for kinds this build cannot render and for malformed multiple-choice rows.
func (q Question) Validate() error {
	switch q.Type {
	case KindMCQ:
		if len(q.Options) < 2 {
			return fmt.Errorf("question %s: multiple choice needs at least two options", q.ID)
		}
		return nil
	case KindTrueFalse:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedQuestionType, q.Type)
	}
}

// Choices returns the selectable answers for q.
func (q Question) Choices() ([]string, error) {
	switch q.Type {
	case KindMCQ:
		return q.Options, nil
	case KindTrueFalse:
		return []string{"True", "False"}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedQuestionType, q.Type)
	}
}
