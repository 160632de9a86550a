package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/exam-proctor/internal/db/store"
)

type examStore interface {
	GetExam(ctx context.Context, examID pgtype.UUID) (store.Exam, error)
	ListExamQuestions(ctx context.Context, examID pgtype.UUID) ([]store.ExamQuestion, error)
}

// ExamQuestion is one stored question in exam order. The answer never leaves the repository.
type ExamQuestion struct {
	ID       uuid.UUID
	Position int
	Type     string
	Text     string
	Options  []string
}

// ExamRepository wraps exam and question queries.
type ExamRepository struct {
	store examStore
}

func NewExamRepository(store examStore) *ExamRepository {
	return &ExamRepository{store: store}
}

// Questions returns the ordered questions of an exam, or ErrNotFound if the exam does not exist.
func (r *ExamRepository) Questions(ctx context.Context, examID uuid.UUID) ([]ExamQuestion, error) {
	id := pgUUID(examID)
	if _, err := r.store.GetExam(ctx, id); err != nil {
		return nil, notFound(err)
	}

	rows, err := r.store.ListExamQuestions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	out := make([]ExamQuestion, 0, len(rows))
	for _, row := range rows {
		out = append(out, ExamQuestion{
			ID:       fromPgUUID(row.QuestionID),
			Position: int(row.Position),
			Type:     row.Type,
			Text:     row.Text,
			Options:  row.Options,
		})
	}
	return out, nil
}

// Exists reports whether the exam is known.
func (r *ExamRepository) Exists(ctx context.Context, examID uuid.UUID) (bool, error) {
	_, err := r.store.GetExam(ctx, pgUUID(examID))
	switch err = notFound(err); err {
	case nil:
		return true, nil
	case ErrNotFound:
		return false, nil
	default:
		return false, err
	}
}
