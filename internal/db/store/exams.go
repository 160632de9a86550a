package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getExam = `SELECT exam_id, title, created_by, created_at FROM exams WHERE exam_id = $1`

func (q *Queries) GetExam(ctx context.Context, examID pgtype.UUID) (Exam, error) {
	var e Exam
	err := q.db.QueryRow(ctx, getExam, examID).Scan(&e.ExamID, &e.Title, &e.CreatedBy, &e.CreatedAt)
	return e, err
}

const listExamQuestions = `
SELECT question_id, exam_id, position, type, text, options, correct_answer
FROM exam_questions
WHERE exam_id = $1
ORDER BY position ASC`

func (q *Queries) ListExamQuestions(ctx context.Context, examID pgtype.UUID) ([]ExamQuestion, error) {
	rows, err := q.db.Query(ctx, listExamQuestions, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ExamQuestion
	for rows.Next() {
		var i ExamQuestion
		if err := rows.Scan(
			&i.QuestionID,
			&i.ExamID,
			&i.Position,
			&i.Type,
			&i.Text,
			&i.Options,
			&i.CorrectAnswer,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
