package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertSessionEvent = `
INSERT INTO session_events (exam_id, student_id, action, issued_by)
VALUES ($1, $2, $3, $4)
RETURNING event_id, exam_id, student_id, action, issued_by, created_at`

type InsertSessionEventParams struct {
	ExamID    pgtype.UUID
	StudentID pgtype.UUID
	Action    string
	IssuedBy  pgtype.UUID
}

func (q *Queries) InsertSessionEvent(ctx context.Context, arg InsertSessionEventParams) (SessionEvent, error) {
	var e SessionEvent
	err := q.db.QueryRow(ctx, insertSessionEvent, arg.ExamID, arg.StudentID, arg.Action, arg.IssuedBy).Scan(
		&e.EventID,
		&e.ExamID,
		&e.StudentID,
		&e.Action,
		&e.IssuedBy,
		&e.CreatedAt,
	)
	return e, err
}

const latestSessionEvent = `
SELECT event_id, exam_id, student_id, action, issued_by, created_at
FROM session_events
WHERE exam_id = $1 AND student_id = $2
ORDER BY created_at DESC, event_id DESC
LIMIT 1`

// LatestSessionEvent returns the most recent control event, or pgx.ErrNoRows.
func (q *Queries) LatestSessionEvent(ctx context.Context, examID, studentID pgtype.UUID) (SessionEvent, error) {
	var e SessionEvent
	err := q.db.QueryRow(ctx, latestSessionEvent, examID, studentID).Scan(
		&e.EventID,
		&e.ExamID,
		&e.StudentID,
		&e.Action,
		&e.IssuedBy,
		&e.CreatedAt,
	)
	return e, err
}
