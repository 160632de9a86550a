package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/exam-proctor/internal/db/store"
)

type sessionStore interface {
	InsertSessionEvent(ctx context.Context, arg store.InsertSessionEventParams) (store.SessionEvent, error)
	LatestSessionEvent(ctx context.Context, examID, studentID pgtype.UUID) (store.SessionEvent, error)
}

// SessionEvent is one audited shutdown/poweron command.
type SessionEvent struct {
	ID        int64
	ExamID    uuid.UUID
	StudentID uuid.UUID
	Action    string
	IssuedBy  *uuid.UUID
	CreatedAt time.Time
}

// SessionRepository persists the session control audit trail.
type SessionRepository struct {
	store sessionStore
}

func NewSessionRepository(store sessionStore) *SessionRepository {
	return &SessionRepository{store: store}
}

// Record appends a control event. An unknown exam or student yields ErrMissingReference.
func (r *SessionRepository) Record(ctx context.Context, examID, studentID uuid.UUID, action string, issuedBy *uuid.UUID) (SessionEvent, error) {
	row, err := r.store.InsertSessionEvent(ctx, store.InsertSessionEventParams{
		ExamID:    pgUUID(examID),
		StudentID: pgUUID(studentID),
		Action:    action,
		IssuedBy:  pgNullUUID(issuedBy),
	})
	if err != nil {
		return SessionEvent{}, missingReference(err)
	}
	return toSessionEvent(row), nil
}

// Latest returns the newest control event for a student's exam session, or ErrNotFound.
func (r *SessionRepository) Latest(ctx context.Context, examID, studentID uuid.UUID) (SessionEvent, error) {
	row, err := r.store.LatestSessionEvent(ctx, pgUUID(examID), pgUUID(studentID))
	if err != nil {
		return SessionEvent{}, notFound(err)
	}
	return toSessionEvent(row), nil
}

func toSessionEvent(row store.SessionEvent) SessionEvent {
	e := SessionEvent{
		ID:        row.EventID,
		ExamID:    fromPgUUID(row.ExamID),
		StudentID: fromPgUUID(row.StudentID),
		Action:    row.Action,
		IssuedBy:  fromPgNullUUID(row.IssuedBy),
	}
	if row.CreatedAt.Valid {
		e.CreatedAt = row.CreatedAt.Time
	}
	return e
}
