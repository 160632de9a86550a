package proctor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/exam-proctor/internal/auth"
	"github.com/gokatarajesh/exam-proctor/internal/db/repository"
	"github.com/gokatarajesh/exam-proctor/internal/metrics"
)

type studentDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.User, error)
}

type examCatalog interface {
	Exists(ctx context.Context, examID uuid.UUID) (bool, error)
}

type auditLog interface {
	Record(ctx context.Context, examID, studentID uuid.UUID, action string, issuedBy *uuid.UUID) (repository.SessionEvent, error)
	Latest(ctx context.Context, examID, studentID uuid.UUID) (repository.SessionEvent, error)
}

type stateStore interface {
	Get(ctx context.Context, examID, studentID uuid.UUID) (*Session, error)
	Put(ctx context.Context, sess Session) error
}

type commandPublisher interface {
	Publish(ctx context.Context, cmd Command) error
}

// Service applies instructor control actions to student sessions.
type Service struct {
	students  studentDirectory
	exams     examCatalog
	audit     auditLog
	state     stateStore
	publisher commandPublisher
	metrics   *metrics.Metrics
	now       func() time.Time
	logger    zerolog.Logger
}

// NewService wires session control. publisher may be nil when no relay runs.
func NewService(students studentDirectory, exams examCatalog, audit auditLog, state stateStore, publisher commandPublisher, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		students:  students,
		exams:     exams,
		audit:     audit,
		state:     state,
		publisher: publisher,
		metrics:   m,
		now:       time.Now,
		logger:    logger.With().Str("component", "proctor").Logger(),
	}
}

// Shutdown marks the student's session shut down and notifies the student.
func (s *Service) Shutdown(ctx context.Context, in ControlInput) (Session, error) {
	return s.apply(ctx, ActionShutdown, in)
}

// PowerOn reactivates the student's session and notifies the student.
func (s *Service) PowerOn(ctx context.Context, in ControlInput) (Session, error) {
	return s.apply(ctx, ActionPowerOn, in)
}

func (s *Service) apply(ctx context.Context, action string, in ControlInput) (Session, error) {
	status, err := statusFor(action)
	if err != nil {
		return Session{}, err
	}

	student, err := s.students.GetByID(ctx, in.StudentID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && student.Role != auth.RoleStudent) {
		s.metrics.ControlCommand(action, "not_found")
		return Session{}, ErrStudentNotFound
	}
	if err != nil {
		s.metrics.ControlCommand(action, "error")
		return Session{}, fmt.Errorf("lookup student: %w", err)
	}

	known, err := s.exams.Exists(ctx, in.ExamID)
	if err != nil {
		s.metrics.ControlCommand(action, "error")
		return Session{}, fmt.Errorf("lookup exam: %w", err)
	}
	if !known {
		s.metrics.ControlCommand(action, "not_found")
		return Session{}, ErrExamNotFound
	}

	issuedBy := in.InstructorID
	event, err := s.audit.Record(ctx, in.ExamID, in.StudentID, action, &issuedBy)
	if errors.Is(err, repository.ErrMissingReference) {
		// exam deleted between the lookup and the insert
		s.metrics.ControlCommand(action, "not_found")
		return Session{}, fmt.Errorf("%w: %w", ErrExamNotFound, err)
	}
	if err != nil {
		s.metrics.ControlCommand(action, "error")
		return Session{}, fmt.Errorf("record %s: %w", action, err)
	}

	at := event.CreatedAt
	if at.IsZero() {
		at = s.now().UTC()
	}
	sess := Session{
		ExamID:    in.ExamID,
		StudentID: in.StudentID,
		Status:    status,
		UpdatedBy: &issuedBy,
		UpdatedAt: at,
	}

	if err := s.state.Put(ctx, sess); err != nil {
		s.metrics.ControlCommand(action, "error")
		return Session{}, fmt.Errorf("store session state: %w", err)
	}

	if s.publisher != nil {
		cmd := Command{Action: action, ExamID: in.ExamID, StudentID: in.StudentID, IssuedBy: issuedBy, IssuedAt: at}
		if err := s.publisher.Publish(ctx, cmd); err != nil {
			// state is already enforced on question delivery
			s.logger.Warn().Err(err).Str("student_id", in.StudentID.String()).Msg("failed to publish session command")
		}
	}

	s.metrics.ControlCommand(action, "ok")
	s.logger.Info().
		Str("action", action).
		Str("exam_id", in.ExamID.String()).
		Str("student_id", in.StudentID.String()).
		Str("instructor_id", issuedBy.String()).
		Msg("session control applied")
	return sess, nil
}

// State returns the student's session, rebuilding it from the audit trail when
// Redis has no entry. A session with no control history is active.
func (s *Service) State(ctx context.Context, examID, studentID uuid.UUID) (Session, error) {
	cached, err := s.state.Get(ctx, examID, studentID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("session state read failed, falling back to audit trail")
	}
	if cached != nil {
		return *cached, nil
	}

	sess := Session{ExamID: examID, StudentID: studentID, Status: StatusActive}
	event, err := s.audit.Latest(ctx, examID, studentID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return sess, nil
	case err != nil:
		return Session{}, fmt.Errorf("latest session event: %w", err)
	}

	status, err := statusFor(event.Action)
	if err != nil {
		return Session{}, fmt.Errorf("event %d: %w", event.ID, err)
	}
	sess.Status = status
	sess.UpdatedBy = event.IssuedBy
	sess.UpdatedAt = event.CreatedAt

	if err := s.state.Put(ctx, sess); err != nil {
		s.logger.Warn().Err(err).Msg("session state warm failed")
	}
	return sess, nil
}

// IsShutdown reports whether the student's session is currently shut down.
func (s *Service) IsShutdown(ctx context.Context, examID, studentID uuid.UUID) (bool, error) {
	sess, err := s.State(ctx, examID, studentID)
	if err != nil {
		return false, err
	}
	return sess.Status == StatusShutdown, nil
}
