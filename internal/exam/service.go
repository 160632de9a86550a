package exam

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/exam-proctor/internal/db/repository"
	"github.com/gokatarajesh/exam-proctor/internal/metrics"
)

// QuestionCache defines cache behavior (implemented by Redis-backed Cache).
type QuestionCache interface {
	Get(ctx context.Context, examID uuid.UUID) ([]Question, error)
	Set(ctx context.Context, examID uuid.UUID, questions []Question) error
}

// SessionGate reports whether an instructor has shut a student's session down.
type SessionGate interface {
	IsShutdown(ctx context.Context, examID, studentID uuid.UUID) (bool, error)
}

type examRepository interface {
	Questions(ctx context.Context, examID uuid.UUID) ([]repository.ExamQuestion, error)
}

type Service struct {
	repo    examRepository
	cache   QuestionCache
	gate    SessionGate
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewService wires question delivery. cache and gate may be nil.
func NewService(repo examRepository, cache QuestionCache, gate SessionGate, m *metrics.Metrics, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		gate:    gate,
		metrics: m,
		logger:  logger.With().Str("component", "exam").Logger(),
	}
}

// Questions returns the ordered questions of examID. When studentID is set the
// student's session must not be shut down.
func (s *Service) Questions(ctx context.Context, examID uuid.UUID, studentID *uuid.UUID) ([]Question, error) {
	if studentID != nil && s.gate != nil {
		down, err := s.gate.IsShutdown(ctx, examID, *studentID)
		if err != nil {
			return nil, fmt.Errorf("session state: %w", err)
		}
		if down {
			return nil, ErrSessionShutdown
		}
	}

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, examID)
		if err != nil {
			s.logger.Warn().Err(err).Str("exam_id", examID.String()).Msg("question cache read failed")
		}
		if cached != nil {
			s.metrics.CacheLookup(true)
			return cached, nil
		}
		s.metrics.CacheLookup(false)
	}

	rows, err := s.repo.Questions(ctx, examID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrExamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}

	questions := make([]Question, 0, len(rows))
	for _, row := range rows {
		q := Question{ID: row.ID, Type: Kind(row.Type), Text: row.Text, Options: row.Options}
		if err := q.Validate(); err != nil {
			return nil, fmt.Errorf("exam %s position %d: %w", examID, row.Position, err)
		}
		questions = append(questions, q)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, examID, questions); err != nil {
			s.logger.Warn().Err(err).Str("exam_id", examID.String()).Msg("question cache write failed")
		}
	}
	return questions, nil
}
