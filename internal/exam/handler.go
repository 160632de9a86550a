package exam

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/exam-proctor/internal/auth"
	"github.com/gokatarajesh/exam-proctor/internal/logging"
	httperrors "github.com/gokatarajesh/exam-proctor/pkg/http/errors"
)

// HTTPHandler serves question delivery.
type HTTPHandler struct {
	service *Service
	logger  zerolog.Logger
}

func NewHTTPHandler(service *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, logger: logger.With().Str("component", "exam_http").Logger()}
}

// GetQuestions handles GET /api/auth/exam-questions/{examId} (requires auth).
func (h *HTTPHandler) GetQuestions(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	examID, err := uuid.Parse(r.PathValue("examId"))
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeInvalidID, "Invalid exam id", "examId")
		return
	}

	var studentID *uuid.UUID
	if claims.Role == auth.RoleStudent {
		studentID = &claims.UserID
	}

	questions, err := h.service.Questions(r.Context(), examID, studentID)
	switch {
	case errors.Is(err, ErrExamNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeExamNotFound, "Exam not found")
		return
	case errors.Is(err, ErrSessionShutdown):
		httperrors.RespondError(w, http.StatusLocked, httperrors.ErrCodeSessionShutdown, "Your exam session has been shut down by an instructor")
		return
	case errors.Is(err, ErrUnsupportedQuestionType):
		reqLog := logging.ForRequest(r.Context(), h.logger)
		reqLog.Error().Err(err).Str("exam_id", examID.String()).Msg("exam holds an unsupported question")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeUnsupportedQuestion, "Exam contains an unsupported question type")
		return
	case err != nil:
		reqLog := logging.ForRequest(r.Context(), h.logger)
		reqLog.Error().Err(err).Str("exam_id", examID.String()).Msg("fetch questions failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeQuestionsFetchFailed, "Failed to fetch exam questions")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, questions)
}
