package proctor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/exam-proctor/internal/auth"
	"github.com/gokatarajesh/exam-proctor/internal/logging"
	httperrors "github.com/gokatarajesh/exam-proctor/pkg/http/errors"
)

type controlFunc func(ctx context.Context, in ControlInput) (Session, error)

// HTTPHandlers exposes the instructor control endpoints and the student's own session view.
type HTTPHandlers struct {
	service *Service
	logger  zerolog.Logger
}

func NewHTTPHandlers(service *Service, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{service: service, logger: logger.With().Str("component", "proctor_http").Logger()}
}

type controlResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Error   string   `json:"error,omitempty"`
	Session *Session `json:"session,omitempty"`
}

func respondControlError(w http.ResponseWriter, status int, code, message string) {
	httperrors.RespondJSON(w, status, controlResponse{Success: false, Error: code, Message: message})
}

// Shutdown handles POST /api/instructors/students/{studentId}/shutdown (instructors only).
func (h *HTTPHandlers) Shutdown(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.service.Shutdown, "Student exam session shut down")
}

// PowerOn handles POST /api/instructors/students/{studentId}/poweron (instructors only).
func (h *HTTPHandlers) PowerOn(w http.ResponseWriter, r *http.Request) {
	h.control(w, r, h.service.PowerOn, "Student exam session powered on")
}

func (h *HTTPHandlers) control(w http.ResponseWriter, r *http.Request, apply controlFunc, okMessage string) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondControlError(w, http.StatusUnauthorized, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	studentID, err := uuid.Parse(r.PathValue("studentId"))
	if err != nil {
		respondControlError(w, http.StatusBadRequest, httperrors.ErrCodeInvalidID, "Invalid student id")
		return
	}

	var req ControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondControlError(w, http.StatusBadRequest, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}

	examID, err := uuid.Parse(req.ExamID)
	if err != nil {
		respondControlError(w, http.StatusBadRequest, httperrors.ErrCodeInvalidID, "Invalid or missing exam id")
		return
	}

	if req.InstructorID != "" {
		instructorID, err := uuid.Parse(req.InstructorID)
		if err != nil {
			respondControlError(w, http.StatusBadRequest, httperrors.ErrCodeInvalidID, "Invalid instructor id")
			return
		}
		if instructorID != claims.UserID {
			respondControlError(w, http.StatusForbidden, httperrors.ErrCodeInstructorMismatch, ErrInstructorMismatch.Error())
			return
		}
	}

	sess, err := apply(r.Context(), ControlInput{ExamID: examID, StudentID: studentID, InstructorID: claims.UserID})
	switch {
	case errors.Is(err, ErrStudentNotFound):
		respondControlError(w, http.StatusNotFound, httperrors.ErrCodeStudentNotFound, "Student not found")
		return
	case errors.Is(err, ErrExamNotFound):
		respondControlError(w, http.StatusNotFound, httperrors.ErrCodeExamNotFound, "Exam not found")
		return
	case err != nil:
		reqLog := logging.ForRequest(r.Context(), h.logger)
		reqLog.Error().Err(err).Str("student_id", studentID.String()).Msg("session control failed")
		respondControlError(w, http.StatusInternalServerError, httperrors.ErrCodeControlFailed, "Failed to update the student's session")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, controlResponse{Success: true, Message: okMessage, Session: &sess})
}

// MySession handles GET /api/students/me/sessions/{examId} (students only).
func (h *HTTPHandlers) MySession(w http.ResponseWriter, r *http.Request) {
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

	sess, err := h.service.State(r.Context(), examID, claims.UserID)
	if err != nil {
		reqLog := logging.ForRequest(r.Context(), h.logger)
		reqLog.Error().Err(err).Msg("session lookup failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeSessionFetchFailed, "Failed to load session")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, sess)
}
