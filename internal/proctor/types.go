// Package proctor implements instructor control over student exam sessions:
// shutdown and poweron commands, their audit trail and delivery to the
// student's live connection.
package proctor

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Session statuses.
const (
	StatusActive   = "active"
	StatusShutdown = "shutdown"
)

// Control actions, as stored in the audit trail.
const (
	ActionShutdown = "shutdown"
	ActionPowerOn  = "poweron"
)

var (
	ErrStudentNotFound    = errors.New("student not found")
	ErrExamNotFound       = errors.New("exam not found")
	ErrInstructorMismatch = errors.New("instructor id does not match caller")
	ErrUnknownAction      = errors.New("unknown control action")
)

// Session is the control state of one student's sitting of one exam.
type Session struct {
	ExamID    uuid.UUID  `json:"examId"`
	StudentID uuid.UUID  `json:"studentId"`
	Status    string     `json:"status"`
	UpdatedBy *uuid.UUID `json:"updatedBy,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Command is what travels over Pub/Sub to the instance holding the student's socket.
type Command struct {
	Action    string    `json:"action"`
	ExamID    uuid.UUID `json:"exam_id"`
	StudentID uuid.UUID `json:"student_id"`
	IssuedBy  uuid.UUID `json:"issued_by"`
	IssuedAt  time.Time `json:"issued_at"`
}

// ControlInput identifies the target of a control action and who issued it.
type ControlInput struct {
	ExamID       uuid.UUID
	StudentID    uuid.UUID
	InstructorID uuid.UUID
}

// ControlRequest is the JSON body of the shutdown and poweron endpoints.
type ControlRequest struct {
	ExamID       string `json:"examId"`
	InstructorID string `json:"instructorId,omitempty"`
}

func statusFor(action string) (string, error) {
	switch action {
	case ActionShutdown:
		return StatusShutdown, nil
	case ActionPowerOn:
		return StatusActive, nil
	default:
		return "", ErrUnknownAction
	}
}
