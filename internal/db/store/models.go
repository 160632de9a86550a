package store

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	UserID           pgtype.UUID
	Email            string
	PasswordHash     pgtype.Text
	FirstName        string
	LastName         string
	Role             string
	TwoFactorEnabled bool
	TwoFactorCode    pgtype.Text
	TwoFactorExpires pgtype.Timestamptz
	LastLoginAt      pgtype.Timestamptz
	CreatedAt        pgtype.Timestamptz
	UpdatedAt        pgtype.Timestamptz
}

type Exam struct {
	ExamID    pgtype.UUID
	Title     string
	CreatedBy pgtype.UUID
	CreatedAt pgtype.Timestamptz
}

type ExamQuestion struct {
	QuestionID    pgtype.UUID
	ExamID        pgtype.UUID
	Position      int32
	Type          string
	Text          string
	Options       []string
	CorrectAnswer string
}

type SessionEvent struct {
	EventID   int64
	ExamID    pgtype.UUID
	StudentID pgtype.UUID
	Action    string
	IssuedBy  pgtype.UUID
	CreatedAt pgtype.Timestamptz
}
