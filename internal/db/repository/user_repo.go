package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/exam-proctor/internal/db/store"
)

type userStore interface {
	CreateUser(ctx context.Context, arg store.CreateUserParams) (store.User, error)
	UserEmailExists(ctx context.Context, email string) (bool, error)
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, userID pgtype.UUID) (store.User, error)
	SetUserTwoFactorCode(ctx context.Context, arg store.SetUserTwoFactorCodeParams) error
	ClearUserTwoFactorCode(ctx context.Context, userID pgtype.UUID) error
	SetUserTwoFactorEnabled(ctx context.Context, userID pgtype.UUID, enabled bool) error
	UpdateUserLogin(ctx context.Context, userID pgtype.UUID) error
}

// User is the persisted account as seen by the services.
type User struct {
	ID                uuid.UUID
	Email             string
	PasswordHash      string
	FirstName         string
	LastName          string
	Role              string
	TwoFactorEnabled  bool
	TwoFactorCodeHash string
	TwoFactorExpires  *time.Time
	LastLoginAt       *time.Time
	CreatedAt         time.Time
}

// NewUser carries the columns a signup may set. Two-factor state has no field here.
type NewUser struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         string
}

// UserRepository exposes typed DB operations required by auth flows.
type UserRepository struct {
	store userStore
}

// NewUserRepository wraps store queries for user-specific operations.
func NewUserRepository(store userStore) *UserRepository {
	return &UserRepository{store: store}
}

// EmailExists reports whether an account already uses email (case-insensitive).
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.store.UserEmailExists(ctx, normalizeEmail(email))
}

// Create inserts a user and returns ErrDuplicateEmail if the email is taken,
// including when a concurrent signup wins the race after EmailExists.
func (r *UserRepository) Create(ctx context.Context, u NewUser) (User, error) {
	row, err := r.store.CreateUser(ctx, store.CreateUserParams{
		Email:        normalizeEmail(u.Email),
		PasswordHash: pgText(u.PasswordHash),
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         u.Role,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrDuplicateEmail
	}
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return toUser(row), nil
}

// GetByEmail fetches a user by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	row, err := r.store.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return User{}, notFound(err)
	}
	return toUser(row), nil
}

// GetByID fetches a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	row, err := r.store.GetUserByID(ctx, pgUUID(id))
	if err != nil {
		return User{}, notFound(err)
	}
	return toUser(row), nil
}

// SetTwoFactorCode stores a hashed one-time code and its expiry.
func (r *UserRepository) SetTwoFactorCode(ctx context.Context, id uuid.UUID, codeHash string, expires time.Time) error {
	return r.store.SetUserTwoFactorCode(ctx, store.SetUserTwoFactorCodeParams{
		UserID:  pgUUID(id),
		Code:    pgText(codeHash),
		Expires: pgTime(expires),
	})
}

// ClearTwoFactorCode removes any pending one-time code.
func (r *UserRepository) ClearTwoFactorCode(ctx context.Context, id uuid.UUID) error {
	return r.store.ClearUserTwoFactorCode(ctx, pgUUID(id))
}

// SetTwoFactorEnabled toggles the two-factor requirement for login.
func (r *UserRepository) SetTwoFactorEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	return r.store.SetUserTwoFactorEnabled(ctx, pgUUID(id), enabled)
}

// UpdateLogin records the last login timestamp.
func (r *UserRepository) UpdateLogin(ctx context.Context, id uuid.UUID) error {
	return r.store.UpdateUserLogin(ctx, pgUUID(id))
}

func toUser(row store.User) User {
	u := User{
		ID:               fromPgUUID(row.UserID),
		Email:            row.Email,
		FirstName:        row.FirstName,
		LastName:         row.LastName,
		Role:             row.Role,
		TwoFactorEnabled: row.TwoFactorEnabled,
		TwoFactorExpires: fromPgTime(row.TwoFactorExpires),
		LastLoginAt:      fromPgTime(row.LastLoginAt),
	}
	if row.PasswordHash.Valid {
		u.PasswordHash = row.PasswordHash.String
	}
	if row.TwoFactorCode.Valid {
		u.TwoFactorCodeHash = row.TwoFactorCode.String
	}
	if row.CreatedAt.Valid {
		u.CreatedAt = row.CreatedAt.Time
	}
	return u
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
