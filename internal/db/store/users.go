package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const userColumns = `user_id, email, password_hash, first_name, last_name, role,
	two_factor_enabled, two_factor_code, two_factor_expires, last_login_at, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...interface{}) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.UserID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Role,
		&u.TwoFactorEnabled,
		&u.TwoFactorCode,
		&u.TwoFactorExpires,
		&u.LastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

// The insert deliberately carries no two-factor columns.
const createUser = `
INSERT INTO users (email, password_hash, first_name, last_name, role)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT DO NOTHING
RETURNING ` + userColumns

type CreateUserParams struct {
	Email        string
	PasswordHash pgtype.Text
	FirstName    string
	LastName     string
	Role         string
}

// CreateUser inserts a user. A unique violation yields pgx.ErrNoRows.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.Email, arg.PasswordHash, arg.FirstName, arg.LastName, arg.Role)
	return scanUser(row)
}

const userEmailExists = `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1))`

func (q *Queries) UserEmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, userEmailExists, email).Scan(&exists)
	return exists, err
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

func (q *Queries) GetUserByID(ctx context.Context, userID pgtype.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, userID))
}

const setUserTwoFactorCode = `
UPDATE users SET two_factor_code = $2, two_factor_expires = $3, updated_at = NOW()
WHERE user_id = $1`

type SetUserTwoFactorCodeParams struct {
	UserID  pgtype.UUID
	Code    pgtype.Text
	Expires pgtype.Timestamptz
}

func (q *Queries) SetUserTwoFactorCode(ctx context.Context, arg SetUserTwoFactorCodeParams) error {
	_, err := q.db.Exec(ctx, setUserTwoFactorCode, arg.UserID, arg.Code, arg.Expires)
	return err
}

const clearUserTwoFactorCode = `
UPDATE users SET two_factor_code = NULL, two_factor_expires = NULL, updated_at = NOW()
WHERE user_id = $1`

func (q *Queries) ClearUserTwoFactorCode(ctx context.Context, userID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, clearUserTwoFactorCode, userID)
	return err
}

const setUserTwoFactorEnabled = `
UPDATE users SET two_factor_enabled = $2, updated_at = NOW()
WHERE user_id = $1`

func (q *Queries) SetUserTwoFactorEnabled(ctx context.Context, userID pgtype.UUID, enabled bool) error {
	_, err := q.db.Exec(ctx, setUserTwoFactorEnabled, userID, enabled)
	return err
}

const updateUserLogin = `UPDATE users SET last_login_at = NOW() WHERE user_id = $1`

func (q *Queries) UpdateUserLogin(ctx context.Context, userID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, updateUserLogin, userID)
	return err
}
