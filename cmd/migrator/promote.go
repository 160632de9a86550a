package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var errAccountNotFound = errors.New("no account with that email")

const promoteInstructorSQL = `UPDATE users SET role = 'instructor', updated_at = NOW() WHERE LOWER(email) = LOWER($1)`

// promoteInstructor grants the instructor role. Public signup only ever creates
// students, so this is how instructor accounts are provisioned.
func promoteInstructor(ctx context.Context, db *sql.DB, email string) error {
	res, err := db.ExecContext(ctx, promoteInstructorSQL, email)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return errAccountNotFound
	}
	return nil
}
