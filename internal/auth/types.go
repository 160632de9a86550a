package auth

import (
	"github.com/google/uuid"
)

// Roles an account may hold.
const (
	RoleStudent    = "student"
	RoleInstructor = "instructor"
)

// User is the public view of an account. Two-factor secrets never leave the service.
type User struct {
	ID               uuid.UUID `json:"id"`
	Email            string    `json:"email"`
	FirstName        string    `json:"firstName"`
	LastName         string    `json:"lastName"`
	Role             string    `json:"role"`
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
}

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// SignupRequest is the allow-listed signup body. Anything else the client
// sends, role included, is dropped by DecodeSignup before it reaches this struct.
type SignupRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,password"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
}

// LoginRequest for email/password authentication.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// VerifyTwoFactorRequest completes a login that required a one-time code.
type VerifyTwoFactorRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,len=6,numeric"`
}

// EnableTwoFactorRequest toggles two-factor for the calling account.
type EnableTwoFactorRequest struct {
	Enabled bool `json:"enabled"`
}

// RefreshRequest exchanges a refresh token for a new access token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// LoginResult is either a token pair or a pending two-factor challenge.
type LoginResult struct {
	User              *User
	Tokens            *TokenPair
	TwoFactorRequired bool
}

// OAuthProvider constants.
const (
	OAuthProviderGoogle = "google"
)
