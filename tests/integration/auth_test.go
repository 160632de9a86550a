//go:build integration
// +build integration

package integration

import (
	"context"
	"net/http"
	"testing"
)

func TestSignupFreshEmail(t *testing.T) {
	baseURL := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
	email := uniqueEmail("fresh")

	resp, out := postJSON(t, baseURL+"/signup", "", map[string]string{
		"email":     email,
		"password":  "testpassword123",
		"firstName": "Ada",
		"lastName":  "Lovelace",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status %d: %v", resp.StatusCode, out)
	}
	if out["message"] != "User created successfully" {
		t.Fatalf("unexpected message: %v", out["message"])
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	baseURL := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
	email := uniqueEmail("dup")
	signup(t, baseURL, email, "testpassword123")

	resp, out := postJSON(t, baseURL+"/signup", "", map[string]string{
		"email":     email,
		"password":  "otherpassword1",
		"firstName": "Again",
		"lastName":  "User",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate email, got %d", resp.StatusCode)
	}
	if out["error"] != "email_taken" {
		t.Fatalf("unexpected error code: %v", out["error"])
	}
}

func TestSignupDuplicatePersistsNothing(t *testing.T) {
	baseURL := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
	conn := connectDB(t)
	email := uniqueEmail("once")

	signup(t, baseURL, email, "testpassword123")
	postJSON(t, baseURL+"/signup", "", map[string]string{
		"email": email, "password": "testpassword123", "firstName": "A", "lastName": "B",
	})

	if n := countUsers(t, conn, email); n != 1 {
		t.Fatalf("expected exactly one user row, got %d", n)
	}
}

func TestSignupIgnoresTwoFactorFields(t *testing.T) {
	baseURL := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
	conn := connectDB(t)
	email := uniqueEmail("forbidden")

	resp, out := postJSON(t, baseURL+"/signup", "", map[string]interface{}{
		"email":            email,
		"password":         "testpassword123",
		"firstName":        "Eve",
		"lastName":         "Mallory",
		"twoFactorCode":    "123456",
		"twoFactorExpires": "2099-01-01T00:00:00Z",
		"twoFactorEnabled": true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status %d: %v", resp.StatusCode, out)
	}

	var code *string
	var enabled bool
	err := conn.QueryRow(context.Background(),
		`SELECT two_factor_code, two_factor_enabled FROM users WHERE LOWER(email) = LOWER($1)`, email,
	).Scan(&code, &enabled)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}
	if code != nil || enabled {
		t.Fatalf("two-factor fields were stored: code=%v enabled=%v", code, enabled)
	}
}

func TestLoginAndMe(t *testing.T) {
	baseURL := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
	acct := newAccount(t, baseURL)

	resp, raw := getJSON(t, baseURL+"/api/auth/me", acct.AccessToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: unexpected status %d: %s", resp.StatusCode, raw)
	}
}

func TestLoginBadPassword(t *testing.T) {
	baseURL := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
	acct := newAccount(t, baseURL)

	resp, _ := postJSON(t, baseURL+"/api/auth/login", "", map[string]string{
		"email":    acct.Email,
		"password": "wrongpassword1",
	})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestSignupIgnoresRequestedRole(t *testing.T) {
	baseURL := envOrDefault("INTEGRATION_BASE_URL", "http://localhost:8080")
	email := uniqueEmail("role")

	resp, out := postJSON(t, baseURL+"/signup", "", map[string]string{
		"email":     email,
		"password":  "testpassword123",
		"firstName": "Test",
		"lastName":  "User",
		"role":      "instructor",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup: unexpected status %d: %v", resp.StatusCode, out)
	}

	token := login(t, baseURL, email, "testpassword123")
	resp, out = postJSON(t, baseURL+"/api/instructors/students/00000000-0000-0000-0000-000000000000/shutdown",
		token, map[string]string{"examId": "00000000-0000-0000-0000-000000000001"})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for a self-declared instructor, got %d %v", resp.StatusCode, out)
	}
}
