//go:build integration
// +build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

type account struct {
	ID          string
	Email       string
	Password    string
	AccessToken string
}

func envOrDefault(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

func postJSON(t *testing.T, url, token string, payload interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return doJSON(t, req)
}

func getJSON(t *testing.T, url, token string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func doJSON(t *testing.T, req *http.Request) (*http.Response, map[string]interface{}) {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	out := map[string]interface{}{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func signup(t *testing.T, baseURL, email, password string) string {
	t.Helper()

	resp, out := postJSON(t, baseURL+"/signup", "", map[string]string{
		"email":     email,
		"password":  password,
		"firstName": "Test",
		"lastName":  "User",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup: unexpected status %d: %v", resp.StatusCode, out)
	}
	id, _ := out["userId"].(string)
	if id == "" {
		t.Fatal("signup: empty userId")
	}
	return id
}

func login(t *testing.T, baseURL, email, password string) string {
	t.Helper()

	resp, out := postJSON(t, baseURL+"/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: unexpected status %d: %v", resp.StatusCode, out)
	}
	token, _ := out["accessToken"].(string)
	if token == "" {
		t.Fatal("login: empty access token")
	}
	return token
}

func newAccount(t *testing.T, baseURL string) account {
	t.Helper()

	email := uniqueEmail("student")
	password := "testpassword123"
	id := signup(t, baseURL, email, password)
	return account{
		ID:          id,
		Email:       email,
		Password:    password,
		AccessToken: login(t, baseURL, email, password),
	}
}

// connectDB opens the database behind the API, or skips when it is not
// reachable from the test environment.
func connectDB(t *testing.T) *pgx.Conn {
	t.Helper()

	dsn := os.Getenv("INTEGRATION_PG_DSN")
	if dsn == "" {
		t.Skip("INTEGRATION_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(context.Background()) })
	return conn
}

// seedExam creates an exam with one question of each supported kind.
func seedExam(t *testing.T, conn *pgx.Conn, createdBy string) string {
	t.Helper()
	ctx := context.Background()

	var examID string
	err := conn.QueryRow(ctx,
		`INSERT INTO exams (title, created_by) VALUES ($1, $2) RETURNING exam_id::text`,
		fmt.Sprintf("integration-%d", time.Now().UnixNano()), createdBy,
	).Scan(&examID)
	if err != nil {
		t.Fatalf("seed exam: %v", err)
	}

	_, err = conn.Exec(ctx, `
		INSERT INTO exam_questions (exam_id, position, type, text, options, correct_answer) VALUES
		($1, 1, 'mcq', 'Capital of France?', ARRAY['Paris','Rome','Madrid'], 'Paris'),
		($1, 2, 'truefalse', 'The earth orbits the sun.', '{}', 'True')`, examID)
	if err != nil {
		t.Fatalf("seed questions: %v", err)
	}
	return examID
}

func countUsers(t *testing.T, conn *pgx.Conn, email string) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(context.Background(), `SELECT COUNT(*) FROM users WHERE LOWER(email) = LOWER($1)`, email).Scan(&n); err != nil {
		t.Fatalf("count users: %v", err)
	}
	return n
}

// newInstructor signs up an account, grants it the instructor role the way
// the migrator's promote command does, and logs in again for a fresh token.
func newInstructor(t *testing.T, baseURL string, conn *pgx.Conn) account {
	t.Helper()

	acct := newAccount(t, baseURL)
	tag, err := conn.Exec(context.Background(),
		`UPDATE users SET role = 'instructor', updated_at = NOW() WHERE LOWER(email) = LOWER($1)`, acct.Email)
	if err != nil {
		t.Fatalf("promote instructor: %v", err)
	}
	if tag.RowsAffected() != 1 {
		t.Fatalf("promote instructor: %d rows updated", tag.RowsAffected())
	}
	acct.AccessToken = login(t, baseURL, acct.Email, acct.Password)
	return acct
}
