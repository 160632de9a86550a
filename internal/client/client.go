// Package client talks to the exam-proctor HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/gokatarajesh/exam-proctor/internal/auth"
	"github.com/gokatarajesh/exam-proctor/internal/exam"
	"github.com/gokatarajesh/exam-proctor/internal/proctor"
)

// APIError is a non-2xx response decoded from the API error body.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s: %s", e.Status, e.Code, e.Message)
}

// Options configures a Client.
type Options struct {
	HTTPClient *http.Client
	Token      string
	// Backoff governs retries of idempotent requests. Defaults to three
	// exponential retries starting at 200ms.
	Backoff func() retry.Backoff
}

// Client is a thin JSON client for the API service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	backoff    func() retry.Backoff
	logger     zerolog.Logger
}

func New(baseURL string, opts Options, logger zerolog.Logger) *Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.Backoff == nil {
		opts.Backoff = func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
		}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: opts.HTTPClient,
		token:      opts.Token,
		backoff:    opts.Backoff,
		logger:     logger.With().Str("component", "api_client").Logger(),
	}
}

// WithToken returns a copy of c that sends token as bearer credentials.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

// Token returns the bearer token in use.
func (c *Client) Token() string {
	return c.token
}

// SignupInput is the public signup payload.
type SignupInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// SignupResult is the body of a successful signup.
type SignupResult struct {
	Message string    `json:"message"`
	UserID  uuid.UUID `json:"userId"`
}

// LoginResult is either a token pair or a two-factor challenge.
type LoginResult struct {
	AccessToken       string     `json:"accessToken"`
	RefreshToken      string     `json:"refreshToken"`
	ExpiresIn         int64      `json:"expiresIn"`
	User              *auth.User `json:"user,omitempty"`
	TwoFactorRequired bool       `json:"twoFactorRequired"`
	Message           string     `json:"message,omitempty"`
}

// ControlResult is the body returned by the shutdown and poweron endpoints.
type ControlResult struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Error   string           `json:"error,omitempty"`
	Session *proctor.Session `json:"session,omitempty"`
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	var out SignupResult
	if err := c.do(ctx, http.MethodPost, "/signup", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for tokens. When two-factor is enabled the
// result only carries TwoFactorRequired.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var out LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyTwoFactor completes a login challenged with a one-time code.
func (c *Client) VerifyTwoFactor(ctx context.Context, email, code string) (*LoginResult, error) {
	var out LoginResult
	body := map[string]string{"email": email, "code": code}
	if err := c.do(ctx, http.MethodPost, "/api/auth/2fa/verify", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExamQuestions fetches the ordered question list of an exam.
func (c *Client) ExamQuestions(ctx context.Context, examID uuid.UUID) ([]exam.Question, error) {
	var out []exam.Question
	if err := c.get(ctx, "/api/auth/exam-questions/"+examID.String(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Shutdown asks the API to shut down a student's exam session.
func (c *Client) Shutdown(ctx context.Context, studentID, examID uuid.UUID, instructorID *uuid.UUID) (*ControlResult, error) {
	body := proctor.ControlRequest{ExamID: examID.String()}
	if instructorID != nil {
		body.InstructorID = instructorID.String()
	}
	return c.control(ctx, studentID, "shutdown", body)
}

// PowerOn reactivates a student's exam session.
func (c *Client) PowerOn(ctx context.Context, studentID, examID uuid.UUID) (*ControlResult, error) {
	return c.control(ctx, studentID, "poweron", proctor.ControlRequest{ExamID: examID.String()})
}

func (c *Client) control(ctx context.Context, studentID uuid.UUID, action string, body proctor.ControlRequest) (*ControlResult, error) {
	var out ControlResult
	path := fmt.Sprintf("/api/instructors/students/%s/%s", studentID, action)
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// get performs an idempotent request, retrying transport failures and
// transient upstream statuses.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	attempt := 0
	return retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempt++
		err := c.do(ctx, http.MethodGet, path, nil, out)
		if err == nil || !retryable(err) {
			return err
		}
		c.logger.Debug().Err(err).Str("path", path).Int("attempt", attempt).Msg("retrying request")
		return retry.RetryableError(err)
	})
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var urlErr *url.Error
	var netErr net.Error
	return errors.As(err, &urlErr) || errors.As(err, &netErr)
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
