package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/exam-proctor/internal/logging"
	"github.com/gokatarajesh/exam-proctor/internal/metrics"
	httperrors "github.com/gokatarajesh/exam-proctor/pkg/http/errors"
)

const oauthStateCookie = "oauth_state"

// HTTPHandlers provides REST endpoints for authentication.
type HTTPHandlers struct {
	authSvc  *Service
	oauthSvc *OAuthService
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for auth endpoints. oauthSvc may be nil.
func NewHTTPHandlers(authSvc *Service, oauthSvc *OAuthService, m *metrics.Metrics, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		authSvc:  authSvc,
		oauthSvc: oauthSvc,
		metrics:  m,
		logger:   logger.With().Str("component", "auth_http").Logger(),
	}
}

// Signup handles POST /signup and POST /api/auth/signup.
func (h *HTTPHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	req, dropped, err := DecodeSignup(r.Body)
	if len(dropped) > 0 {
		reqLog := logging.ForRequest(r.Context(), h.logger)
		reqLog.Warn().Strs("fields", dropped).Msg("signup: dropped fields outside the allow-list")
	}
	if err != nil {
		h.metrics.AuthEvent("signup", "invalid")
		respondDecodeError(w, err)
		return
	}

	user, err := h.authSvc.Signup(r.Context(), req)
	switch {
	case errors.Is(err, ErrEmailTaken):
		h.metrics.AuthEvent("signup", "duplicate")
		httperrors.RespondValidationError(w, httperrors.ErrCodeEmailTaken, "Email already exists", "email")
		return
	case err != nil:
		h.metrics.AuthEvent("signup", "error")
		reqLog := logging.ForRequest(r.Context(), h.logger)
		reqLog.Error().Err(err).Msg("signup failed")
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeSignupFailed, "Error creating user")
		return
	}

	h.metrics.AuthEvent("signup", "ok")
	httperrors.RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User created successfully",
		"userId":  user.ID.String(),
	})
}

// Login handles POST /api/auth/login.
func (h *HTTPHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := DecodeJSON(r.Body, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	result, err := h.authSvc.Login(r.Context(), req)
	if err != nil {
		h.metrics.AuthEvent("login", "failed")
		h.respondTwoFactorError(w, r, err, httperrors.ErrCodeLoginFailed)
		return
	}

	if result.TwoFactorRequired {
		h.metrics.AuthEvent("login", "two_factor")
		httperrors.RespondJSON(w, http.StatusAccepted, map[string]interface{}{
			"twoFactorRequired": true,
			"message":           "A sign-in code has been sent to your email",
		})
		return
	}

	h.metrics.AuthEvent("login", "ok")
	respondTokens(w, result)
}

// VerifyTwoFactor handles POST /api/auth/2fa/verify.
func (h *HTTPHandlers) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var req VerifyTwoFactorRequest
	if err := DecodeJSON(r.Body, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	result, err := h.authSvc.VerifyTwoFactor(r.Context(), req)
	if err != nil {
		h.metrics.AuthEvent("two_factor", "failed")
		h.respondTwoFactorError(w, r, err, httperrors.ErrCodeTwoFactorFailed)
		return
	}

	h.metrics.AuthEvent("two_factor", "ok")
	respondTokens(w, result)
}

// EnableTwoFactor handles POST /api/auth/2fa/enable (requires auth).
func (h *HTTPHandlers) EnableTwoFactor(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "Invalid or missing token")
		return
	}

	req := EnableTwoFactorRequest{Enabled: true}
	if r.ContentLength != 0 {
		if err := DecodeJSON(r.Body, &req); err != nil {
			respondDecodeError(w, err)
			return
		}
	}

	if err := h.authSvc.EnableTwoFactor(r.Context(), claims.UserID, req.Enabled); err != nil {
		h.respondTwoFactorError(w, r, err, httperrors.ErrCodeTwoFactorFailed)
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"twoFactorEnabled": req.Enabled,
	})
}

// RefreshToken handles POST /api/auth/refresh.
func (h *HTTPHandlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := DecodeJSON(r.Body, &req); err != nil {
		respondDecodeError(w, err)
		return
	}

	tokens, err := h.authSvc.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeRefreshFailed, "Invalid or expired refresh token")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, tokens)
}

// GetMe handles GET /api/auth/me (requires auth).
func (h *HTTPHandlers) GetMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "Invalid or missing token")
		return
	}

	user, err := h.authSvc.Me(r.Context(), claims.UserID)
	if errors.Is(err, ErrUserNotFound) {
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "User not found")
		return
	}
	if err != nil {
		reqLog := logging.ForRequest(r.Context(), h.logger)
		reqLog.Error().Err(err).Msg("load profile failed")
		httperrors.RespondInternalError(w, "Failed to load profile")
		return
	}

	httperrors.RespondJSON(w, http.StatusOK, user)
}

// OAuthStart handles GET /api/auth/oauth/google/start.
func (h *HTTPHandlers) OAuthStart(w http.ResponseWriter, r *http.Request) {
	if h.oauthSvc == nil {
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeOAuthNotConfigured, "OAuth is not configured")
		return
	}

	state, err := randomState()
	if err != nil {
		httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeOAuthStartFailed, "Could not start sign-in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})

	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"authUrl": h.oauthSvc.AuthURL(state),
		"state":   state,
	})
}

// OAuthCallback handles GET /api/auth/oauth/google/callback.
func (h *HTTPHandlers) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	if h.oauthSvc == nil {
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeOAuthNotConfigured, "OAuth is not configured")
		return
	}

	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeOAuthMissingCode, "Authorization code required")
		return
	}

	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || cookie.Value != state {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeOAuthInvalidState, "Invalid or missing state parameter")
		return
	}

	info, err := h.oauthSvc.Exchange(r.Context(), code)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeOAuthCallbackFailed, "Google sign-in failed")
		return
	}

	user, tokens, err := h.authSvc.SignInWithOAuth(r.Context(), info)
	if err != nil {
		reqLog := logging.ForRequest(r.Context(), h.logger)
		reqLog.Error().Err(err).Msg("oauth sign-in failed")
		httperrors.RespondInternalError(w, "Google sign-in failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	h.metrics.AuthEvent("oauth", "ok")
	respondTokens(w, &LoginResult{User: user, Tokens: tokens})
}

func (h *HTTPHandlers) respondTwoFactorError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeLoginFailed, "Invalid email or password")
	case errors.Is(err, ErrTwoFactorInvalid):
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeTwoFactorInvalid, "Invalid or expired code")
	case errors.Is(err, ErrTwoFactorThrottled):
		httperrors.RespondError(w, http.StatusTooManyRequests, httperrors.ErrCodeTwoFactorThrottled, "A code was sent recently; try again shortly")
	case errors.Is(err, ErrTwoFactorUnavailable):
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, "Two-factor delivery is not configured")
	case errors.Is(err, ErrUserNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "User not found")
	default:
		reqLog := logging.ForRequest(r.Context(), h.logger)
		reqLog.Error().Err(err).Msg("auth request failed")
		httperrors.RespondError(w, http.StatusInternalServerError, fallback, "Authentication failed")
	}
}

func respondDecodeError(w http.ResponseWriter, err error) {
	var fe *FieldError
	if errors.As(err, &fe) {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, fe.Message, fe.Field)
		return
	}
	httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
}

func respondTokens(w http.ResponseWriter, result *LoginResult) {
	httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"accessToken":  result.Tokens.AccessToken,
		"refreshToken": result.Tokens.RefreshToken,
		"expiresIn":    result.Tokens.ExpiresIn,
		"user":         result.User,
	})
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
