package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeForbidden              = "forbidden"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"
	ErrCodeInstructorRequired     = "instructor_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"
	ErrCodeInvalidID        = "invalid_id"

	// Resource errors
	ErrCodeNotFound      = "not_found"
	ErrCodeAlreadyExists = "already_exists"
	ErrCodeConflict      = "conflict"

	// Auth flow errors
	ErrCodeEmailTaken         = "email_taken"
	ErrCodeSignupFailed       = "signup_failed"
	ErrCodeLoginFailed        = "login_failed"
	ErrCodeRefreshFailed      = "refresh_failed"
	ErrCodeTwoFactorInvalid   = "two_factor_invalid"
	ErrCodeTwoFactorThrottled = "two_factor_throttled"
	ErrCodeTwoFactorFailed    = "two_factor_failed"
	ErrCodeUserCreationFailed = "user_creation_failed"

	// Exam errors
	ErrCodeExamNotFound         = "exam_not_found"
	ErrCodeQuestionsFetchFailed = "questions_fetch_failed"
	ErrCodeUnsupportedQuestion  = "unsupported_question_type"
	ErrCodeSessionShutdown      = "session_shutdown"

	// Proctor control errors
	ErrCodeStudentNotFound    = "student_not_found"
	ErrCodeInstructorMismatch = "instructor_mismatch"
	ErrCodeControlFailed      = "control_failed"
	ErrCodeSessionFetchFailed = "session_fetch_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"
	ErrCodeConnectionError    = "connection_error"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"

	// OAuth errors
	ErrCodeOAuthNotConfigured  = "oauth_not_configured"
	ErrCodeOAuthStartFailed    = "oauth_start_failed"
	ErrCodeOAuthCallbackFailed = "oauth_callback_failed"
	ErrCodeOAuthMissingCode    = "missing_code"
	ErrCodeOAuthInvalidState   = "invalid_state"
)
