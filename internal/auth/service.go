package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/exam-proctor/internal/auth/jwt"
	"github.com/gokatarajesh/exam-proctor/internal/db/repository"
)

var (
	ErrEmailTaken           = errors.New("email already exists")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrUserNotFound         = errors.New("user not found")
	ErrTwoFactorInvalid     = errors.New("invalid or expired two-factor code")
	ErrTwoFactorThrottled   = errors.New("two-factor code requested too recently")
	ErrTwoFactorUnavailable = errors.New("two-factor delivery not configured")
)

type userRepository interface {
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u repository.NewUser) (repository.User, error)
	GetByEmail(ctx context.Context, email string) (repository.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.User, error)
	SetTwoFactorCode(ctx context.Context, id uuid.UUID, codeHash string, expires time.Time) error
	ClearTwoFactorCode(ctx context.Context, id uuid.UUID) error
	SetTwoFactorEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
	UpdateLogin(ctx context.Context, id uuid.UUID) error
}

type codeSender interface {
	SendTwoFactorCode(ctx context.Context, to, code string, ttl time.Duration) error
}

type codeThrottle interface {
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}

type attemptCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
	Reset(ctx context.Context, key string) error
}

const defaultMaxCodeAttempts = 5

// Service handles authentication and user management.
type Service struct {
	users    userRepository
	tokenMgr *jwt.Manager
	sender   codeSender
	throttle codeThrottle
	attempts attemptCounter
	maxTries int64
	codeTTL  time.Duration
	resend   time.Duration
	now      func() time.Time
	logger   zerolog.Logger
}

// ServiceOptions configures the auth service.
type ServiceOptions struct {
	TokenConfig jwt.TokenConfig
	CodeSender  codeSender
	Throttle    codeThrottle
	Attempts    attemptCounter

	// MaxCodeAttempts is how many verify calls one issued code survives.
	MaxCodeAttempts int
	CodeTTL         time.Duration
	ResendInterval  time.Duration
}

// NewService creates an authentication service.
func NewService(users userRepository, opts ServiceOptions, logger zerolog.Logger) *Service {
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = 10 * time.Minute
	}
	if opts.ResendInterval <= 0 {
		opts.ResendInterval = time.Minute
	}
	if opts.MaxCodeAttempts <= 0 {
		opts.MaxCodeAttempts = defaultMaxCodeAttempts
	}
	if opts.Attempts == nil {
		opts.Attempts = newMemoryAttempts()
	}
	return &Service{
		users:    users,
		tokenMgr: jwt.NewManager(opts.TokenConfig),
		sender:   opts.CodeSender,
		throttle: opts.Throttle,
		attempts: opts.Attempts,
		maxTries: int64(opts.MaxCodeAttempts),
		codeTTL:  opts.CodeTTL,
		resend:   opts.ResendInterval,
		now:      time.Now,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

// Signup registers a new student account. Only the allow-listed request
// fields are persisted; two-factor state always starts disabled and empty.
// Instructors are promoted out of band (see cmd/migrator).
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*User, error) {
	exists, err := s.users.EmailExists(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.users.Create(ctx, repository.NewUser{
		Email:        req.Email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         RoleStudent,
	})
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info().Str("user_id", created.ID.String()).Str("role", created.Role).Msg("user signed up")
	return toPublicUser(created), nil
}

// Login authenticates a user with email/password. Accounts with two-factor
// enabled get a code issued instead of tokens.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u.PasswordHash == "" || VerifyPassword(u.PasswordHash, req.Password) != nil {
		return nil, ErrInvalidCredentials
	}

	if u.TwoFactorEnabled {
		if err := s.issueTwoFactorCode(ctx, u); err != nil {
			return nil, err
		}
		return &LoginResult{TwoFactorRequired: true}, nil
	}

	return s.completeLogin(ctx, u)
}

// VerifyTwoFactor checks a one-time code and, when it matches and has not
// expired, clears it and issues tokens. A code is burned once it has been
// tried MaxCodeAttempts times without success.
func (s *Service) VerifyTwoFactor(ctx context.Context, req VerifyTwoFactorRequest) (*LoginResult, error) {
	u, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTwoFactorInvalid
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if u.TwoFactorCodeHash == "" || u.TwoFactorExpires == nil || !s.now().Before(*u.TwoFactorExpires) {
		return nil, ErrTwoFactorInvalid
	}

	tries, err := s.attempts.Hit(ctx, u.Email, s.codeTTL)
	if err != nil {
		return nil, fmt.Errorf("count attempt: %w", err)
	}
	if tries > s.maxTries {
		return nil, s.burnCode(ctx, u)
	}
	if !codeMatches(u.TwoFactorCodeHash, strings.TrimSpace(req.Code)) {
		if tries == s.maxTries {
			return nil, s.burnCode(ctx, u)
		}
		return nil, ErrTwoFactorInvalid
	}

	if err := s.users.ClearTwoFactorCode(ctx, u.ID); err != nil {
		return nil, fmt.Errorf("clear code: %w", err)
	}
	if err := s.attempts.Reset(ctx, u.Email); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID.String()).Msg("failed to reset two-factor attempts")
	}

	s.logger.Info().Str("user_id", u.ID.String()).Msg("two-factor verified")
	return s.completeLogin(ctx, u)
}

// burnCode discards a code that ran out of attempts.
func (s *Service) burnCode(ctx context.Context, u repository.User) error {
	if err := s.users.ClearTwoFactorCode(ctx, u.ID); err != nil {
		return fmt.Errorf("clear code: %w", err)
	}
	s.logger.Warn().Str("user_id", u.ID.String()).Msg("two-factor code discarded after too many attempts")
	return ErrTwoFactorInvalid
}

// EnableTwoFactor toggles two-factor for an account.
func (s *Service) EnableTwoFactor(ctx context.Context, userID uuid.UUID, enabled bool) error {
	if enabled && s.sender == nil {
		return ErrTwoFactorUnavailable
	}
	if err := s.users.SetTwoFactorEnabled(ctx, userID, enabled); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("set two-factor: %w", err)
	}
	if !enabled {
		if err := s.users.ClearTwoFactorCode(ctx, userID); err != nil {
			return fmt.Errorf("clear code: %w", err)
		}
	}
	s.logger.Info().Str("user_id", userID.String()).Bool("enabled", enabled).Msg("two-factor updated")
	return nil
}

// RefreshToken generates a new token pair from a refresh token.
func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenMgr.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	// the account may have been removed or changed role since issue
	u, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	return s.generateTokenPair(u)
}

// ValidateToken validates an access token and returns user claims.
func (s *Service) ValidateToken(tokenString string) (*jwt.Claims, error) {
	return s.tokenMgr.ValidateAccessToken(tokenString)
}

// Me returns the public profile of userID.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return toPublicUser(u), nil
}

// SignInWithOAuth logs in the account matching a verified provider email,
// creating a student account on first sign-in.
func (s *Service) SignInWithOAuth(ctx context.Context, info *OAuthUserInfo) (*User, *TokenPair, error) {
	if info == nil || info.Email == "" {
		return nil, nil, fmt.Errorf("oauth provider did not return an email")
	}

	u, err := s.users.GetByEmail(ctx, info.Email)
	if errors.Is(err, repository.ErrNotFound) {
		u, err = s.users.Create(ctx, repository.NewUser{
			Email:     info.Email,
			FirstName: info.GivenName,
			LastName:  info.FamilyName,
			Role:      RoleStudent,
		})
		if errors.Is(err, repository.ErrDuplicateEmail) {
			u, err = s.users.GetByEmail(ctx, info.Email)
		}
		if err == nil {
			s.logger.Info().Str("user_id", u.ID.String()).Msg("oauth user created")
		}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("resolve oauth user: %w", err)
	}

	result, err := s.completeLogin(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return result.User, result.Tokens, nil
}

func (s *Service) issueTwoFactorCode(ctx context.Context, u repository.User) error {
	if s.sender == nil {
		return ErrTwoFactorUnavailable
	}
	if s.throttle != nil {
		ok, err := s.throttle.Allow(ctx, u.Email, s.resend)
		if err != nil {
			return err
		}
		if !ok {
			return ErrTwoFactorThrottled
		}
	}

	code, err := generateCode()
	if err != nil {
		return err
	}
	codeHash, err := hashCode(code)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}
	if err := s.users.SetTwoFactorCode(ctx, u.ID, codeHash, s.now().Add(s.codeTTL)); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	if err := s.attempts.Reset(ctx, u.Email); err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	if err := s.sender.SendTwoFactorCode(ctx, u.Email, code, s.codeTTL); err != nil {
		return fmt.Errorf("send code: %w", err)
	}

	s.logger.Info().Str("user_id", u.ID.String()).Msg("two-factor code issued")
	return nil
}

func (s *Service) completeLogin(ctx context.Context, u repository.User) (*LoginResult, error) {
	if err := s.users.UpdateLogin(ctx, u.ID); err != nil {
		s.logger.Warn().Err(err).Str("user_id", u.ID.String()).Msg("failed to record login")
	}

	tokens, err := s.generateTokenPair(u)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.Info().Str("user_id", u.ID.String()).Msg("user logged in")
	return &LoginResult{User: toPublicUser(u), Tokens: tokens}, nil
}

func (s *Service) generateTokenPair(u repository.User) (*TokenPair, error) {
	sub := jwt.Subject{ID: u.ID, Email: u.Email, Role: u.Role}

	accessToken, err := s.tokenMgr.GenerateAccessToken(sub)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokenMgr.GenerateRefreshToken(sub)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.tokenMgr.AccessTTL().Seconds()),
	}, nil
}

func toPublicUser(u repository.User) *User {
	return &User{
		ID:               u.ID,
		Email:            u.Email,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Role:             u.Role,
		TwoFactorEnabled: u.TwoFactorEnabled,
	}
}
