package config

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"exam-proctor"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres  Postgres
	Redis     Redis
	Security  Security
	Exam      Exam
	TwoFactor TwoFactor
	OAuth     OAuth
	SMTP      SMTP
	CORS      CORS
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
	MaxConns int    `env:"PG_MAX_CONNS" envDefault:"10"`
}

// DSN renders the libpq style connection string used by pgxpool.
func (p Postgres) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode, p.MaxConns)
}

// Redis holds cache, session state and pub/sub configuration.
type Redis struct {
	Addr            string `env:"REDIS_ADDR,notEmpty"`
	DB              int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize        int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
	CommandsChannel string `env:"REDIS_COMMANDS_CHANNEL" envDefault:"proctor:commands"`
}

// Security stores secrets for signing and auth.
type Security struct {
	JWTSecret        string        `env:"JWT_SECRET,notEmpty"`
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET"`
	AccessTokenTTL   time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL  time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
}

// Exam governs question delivery.
type Exam struct {
	QuestionCacheTTL time.Duration `env:"EXAM_QUESTION_CACHE_TTL" envDefault:"5m"`
}

// TwoFactor governs the one-time code flow.
type TwoFactor struct {
	CodeTTL        time.Duration `env:"TWO_FACTOR_CODE_TTL" envDefault:"10m"`
	ResendInterval time.Duration `env:"TWO_FACTOR_RESEND_INTERVAL" envDefault:"1m"`
	MaxAttempts    int           `env:"TWO_FACTOR_MAX_ATTEMPTS" envDefault:"5"`
}

// OAuth holds OAuth provider configuration.
type OAuth struct {
	GoogleClientID     string `env:"GOOGLE_OAUTH_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_OAUTH_CLIENT_SECRET"`
	GoogleRedirectURL  string `env:"GOOGLE_OAUTH_REDIRECT_URL"`
}

// SMTP holds email server configuration.
type SMTP struct {
	Host      string `env:"SMTP_HOST"`
	Port      int    `env:"SMTP_PORT" envDefault:"587"`
	Username  string `env:"SMTP_USERNAME"`
	Password  string `env:"SMTP_PASSWORD"`
	FromEmail string `env:"SMTP_FROM_EMAIL"`
}

// CORS holds Cross-Origin Resource Sharing configuration.
type CORS struct {
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`
	AllowedMethods   []string `env:"CORS_ALLOWED_METHODS" envSeparator:"," envDefault:"GET,POST,PUT,DELETE,OPTIONS"`
	AllowedHeaders   []string `env:"CORS_ALLOWED_HEADERS" envSeparator:"," envDefault:"Content-Type,Authorization"`
	AllowCredentials bool     `env:"CORS_ALLOW_CREDENTIALS" envDefault:"true"`
	MaxAge           int      `env:"CORS_MAX_AGE" envDefault:"3600"`
}

// ErrWildcardCredentials rejects a CORS setup that would hand credentials to any origin.
var ErrWildcardCredentials = errors.New("CORS_ALLOWED_ORIGINS cannot contain * while CORS_ALLOW_CREDENTIALS is true")

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.CORS.AllowCredentials && slices.Contains(cfg.CORS.AllowedOrigins, "*") {
		return nil, ErrWildcardCredentials
	}
	if cfg.Security.JWTRefreshSecret == "" {
		cfg.Security.JWTRefreshSecret = cfg.Security.JWTSecret + "_refresh"
	}
	return cfg, nil
}
