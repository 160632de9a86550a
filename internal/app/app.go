package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gokatarajesh/exam-proctor/internal/auth"
	"github.com/gokatarajesh/exam-proctor/internal/auth/jwt"
	"github.com/gokatarajesh/exam-proctor/internal/config"
	"github.com/gokatarajesh/exam-proctor/internal/db/repository"
	"github.com/gokatarajesh/exam-proctor/internal/db/store"
	"github.com/gokatarajesh/exam-proctor/internal/exam"
	"github.com/gokatarajesh/exam-proctor/internal/logging"
	"github.com/gokatarajesh/exam-proctor/internal/metrics"
	"github.com/gokatarajesh/exam-proctor/internal/proctor"
	"github.com/gokatarajesh/exam-proctor/internal/server"
	ws "github.com/gokatarajesh/exam-proctor/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	relay *proctor.Relay
}

// New bootstraps Postgres, Redis, the feature services and the HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	queries := store.New(pool)
	userRepo := repository.NewUserRepository(queries)
	examRepo := repository.NewExamRepository(queries)
	sessionRepo := repository.NewSessionRepository(queries)

	m := metrics.New(prometheus.DefaultRegisterer)

	opts := auth.ServiceOptions{
		TokenConfig: jwt.TokenConfig{
			AccessSecret:  []byte(cfg.Security.JWTSecret),
			RefreshSecret: []byte(cfg.Security.JWTRefreshSecret),
			AccessTTL:     cfg.Security.AccessTokenTTL,
			RefreshTTL:    cfg.Security.RefreshTokenTTL,
			Issuer:        cfg.Name,
		},
		Throttle:        auth.NewRedisThrottle(redisClient, ""),
		Attempts:        auth.NewRedisAttempts(redisClient, ""),
		MaxCodeAttempts: cfg.TwoFactor.MaxAttempts,
		CodeTTL:         cfg.TwoFactor.CodeTTL,
		ResendInterval:  cfg.TwoFactor.ResendInterval,
	}
	if cfg.SMTP.Host != "" {
		opts.CodeSender = auth.NewEmailService(auth.EmailConfig{
			SMTPHost:     cfg.SMTP.Host,
			SMTPPort:     cfg.SMTP.Port,
			SMTPUsername: cfg.SMTP.Username,
			SMTPPassword: cfg.SMTP.Password,
			FromEmail:    cfg.SMTP.FromEmail,
		}, logger)
	} else {
		logger.Warn().Msg("SMTP not configured; two-factor codes cannot be delivered")
	}
	authSvc := auth.NewService(userRepo, opts, logger)

	oauthSvc := auth.NewOAuthService(auth.OAuthConfig{
		ClientID:     cfg.OAuth.GoogleClientID,
		ClientSecret: cfg.OAuth.GoogleClientSecret,
		RedirectURL:  cfg.OAuth.GoogleRedirectURL,
	}, logger)
	if oauthSvc == nil {
		logger.Warn().Msg("OAuth not configured (missing GOOGLE_OAUTH_CLIENT_ID)")
	}

	wsHub := ws.NewHub(logger)
	relay := proctor.NewRelay(redisClient, wsHub, cfg.Redis.CommandsChannel, logger)
	proctorSvc := proctor.NewService(
		userRepo,
		examRepo,
		sessionRepo,
		proctor.NewStateStore(redisClient, 0),
		relay,
		m,
		logger,
	)

	examSvc := exam.NewService(examRepo, exam.NewCache(redisClient, cfg.Exam.QuestionCacheTTL), proctorSvc, m, logger)

	apiServer := server.NewHTTPServer(cfg, logger, server.Handlers{
		Tokens:     authSvc,
		Auth:       auth.NewHTTPHandlers(authSvc, oauthSvc, m, logger),
		Exam:       exam.NewHTTPHandler(examSvc, logger),
		Proctor:    proctor.NewHTTPHandlers(proctorSvc, logger),
		SessionsWS: proctor.NewWSHandler(authSvc, wsHub, proctorSvc, cfg.CORS.AllowedOrigins, m, logger),
	}, server.Options{
		Gatherer: prometheus.DefaultGatherer,
		Metrics:  m,
		Pings: map[string]server.PingFunc{
			"postgres": pool.Ping,
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		},
	})

	return &Application{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		redis:  redisClient,
		http:   apiServer,
		relay:  relay,
	}, nil
}

// Run starts the HTTP server and the command relay, then waits for a
// termination signal or the first failure.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.relay.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("command relay: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info().Msg("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.GracefulShutdownTimeout)
		defer cancel()
		if err := a.http.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("http shutdown error")
		}
		return nil
	})

	err := g.Wait()

	a.pool.Close()
	if cerr := a.redis.Close(); cerr != nil {
		a.logger.Error().Err(cerr).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return err
}
