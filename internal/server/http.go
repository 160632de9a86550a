package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/exam-proctor/internal/auth"
	"github.com/gokatarajesh/exam-proctor/internal/config"
	"github.com/gokatarajesh/exam-proctor/internal/exam"
	"github.com/gokatarajesh/exam-proctor/internal/metrics"
	"github.com/gokatarajesh/exam-proctor/internal/proctor"
	httperrors "github.com/gokatarajesh/exam-proctor/pkg/http/errors"
)

// PingFunc checks one backing dependency.
type PingFunc func(ctx context.Context) error

// Handlers carries the feature handlers mounted on the API mux.
type Handlers struct {
	Tokens     auth.TokenValidator
	Auth       *auth.HTTPHandlers
	Exam       *exam.HTTPHandler
	Proctor    *proctor.HTTPHandlers
	SessionsWS http.Handler
}

// Options configures the API server.
type Options struct {
	Gatherer prometheus.Gatherer
	Metrics  *metrics.Metrics
	Pings    map[string]PingFunc
}

// NewHTTPServer wires every route of the API service.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, h Handlers, opts Options) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewHandler(cfg, logger, h, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewHandler builds the routed handler with middleware applied.
func NewHandler(cfg *config.App, logger zerolog.Logger, h Handlers, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		httperrors.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /v1/ping", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pingDependencies(ctx, opts.Pings); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeUpstreamError, "upstream error")
			return
		}
		httperrors.RespondJSON(w, http.StatusOK, map[string]bool{"pong": true})
	})

	authenticated := func(next http.HandlerFunc) http.Handler {
		return auth.RequireAuth(next)
	}
	instructor := func(next http.HandlerFunc) http.Handler {
		return auth.RequireRole(auth.RoleInstructor)(next)
	}
	student := func(next http.HandlerFunc) http.Handler {
		return auth.RequireRole(auth.RoleStudent)(next)
	}

	if h.Auth != nil {
		mux.HandleFunc("POST /signup", h.Auth.Signup)
		mux.HandleFunc("POST /api/auth/signup", h.Auth.Signup)
		mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
		mux.HandleFunc("POST /api/auth/2fa/verify", h.Auth.VerifyTwoFactor)
		mux.Handle("POST /api/auth/2fa/enable", authenticated(h.Auth.EnableTwoFactor))
		mux.HandleFunc("POST /api/auth/refresh", h.Auth.RefreshToken)
		mux.Handle("GET /api/auth/me", authenticated(h.Auth.GetMe))
		mux.HandleFunc("GET /api/auth/oauth/google/start", h.Auth.OAuthStart)
		mux.HandleFunc("GET /api/auth/oauth/google/callback", h.Auth.OAuthCallback)
	}

	if h.Exam != nil {
		mux.Handle("GET /api/auth/exam-questions/{examId}", authenticated(h.Exam.GetQuestions))
	}

	if h.Proctor != nil {
		mux.Handle("POST /api/instructors/students/{studentId}/shutdown", instructor(h.Proctor.Shutdown))
		mux.Handle("POST /api/instructors/students/{studentId}/poweron", instructor(h.Proctor.PowerOn))
		mux.Handle("GET /api/students/me/sessions/{examId}", student(h.Proctor.MySession))
	}

	var handler http.Handler = mux
	if h.Tokens != nil {
		handler = auth.AuthMiddleware(h.Tokens, logger)(handler)
	}

	// the socket authenticates from its query string and must bypass the header check
	root := http.NewServeMux()
	if h.SessionsWS != nil {
		root.Handle("GET /ws/sessions", h.SessionsWS)
	}
	root.Handle("/", handler)

	routeOf := func(r *http.Request) string {
		if _, pattern := root.Handler(r); pattern != "/" {
			return pattern
		}
		_, pattern := mux.Handler(r)
		return pattern
	}

	return chain(root,
		recoverer(logger),
		requestLogger(logger, opts.Metrics, routeOf),
		cors(cfg.CORS),
	)
}

func pingDependencies(ctx context.Context, pings map[string]PingFunc) error {
	var errs []error
	for name, ping := range pings {
		if err := ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
