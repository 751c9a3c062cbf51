package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/ports"
	"fintrack/internal/services"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services are the operations the API exposes.
type Services struct {
	Session      *services.SessionManager
	Aggregation  *services.AggregationEngine
	Transactions *services.TransactionService
	Accounts     *services.AccountService
	Budgets      *services.BudgetService
	// Store backs the readiness probe.
	Store ports.EntityStore
}

// Options tune the middleware chain.
type Options struct {
	RateLimit ratelimit.Config
	Headers   security.HeadersConfig
	Logger    *applog.Logger
	Now       func() time.Time
}

// DefaultOptions returns the production middleware settings.
func DefaultOptions() Options {
	return Options{
		RateLimit: ratelimit.DefaultConfig(),
		Headers:   security.DefaultHeadersConfig(),
	}
}

type Server struct {
	http.Server
	session      *services.SessionManager
	aggregation  *services.AggregationEngine
	transactions *services.TransactionService
	accounts     *services.AccountService
	budgets      *services.BudgetService
	store        ports.EntityStore

	logger      *applog.Logger
	detector    *security.Detector
	rateLimiter *ratelimit.Limiter
	now         func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, svc Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		session:      svc.Session,
		aggregation:  svc.Aggregation,
		transactions: svc.Transactions,
		accounts:     svc.Accounts,
		budgets:      svc.Budgets,
		store:        svc.Store,
		logger:       logger.WithComponent(applog.ComponentHTTP),
		detector:     security.NewDetector(logger),
		rateLimiter:  ratelimit.NewLimiter(opts.RateLimit),
		now:          now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/session/sign-in", s.handleSignIn)
	mux.HandleFunc("POST /api/session/sign-up", s.handleSignUp)
	mux.HandleFunc("POST /api/session/sign-out", s.handleSignOut)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("PUT /api/profile", s.handleUpdateProfile)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/balance", s.handleBalance)
	mux.HandleFunc("GET /api/transactions/recent", s.handleRecentTransactions)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeactivateAccount)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/budgets", s.handleBudgetSpend)
	mux.HandleFunc("POST /api/budgets", s.handleCreateBudget)
	mux.HandleFunc("POST /api/budgets/reconcile", s.handleReconcileBudgets)

	tracer := trace.NewMiddleware(logger, s.detector.ExtractClientIP)
	limit := s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		TooManyRequestsError().Write(w)
	})
	headers := security.NewHeadersMiddleware(opts.Headers)

	var h http.Handler = mux
	h = headers.Middleware(h)
	h = limit(h)
	h = tracer.Middleware(h)
	h = s.detector.Middleware(h)
	s.Handler = h

	return s
}

// Shutdown gracefully shuts down the server and the limiter's cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	NewJSONResponse().Data(map[string]string{"status": "ok"}).Write(w)
}

// handleReady reports whether the entity store answers queries.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if _, err := s.store.Count(ctx, core.KindUser); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err.Error())
			ErrorResponse(http.StatusServiceUnavailable, "not_ready", "store unavailable").Write(w)
			return
		}
	}
	NewJSONResponse().Data(map[string]string{"status": "ready"}).Write(w)
}
