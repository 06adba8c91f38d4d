package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"expensebook/internal/core"
	applog "expensebook/internal/log"
	"expensebook/internal/middleware/ratelimit"
	"expensebook/internal/middleware/security"
	"expensebook/internal/middleware/trace"
)

// ExpenseAPI is the expense surface served over HTTP. *services.ExpenseService implements it.
type ExpenseAPI interface {
	List(ctx context.Context, c core.ExpenseCriteria) (core.Page[core.Expense], error)
	All(ctx context.Context, c core.AllExpenseCriteria) ([]core.Expense, error)
	Upsert(ctx context.Context, u core.ExpenseUpsert) (core.Expense, error)
	Delete(ctx context.Context, id string) error
}

// CategoryAPI is the category surface served over HTTP. *services.CategoryService implements it.
type CategoryAPI interface {
	List(ctx context.Context, c core.CategoryCriteria) (core.Page[core.Category], error)
	All(ctx context.Context, c core.AllCategoryCriteria) ([]core.Category, error)
	Upsert(ctx context.Context, u core.CategoryUpsert) (core.Category, error)
	Delete(ctx context.Context, id string) error
}

// Pinger reports storage health for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tune the server middleware.
type Options struct {
	RateLimitRPM int
	Logger       *applog.Logger
	Ready        Pinger
}

// Server is the reference implementation of the expense API.
type Server struct {
	http.Server

	expenses   ExpenseAPI
	categories CategoryAPI
	ready      Pinger

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, expenses ExpenseAPI, categories CategoryAPI, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}

	s := &Server{
		expenses:   expenses,
		categories: categories,
		ready:      opts.Ready,
		detector:   security.NewDetector(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitRPM,
		}),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /expenses", s.handleListExpenses)
	mux.HandleFunc("GET /v2/expenses", s.handleAllExpenses)
	mux.HandleFunc("PUT /expenses", s.handleUpsertExpense)
	mux.HandleFunc("DELETE /expenses/{id}", s.handleDeleteExpense)

	mux.HandleFunc("GET /categories", s.handleListCategories)
	mux.HandleFunc("GET /v2/categories", s.handleAllCategories)
	mux.HandleFunc("PUT /categories", s.handleUpsertCategory)
	mux.HandleFunc("DELETE /categories/{id}", s.handleDeleteCategory)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.detector.ExtractClientIP, handleRateLimited)(handler)
	handler = s.detector.Middleware(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = applog.RequestIDMiddleware(trace.RequestID)(handler)
	handler = applog.Middleware(logger.WithComponent(applog.ComponentAPI))(handler)
	handler = s.tracer.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Shutdown gracefully shuts down the server and its cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// Metrics returns request and rate limit counters.
func (s *Server) Metrics() (trace.Metrics, ratelimit.Metrics) {
	return s.tracer.GetMetrics(), s.rateLimiter.GetMetrics()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready.Ping(r.Context()); err != nil {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "storage unavailable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded", "method", r.Method, "path", r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
}
