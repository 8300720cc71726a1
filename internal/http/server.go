package http

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"pgexpense/internal/core"
	applog "pgexpense/internal/log"
	"pgexpense/internal/middleware/ratelimit"
	"pgexpense/internal/middleware/security"
	"pgexpense/internal/middleware/trace"
)

// ExpenseAPI is the service surface the handlers depend on.
type ExpenseAPI interface {
	CreateExpense(ctx context.Context, e core.NewExpense) (core.Expense, error)
	ListExpenses(ctx context.Context, f core.Filter) ([]core.Expense, error)
	Stats(ctx context.Context, f core.Filter) (core.Stats, error)
	Ready(ctx context.Context) error
}

// Options tune the server. Zero values select the defaults.
type Options struct {
	Logger *applog.Logger

	// RateLimitPerMinute caps POST requests per client IP; 0 disables it.
	RateLimitPerMinute int
	TrustedProxies     []string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Server is the JSON API server.
type Server struct {
	http.Server
	svc        ExpenseAPI
	logger     *applog.Logger
	limiter    *ratelimit.Limiter
	tracer     *trace.Middleware
	ipResolver *security.ClientIPResolver
	appMetrics *appMetrics

	shutdownOnce sync.Once
}

type appMetrics struct {
	expensesCreated int64
	uptime          time.Time
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc ExpenseAPI, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	ipResolver := security.NewClientIPResolver()
	for _, cidr := range opts.TrustedProxies {
		if err := ipResolver.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, applog.FieldError, err)
		}
	}

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadTimeout:       orDefault(opts.ReadTimeout, 15*time.Second),
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      orDefault(opts.WriteTimeout, 30*time.Second),
			IdleTimeout:       orDefault(opts.IdleTimeout, 60*time.Second),
		},
		svc:        svc,
		logger:     logger,
		tracer:     trace.NewMiddleware(ipResolver.ClientIP, logger),
		ipResolver: ipResolver,
		appMetrics: &appMetrics{uptime: time.Now()},
	}
	if opts.RateLimitPerMinute > 0 {
		s.limiter = ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Methods:           []string{http.MethodPost},
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /expenses", s.handleListExpenses)
	mux.HandleFunc("GET /expenses/stats", s.handleExpenseStats)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	s.Handler = s.middleware(mux)
	return s
}

// middleware wraps h outermost-first: tracing, security headers, rate
// limiting, then the request-scoped logger.
func (s *Server) middleware(h http.Handler) http.Handler {
	h = applog.RequestIDMiddleware(trace.RequestIDFromRequest)(h)
	h = applog.Middleware(s.logger)(h)
	if s.limiter != nil {
		h = s.limiter.Middleware(s.ipResolver.ClientIP, s.handleRateLimited)(h)
	}
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	return s.tracer.Middleware(h)
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, s.ipResolver.ClientIP(r),
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	TooManyRequestsError("Rate limit exceeded. Please try again later.").Write(w)
}

// Shutdown gracefully shuts down the server and the limiter cleanup routine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func (s *Server) recordExpenseCreated() {
	atomic.AddInt64(&s.appMetrics.expensesCreated, 1)
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
