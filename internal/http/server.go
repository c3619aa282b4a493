// Package http exposes the expense list and stats views as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"expensetracker/internal/gateway"
	"expensetracker/internal/log"
	"expensetracker/internal/middleware/ratelimit"
	"expensetracker/internal/middleware/security"
	"expensetracker/internal/middleware/trace"
	"expensetracker/internal/query"
	"expensetracker/internal/viewstate"
)

// HeaderOwner carries the id of the owner whose collection a request targets.
const HeaderOwner = "X-Owner-ID"

type Server struct {
	http.Server
	gw     gateway.Gateway
	engine *query.Engine
	logger *log.Logger
	clock  func() time.Time

	limitCfg ratelimit.Config
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware

	// cancelled on Shutdown; stats streams end with it
	streams    context.Context
	endStreams context.CancelFunc

	shutdownOnce sync.Once
}

type Option func(*Server)

func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// WithClock sets the reference time used by stats windows.
func WithClock(now func() time.Time) Option { return func(s *Server) { s.clock = now } }

func WithRateLimit(cfg ratelimit.Config) Option { return func(s *Server) { s.limitCfg = cfg } }

// NewServer wires the API routes and middleware onto addr.
func NewServer(addr string, gw gateway.Gateway, opts ...Option) *Server {
	s := &Server{
		gw:       gw,
		clock:    time.Now,
		logger:   log.Default(log.ComponentHTTP),
		limitCfg: ratelimit.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent(log.ComponentHTTP)
	s.engine = query.NewEngine(s.logger)
	s.limiter = ratelimit.NewLimiter(s.limitCfg)
	s.detector = security.NewDetector(s.logger)
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, s.logger)
	s.streams, s.endStreams = context.WithCancel(context.Background())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/stats/stream", s.handleStatsStream)

	limited := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)(mux)
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())

	s.Server = http.Server{
		Addr:              addr,
		Handler:           headers.Middleware(s.tracer.Middleware(s.detector.Middleware(limited))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
		// no WriteTimeout: stats streams stay open
	}
	return s
}

// Shutdown closes open stats streams, stops accepting requests and waits for
// in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.endStreams()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// viewOptions builds controller options bound to the request's logger.
func (s *Server) viewOptions(ctx context.Context, extra ...viewstate.Option) []viewstate.Option {
	opts := []viewstate.Option{
		viewstate.WithEngine(s.engine),
		viewstate.WithLogger(log.FromContext(ctx)),
		viewstate.WithClock(s.clock),
	}
	return append(opts, extra...)
}

// onRateLimited writes the JSON 429 body; the limiter has set Retry-After.
func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded, try again later")
}
