// Package server serves citations, downloads and plugin settings over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/matsen/cslcite/internal/access"
	"github.com/matsen/cslcite/internal/config"
	"github.com/matsen/cslcite/internal/mapper"
	"github.com/matsen/cslcite/internal/reference"
	"github.com/matsen/cslcite/internal/settings"
	"github.com/matsen/cslcite/internal/style"
)

// PathSegment is the route segment under a context path that all plugin
// endpoints share.
const PathSegment = "citationstylelanguage"

// ShutdownTimeout bounds graceful shutdown of ListenAndServe.
const ShutdownTimeout = 5 * time.Second

// Store loads the host objects named in request parameters.
// Lookups that match nothing return an error wrapping reference.ErrNotFound.
type Store interface {
	ContextByPath(ctx context.Context, path string) (*reference.Context, error)
	Submission(ctx context.Context, contextID, id int64) (*reference.Submission, error)
	Issue(ctx context.Context, id int64) (*reference.Issue, error)
}

// Server is the HTTP surface of the citation plugin.
type Server struct {
	mapper   *mapper.Mapper
	styles   *style.Registry
	settings settings.Store
	store    Store
	policy   *access.Policy

	users    map[string]config.User
	limiter  *limiter
	logger   *zap.Logger
	gatherer prometheus.Gatherer
	requests *prometheus.CounterVec
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithUsers sets the accounts accepted by basic authentication.
func WithUsers(users []config.User) Option {
	return func(s *Server) {
		for _, u := range users {
			s.users[u.Name] = u
		}
	}
}

// WithRateLimit limits each client address to rps requests per second with the
// given burst. A zero rps disables limiting.
func WithRateLimit(rl config.RateLimit) Option {
	return func(s *Server) {
		if rl.RPS > 0 {
			s.limiter = newLimiter(rl.RPS, rl.Burst)
		}
	}
}

// WithMetrics registers the HTTP request counter with reg and serves the
// gathered metrics at /metrics.
func WithMetrics(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cslcite_http_requests_total",
			Help: "HTTP requests, by method and status code.",
		}, []string{"method", "code"})
		reg.MustRegister(s.requests)
		s.gatherer = reg
	}
}

// New creates a server.
func New(m *mapper.Mapper, styles *style.Registry, store Store, settingsStore settings.Store, policy *access.Policy, opts ...Option) *Server {
	s := &Server{
		mapper:   m,
		styles:   styles,
		settings: settingsStore,
		store:    store,
		policy:   policy,
		users:    make(map[string]config.User),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with logging, rate limiting and
// authentication applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	prefix := "/{context}/" + PathSegment
	mux.HandleFunc("GET "+prefix+"/get/{style}", s.handleGet)
	mux.HandleFunc("GET "+prefix+"/download/{style}", s.handleDownload)
	mux.HandleFunc("GET "+prefix+"/block", s.handleBlock)
	mux.HandleFunc("GET "+prefix+"/styles", s.handleStyles)
	mux.HandleFunc("GET "+prefix+"/settings", s.manager(s.handleGetSettings))
	mux.HandleFunc("POST "+prefix+"/settings", s.manager(s.handleSaveSettings))

	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return s.logRequests(s.rateLimit(s.authenticate(mux)))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- server.ListenAndServe()
	}()
	s.logger.Info("Listening", zap.String("addr", addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
