package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmp3/internal/metrics"
	"github.com/desertthunder/ytmp3/internal/models"
	"github.com/desertthunder/ytmp3/internal/shared"
	"github.com/desertthunder/ytmp3/internal/tasks"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows the route patterns it serves,
// so a single value can register several endpoints.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the mux patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Manager is the job manager as seen by the HTTP layer. [tasks.Manager] implements it.
type Manager interface {
	Submit(ctx context.Context, sourceURL, customName string) (string, error)
	GetStatus(id string) (models.Job, error)
	ListJobs() []models.Job
	Cancel(id string) (models.Job, error)
	Files() ([]models.File, error)
	Stats() (models.Stats, error)
	Subscribe() (<-chan tasks.Event, func())
	Uptime() time.Duration
}

// Server serves the download API.
type Server struct {
	config  *shared.Config
	manager Manager
	metrics *metrics.Collector
	logger  *log.Logger
	version string
	router  *BasicRouter

	closing     chan struct{}
	closingOnce sync.Once
}

// New builds a server and registers its routes. collector may be nil, in which case
// /metrics is not served.
func New(config *shared.Config, manager Manager, collector *metrics.Collector, logger *log.Logger, version string) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &Server{
		config:  config,
		manager: manager,
		metrics: collector,
		logger:  shared.WithLogger(logger, "component", "http"),
		version: version,
		router:  NewBasicRouter(),
		closing: make(chan struct{}),
	}

	s.router.Use(Recover(s.logger), Logging(s.logger))
	if collector != nil {
		s.router.Use(Metrics(collector))
	}
	s.router.Use(CORS(config.Server.CORSOrigins))
	if config.Server.RateLimit > 0 {
		s.router.Use(RateLimit(rate.NewLimiter(rate.Limit(config.Server.RateLimit), max(config.Server.Burst, 1))))
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc(http.MethodGet, "/health", s.handleHealth)
	s.router.HandleFunc(http.MethodGet, "/config", s.handleConfig)
	s.router.HandleFunc(http.MethodPost, "/download", s.handleSubmit)
	s.router.HandleFunc(http.MethodGet, "/downloads", s.handleList)
	s.router.HandleFunc(http.MethodGet, "/downloads/{id}", s.handleGet)
	s.router.HandleFunc(http.MethodDelete, "/downloads/{id}", s.handleCancel)
	s.router.HandleFunc(http.MethodGet, "/files", s.handleFiles)
	s.router.HandleFunc(http.MethodGet, "/stats", s.handleStats)
	s.router.Handler(&eventStream{manager: s.manager, logger: s.logger, closing: s.closing})
	if s.metrics != nil {
		s.router.Handle(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	s.router.HandleFunc("", "/", s.handleNotFound)
}

// Handler returns the fully wrapped router.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe listens on the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Server.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done, then shuts down gracefully.
// Open event streams are closed before waiting on in-flight requests.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadTimeout:       s.config.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.config.Server.WriteTimeout,
	}
	srv.RegisterOnShutdown(s.closeStreams)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}

func (s *Server) closeStreams() {
	s.closingOnce.Do(func() { close(s.closing) })
}
