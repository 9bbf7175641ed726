// Package server exposes the generator over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/speakeasy-api/schemafaker/format"
	"github.com/speakeasy-api/schemafaker/schemagen"
)

// Defaults for Config fields left zero.
const (
	DefaultAddr         = ":8080"
	DefaultMaxCount     = 100
	DefaultMaxBodyBytes = 4 << 20
	DefaultTimeout      = 30 * time.Second
)

// Config holds configuration for the server.
type Config struct {
	Addr string
	// Options is the engine option map requests overlay theirs onto.
	Options      map[string]any
	Formats      *format.Registry
	Hooks        *schemagen.Hooks
	Logger       schemagen.Logger
	MaxCount     int
	MaxBodyBytes int64
	Timeout      time.Duration
}

// Server is the HTTP surface.
type Server struct {
	cfg     Config
	handler http.Handler
}

// New creates a server, filling unset Config fields with defaults.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Formats == nil {
		cfg.Formats = format.NewRegistry()
	}
	if cfg.Hooks == nil {
		cfg.Hooks = schemagen.NewHooks()
	}
	if cfg.Logger == nil {
		cfg.Logger = schemagen.NopLogger()
	}
	if cfg.MaxCount <= 0 {
		cfg.MaxCount = DefaultMaxCount
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	s := &Server{cfg: cfg}

	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		s.logRequests,
		middleware.Recoverer,
		middleware.Timeout(cfg.Timeout),
		middleware.Compress(5),
	)
	r.Get("/healthz", s.healthz)
	r.Get("/formats", s.formats)
	r.Post("/generate", s.generate)
	s.handler = r
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler { return s.handler }

// Serve listens on the configured address and blocks until ctx is
// cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.handler,
		BaseContext: func(net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.cfg.Logger.Infof("listening on %s", ln.Addr())

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.cfg.Logger.Debugf("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.cfg.Logger.With(map[string]any{
			"request_id": middleware.GetReqID(r.Context()),
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"duration":   time.Since(start).Round(time.Microsecond),
		}).Debugf("%s %s", r.Method, r.URL.Path)
	})
}
