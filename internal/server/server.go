// Package server is the HTTP gateway: it applies the cross-origin policy,
// dispatches requests through a fixed route table and hands every handler
// the shared connection pool.
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
	"github.com/koustreak/deckbuilder/internal/auth"
	"github.com/koustreak/deckbuilder/internal/database"
	"github.com/koustreak/deckbuilder/internal/errs"
	"github.com/koustreak/deckbuilder/internal/filestore"
	"github.com/koustreak/deckbuilder/internal/health"
	"github.com/koustreak/deckbuilder/internal/logger"
	"github.com/koustreak/deckbuilder/internal/metrics"
	"github.com/rs/zerolog/hlog"
)

const defaultShutdownTimeout = 10 * time.Second

// Options are the collaborators a Server is built from. Pool, Prober and
// Issuer are required.
type Options struct {
	Config *Config
	Pool   *database.Pool
	Prober *health.Prober
	Issuer *auth.Issuer

	// Files serves card art. Nil disables the image endpoint.
	Files      filestore.Store
	PresignTTL time.Duration

	// Metrics adds request instrumentation, pool metrics and GET /metrics
	// when set.
	Metrics *metrics.Collector

	Logger *logger.Logger
}

// Server owns the router and the listener lifecycle. The route table and
// middleware chain are built once in New and never change afterwards.
type Server struct {
	cfg     *Config
	pool    *database.Pool
	prober  *health.Prober
	issuer  *auth.Issuer
	files   filestore.Store
	ttl     time.Duration
	metrics *metrics.Collector
	log     *logger.Logger
	cors    *CORS

	routes []Route
	mux    *chi.Mux
}

// New validates opts and builds the router.
func New(opts Options) (*Server, error) {
	switch {
	case opts.Config == nil:
		return nil, errs.New(errs.ErrKindConfig, "server config is required")
	case opts.Pool == nil:
		return nil, errs.New(errs.ErrKindConfig, "connection pool is required")
	case opts.Prober == nil:
		return nil, errs.New(errs.ErrKindConfig, "health prober is required")
	case opts.Issuer == nil:
		return nil, errs.New(errs.ErrKindConfig, "token issuer is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	ttl := opts.PresignTTL
	if ttl <= 0 {
		ttl = filestore.DefaultPresignTTL
	}

	s := &Server{
		cfg:     opts.Config,
		pool:    opts.Pool,
		prober:  opts.Prober,
		issuer:  opts.Issuer,
		files:   opts.Files,
		ttl:     ttl,
		metrics: opts.Metrics,
		log:     log.With().Str("component", "server").Logger(),
		cors:    NewCORS(opts.Config.CORS),
	}
	if s.metrics != nil {
		s.metrics.RegisterPool(s.pool)
	}
	s.routes = s.buildRoutes()
	s.mux = s.router()
	return s, nil
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(hlog.NewHandler(s.log.Zerolog()))
	r.Use(hlog.RequestIDHandler("request_id", "X-Request-Id"))
	r.Use(hlog.RemoteAddrHandler("remote_addr"))
	r.Use(hlog.AccessHandler(accessLog))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(s.cors.Handler)

	r.NotFound(s.notFound)
	r.MethodNotAllowed(s.methodNotAllowed)

	for _, rt := range s.routes {
		r.Method(rt.Method, rt.Pattern, rt.Handler)
	}
	return r
}

func accessLog(r *http.Request, status, size int, d time.Duration) {
	var route string
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		route = rctx.RoutePattern()
	}
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("route", route).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Msg("request")
}

// Run binds BindAddress and serves until ctx is cancelled. A bind failure
// is returned immediately.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.BindAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.BindAddress, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then drains
// in-flight requests for at most ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.mux,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.InfoWith("listening", map[string]any{"address": ln.Addr().String()})
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	s.log.Infof("shutting down, draining requests for up to %s", timeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.log.Info("server stopped")
	return nil
}
