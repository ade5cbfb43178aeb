// Package httpapi serves the ATT&CK matrices over a small JSON REST API.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ethanolivertroy/attack-tui/internal/api"
	"github.com/ethanolivertroy/attack-tui/internal/config"
	"github.com/ethanolivertroy/attack-tui/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Server exposes the cached client over HTTP
type Server struct {
	cfg     config.APIConfig
	client  *api.Client
	logger  *logger.Logger
	version string
	started time.Time
}

// New creates a REST server reading through client
func New(cfg config.APIConfig, client *api.Client, log *logger.Logger, version string) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		cfg:     cfg,
		client:  client,
		logger:  log.WithComponent("httpapi"),
		version: version,
		started: time.Now(),
	}
}

// Handler sets up the chi router with all routes and middleware
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Get("/tactics", s.tactics)
		v1.Post("/refresh", s.refresh)

		v1.Route("/domains/{domain}", func(d chi.Router) {
			d.Get("/techniques", s.techniques)
			d.Get("/techniques/{id}", s.technique)
			d.Get("/matrix", s.matrix)
			d.Get("/stats", s.stats)
			d.Get("/layer", s.layer)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, http.StatusNotFound, "route not found", nil)
	})

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("REST API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("REST API server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down REST API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("REST API shutdown: %w", err)
	}
	return nil
}

// requestLogger logs one line per request once it completes
func requestLogger(log *logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				log.Debug().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}
