package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/astronomer/airflow-dbcleanup-plugin/internal/config"
)

// Server wraps the HTTP server hosting the cleanup API.
type Server struct {
	httpServer *http.Server
}

// NewServer creates the HTTP server with routes and middleware registered.
func NewServer(cfg *config.Config, handler *Handler) *Server {
	router := mux.NewRouter()
	router.Use(LoggingMiddleware())
	handler.RegisterRoutes(router)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Server.ListenAddr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// Start runs the server until it is shut down.
func (s *Server) Start(ctx context.Context) error {
	slog.InfoContext(ctx, "Starting HTTP server", "address", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	slog.InfoContext(ctx, "Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
