package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/amethyx/accessbot/internal/rest/handler"
	"github.com/amethyx/accessbot/internal/rest/middleware/auth"
	"github.com/amethyx/accessbot/internal/setup/config"
	"github.com/klauspost/compress/gzhttp"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// Server timeouts.
const (
	ReadTimeout     = 5 * time.Second
	WriteTimeout    = 10 * time.Second
	ShutdownTimeout = 30 * time.Second
)

// NewHandler creates the HTTP handler for the inbound grant boundary.
func NewHandler(granter handler.Granter, cfg *config.API, logger *zap.Logger) http.Handler {
	grantHandler := handler.NewGrantHandler(granter, logger)
	authMiddleware := auth.New(cfg.Secret, logger)

	router := bunrouter.New()
	router.GET("/healthz", handler.Health)
	router.Use(authMiddleware.AsRESTMiddleware).
		POST("/add-access-role", grantHandler.AddAccessRole)

	return gzhttp.GzipHandler(router)
}

// Server serves the grant boundary until its context is cancelled.
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

// NewServer creates a server listening on the configured address.
func NewServer(granter handler.Granter, cfg *config.API, logger *zap.Logger) *Server {
	logger = logger.Named("rest")

	return &Server{
		srv: &http.Server{
			Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:      NewHandler(granter, cfg, logger),
			ReadTimeout:  ReadTimeout,
			WriteTimeout: WriteTimeout,
		},
		logger: logger,
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.srv.Addr, err)
	}

	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("REST server started", zap.String("addr", listener.Addr().String()))

		if err := s.srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down REST server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("Server gracefully stopped")

	return nil
}
