package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/virtuolot/showroom-assist-service/config"
)

// Server wraps the net/http server with the lifecycle the app expects:
// bind synchronously so a taken port fails startup, then serve in the
// background until shutdown.
type Server struct {
	logger          *slog.Logger
	srv             *http.Server
	addr            string
	shutdownTimeout time.Duration
}

func NewServer(cfg *config.Config, router chi.Router, logger *slog.Logger) *Server {
	return &Server{
		logger:          logger,
		addr:            cfg.Service.Addr(),
		shutdownTimeout: cfg.Service.ShutdownTimeout,
		srv: &http.Server{
			Handler: router,
			// No Read/WriteTimeout: the websocket endpoints hold their
			// connections open and manage deadlines per message.
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Start binds the listener and begins serving. A bind failure is returned to
// the caller and aborts startup.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.logger.Info("HTTP_SERVER_STARTED", "addr", s.addr)

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP_SERVER_FAILED", "err", err)
		}
	}()

	return nil
}

// Stop drains in-flight JSON requests and closes the listener. Hijacked
// websocket connections are not waited for; their pumps end with the process.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Warn("HTTP_SERVER_SHUTDOWN_FORCED", "err", err)
		return s.srv.Close()
	}

	s.logger.Info("HTTP_SERVER_STOPPED")
	return nil
}
