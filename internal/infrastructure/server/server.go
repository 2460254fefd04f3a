package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/zterm/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/zterm/internal/logging"
)

// Server exposes metrics and health over HTTP
type Server struct {
	srv      *http.Server
	listener net.Listener
	logger   *logging.Logger
	done     chan error
}

// New creates a server for the given metrics. It does not listen yet.
func New(addr string, metrics *monitoring.Metrics, logger *logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok\n")
	})

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logging.OrNop(logger).Component("server"),
		done:   make(chan error, 1),
	}
}

// Start binds the address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.srv.Addr, err)
	}
	s.listener = ln

	go func() {
		err := s.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
	}()

	s.logger.Info("Metrics server started", zap.String("addr", s.Addr()))
	return nil
}

// Addr returns the bound address, which differs from the configured one
// when port 0 was requested.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.srv.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return err
	}
	err := <-s.done
	s.logger.Info("Metrics server stopped")
	return err
}
