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
	"golang.org/x/sync/errgroup"

	"github.com/smallbiznis/fintrack-auth/internal/config"
)

// HTTPServer serves the gin engine and drains it on cancellation.
type HTTPServer struct {
	Engine *gin.Engine

	addr              string
	readHeaderTimeout time.Duration
	shutdownTimeout   time.Duration
	logger            *zap.Logger
}

// NewHTTPServer wraps the router. Unsupported methods fall through to NoRoute.
func NewHTTPServer(router *gin.Engine, cfg config.Config, logger *zap.Logger) *HTTPServer {
	router.HandleMethodNotAllowed = false
	router.ForwardedByClientIP = true
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPServer{
		Engine:            router,
		addr:              ":" + cfg.HTTPPort,
		readHeaderTimeout: cfg.HTTPReadHeaderTimeout,
		shutdownTimeout:   cfg.HTTPShutdownTimeout,
		logger:            logger,
	}
}

// Listen binds the configured port.
func (s *HTTPServer) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", s.addr, err)
	}
	return ln, nil
}

// Serve accepts on ln until ctx is done, then shuts down gracefully.
// ln is closed on return.
func (s *HTTPServer) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Engine,
		ReadHeaderTimeout: s.readHeaderTimeout,
		ErrorLog:          zap.NewStdLog(s.logger.Named("http")),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := s.shutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		s.logger.Info("http server drained")
		return nil
	})

	return g.Wait()
}
