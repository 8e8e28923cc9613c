package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/gbid-catalog/internal/platform/logger"
)

type Server struct {
	Engine *gin.Engine

	log             *logger.Logger
	shutdownTimeout time.Duration
}

func NewServer(log *logger.Logger, engine *gin.Engine, shutdownTimeout time.Duration) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	return &Server{Engine: engine, log: log, shutdownTimeout: shutdownTimeout}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
// Long batch streams are cut off once the shutdown timeout elapses.
func (s *Server) Run(ctx context.Context, address string) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("HTTP server listening", "addr", address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("HTTP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return err
	}
	return nil
}
