// Package rest is the HTTP/JSON surface of the share-places API.
package rest

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/shareplaces/internal/logging"
	"github.com/dmitrijs2005/shareplaces/internal/metrics"
	"github.com/dmitrijs2005/shareplaces/internal/server/config"
	"github.com/dmitrijs2005/shareplaces/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	address       string
	users         *services.UserService
	places        *services.PlaceService
	blobs         services.BlobStore
	metrics       *metrics.Metrics
	logger        logging.Logger
	jwtSecret     []byte
	origins       []string
	authRateLimit int
}

func NewServer(cfg *config.Config, l logging.Logger, us *services.UserService, ps *services.PlaceService,
	blobs services.BlobStore, m *metrics.Metrics) *Server {
	return &Server{
		address:       cfg.HTTPAddr,
		logger:        l.With("module", "http_server"),
		users:         us,
		places:        ps,
		blobs:         blobs,
		metrics:       m,
		jwtSecret:     []byte(cfg.SecretKey),
		origins:       cfg.AllowedOrigins,
		authRateLimit: cfg.AuthRateLimit,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "HTTP server graceful shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
