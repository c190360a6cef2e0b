// Package httpapi exposes the TINET services over a chi HTTP router.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/tkbstudios/tinet/internal/logging"
	"github.com/tkbstudios/tinet/internal/server/config"
	"github.com/tkbstudios/tinet/internal/server/services"
)

const (
	serviceName       = "TINET"
	serviceIdentifier = "tinet"
	serviceVersion    = "1.0.0"
)

const shutdownTimeout = 10 * time.Second

// Services bundles the business services the handlers call.
type Services struct {
	Accounts    *services.AccountService
	Credentials *services.CredentialStore
	Apps        *services.AppRegistry
	Grants      *services.GrantEngine
	Files       *services.FileStore
	Ledger      *services.LeaderboardLedger
	Audit       *services.AuditLog
}

type Server struct {
	address string
	cfg     *config.Config
	logger  logging.Logger
	svc     *Services
	handler http.Handler
}

func NewServer(cfg *config.Config, l logging.Logger, svc *Services) *Server {
	s := &Server{
		address: cfg.EndpointAddrHTTP,
		cfg:     cfg,
		logger:  l.With("module", "http_server"),
		svc:     svc,
	}
	s.handler = s.routes()
	return s
}

// Handler returns the fully wired router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {

	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
