package http

// this is entry point of the http request handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"gitlab.com/codegrader.net/internal/config"
	"gitlab.com/codegrader.net/internal/core/ports/primary"
	"gitlab.com/codegrader.net/internal/core/services/grading"
	"gitlab.com/codegrader.net/internal/handlers"
	gradinghandler "gitlab.com/codegrader.net/internal/handlers/grading"
)

type ServiceProvider struct {
	gradingService grading.IGradingService
	verifier       primary.IdentityVerifier
	throttle       mux.MiddlewareFunc
}

// NewServiceProvider bundles what the handlers need. verifier and throttle
// may be nil.
func NewServiceProvider(
	gradingService grading.IGradingService,
	verifier primary.IdentityVerifier,
	throttle mux.MiddlewareFunc,
) *ServiceProvider {
	return &ServiceProvider{
		gradingService: gradingService,
		verifier:       verifier,
		throttle:       throttle,
	}
}

type Server struct {
	router          *mux.Router
	srv             *http.Server
	cfg             *config.HTTPConfig
	ServiceName     string
	ServiceProvider ServiceProvider
	logger          primary.Logger
}

func NewServer(cfg *config.HTTPConfig, serviceName string, serviceProvider ServiceProvider, logger primary.Logger) *Server {
	return &Server{
		cfg:             cfg,
		ServiceName:     serviceName,
		ServiceProvider: serviceProvider,
		logger:          logger,
	}
}

func (s *Server) Init() error {
	if s.ServiceProvider.gradingService == nil {
		return errors.New("grading service is required")
	}
	r := mux.NewRouter()
	handlers.NewHealthHandler().RegisterRoutes(r)

	r.Use(handlers.New(s.ServiceProvider.verifier, s.logger).JWTMiddleware)
	gradinghandler.
		NewGradingHandler(s.ServiceProvider.gradingService, s.cfg.MaxBodyBytes, s.logger).
		RegisterRoutes(r, s.ServiceProvider.throttle)

	s.router = r
	return nil
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves in the background. Listen errors are sent on the returned
// channel.
func (s *Server) Start(_ context.Context) <-chan error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "addr", s.srv.Addr, "service", s.ServiceName)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", "error", err)
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Stop drains in-flight requests until ctx expires
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down http server...")
	if s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}
	return nil
}
