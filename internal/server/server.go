// Package server assembles the HTTP surface: routing, middleware, and the
// listener lifecycle.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"provider-verify/internal/common/config"
	"provider-verify/internal/common/errors"
	"provider-verify/internal/common/logger"
	adminhandler "provider-verify/internal/handlers/admin"
	"provider-verify/internal/handlers/checkcustomer"
	"provider-verify/internal/handlers/health"
	"provider-verify/internal/handlers/signup"
	"provider-verify/internal/handlers/uploadlicense"
	"provider-verify/internal/handlers/verifyemail"
	"provider-verify/internal/storage"
	"provider-verify/internal/verification"
)

type Server struct {
	httpServer *http.Server
	logger     logger.Logger
}

// New wires the handlers onto the router and returns a server ready to
// listen.
func New(cfg *config.Config, service *verification.Service, files *storage.LocalStore, redis health.Pinger, log logger.Logger) *Server {
	errHandler := errors.NewErrorHandler(log)

	signupHandler := signup.NewHandler(service, errHandler, log)
	verifyHandler := verifyemail.NewHandler(service, log, cfg.Uploads.MaxSizeBytes)
	uploadHandler := uploadlicense.NewHandler(service, errHandler, log, cfg.Uploads.MaxSizeBytes)
	adminHandler := adminhandler.NewHandler(service, files, errHandler, log, cfg.App.Name)
	checkHandler := checkcustomer.NewHandler(service, errHandler, log)
	healthHandler := health.NewHandler(cfg.App.Version, redis)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogging(log))
	r.Use(requestMetrics)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", healthHandler.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/signup", signupHandler.ServeHTTP)
		r.Get("/verify-email", verifyHandler.ServeHTTP)
		r.Post("/upload-license", uploadHandler.ServeHTTP)
		r.Post("/check-customer", checkHandler.ServeHTTP)

		r.Route("/admin", func(r chi.Router) {
			r.Use(adminAuth(cfg.Server.AdminToken, log))
			r.Get("/pending", adminHandler.Pending)
			r.Post("/approve/{customerId}", adminHandler.Approve)
			r.Post("/reject/{customerId}", adminHandler.Reject)
			r.Get("/license/{filename}", adminHandler.License)
		})
	})

	r.With(adminAuth(cfg.Server.AdminToken, log)).Get("/admin", adminHandler.Dashboard)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Server.Addr(),
			Handler:      r,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		},
		logger: log,
	}
}

// Start blocks serving requests until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{
		"addr": s.httpServer.Addr,
	})
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
