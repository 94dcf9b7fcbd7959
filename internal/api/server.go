// Package api provides the Reformed Chapter REST API server.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/FocuswithJustin/ReformedChapter/internal/catalog"
	"github.com/FocuswithJustin/ReformedChapter/internal/donate"
	"github.com/FocuswithJustin/ReformedChapter/internal/importer"
	"github.com/FocuswithJustin/ReformedChapter/internal/logging"
	"github.com/FocuswithJustin/ReformedChapter/internal/server"
	"github.com/FocuswithJustin/ReformedChapter/internal/store"
)

// Server serves the REST API over a store.
type Server struct {
	cfg       Config
	store     store.Store
	catalog   *catalog.Catalog
	importer  *importer.Importer
	jobs      *importer.JobStore
	donations *donate.Service
	hub       *Hub
	limiter   *RateLimiter
	upgrader  *websocket.Upgrader
	started   time.Time
}

// NewServer wires the API over st. donations may be nil, in which case the
// donation endpoints answer 503.
func NewServer(cfg Config, st store.Store, donations *donate.Service) (*Server, error) {
	if err := ValidateAuthConfig(cfg.Auth); err != nil {
		return nil, fmt.Errorf("invalid auth config: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		store:     st,
		catalog:   catalog.New(st, catalog.WithWorkers(cfg.Workers)),
		importer:  importer.New(st),
		jobs:      importer.NewJobStore(),
		donations: donations,
		hub:       NewHub(),
		upgrader:  newUpgrader(cfg.AllowedOrigins),
		started:   time.Now(),
	}
	s.jobs.OnUpdate = s.hub.BroadcastJob
	if cfg.RateLimitRequests > 0 {
		s.limiter = NewRateLimiter(RateLimiterConfig{
			RequestsPerMinute: cfg.RateLimitRequests,
			BurstSize:         cfg.RateLimitBurst,
		})
	}
	return s, nil
}

// Jobs exposes the import job store.
func (s *Server) Jobs() *importer.JobStore {
	return s.jobs
}

// routes configures all HTTP routes.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /books", s.handleBooks)
	mux.HandleFunc("GET /books/{book}", s.handleBook)
	mux.HandleFunc("GET /books/{book}/chapters/{chapter}", s.handleChapter)
	mux.HandleFunc("GET /resolve", s.handleResolve)
	mux.HandleFunc("GET /authors", s.handleAuthors)
	mux.HandleFunc("POST /donations/payment-intent", s.handleDonation)
	mux.HandleFunc("POST /api/create-payment-intent", s.handleLegacyPaymentIntent)
	mux.HandleFunc("POST /submissions", s.handleCreateSubmission)
	mux.HandleFunc("GET /submissions", s.handleListSubmissions)
	mux.HandleFunc("GET /submissions/{id}", s.handleGetSubmission)
	mux.HandleFunc("POST /submissions/{id}/approve", s.handleApproveSubmission)
	mux.HandleFunc("POST /imports", s.handleCreateImport)
	mux.HandleFunc("GET /imports", s.handleListImports)
	mux.HandleFunc("GET /imports/{id}", s.handleGetImport)
	mux.HandleFunc("DELETE /imports/{id}", s.handleCancelImport)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /sitemap.xml", s.handleSitemap)
	mux.HandleFunc("/", handleNotFound)

	return mux
}

// Handler returns the routes wrapped in the middleware chain. From the
// outside in: request logging, CORS, rate limiting, authentication,
// security headers.
func (s *Server) Handler() http.Handler {
	var handler http.Handler = server.SecurityHeadersWithCSP(server.APICSPConfig(), s.routes())
	handler = AuthMiddleware(s.cfg.Auth, handler)
	if s.limiter != nil {
		handler = s.limiter.Middleware(handler)
	}
	handler = server.CORSMiddlewareWithConfig(server.CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}, handler)
	return logging.CombinedMiddleware(handler)
}

// Run starts the hub and background workers and serves until ctx is
// done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	if s.cfg.TLS.Enabled {
		if s.cfg.TLS.CertFile == "" || s.cfg.TLS.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert or key file not specified")
		}
		if _, err := os.Stat(s.cfg.TLS.CertFile); err != nil {
			return fmt.Errorf("TLS cert file not found: %w", err)
		}
		if _, err := os.Stat(s.cfg.TLS.KeyFile); err != nil {
			return fmt.Errorf("TLS key file not found: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.hub.Run(ctx)
	if s.limiter != nil {
		go s.limiter.Cleanup(ctx)
		logging.Info("rate limiting enabled",
			"requests_per_minute", s.cfg.RateLimitRequests,
			"burst_size", s.limiter.config.BurstSize)
	}
	s.logSecurityConfig()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	protocol := "http"
	if s.cfg.TLS.Enabled {
		protocol = "https"
	}
	logging.ServerStartup("rest_api", protocol, s.cfg.Port, "version", Version)

	errCh := make(chan error, 1)
	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			err = srv.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info("shutting down", "server", "rest_api")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.jobs.Wait()
	return nil
}

func (s *Server) logSecurityConfig() {
	if s.cfg.Auth.Enabled {
		logging.SecurityEvent("authentication_configured", "api",
			"enabled", true,
			"note", "API key required for moderation and imports")
	} else {
		logging.SecurityEvent("authentication_configured", "api",
			"enabled", false,
			"note", "moderation and import endpoints disabled")
	}

	if len(s.cfg.AllowedOrigins) > 0 {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "restricted",
			"allowed_origins_count", len(s.cfg.AllowedOrigins))
	} else {
		logging.SecurityEvent("cors_configured", "api",
			"mode", "permissive",
			"note", "allowing all origins (*)")
	}

	if !s.cfg.TLS.Enabled {
		logging.Warn("TLS disabled - using plain HTTP",
			"recommendation", "terminate TLS at a reverse proxy in production")
	}
}
