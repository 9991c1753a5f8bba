// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package server

import (
	"context"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/authnd/authnd/internal/config"
	"github.com/authnd/authnd/pkg/health"
	"github.com/authnd/authnd/pkg/passkey"
	passkeyhttp "github.com/authnd/authnd/pkg/passkey/http"
	"github.com/authnd/authnd/pkg/ratelimit"
	"github.com/authnd/authnd/pkg/storage"
)

// Server assembles the relying-party service, its stores and the HTTP
// surface from a configuration.
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	service    *passkey.Service
	challenges *passkey.MemoryChallengeStore
	limiter    *ratelimit.Limiter
	backend    storage.Backend
	httpServer *http.Server
	stopSweep  context.CancelFunc
}

// New builds a Server from the configuration.
func New(cfg *config.Config) (*Server, error) {
	logger := newLogger(cfg.Logging)

	backend, err := newBackend(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("create storage backend: %w", err)
	}

	var users passkey.UserStore
	var creds passkey.CredentialStore
	if backend != nil {
		users = passkey.NewKVUserStore(backend)
		creds = passkey.NewKVCredentialStore(backend)
	} else {
		users = passkey.NewMemoryUserStore()
		creds = passkey.NewMemoryCredentialStore()
	}

	challenges := passkey.NewMemoryChallengeStore(cfg.Session.TTL.Std())

	tokens, err := newTokenIssuer(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create token issuer: %w", err)
	}

	service, err := passkey.NewService(passkey.Params{
		Config:          cfg.RP.ToPasskey(),
		UserStore:       users,
		CredentialStore: creds,
		ChallengeStore:  challenges,
		TokenIssuer:     tokens,
	})
	if err != nil {
		return nil, fmt.Errorf("create passkey service: %w", err)
	}

	limiter := ratelimit.New(cfg.RateLimit.ToLimiter())

	s := &Server{
		cfg:        cfg,
		logger:     logger,
		service:    service,
		challenges: challenges,
		limiter:    limiter,
		backend:    backend,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger { return s.logger }

// router builds the HTTP routing table.
func (s *Server) router() http.Handler {
	handler := passkeyhttp.NewHandler(s.service).WithLogger(s.logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1/passkey", func(r chi.Router) {
		if s.limiter.IsEnabled() {
			// Only the unauthenticated start endpoints allocate
			// server-side state per request.
			r.Group(func(r chi.Router) {
				r.Use(ratelimit.Middleware(s.limiter))
				r.Post("/registration/begin", handler.BeginRegistration)
				r.Post("/login/begin", handler.BeginLogin)
			})
			r.Post("/registration/finish", handler.FinishRegistration)
			r.Get("/registration/status", handler.RegistrationStatus)
			r.Post("/login/finish", handler.FinishLogin)
		} else {
			passkeyhttp.MountChi(r, handler)
		}
	})

	checker := health.NewChecker()
	if s.backend != nil {
		backend := s.backend
		checker.Register("storage", func(context.Context) error {
			_, err := backend.Exists("health/probe")
			return err
		})
	}
	r.Get("/healthz", checker.LiveHandler)
	r.Get("/readyz", checker.ReadyHandler)

	if s.cfg.Metrics.Enabled {
		path := s.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler())
	}

	return r
}

// Start runs the HTTP listener and the ceremony sweep routine. It blocks
// until the listener stops.
func (s *Server) Start() error {
	if interval := s.cfg.Session.SweepInterval.Std(); interval > 0 {
		s.stopSweep = s.challenges.StartSweep(context.Background(), interval)
	}

	s.logger.Info("server listening",
		"addr", s.cfg.Server.Addr(),
		"rp_id", s.cfg.RP.ID)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if s.stopSweep != nil {
		s.stopSweep()
	}
	s.limiter.Stop()

	err := s.httpServer.Shutdown(ctx)
	if s.backend != nil {
		if cerr := s.backend.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

func newBackend(cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case "", "memory":
		// Memory stores are used directly, without the KV layer.
		return nil, nil
	case "file":
		return storage.NewFile(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

func newTokenIssuer(cfg config.TokenConfig) (passkey.TokenIssuer, error) {
	if cfg.Type != "jwt" {
		return nil, nil
	}

	key, err := loadSigningKey(cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	return passkey.NewJWTIssuer(key, cfg.Issuer, cfg.Lifetime.Std())
}

// loadSigningKey reads a PEM-encoded private key.
func loadSigningKey(path string) (crypto.PrivateKey, error) {
	// #nosec G304 - key file path is provided by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read signing key: %w", err)
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in %s", path)
	}

	if key, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("unsupported private key format in %s", path)
}
