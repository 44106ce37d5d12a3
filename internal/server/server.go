/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/eventdesk/internal/api"
	"github.com/friendsincode/eventdesk/internal/artifact"
	"github.com/friendsincode/eventdesk/internal/cache"
	"github.com/friendsincode/eventdesk/internal/config"
	"github.com/friendsincode/eventdesk/internal/db"
	"github.com/friendsincode/eventdesk/internal/eventbus"
	"github.com/friendsincode/eventdesk/internal/events"
	"github.com/friendsincode/eventdesk/internal/project"
	"github.com/friendsincode/eventdesk/internal/render"
	"github.com/friendsincode/eventdesk/internal/storage"
	"github.com/friendsincode/eventdesk/internal/telemetry"
	"github.com/friendsincode/eventdesk/internal/version"
)

// connectionMetricsInterval is how often database pool gauges are refreshed.
const connectionMetricsInterval = 30 * time.Second

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db        *gorm.DB
	cache     *cache.Cache
	bus       *events.Bus
	bridge    *eventbus.NATSBridge
	store     storage.ObjectStore
	renderer  *render.Renderer
	projects  *project.Service
	artifacts *artifact.Service
	api       *api.API

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}))
	}
	router.Use(telemetry.TracingMiddleware("eventdesk-api"))
	router.Use(telemetry.MetricsMiddleware)
	// Renders get their own deadline; event streams have none.
	router.Use(func(next http.Handler) http.Handler {
		timeout := middleware.Timeout(cfg.RenderTimeout + 30*time.Second)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			timeout(next).ServeHTTP(w, r)
		})
	})

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Event streams are long-lived; the middleware timeout bounds everything else.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	s.cache = cache.FromConfig(s.cfg, s.logger)
	if s.cache != nil {
		s.DeferClose(s.cache.Close)
	}

	if s.cfg.NATSURL != "" {
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		natsCfg.Subject = s.cfg.NATSSubject
		bridge, err := eventbus.NewNATSBridge(natsCfg, s.bus, s.logger)
		if err != nil {
			// Single-instance operation still works without fan-out.
			s.logger.Warn().Err(err).Msg("NATS bridge unavailable, events stay local")
		} else {
			s.bridge = bridge
			s.DeferClose(bridge.Close)
		}
	}

	store, err := s.newObjectStore()
	if err != nil {
		return err
	}
	s.store = store

	s.renderer = render.NewRenderer(render.NewRodCapturer(s.cfg.BrowserBin, s.logger), s.cfg.RenderTimeout, s.logger)
	s.DeferClose(s.renderer.Close)

	s.projects = project.NewService(database, s.bus, s.cache, s.logger)
	s.artifacts = artifact.NewService(artifact.Config{
		DB:       database,
		Projects: s.projects,
		Renderer: s.renderer,
		Store:    s.store,
		Bus:      s.bus,
		Location: s.cfg.Location(),
	}, s.logger)
	s.api = api.New(s.projects, s.artifacts, s.bus, s.cfg.RenderRateLimit, s.logger)
	s.api.SetBaseURL(s.cfg.BaseURL)

	return nil
}

func (s *Server) newObjectStore() (storage.ObjectStore, error) {
	switch s.cfg.StorageBackend {
	case config.StorageS3:
		if s.cfg.S3AccessKeyID == "" || s.cfg.S3SecretAccessKey == "" {
			s.logger.Warn().Msg("S3 credentials not configured, falling back to the default AWS credential chain")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:          s.cfg.S3Bucket,
			Region:          s.cfg.S3Region,
			Endpoint:        s.cfg.S3Endpoint,
			AccessKeyID:     s.cfg.S3AccessKeyID,
			SecretAccessKey: s.cfg.S3SecretAccessKey,
			UsePathStyle:    s.cfg.S3UsePathStyle,
			PublicBaseURL:   s.cfg.S3PublicBaseURL,
		}, s.logger)
		if err != nil {
			return nil, fmt.Errorf("initialize S3 storage: %w", err)
		}
		return store, nil
	default:
		store, err := storage.NewFilesystemStore(s.cfg.ArtifactRoot, s.logger)
		if err != nil {
			return nil, fmt.Errorf("initialize artifact storage: %w", err)
		}
		s.logger.Info().Str("path", s.cfg.ArtifactRoot).Msg("artifact directory ready")
		return store, nil
	}
}

// HTTPServer exposes the configured HTTP server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases resources in reverse order of acquisition.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		ticker := time.NewTicker(connectionMetricsInterval)
		defer ticker.Stop()
		db.UpdateConnectionMetrics(s.db)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				db.UpdateConnectionMetrics(s.db)
			}
		}
	}()

	if s.cache != nil && s.bridge != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.runCacheInvalidationListener(ctx)
		}()
	}
}

// runCacheInvalidationListener drops cached timetables for projects changed
// on other instances. Instances sharing one Redis already agree through the
// version key; this covers instances with their own cache.
func (s *Server) runCacheInvalidationListener(ctx context.Context) {
	updated := s.bus.Subscribe(events.EventProjectUpdated)
	deleted := s.bus.Subscribe(events.EventProjectDeleted)
	defer func() {
		s.bus.Unsubscribe(events.EventProjectUpdated, updated)
		s.bus.Unsubscribe(events.EventProjectDeleted, deleted)
	}()

	s.logger.Info().Msg("cache invalidation listener started")

	for {
		var payload events.Payload
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("cache invalidation listener stopped")
			return
		case payload = <-updated:
		case payload = <-deleted:
		}

		if _, remote := payload[events.KeyOrigin]; !remote {
			continue
		}
		if id := payload.ProjectID(); id != "" {
			s.logger.Debug().Str("project_id", id).Msg("invalidating timetable cache (remote change)")
			if err := s.cache.InvalidateProject(ctx, id); err != nil {
				s.logger.Warn().Err(err).Str("project_id", id).Msg("cache invalidation failed")
			}
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		resp := map[string]any{
			"status":  "ok",
			"version": version.Version,
			"cache":   s.cache.IsAvailable(),
			"events":  s.bridge != nil,
		}
		if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(r.Context()) != nil {
			status = http.StatusServiceUnavailable
			resp["status"] = "degraded"
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	})

	if s.cfg.MetricsEnabled {
		s.router.Handle("/metrics", telemetry.Handler())
	}

	s.api.Routes(s.router)
}
