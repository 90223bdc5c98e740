package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redactlabs/piiguard/internal/audit"
	"github.com/redactlabs/piiguard/internal/cache"
	"github.com/redactlabs/piiguard/internal/config"
	"github.com/redactlabs/piiguard/internal/detect"
	"github.com/redactlabs/piiguard/internal/logger"
	"github.com/redactlabs/piiguard/internal/pipeline"
	"github.com/redactlabs/piiguard/internal/schema"
	"github.com/redactlabs/piiguard/internal/web"
	"github.com/redactlabs/piiguard/internal/websocket"
	"go.uber.org/zap"
)

// Server is the piiguard HTTP service: schema registry, detector
// collaborators, reconciliation engine and the API surface around them.
type Server struct {
	config     *config.Config
	logger     *logger.Logger
	registry   *schema.Registry
	detectors  *detect.Engine
	reconciler *pipeline.Engine
	cache      *cache.ResultCache
	audit      *audit.Store
	router     *mux.Router
	server     *http.Server
	wsHub      *websocket.Hub
	limiter    *ipRateLimiter
	startedAt  time.Time
}

// New creates a new server instance. A schema that fails to load is fatal:
// the process must not serve traffic with a broken schema.
func New(cfg *config.Config, log *logger.Logger) (*Server, error) {
	registry, err := schema.Load(cfg.Detection.SchemaPath, log.WithComponent("schema"))
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	regexDetector, err := detect.NewRegexDetector(registry, log.WithComponent("detect"))
	if err != nil {
		return nil, fmt.Errorf("failed to create regex detector: %w", err)
	}

	detectors := []detect.Detector{
		regexDetector,
		detect.NewContextualDetector(log.WithComponent("detect")),
	}
	if cfg.Detection.Classifier.URL != "" {
		detectors = append(detectors, detect.NewRemoteDetector(
			cfg.Detection.Classifier.URL,
			cfg.Detection.Classifier.Timeout,
			log.WithComponent("detect"),
		))
	}

	wsHub := websocket.NewHub(&websocket.HubConfig{
		BroadcastRequests:   cfg.WebSocket.Events.BroadcastRequests,
		BroadcastDetections: cfg.WebSocket.Events.BroadcastDetections,
		BroadcastSystem:     cfg.WebSocket.Events.BroadcastSystem,
		AllowedOrigins:      cfg.WebSocket.AllowedOrigins,
		MaxConnections:      cfg.WebSocket.MaxConnections,
	}, log.WithComponent("websocket").Logger)

	s := &Server{
		config:     cfg,
		logger:     log.WithComponent("server"),
		registry:   registry,
		detectors:  detect.NewEngine(detectors, log.WithComponent("detect")),
		reconciler: pipeline.NewEngine(registry, log.WithComponent("pipeline")),
		router:     mux.NewRouter(),
		wsHub:      wsHub,
		limiter:    newIPRateLimiter(cfg.RateLimit),
		startedAt:  time.Now(),
	}

	// Result cache is an optimization: a Redis outage degrades to
	// uncached operation, it never blocks startup.
	if cfg.Cache.Enabled {
		resultCache, err := cache.NewResultCache(&cache.Config{
			RedisURL:       cfg.Cache.RedisURL,
			MaxConnections: cfg.Cache.MaxConnections,
			MinIdleConns:   cfg.Cache.MinIdleConns,
			DefaultTTL:     cfg.Cache.DefaultTTL,
			KeyPrefix:      cfg.Cache.KeyPrefix,
		}, log.WithComponent("cache").Logger)
		if err != nil {
			s.logger.Warn("Result cache unavailable, continuing without it", zap.Error(err))
		} else {
			s.cache = resultCache
		}
	}

	// The audit trail is a compliance feature: when enabled it must work.
	if cfg.Audit.Enabled {
		auditStore, err := audit.NewStore(&audit.Config{
			DatabaseURL:     cfg.Audit.DatabaseURL,
			MaxOpenConns:    cfg.Audit.MaxOpenConns,
			MaxIdleConns:    cfg.Audit.MaxIdleConns,
			ConnMaxLifetime: cfg.Audit.ConnMaxLifetime,
		}, log.WithComponent("audit").Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create audit store: %w", err)
		}
		s.audit = auditStore
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health and info endpoints
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	// Dashboard endpoint - embedded HTML
	s.router.HandleFunc("/", web.ServeDashboard).Methods("GET")
	s.router.HandleFunc("/dashboard", web.ServeDashboard).Methods("GET")

	// WebSocket endpoint for dashboard
	if s.config.WebSocket.Enabled {
		s.router.HandleFunc(s.config.WebSocket.Path, s.handleWebSocket).Methods("GET")
	}

	// Detection API
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.loggingMiddleware)
	api.Use(s.rateLimitMiddleware)
	api.HandleFunc("/detect", s.handleDetect).Methods("POST")
	api.HandleFunc("/anonymize", s.handleAnonymize).Methods("POST")
	api.HandleFunc("/schema", s.handleSchema).Methods("GET")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting piiguard server",
		zap.Int("port", s.config.Server.Port),
		zap.Int("schema_categories", s.registry.Len()),
		zap.Strings("detectors", s.detectors.Methods()),
		zap.Bool("cache_enabled", s.cache != nil),
		zap.Bool("audit_enabled", s.audit != nil),
	)

	// Start WebSocket hub in a separate goroutine
	go s.wsHub.Run()

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping piiguard server")

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			s.logger.Warn("Failed to close result cache", zap.Error(err))
		}
	}
	if s.audit != nil {
		if err := s.audit.Close(); err != nil {
			s.logger.Warn("Failed to close audit store", zap.Error(err))
		}
	}

	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().Format(time.RFC3339))
}

// handleInfo handles info requests
func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"name":              "piiguard",
		"detection_enabled": s.config.Detection.Enabled,
		"schema_categories": s.registry.Len(),
		"detectors":         s.detectors.Methods(),
		"min_confidence":    s.config.Detection.MinConfidence,
		"uptime":            time.Since(s.startedAt).String(),
		"span_anomalies":    s.reconciler.Anomalies(),
		"cache_enabled":     s.cache != nil,
		"audit_enabled":     s.audit != nil,
	}

	if s.cache != nil {
		if stats, err := s.cache.GetStats(r.Context()); err == nil {
			info["cache_stats"] = stats
		}
	}

	writeJSON(w, http.StatusOK, info)
}

// handleWebSocket handles WebSocket connections for the dashboard
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.wsHub.HandleWebSocket(w, r)
}

// writeJSON writes a JSON response body with the given status
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
