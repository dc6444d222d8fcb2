package api

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/outreach-engine/internal/auth"
	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/keystore"
	"github.com/ignite/outreach-engine/internal/leads"
	"github.com/ignite/outreach-engine/internal/prompts"
	"github.com/ignite/outreach-engine/internal/templates"
)

// Server is the HTTP server wiring all handlers together
type Server struct {
	cfg        *config.Config
	httpServer *http.Server

	authManager *auth.Manager
	tenants     *TenantProvider
	rateLimiter *RateLimiter

	generation      *GenerationHandlers
	personalization *PersonalizationHandlers
	exports         *ExportHandlers
	templatesH      *TemplateHandlers
	health          *HealthHandler
}

// NewServer creates a fully wired server.
func NewServer(cfg *config.Config, db *sql.DB, redisClient *redis.Client, authManager *auth.Manager, promptMgr *prompts.Manager, keys *keystore.Store) *Server {
	// A nil *auth.Manager must stay a nil SessionReader, not a typed nil.
	var sessions SessionReader
	if authManager != nil {
		sessions = authManager
	}

	s := &Server{
		cfg:             cfg,
		authManager:     authManager,
		tenants:         NewTenantProvider(db, sessions),
		rateLimiter:     NewRateLimiter(redisClient, cfg.AI.RateLimitPerMin, time.Minute),
		generation:      NewGenerationHandlers(promptMgr, keys, cfg.AI),
		personalization: NewPersonalizationHandlers(),
		exports:         NewExportHandlers(leads.NewStore(db)),
		templatesH:      NewTemplateHandlers(templates.NewEngine()),
		health:          NewHealthHandler(db, redisClient),
	}

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.GetHost(), cfg.Server.Port),
		Handler: s.buildRouter(),
		// Generation calls can legitimately run for tens of seconds when
		// streaming; keep write timeout generous.
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	log.Printf("Server: Listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
