// Package daemon exposes the kiln HTTP API: app and challenge
// generation, project chat, analysis, GitHub linking and the env gate.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/felixgeelhaar/kiln/internal/auth"
	"github.com/felixgeelhaar/kiln/internal/chat"
	"github.com/felixgeelhaar/kiln/internal/config"
	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/felixgeelhaar/kiln/internal/envgate"
	"github.com/felixgeelhaar/kiln/internal/generate"
	"github.com/felixgeelhaar/kiln/internal/guide"
	"github.com/felixgeelhaar/kiln/internal/learning"
	"github.com/felixgeelhaar/kiln/internal/llm"
	"github.com/felixgeelhaar/kiln/internal/queue"
	"github.com/felixgeelhaar/kiln/internal/snapshot"
)

// Server is the kiln HTTP server
type Server struct {
	cfg    *config.Config
	server *http.Server
	router *http.ServeMux

	registry  *llm.Registry
	generator *generate.Service
	chat      *chat.Service
	auth      *auth.Service // nil when GitHub OAuth is not configured
	gate      *envgate.Gate
	loader    *learning.Loader
	projects  domain.ProjectRepository
	producer  *queue.Producer  // nil when the queue is disabled
	poller    *snapshot.Poller // nil when background analysis is disabled

	teachMu  sync.Mutex
	teaching map[string]*guide.TeachingGuide
}

// Deps carries the wired services the server exposes
type Deps struct {
	Registry  *llm.Registry
	Generator *generate.Service
	Chat      *chat.Service
	Auth      *auth.Service
	Gate      *envgate.Gate
	Loader    *learning.Loader
	Projects  domain.ProjectRepository
	Producer  *queue.Producer
	Poller    *snapshot.Poller
}

// NewServer creates a new kiln server
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:       cfg,
		router:    http.NewServeMux(),
		registry:  deps.Registry,
		generator: deps.Generator,
		chat:      deps.Chat,
		auth:      deps.Auth,
		gate:      deps.Gate,
		loader:    deps.Loader,
		projects:  deps.Projects,
		producer:  deps.Producer,
		poller:    deps.Poller,
		teaching:  make(map[string]*guide.TeachingGuide),
	}

	s.setupRoutes()

	handler := http.Handler(s.router)
	if !cfg.Debug {
		// 60 generation-heavy requests a minute per client is plenty
		limiter := NewRateLimiter(60, time.Minute, 120)
		handler = rateLimitMiddleware(limiter)(handler)
	}
	handler = recoveryMiddleware(loggingMiddleware(correlationIDMiddleware(handler)))

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 240 * time.Second, // generation can be slow
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Handler returns the composed HTTP handler, used by tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)

	// Generation
	s.router.HandleFunc("POST /v1/generate/app", s.handleGenerateApp)
	s.router.HandleFunc("POST /v1/generate/challenge", s.handleGenerateChallenge)
	s.router.HandleFunc("POST /v1/analyze", s.handleAnalyze)

	// Chat
	s.router.HandleFunc("POST /v1/chat", s.handleChat)

	// Projects
	s.router.HandleFunc("GET /v1/projects/{id}", s.handleGetProject)
	s.router.HandleFunc("GET /v1/projects/{id}/overview", s.handleProjectOverview)
	s.router.HandleFunc("POST /v1/projects/{id}/modify", s.handleModifyProject)
	s.router.HandleFunc("POST /v1/projects/{id}/challenges/{cid}/hint", s.handleRevealHint)
	s.router.HandleFunc("DELETE /v1/projects/{id}", s.handleDeleteProject)

	// GitHub account linking
	s.router.HandleFunc("GET /v1/auth/github/login", s.handleGitHubLogin)
	s.router.HandleFunc("GET /v1/auth/github/callback", s.handleGitHubCallback)

	// Env gate
	s.router.HandleFunc("GET /v1/env/{key}", s.handleGetEnv)
	s.router.HandleFunc("PUT /v1/env/{key}", s.handleSetEnv)

	// Teaching content
	s.router.HandleFunc("GET /v1/learning/packs", s.handleListPacks)
	s.router.HandleFunc("POST /v1/teaching/sessions", s.handleCreateTeachingSession)
	s.router.HandleFunc("GET /v1/teaching/sessions/{id}", s.handleGetTeachingStep)
	s.router.HandleFunc("POST /v1/teaching/sessions/{id}/next", s.handleNextTeachingStep)
	s.router.HandleFunc("POST /v1/teaching/sessions/{id}/prev", s.handlePrevTeachingStep)
	s.router.HandleFunc("POST /v1/teaching/sessions/{id}/module", s.handleSelectTeachingModule)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	slog.Info("starting kiln daemon",
		"addr", s.server.Addr,
		"llm_providers", s.registry.List(),
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down daemon...")
	return s.server.Shutdown(ctx)
}

// Helper methods

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	s.jsonResponse(w, status, response)
}

// serviceError maps service failures onto HTTP statuses: temporary
// provider trouble surfaces as 429 so clients back off, other provider
// failures and unparseable model output as 502, missing entities as
// 404, everything else as 500.
func (s *Server) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrProjectNotFound),
		errors.Is(err, domain.ErrChallengeNotFound),
		errors.Is(err, domain.ErrConnectionNotFound),
		errors.Is(err, domain.ErrModuleNotFound):
		s.jsonError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, generate.ErrMalformedOutput):
		s.jsonError(w, http.StatusBadGateway, "model returned an unusable response, please retry", err)
	case llm.IsTemporary(err):
		s.jsonError(w, http.StatusTooManyRequests, "provider is rate limiting or overloaded, please retry", err)
	case errors.Is(err, llm.ErrProviderNotFound), errors.Is(err, llm.ErrNoDefaultProvider):
		s.jsonError(w, http.StatusInternalServerError, "no usable provider configured", err)
	case isProviderError(err):
		s.jsonError(w, http.StatusBadGateway, "provider request failed", err)
	default:
		s.jsonError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func isProviderError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "llm request") || strings.Contains(msg, "API error")
}
