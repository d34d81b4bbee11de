// kiln-mcp serves the kiln tool surface over MCP stdio, so editors and
// coding agents can generate workspaces and chat without the HTTP API.
// Logs go to stderr; stdout belongs to the protocol.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/felixgeelhaar/kiln/internal/chat"
	"github.com/felixgeelhaar/kiln/internal/config"
	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/felixgeelhaar/kiln/internal/generate"
	"github.com/felixgeelhaar/kiln/internal/llm"
	"github.com/felixgeelhaar/kiln/internal/mcp"
	"github.com/felixgeelhaar/kiln/internal/prompt"
	"github.com/felixgeelhaar/kiln/internal/repository"
	"github.com/felixgeelhaar/kiln/internal/storage"
	"github.com/felixgeelhaar/kiln/internal/storage/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	ctx := context.Background()

	registry := llm.NewRegistry()
	resilience := llm.ResilientConfig{
		MaxAttempts:   cfg.LLMMaxAttempts,
		RatePerSecond: int(cfg.LLMRatePerSecond),
	}
	if cfg.GeminiAPIKey != "" {
		p := llm.NewGeminiProvider(llm.GeminiConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
		registry.Register(p.Name(), llm.NewResilientProvider(p, resilience))
	}
	if cfg.ClaudeAPIKey != "" {
		p := llm.NewClaudeProvider(llm.ClaudeConfig{APIKey: cfg.ClaudeAPIKey, Model: cfg.ClaudeModel})
		registry.Register(p.Name(), llm.NewResilientProvider(p, resilience))
	}
	if cfg.OpenAIAPIKey != "" {
		p := llm.NewOpenAIProvider(llm.OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel})
		registry.Register(p.Name(), llm.NewResilientProvider(p, resilience))
	}
	if err := registry.SetDefault(cfg.DefaultProvider); err != nil {
		slog.Warn("default provider not configured, using first registered", "provider", cfg.DefaultProvider)
	}

	var (
		projects      domain.ProjectRepository
		conversations domain.ConversationRepository
	)
	if cfg.DatabaseURL != "" {
		pool, err := storage.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		if err := storage.MigratePostgres(ctx, pool); err != nil {
			return fmt.Errorf("migrate postgres: %w", err)
		}
		projects = repository.NewProjectRepository(pool)
		conversations = repository.NewConversationRepository(pool)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Join(home, ".kiln"), 0o755); err != nil {
			return err
		}
		db, err := sqlite.Open(filepath.Join(home, ".kiln", cfg.SQLitePath))
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		defer db.Close()
		store := sqlite.NewStore(db)
		projects = store
		conversations = store
	}

	prompts := prompt.NewBuilder()
	generator := generate.NewService(registry, prompts, projects, generate.Config{
		Provider: cfg.DefaultProvider,
	}, slog.Default())
	chatSvc := chat.NewService(registry, prompts, generator, projects, conversations, chat.Config{
		Provider: cfg.DefaultProvider,
	}, slog.Default())

	server := mcp.NewServer(mcp.Config{
		Generator: generator,
		Chat:      chatSvc,
		Projects:  projects,
	})

	return server.ServeStdio(ctx)
}
