package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/felixgeelhaar/kiln/internal/auth"
	"github.com/felixgeelhaar/kiln/internal/chat"
	"github.com/felixgeelhaar/kiln/internal/config"
	"github.com/felixgeelhaar/kiln/internal/daemon"
	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/felixgeelhaar/kiln/internal/envgate"
	"github.com/felixgeelhaar/kiln/internal/generate"
	"github.com/felixgeelhaar/kiln/internal/learning"
	"github.com/felixgeelhaar/kiln/internal/llm"
	"github.com/felixgeelhaar/kiln/internal/prompt"
	"github.com/felixgeelhaar/kiln/internal/queue"
	"github.com/felixgeelhaar/kiln/internal/repository"
	"github.com/felixgeelhaar/kiln/internal/snapshot"
	"github.com/felixgeelhaar/kiln/internal/storage"
	"github.com/felixgeelhaar/kiln/internal/storage/sqlite"
	"github.com/google/uuid"
)

const pidFileName = "kilnd.pid"

func main() {
	if err := run(); err != nil {
		slog.Error("daemon error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	kilnDir, err := ensureKilnDir()
	if err != nil {
		return fmt.Errorf("ensure kiln dir: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	logFile, err := setupLogging(kilnDir, logLevel)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	pidPath := filepath.Join(kilnDir, pidFileName)
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	ctx := context.Background()

	registry := buildRegistry(cfg)

	// Storage: PostgreSQL when configured, a local SQLite file otherwise
	var (
		projects      domain.ProjectRepository
		conversations domain.ConversationRepository
		githubRepo    domain.GitHubRepository
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
		githubRepo = repository.NewGitHubRepository(pool)
		slog.Info("using postgres storage")
	} else {
		db, err := sqlite.Open(filepath.Join(kilnDir, cfg.SQLitePath))
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		defer db.Close()
		store := sqlite.NewStore(db)
		projects = store
		conversations = store
		githubRepo = sqlite.NewGitHubStore(db)
		slog.Info("using local sqlite storage", "path", cfg.SQLitePath)
	}

	prompts := prompt.NewBuilder()
	generator := generate.NewService(registry, prompts, projects, generate.Config{
		Provider: cfg.DefaultProvider,
	}, slog.Default())
	chatSvc := chat.NewService(registry, prompts, generator, projects, conversations, chat.Config{
		Provider: cfg.DefaultProvider,
	}, slog.Default())

	var authSvc *auth.Service
	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret != "" {
		authSvc = auth.NewService(auth.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.GitHubRedirectURL,
		}, githubRepo)
	}

	gate := envgate.New(cfg.EnvAllowList)
	for _, key := range cfg.EnvAllowList {
		if v := os.Getenv(key); v != "" {
			if err := gate.Set(key, v); err != nil {
				return fmt.Errorf("seed env gate: %w", err)
			}
		}
	}

	var producer *queue.Producer
	if cfg.RabbitMQURL != "" {
		conn, err := queue.NewConnection(cfg.RabbitMQURL)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer conn.Close()
		producer = queue.NewProducer(conn)
		slog.Info("generation queue enabled")
	}

	// Background analysis of edited workspaces
	poller := snapshot.NewPoller(projects, generator, func(projectID uuid.UUID, analysis *domain.CodeAnalysis) {
		slog.Info("workspace analyzed",
			"project_id", projectID,
			"issues", len(analysis.Issues),
			"has_errors", analysis.HasErrors())
	}, snapshot.Config{
		Interval: time.Duration(cfg.SnapshotInterval) * time.Second,
		Debounce: time.Duration(cfg.SnapshotDebounce) * time.Second,
	}, slog.Default())
	poller.Start(ctx)
	defer poller.Stop()

	server := daemon.NewServer(cfg, daemon.Deps{
		Registry:  registry,
		Generator: generator,
		Chat:      chatSvc,
		Auth:      authSvc,
		Gate:      gate,
		Loader:    learning.NewLoader(cfg.LearningPath),
		Projects:  projects,
		Producer:  producer,
		Poller:    poller,
	})

	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh

		slog.Info("received signal, shutting down", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
		close(done)
	}()

	if err := server.Start(); err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	slog.Info("daemon stopped")
	return nil
}

// buildRegistry registers every provider with a configured API key,
// each wrapped with retry, circuit breaking and rate limiting
func buildRegistry(cfg *config.Config) *llm.Registry {
	registry := llm.NewRegistry()
	resilience := llm.ResilientConfig{
		MaxAttempts:   cfg.LLMMaxAttempts,
		RatePerSecond: int(cfg.LLMRatePerSecond),
		Logger:        slog.Default(),
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
	return registry
}

func ensureKilnDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".kiln")
	for _, sub := range []string{"", "logs"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return "", err
		}
	}
	return dir, nil
}

func setupLogging(kilnDir string, level slog.Level) (*os.File, error) {
	logPath := filepath.Join(kilnDir, "logs", "kilnd.log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	handler := slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level: level,
	})

	// Also log to stderr for foreground mode
	multi := &multiHandler{
		handlers: []slog.Handler{
			handler,
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: level,
			}),
		},
	}

	slog.SetDefault(slog.New(multi))

	return logFile, nil
}

func writePIDFile(path string) error {
	pid := os.Getpid()
	return os.WriteFile(path, []byte(fmt.Sprintf("%d\n", pid)), 0644)
}

// multiHandler logs to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
