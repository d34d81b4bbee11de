// kiln-worker consumes generation jobs from RabbitMQ and runs them
// against the configured LLM providers. Run it next to kilnd when
// generation should happen off the request path.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/felixgeelhaar/kiln/internal/config"
	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/felixgeelhaar/kiln/internal/generate"
	"github.com/felixgeelhaar/kiln/internal/llm"
	"github.com/felixgeelhaar/kiln/internal/prompt"
	"github.com/felixgeelhaar/kiln/internal/queue"
	"github.com/felixgeelhaar/kiln/internal/repository"
	"github.com/felixgeelhaar/kiln/internal/storage"
	"github.com/felixgeelhaar/kiln/internal/storage/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL must be set for the worker")
	}

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	ctx := context.Background()

	registry := buildRegistry(cfg)

	var projects domain.ProjectRepository
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
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		db, err := sqlite.Open(filepath.Join(home, ".kiln", cfg.SQLitePath))
		if err != nil {
			return fmt.Errorf("open sqlite: %w", err)
		}
		defer db.Close()
		projects = sqlite.NewStore(db)
	}

	prompts := prompt.NewBuilder()
	generator := generate.NewService(registry, prompts, projects, generate.Config{
		Provider: cfg.DefaultProvider,
	}, slog.Default())

	conn, err := queue.NewConnection(cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("connect rabbitmq: %w", err)
	}
	defer conn.Close()

	handler := newJobHandler(generator, projects)
	consumer := queue.NewConsumer(conn, handler, queue.DefaultConsumerConfig())
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	slog.Info("worker started, waiting for jobs")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	slog.Info("received signal, stopping", "signal", sig.String())
	consumer.Stop()
	return nil
}

// newJobHandler dispatches jobs by kind to the generation service
func newJobHandler(generator *generate.Service, projects domain.ProjectRepository) queue.JobHandler {
	return func(ctx context.Context, job *queue.GenerationJob) (*queue.GenerationResult, error) {
		switch job.Kind {
		case queue.KindApp:
			project, err := generator.GenerateApp(ctx, job.UserID, job.Input)
			if err != nil {
				return nil, err
			}
			return &queue.GenerationResult{
				ProjectID: project.ID,
				Summary:   fmt.Sprintf("generated %q with %d files and %d challenges", project.Name, len(project.Files), len(project.Challenges)),
			}, nil

		case queue.KindChallenge:
			challenge, err := generator.GenerateChallenge(ctx, job.ProjectID, job.Input, domain.DifficultyIntermediate)
			if err != nil {
				return nil, err
			}
			return &queue.GenerationResult{
				ProjectID:   job.ProjectID,
				ChallengeID: challenge.ID,
				Summary:     challenge.Title,
			}, nil

		case queue.KindModify:
			_, summary, err := generator.ModifyApp(ctx, job.ProjectID, job.Input)
			if err != nil {
				return nil, err
			}
			return &queue.GenerationResult{
				ProjectID: job.ProjectID,
				Summary:   summary,
			}, nil

		case queue.KindAnalyze:
			project, err := projects.GetByID(ctx, job.ProjectID)
			if err != nil {
				return nil, err
			}
			analysis, err := generator.AnalyzeCode(ctx, project.Files)
			if err != nil {
				return nil, err
			}
			return &queue.GenerationResult{
				ProjectID: job.ProjectID,
				Summary:   analysis.Summary,
			}, nil

		default:
			return nil, fmt.Errorf("unknown job kind %q", job.Kind)
		}
	}
}

// buildRegistry mirrors the daemon's provider wiring
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
