// Package generate turns app ideas into project workspaces and
// challenges by prompting an LLM provider and extracting the JSON
// payload from its response.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/felixgeelhaar/kiln/internal/extract"
	"github.com/felixgeelhaar/kiln/internal/llm"
	"github.com/felixgeelhaar/kiln/internal/prompt"
	"github.com/google/uuid"
)

// ErrMalformedOutput indicates the model responded but the response did
// not contain the expected JSON payload. Callers should surface this
// differently from provider failures: the upstream call succeeded.
var ErrMalformedOutput = errors.New("model output did not match the expected format")

// Config carries generation defaults applied to every request
type Config struct {
	Provider    string // registry name; empty uses the default provider
	Model       string // empty uses the provider's default model
	MaxTokens   int
	Temperature float64
}

// Service generates apps, challenges and code analyses
type Service struct {
	registry *llm.Registry
	prompts  *prompt.Builder
	projects domain.ProjectRepository
	cfg      Config
	logger   *slog.Logger
}

// NewService creates a new generation service
func NewService(registry *llm.Registry, prompts *prompt.Builder, projects domain.ProjectRepository, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8192
	}
	return &Service{
		registry: registry,
		prompts:  prompts,
		projects: projects,
		cfg:      cfg,
		logger:   logger,
	}
}

type appPayload struct {
	ProjectName string               `json:"projectName"`
	Description string               `json:"description"`
	Files       []domain.ProjectFile `json:"files"`
	Challenges  []challengePayload   `json:"challenges"`
}

type challengePayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Difficulty  string   `json:"difficulty"`
	Type        string   `json:"type"`
	FilePaths   []string `json:"filePaths"`
	Hints       []string `json:"hints"`
}

type modifyPayload struct {
	Files   []domain.ProjectFile `json:"files"`
	Summary string               `json:"summary"`
}

// GenerateApp produces a complete project from an idea and persists it
func (s *Service) GenerateApp(ctx context.Context, userID uuid.UUID, idea string) (*domain.Project, error) {
	var payload appPayload
	if err := s.generateJSON(ctx, s.prompts.AppSystemPrompt(), s.prompts.AppPrompt(idea), &payload); err != nil {
		return nil, err
	}
	if payload.ProjectName == "" || len(payload.Files) == 0 {
		return nil, fmt.Errorf("%w: missing project name or files", ErrMalformedOutput)
	}

	now := time.Now()
	project := &domain.Project{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        payload.ProjectName,
		Description: payload.Description,
		Files:       payload.Files,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, cp := range payload.Challenges {
		project.Challenges = append(project.Challenges, buildChallenge(project, cp, now))
	}

	if err := s.projects.Upsert(ctx, project); err != nil {
		return nil, fmt.Errorf("persist project: %w", err)
	}

	s.logger.Info("app generated",
		"project_id", project.ID,
		"files", len(project.Files),
		"challenges", len(project.Challenges))
	return project, nil
}

// GenerateChallenge produces one additional challenge for an existing
// project and persists it
func (s *Service) GenerateChallenge(ctx context.Context, projectID uuid.UUID, topic string, difficulty domain.Difficulty) (*domain.Challenge, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var payload challengePayload
	system := s.prompts.ChallengeSystemPrompt()
	user := s.prompts.ChallengePrompt(project, topic, difficulty)
	if err := s.generateJSON(ctx, system, user, &payload); err != nil {
		return nil, err
	}
	if payload.Title == "" {
		return nil, fmt.Errorf("%w: missing challenge title", ErrMalformedOutput)
	}

	challenge := buildChallenge(project, payload, time.Now())
	if err := s.projects.UpsertChallenge(ctx, challenge); err != nil {
		return nil, fmt.Errorf("persist challenge: %w", err)
	}

	s.logger.Info("challenge generated", "project_id", projectID, "challenge_id", challenge.ID)
	return challenge, nil
}

// ModifyApp rewrites project files according to an instruction and
// persists the result. Returns the updated project and a summary of
// the change.
func (s *Service) ModifyApp(ctx context.Context, projectID uuid.UUID, instruction string) (*domain.Project, string, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, "", err
	}

	var payload modifyPayload
	system := s.prompts.ModifySystemPrompt()
	user := s.prompts.ModifyPrompt(project, instruction)
	if err := s.generateJSON(ctx, system, user, &payload); err != nil {
		return nil, "", err
	}
	if len(payload.Files) == 0 {
		return nil, "", fmt.Errorf("%w: no files in modification", ErrMalformedOutput)
	}

	for _, f := range payload.Files {
		project.UpsertFile(f.Path, f.Content)
	}

	if err := s.projects.Upsert(ctx, project); err != nil {
		return nil, "", fmt.Errorf("persist project: %w", err)
	}

	s.logger.Info("app modified", "project_id", projectID, "files_changed", len(payload.Files))
	return project, payload.Summary, nil
}

// AnalyzeCode reviews a set of files and returns the structured result
func (s *Service) AnalyzeCode(ctx context.Context, files []domain.ProjectFile) (*domain.CodeAnalysis, error) {
	var analysis domain.CodeAnalysis
	system := s.prompts.AnalyzeSystemPrompt()
	user := s.prompts.AnalyzePrompt(files)
	if err := s.generateJSON(ctx, system, user, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (s *Service) generateJSON(ctx context.Context, system, user string, v any) error {
	provider, err := s.provider()
	if err != nil {
		return err
	}

	resp, err := provider.Generate(ctx, &llm.Request{
		Model:       s.cfg.Model,
		System:      system,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: user}},
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return fmt.Errorf("llm request: %w", err)
	}

	if err := extract.JSON(resp.Content, v); err != nil {
		s.logger.Warn("unparseable model output",
			"provider", provider.Name(),
			"finish_reason", resp.FinishReason,
			"error", err)
		return fmt.Errorf("%w: %w", ErrMalformedOutput, err)
	}
	return nil
}

func (s *Service) provider() (llm.Provider, error) {
	if s.cfg.Provider != "" {
		return s.registry.Get(s.cfg.Provider)
	}
	return s.registry.Default()
}

func buildChallenge(project *domain.Project, cp challengePayload, now time.Time) *domain.Challenge {
	// Drop references to files the model invented
	paths := cp.FilePaths[:0:0]
	for _, path := range cp.FilePaths {
		if project.File(path) != nil {
			paths = append(paths, path)
		}
	}

	challengeType := domain.ChallengeType(cp.Type)
	switch challengeType {
	case domain.TypeImplementation, domain.TypeBugfix, domain.TypeFeature:
	default:
		challengeType = domain.TypeImplementation
	}

	return &domain.Challenge{
		ID:          uuid.New(),
		ProjectID:   project.ID,
		Title:       cp.Title,
		Description: cp.Description,
		Difficulty:  domain.ParseDifficulty(cp.Difficulty),
		Type:        challengeType,
		FilePaths:   paths,
		Hints:       cp.Hints,
		Status:      domain.StatusNotStarted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
