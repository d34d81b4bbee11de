// Package mcp exposes kiln's generation and chat surface as MCP tools,
// so editors and agents can drive a workspace without the HTTP API.
package mcp

import (
	"context"
	"fmt"

	mcp "github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/server"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/kiln/internal/chat"
	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/felixgeelhaar/kiln/internal/generate"
	"github.com/felixgeelhaar/kiln/internal/guide"
)

// Server wraps the MCP server with kiln functionality
type Server struct {
	mcpServer *server.Server
	generator *generate.Service
	chat      *chat.Service
	projects  domain.ProjectRepository
}

// Config contains configuration for the MCP server
type Config struct {
	Generator *generate.Service
	Chat      *chat.Service
	Projects  domain.ProjectRepository
}

// NewServer creates a new MCP server for kiln
func NewServer(cfg Config) *Server {
	s := &Server{
		generator: cfg.Generator,
		chat:      cfg.Chat,
		projects:  cfg.Projects,
	}

	s.mcpServer = server.New(server.Info{
		Name:    "kiln",
		Version: "0.1.0",
	}, server.WithInstructions(`
Kiln generates small practice applications and coding challenges.

Available tools:
- kiln_generate_app: Generate a project workspace from an app idea
- kiln_generate_challenge: Add a challenge to an existing project
- kiln_chat: Send a chat message to the project guide
- kiln_analyze: Review the current project files
- kiln_overview: Show challenge progress for a project

Chat understands completion phrases ("I'm done", "it works"), hint
requests, modification requests and plain questions.
`))

	s.registerTools()

	return s
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("kiln_generate_app").
		Description("Generate a complete project workspace from an app idea.").
		Handler(s.handleGenerateApp)

	s.mcpServer.Tool("kiln_generate_challenge").
		Description("Generate one additional challenge for an existing project.").
		Handler(s.handleGenerateChallenge)

	s.mcpServer.Tool("kiln_chat").
		Description("Send a message to the project guide. Detects completion, hints and modification requests.").
		Handler(s.handleChat)

	s.mcpServer.Tool("kiln_analyze").
		Description("Run an LLM code review over the project files.").
		Handler(s.handleAnalyze)

	s.mcpServer.Tool("kiln_overview").
		Description("Show challenge progress for a project.").
		Handler(s.handleOverview)
}

// Input/Output types for tools

type GenerateAppInput struct {
	UserID string `json:"user_id" jsonschema:"description=Owner user ID (UUID)"`
	Idea   string `json:"idea" jsonschema:"description=Plain-language app idea"`
}

type GenerateAppOutput struct {
	ProjectID  string   `json:"project_id"`
	Name       string   `json:"name"`
	Files      []string `json:"files"`
	Challenges []string `json:"challenges"`
}

type GenerateChallengeInput struct {
	ProjectID  string `json:"project_id" jsonschema:"description=Project ID from kiln_generate_app"`
	Topic      string `json:"topic,omitempty" jsonschema:"description=Optional topic for the challenge"`
	Difficulty string `json:"difficulty,omitempty" jsonschema:"description=beginner, intermediate or advanced"`
}

type GenerateChallengeOutput struct {
	ChallengeID string `json:"challenge_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
}

type ChatInput struct {
	ProjectID string `json:"project_id" jsonschema:"description=Project ID from kiln_generate_app"`
	Message   string `json:"message" jsonschema:"description=User message"`
}

type ChatOutput struct {
	Message            string `json:"message"`
	Intent             string `json:"intent"`
	CompletedChallenge string `json:"completed_challenge,omitempty"`
}

type AnalyzeInput struct {
	ProjectID string `json:"project_id" jsonschema:"description=Project to review"`
}

type AnalyzeOutput struct {
	Summary     string   `json:"summary"`
	Issues      int      `json:"issues"`
	HasErrors   bool     `json:"has_errors"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type OverviewInput struct {
	ProjectID string `json:"project_id" jsonschema:"description=Project to summarize"`
}

type OverviewOutput struct {
	Overview  string `json:"overview"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

// Tool handlers

func (s *Server) handleGenerateApp(ctx context.Context, input GenerateAppInput) (GenerateAppOutput, error) {
	userID, err := uuid.Parse(input.UserID)
	if err != nil {
		return GenerateAppOutput{}, fmt.Errorf("invalid user_id: %w", err)
	}

	project, err := s.generator.GenerateApp(ctx, userID, input.Idea)
	if err != nil {
		return GenerateAppOutput{}, fmt.Errorf("failed to generate app: %w", err)
	}

	out := GenerateAppOutput{
		ProjectID: project.ID.String(),
		Name:      project.Name,
	}
	for _, f := range project.Files {
		out.Files = append(out.Files, f.Path)
	}
	for _, c := range project.Challenges {
		out.Challenges = append(out.Challenges, c.Title)
	}
	return out, nil
}

func (s *Server) handleGenerateChallenge(ctx context.Context, input GenerateChallengeInput) (GenerateChallengeOutput, error) {
	projectID, err := uuid.Parse(input.ProjectID)
	if err != nil {
		return GenerateChallengeOutput{}, fmt.Errorf("invalid project_id: %w", err)
	}

	challenge, err := s.generator.GenerateChallenge(ctx, projectID, input.Topic, domain.ParseDifficulty(input.Difficulty))
	if err != nil {
		return GenerateChallengeOutput{}, fmt.Errorf("failed to generate challenge: %w", err)
	}

	return GenerateChallengeOutput{
		ChallengeID: challenge.ID.String(),
		Title:       challenge.Title,
		Description: challenge.Description,
		Difficulty:  string(challenge.Difficulty),
	}, nil
}

func (s *Server) handleChat(ctx context.Context, input ChatInput) (ChatOutput, error) {
	projectID, err := uuid.Parse(input.ProjectID)
	if err != nil {
		return ChatOutput{}, fmt.Errorf("invalid project_id: %w", err)
	}

	reply, err := s.chat.Send(ctx, projectID, input.Message)
	if err != nil {
		return ChatOutput{}, fmt.Errorf("chat failed: %w", err)
	}

	out := ChatOutput{
		Message: reply.Message,
		Intent:  string(reply.Intent),
	}
	if reply.Completed != nil {
		out.CompletedChallenge = reply.Completed.Title
	}
	return out, nil
}

func (s *Server) handleAnalyze(ctx context.Context, input AnalyzeInput) (AnalyzeOutput, error) {
	projectID, err := uuid.Parse(input.ProjectID)
	if err != nil {
		return AnalyzeOutput{}, fmt.Errorf("invalid project_id: %w", err)
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return AnalyzeOutput{}, fmt.Errorf("project not found: %w", err)
	}

	analysis, err := s.generator.AnalyzeCode(ctx, project.Files)
	if err != nil {
		return AnalyzeOutput{}, fmt.Errorf("analysis failed: %w", err)
	}

	return AnalyzeOutput{
		Summary:     analysis.Summary,
		Issues:      len(analysis.Issues),
		HasErrors:   analysis.HasErrors(),
		Suggestions: analysis.Suggestions,
	}, nil
}

func (s *Server) handleOverview(ctx context.Context, input OverviewInput) (OverviewOutput, error) {
	projectID, err := uuid.Parse(input.ProjectID)
	if err != nil {
		return OverviewOutput{}, fmt.Errorf("invalid project_id: %w", err)
	}

	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return OverviewOutput{}, fmt.Errorf("project not found: %w", err)
	}

	g := guide.NewChallengeGuide(project)
	return OverviewOutput{
		Overview:  g.ProjectOverview(),
		Completed: project.CompletedCount(),
		Total:     len(project.Challenges),
	}, nil
}

// ServeStdio starts the MCP server on stdio (for editor integration)
func (s *Server) ServeStdio(ctx context.Context) error {
	return mcp.ServeStdio(ctx, s.mcpServer)
}

// ServeHTTP starts the MCP server on HTTP (alternative transport)
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	return mcp.ServeHTTP(ctx, s.mcpServer, addr)
}

// GetMCPServer returns the underlying MCP server (for testing)
func (s *Server) GetMCPServer() *server.Server {
	return s.mcpServer
}
