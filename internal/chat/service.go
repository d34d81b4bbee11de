package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/felixgeelhaar/kiln/internal/generate"
	"github.com/felixgeelhaar/kiln/internal/guide"
	"github.com/felixgeelhaar/kiln/internal/llm"
	"github.com/felixgeelhaar/kiln/internal/prompt"
	"github.com/google/uuid"
)

// historyLimit bounds how many stored messages are replayed to the model
const historyLimit = 20

// Reply is the outcome of one chat turn
type Reply struct {
	Message   string
	Intent    Intent
	Completed *domain.Challenge // set when the message completed a challenge
	Challenge *domain.Challenge // set when the message generated a challenge
	Project   *domain.Project   // set when the message modified the app
}

// Service runs chat turns: it persists the conversation, detects
// challenge completion, and routes generation requests to the generate
// service
type Service struct {
	registry      *llm.Registry
	prompts       *prompt.Builder
	generator     *generate.Service
	projects      domain.ProjectRepository
	conversations domain.ConversationRepository
	cfg           Config
	logger        *slog.Logger
}

// Config carries chat defaults
type Config struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64
}

// NewService creates a new chat service
func NewService(
	registry *llm.Registry,
	prompts *prompt.Builder,
	generator *generate.Service,
	projects domain.ProjectRepository,
	conversations domain.ConversationRepository,
	cfg Config,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	return &Service{
		registry:      registry,
		prompts:       prompts,
		generator:     generator,
		projects:      projects,
		conversations: conversations,
		cfg:           cfg,
		logger:        logger,
	}
}

// Send processes one user message against a project and returns the reply
func (s *Service) Send(ctx context.Context, projectID uuid.UUID, message string) (*Reply, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if err := s.conversations.Append(ctx, domain.NewMessage(projectID, domain.RoleUser, message)); err != nil {
		return nil, fmt.Errorf("store user message: %w", err)
	}

	// Completion phrases win over everything else
	g := guide.NewChallengeGuide(project)
	if result := g.ProcessUserMessage(message); result.Response != "" {
		if result.Completed != nil {
			if err := s.persistStatuses(ctx, project, result.Completed); err != nil {
				return nil, err
			}
		}
		return s.reply(ctx, projectID, &Reply{
			Message:   result.Response,
			Intent:    IntentChat,
			Completed: result.Completed,
		})
	}

	switch intent := Route(message); intent {
	case IntentHint:
		return s.hint(ctx, projectID, project, g)
	case IntentChallenge:
		return s.newChallenge(ctx, projectID, message)
	case IntentModify:
		return s.modify(ctx, projectID, message)
	default:
		return s.plainChat(ctx, projectID, project, message)
	}
}

func (s *Service) hint(ctx context.Context, projectID uuid.UUID, project *domain.Project, g *guide.ChallengeGuide) (*Reply, error) {
	active := project.ActiveChallenge()
	if active == nil {
		return s.reply(ctx, projectID, &Reply{
			Message: "There is no open challenge to hint at. " + g.ProjectOverview(),
			Intent:  IntentHint,
		})
	}

	hint, err := g.RevealHint(active.ID.String())
	if errors.Is(err, domain.ErrNoHintsLeft) {
		return s.reply(ctx, projectID, &Reply{
			Message: fmt.Sprintf("You've seen every hint for %q. Time to experiment!", active.Title),
			Intent:  IntentHint,
		})
	}
	if err != nil {
		return nil, err
	}

	if err := s.projects.UpsertChallenge(ctx, active); err != nil {
		return nil, fmt.Errorf("persist hint counter: %w", err)
	}
	return s.reply(ctx, projectID, &Reply{Message: hint, Intent: IntentHint})
}

func (s *Service) newChallenge(ctx context.Context, projectID uuid.UUID, message string) (*Reply, error) {
	challenge, err := s.generator.GenerateChallenge(ctx, projectID, message, domain.DifficultyIntermediate)
	if err != nil {
		return nil, err
	}
	text := fmt.Sprintf("Here's a new challenge: %s\n\n%s", challenge.Title, challenge.Description)
	return s.reply(ctx, projectID, &Reply{
		Message:   text,
		Intent:    IntentChallenge,
		Challenge: challenge,
	})
}

func (s *Service) modify(ctx context.Context, projectID uuid.UUID, message string) (*Reply, error) {
	project, summary, err := s.generator.ModifyApp(ctx, projectID, message)
	if err != nil {
		return nil, err
	}
	if summary == "" {
		summary = "Done, the app has been updated."
	}
	return s.reply(ctx, projectID, &Reply{
		Message: summary,
		Intent:  IntentModify,
		Project: project,
	})
}

func (s *Service) plainChat(ctx context.Context, projectID uuid.UUID, project *domain.Project, message string) (*Reply, error) {
	provider, err := s.provider()
	if err != nil {
		return nil, err
	}

	history, err := s.conversations.ListByProject(ctx, projectID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	messages := make([]llm.Message, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case domain.RoleUser:
			messages = append(messages, llm.Message{Role: llm.RoleUser, Content: m.Content})
		case domain.RoleAssistant:
			messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: m.Content})
		}
	}
	if len(messages) == 0 || messages[len(messages)-1].Content != message {
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})
	}

	resp, err := provider.Generate(ctx, &llm.Request{
		Model:       s.cfg.Model,
		System:      s.prompts.ChatSystemPrompt(project),
		Messages:    messages,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("llm request: %w", err)
	}

	return s.reply(ctx, projectID, &Reply{Message: resp.Content, Intent: IntentChat})
}

// reply stores the assistant message and returns the reply
func (s *Service) reply(ctx context.Context, projectID uuid.UUID, r *Reply) (*Reply, error) {
	if err := s.conversations.Append(ctx, domain.NewMessage(projectID, domain.RoleAssistant, r.Message)); err != nil {
		return nil, fmt.Errorf("store assistant message: %w", err)
	}
	return r, nil
}

// persistStatuses writes back the status changes a completion caused:
// the completed challenge and whichever challenge the guide activated
func (s *Service) persistStatuses(ctx context.Context, project *domain.Project, completed *domain.Challenge) error {
	if err := s.projects.UpsertChallenge(ctx, completed); err != nil {
		return fmt.Errorf("persist completion: %w", err)
	}
	for _, c := range project.Challenges {
		if c.Status == domain.StatusInProgress {
			if err := s.projects.UpsertChallenge(ctx, c); err != nil {
				return fmt.Errorf("persist activation: %w", err)
			}
		}
	}
	return nil
}

func (s *Service) provider() (llm.Provider, error) {
	if s.cfg.Provider != "" {
		return s.registry.Get(s.cfg.Provider)
	}
	return s.registry.Default()
}
