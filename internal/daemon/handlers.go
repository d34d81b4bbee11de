package daemon

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/felixgeelhaar/kiln/internal/envgate"
	"github.com/felixgeelhaar/kiln/internal/guide"
	"github.com/felixgeelhaar/kiln/internal/queue"
)

// Request/response types

type generateAppRequest struct {
	UserID string `json:"user_id"`
	Idea   string `json:"idea"`
	Async  bool   `json:"async,omitempty"`
}

type generateChallengeRequest struct {
	ProjectID  string `json:"project_id"`
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty,omitempty"`
}

type chatRequest struct {
	ProjectID string `json:"project_id"`
	Message   string `json:"message"`
}

type modifyRequest struct {
	Instruction string `json:"instruction"`
}

type analyzeRequest struct {
	ProjectID string               `json:"project_id,omitempty"`
	Files     []domain.ProjectFile `json:"files,omitempty"`
}

type setEnvRequest struct {
	Value string `json:"value"`
}

type challengeResponse struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Difficulty     string   `json:"difficulty"`
	Type           string   `json:"type"`
	Status         string   `json:"status"`
	FilePaths      []string `json:"file_paths,omitempty"`
	RemainingHints int      `json:"remaining_hints"`
}

type projectResponse struct {
	ID          string               `json:"id"`
	UserID      string               `json:"user_id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Files       []domain.ProjectFile `json:"files"`
	Challenges  []challengeResponse  `json:"challenges"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func toChallengeResponse(c *domain.Challenge) challengeResponse {
	return challengeResponse{
		ID:             c.ID.String(),
		Title:          c.Title,
		Description:    c.Description,
		Difficulty:     string(c.Difficulty),
		Type:           string(c.Type),
		Status:         string(c.Status),
		FilePaths:      c.FilePaths,
		RemainingHints: c.RemainingHints(),
	}
}

func toProjectResponse(p *domain.Project) projectResponse {
	resp := projectResponse{
		ID:          p.ID.String(),
		UserID:      p.UserID.String(),
		Name:        p.Name,
		Description: p.Description,
		Files:       p.Files,
		Challenges:  make([]challengeResponse, 0, len(p.Challenges)),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, c := range p.Challenges {
		resp.Challenges = append(resp.Challenges, toChallengeResponse(c))
	}
	return resp
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return false
	}
	return true
}

// watch puts a project under background analysis; open workspaces get
// polled, deleted ones are dropped
func (s *Server) watch(id uuid.UUID) {
	if s.poller != nil {
		s.poller.Watch(id)
	}
}

func (s *Server) unwatch(id uuid.UUID) {
	if s.poller != nil {
		s.poller.Unwatch(id)
	}
}

func (s *Server) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid "+name, err)
		return uuid.Nil, false
	}
	return id, true
}

// Health & status

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"providers":     s.registry.List(),
		"queue_enabled": s.producer != nil,
		"github_oauth":  s.auth != nil,
		"env_keys":      s.gate.Keys(),
	})
}

// Generation

func (s *Server) handleGenerateApp(w http.ResponseWriter, r *http.Request) {
	var req generateAppRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Idea == "" {
		s.jsonError(w, http.StatusBadRequest, "idea is required", nil)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid user_id", err)
		return
	}

	if req.Async && s.producer != nil {
		job := queue.NewJob(queue.KindApp, userID, uuid.Nil, req.Idea)
		if err := s.producer.PublishJob(r.Context(), job); err != nil {
			s.jsonError(w, http.StatusServiceUnavailable, "failed to enqueue job", err)
			return
		}
		s.jsonResponse(w, http.StatusAccepted, map[string]any{
			"job_id": job.ID.String(),
			"status": "queued",
		})
		return
	}

	project, err := s.generator.GenerateApp(r.Context(), userID, req.Idea)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.watch(project.ID)
	s.jsonResponse(w, http.StatusCreated, toProjectResponse(project))
}

func (s *Server) handleGenerateChallenge(w http.ResponseWriter, r *http.Request) {
	var req generateChallengeRequest
	if !s.decode(w, r, &req) {
		return
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid project_id", err)
		return
	}

	challenge, err := s.generator.GenerateChallenge(r.Context(), projectID, req.Topic, domain.ParseDifficulty(req.Difficulty))
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, toChallengeResponse(challenge))
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decode(w, r, &req) {
		return
	}

	files := req.Files
	if len(files) == 0 && req.ProjectID != "" {
		projectID, err := uuid.Parse(req.ProjectID)
		if err != nil {
			s.jsonError(w, http.StatusBadRequest, "invalid project_id", err)
			return
		}
		project, err := s.projects.GetByID(r.Context(), projectID)
		if err != nil {
			s.serviceError(w, err)
			return
		}
		files = project.Files
	}
	if len(files) == 0 {
		s.jsonError(w, http.StatusBadRequest, "files or project_id is required", nil)
		return
	}

	analysis, err := s.generator.AnalyzeCode(r.Context(), files)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, analysis)
}

// Chat

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Message == "" {
		s.jsonError(w, http.StatusBadRequest, "message is required", nil)
		return
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid project_id", err)
		return
	}

	reply, err := s.chat.Send(r.Context(), projectID, req.Message)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	resp := map[string]any{
		"message": reply.Message,
		"intent":  string(reply.Intent),
	}
	if reply.Completed != nil {
		resp["completed_challenge"] = toChallengeResponse(reply.Completed)
	}
	if reply.Challenge != nil {
		resp["challenge"] = toChallengeResponse(reply.Challenge)
	}
	if reply.Project != nil {
		resp["project"] = toProjectResponse(reply.Project)
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// Projects

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	project, err := s.projects.GetByID(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.watch(project.ID)
	s.jsonResponse(w, http.StatusOK, toProjectResponse(project))
}

func (s *Server) handleProjectOverview(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	project, err := s.projects.GetByID(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	g := guide.NewChallengeGuide(project)
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"overview":  g.ProjectOverview(),
		"completed": project.CompletedCount(),
		"total":     len(project.Challenges),
	})
}

func (s *Server) handleModifyProject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req modifyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Instruction == "" {
		s.jsonError(w, http.StatusBadRequest, "instruction is required", nil)
		return
	}

	project, summary, err := s.generator.ModifyApp(r.Context(), id, req.Instruction)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"project": toProjectResponse(project),
		"summary": summary,
	})
}

func (s *Server) handleRevealHint(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	challengeID, ok := s.pathUUID(w, r, "cid")
	if !ok {
		return
	}

	project, err := s.projects.GetByID(r.Context(), id)
	if err != nil {
		s.serviceError(w, err)
		return
	}

	g := guide.NewChallengeGuide(project)
	hint, err := g.RevealHint(challengeID.String())
	if errors.Is(err, domain.ErrNoHintsLeft) {
		s.jsonError(w, http.StatusConflict, "no hints left for this challenge", err)
		return
	}
	if err != nil {
		s.serviceError(w, err)
		return
	}

	// the revealed-hint counter must survive restarts
	if c := project.Challenge(challengeID); c != nil {
		if err := s.projects.UpsertChallenge(r.Context(), c); err != nil {
			s.serviceError(w, err)
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"hint": hint})
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathUUID(w, r, "id")
	if !ok {
		return
	}
	if err := s.projects.Delete(r.Context(), id); err != nil {
		s.serviceError(w, err)
		return
	}
	s.unwatch(id)
	w.WriteHeader(http.StatusNoContent)
}

// GitHub account linking

func (s *Server) handleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		s.jsonError(w, http.StatusServiceUnavailable, "github oauth is not configured", nil)
		return
	}
	userID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid user_id", err)
		return
	}
	url, err := s.auth.AuthorizeURL(userID)
	if err != nil {
		s.serviceError(w, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (s *Server) handleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		s.jsonError(w, http.StatusServiceUnavailable, "github oauth is not configured", nil)
		return
	}
	state := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if state == "" || code == "" {
		s.jsonError(w, http.StatusBadRequest, "state and code are required", nil)
		return
	}

	conn, err := s.auth.HandleCallback(r.Context(), state, code)
	if errors.Is(err, domain.ErrStateMismatch) {
		s.jsonError(w, http.StatusBadRequest, "oauth state is unknown or expired", err)
		return
	}
	if err != nil {
		s.jsonError(w, http.StatusBadGateway, "github exchange failed", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"login":     conn.Login,
		"connected": true,
	})
}

// Env gate

func (s *Server) handleGetEnv(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	value, err := s.gate.Get(key)
	if errors.Is(err, envgate.ErrKeyNotAllowed) {
		s.jsonError(w, http.StatusForbidden, "key is not on the allow list", err)
		return
	}
	if err != nil {
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"key": key, "value": value})
}

func (s *Server) handleSetEnv(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	var req setEnvRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.gate.Set(key, req.Value); err != nil {
		if errors.Is(err, envgate.ErrKeyNotAllowed) {
			s.jsonError(w, http.StatusForbidden, "key is not on the allow list", err)
			return
		}
		s.serviceError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"key": key, "value": req.Value})
}
