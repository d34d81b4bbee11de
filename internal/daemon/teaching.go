package daemon

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/kiln/internal/domain"
	"github.com/felixgeelhaar/kiln/internal/guide"
)

// Teaching sessions are in-memory: a session is a cursor over loaded
// learning content, nothing about it needs to survive a restart.

type createSessionRequest struct {
	Pack string `json:"pack"`
}

type selectModuleRequest struct {
	ModuleID string `json:"module_id"`
}

type moduleSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Steps int    `json:"steps"`
}

func (s *Server) handleListPacks(w http.ResponseWriter, r *http.Request) {
	packs, err := s.loader.ListPacks()
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, "failed to list learning packs", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"packs": packs})
}

func (s *Server) handleCreateTeachingSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Pack == "" {
		s.jsonError(w, http.StatusBadRequest, "pack is required", nil)
		return
	}

	modules, err := s.loader.LoadPack(req.Pack)
	if err != nil {
		s.jsonError(w, http.StatusNotFound, "learning pack not found", err)
		return
	}

	g := guide.NewTeachingGuide(modules)
	sessionID := uuid.New().String()

	s.teachMu.Lock()
	s.teaching[sessionID] = g
	s.teachMu.Unlock()

	summaries := make([]moduleSummary, 0, len(modules))
	for _, m := range modules {
		summaries = append(summaries, moduleSummary{ID: m.ID, Title: m.Title, Steps: m.StepCount()})
	}
	s.jsonResponse(w, http.StatusCreated, map[string]any{
		"session_id": sessionID,
		"modules":    summaries,
		"progress":   g.Progress(),
		"step":       g.RenderStep(),
	})
}

func (s *Server) teachingSession(w http.ResponseWriter, r *http.Request) (*guide.TeachingGuide, bool) {
	s.teachMu.Lock()
	g, ok := s.teaching[r.PathValue("id")]
	s.teachMu.Unlock()
	if !ok {
		s.jsonError(w, http.StatusNotFound, "teaching session not found", nil)
		return nil, false
	}
	return g, true
}

func (s *Server) handleGetTeachingStep(w http.ResponseWriter, r *http.Request) {
	g, ok := s.teachingSession(w, r)
	if !ok {
		return
	}
	s.renderTeachingStep(w, g, g.CurrentStep() != nil)
}

func (s *Server) handleNextTeachingStep(w http.ResponseWriter, r *http.Request) {
	g, ok := s.teachingSession(w, r)
	if !ok {
		return
	}
	s.renderTeachingStep(w, g, g.NextStep() != nil)
}

func (s *Server) handlePrevTeachingStep(w http.ResponseWriter, r *http.Request) {
	g, ok := s.teachingSession(w, r)
	if !ok {
		return
	}
	s.renderTeachingStep(w, g, g.PrevStep() != nil)
}

func (s *Server) handleSelectTeachingModule(w http.ResponseWriter, r *http.Request) {
	g, ok := s.teachingSession(w, r)
	if !ok {
		return
	}
	var req selectModuleRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := g.SelectModule(req.ModuleID); err != nil {
		if errors.Is(err, domain.ErrModuleNotFound) {
			s.jsonError(w, http.StatusNotFound, "module not found", err)
			return
		}
		s.jsonError(w, http.StatusInternalServerError, "failed to select module", err)
		return
	}
	s.renderTeachingStep(w, g, true)
}

func (s *Server) renderTeachingStep(w http.ResponseWriter, g *guide.TeachingGuide, hasStep bool) {
	resp := map[string]any{
		"progress": g.Progress(),
		"done":     !hasStep,
	}
	if m := g.CurrentModule(); m != nil {
		resp["module"] = m.ID
	}
	if hasStep {
		resp["step"] = g.RenderStep()
	}
	s.jsonResponse(w, http.StatusOK, resp)
}
