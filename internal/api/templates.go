package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"templateforge/internal/domain"
	"templateforge/internal/storage"
	"templateforge/internal/verify"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := s.persister.ListAll(r.Context())
	if err != nil {
		s.logger.Error("failed to list templates", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not list templates")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]any{"templates": templates})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	listed, err := s.persister.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrTemplateNotFound) {
			s.respondWithError(w, http.StatusNotFound, "template not found")
			return
		}
		s.logger.Error("failed to get template", zap.String("id", id), zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not get template")
		return
	}

	// Review score for the admin UI; the approval gate never uses it.
	score := verify.Score(verify.Verify(listed.ContentData.HTML))
	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"template":          listed,
		"verificationScore": score,
	})
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var t domain.Template
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if t.Name == "" {
		s.respondWithError(w, http.StatusBadRequest, "name is required")
		return
	}

	t.ID = uuid.NewString()
	// Manually created templates enter the review queue unapproved.
	t.IsApproved = false
	t.IsActive = false
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	if t.ContentData.Metadata == nil {
		t.ContentData.Metadata = map[string]any{}
	}

	if err := s.persister.SaveTemplate(r.Context(), &t); err != nil {
		s.logger.Error("failed to create template", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not create template")
		return
	}
	s.respondWithJSON(w, http.StatusCreated, map[string]any{"success": true, "template": t})
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	listed, err := s.persister.Get(r.Context(), id)
	if err != nil {
		s.respondWithError(w, http.StatusNotFound, "template not found")
		return
	}

	var patch domain.Template
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t := listed.Template
	if patch.Name != "" {
		t.Name = patch.Name
	}
	if patch.Brand != "" {
		t.Brand = patch.Brand
	}
	if patch.Industry != "" {
		t.Industry = patch.Industry
	}
	if patch.Category != "" {
		t.Category = patch.Category
	}
	if patch.ContentData.HTML != "" {
		t.ContentData.HTML = patch.ContentData.HTML
	}
	t.UpdatedAt = time.Now()

	if err := s.persister.SaveTemplate(r.Context(), t); err != nil {
		s.logger.Error("failed to update template", zap.String("id", id), zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not update template")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "template": t})
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.persister.Delete(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrTemplateNotFound) {
			s.respondWithError(w, http.StatusNotFound, "template not found")
			return
		}
		s.logger.Error("failed to delete template", zap.String("id", id), zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not delete template")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}

// handleApproveTemplate flips both visibility flags on together; a
// template becomes user-visible only when approved and active.
func (s *Server) handleApproveTemplate(w http.ResponseWriter, r *http.Request) {
	s.setApproval(w, r, true)
}

// handleDisapproveTemplate flips both visibility flags off together.
func (s *Server) handleDisapproveTemplate(w http.ResponseWriter, r *http.Request) {
	s.setApproval(w, r, false)
}

func (s *Server) setApproval(w http.ResponseWriter, r *http.Request, approved bool) {
	id := chi.URLParam(r, "id")
	listed, err := s.persister.Get(r.Context(), id)
	if err != nil {
		s.respondWithError(w, http.StatusNotFound, "template not found")
		return
	}

	t := listed.Template
	t.IsApproved = approved
	t.IsActive = approved
	t.UpdatedAt = time.Now()

	if err := s.persister.SaveTemplate(r.Context(), t); err != nil {
		s.logger.Error("failed to set approval", zap.String("id", id), zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not update template")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "template": t})
}

// handleDuplicateTemplate copies a template. The copy always starts
// unapproved and inactive regardless of the source's state.
func (s *Server) handleDuplicateTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	listed, err := s.persister.Get(r.Context(), id)
	if err != nil {
		s.respondWithError(w, http.StatusNotFound, "template not found")
		return
	}

	dup := *listed.Template
	dup.ID = uuid.NewString()
	dup.Name = dup.Name + " (Copy)"
	dup.IsApproved = false
	dup.IsActive = false
	dup.CreatedAt = time.Now()
	dup.UpdatedAt = dup.CreatedAt

	// Deep-copy metadata so edits to the copy never leak back.
	meta := make(map[string]any, len(listed.ContentData.Metadata))
	for k, v := range listed.ContentData.Metadata {
		meta[k] = v
	}
	dup.ContentData.Metadata = meta

	if err := s.persister.SaveTemplate(r.Context(), &dup); err != nil {
		s.logger.Error("failed to duplicate template", zap.String("id", id), zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not duplicate template")
		return
	}
	s.respondWithJSON(w, http.StatusCreated, map[string]any{"success": true, "template": dup})
}

func (s *Server) handleMoveToDesign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Category    string  `json:"category"`
		AwardSource string  `json:"awardSource,omitempty"`
		Score       float64 `json:"score,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Category == "" {
		s.respondWithError(w, http.StatusBadRequest, "category is required")
		return
	}

	listed, err := s.persister.Get(r.Context(), id)
	if err != nil {
		s.respondWithError(w, http.StatusNotFound, "template not found")
		return
	}

	t := listed.Template
	t.IsDesignQuality = true
	t.DesignCategory = req.Category
	t.DesignAwardSource = req.AwardSource
	t.DesignScore = req.Score
	t.UpdatedAt = time.Now()

	if err := s.persister.SaveTemplate(r.Context(), t); err != nil {
		s.logger.Error("failed to move template to design", zap.String("id", id), zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not update template")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]any{"success": true, "template": t})
}
