package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/outreach-engine/internal/templates"
)

// TemplateHandlers provides HTTP handlers for Liquid template previews
type TemplateHandlers struct {
	engine *templates.Engine
}

// NewTemplateHandlers creates a new TemplateHandlers instance
func NewTemplateHandlers(engine *templates.Engine) *TemplateHandlers {
	return &TemplateHandlers{engine: engine}
}

// RegisterRoutes registers template routes on the router
func (h *TemplateHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/preview", h.HandlePreview)
}

// PreviewRequest represents a template preview request
type PreviewRequest struct {
	Template string                 `json:"template"`
	Context  map[string]interface{} `json:"context"`
	Strict   bool                   `json:"strict,omitempty"`
}

// HandlePreview renders a Liquid template against sample context. Strict
// mode reports missing variables as warnings instead of rendering them
// empty.
// POST /api/templates/preview
func (h *TemplateHandlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}
	if req.Template == "" {
		respondError(w, http.StatusBadRequest, codeValidation, "template is required")
		return
	}

	mode := templates.RenderModeLax
	if req.Strict {
		mode = templates.RenderModeStrict
	}

	result := h.engine.Render(req.Template, req.Context, mode)
	respondJSON(w, http.StatusOK, result)
}
