package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/outreach-engine/internal/personalization"
)

// PersonalizationHandlers provides HTTP handlers for the variable registry
// and resolution preview endpoints
type PersonalizationHandlers struct{}

// NewPersonalizationHandlers creates a new PersonalizationHandlers instance
func NewPersonalizationHandlers() *PersonalizationHandlers {
	return &PersonalizationHandlers{}
}

// RegisterRoutes registers personalization routes on the router
func (h *PersonalizationHandlers) RegisterRoutes(r chi.Router) {
	r.Get("/variables", h.HandleListVariables)
	r.Get("/mappings/{platform}", h.HandlePlatformMapping)
	r.Post("/resolve", h.HandleResolve)
}

// HandleListVariables returns the variable catalog.
// GET /api/personalization/variables
func (h *PersonalizationHandlers) HandleListVariables(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"variables": personalization.ListVariables(),
	})
}

// HandlePlatformMapping returns the token mapping for one export platform.
// GET /api/personalization/mappings/{platform}
func (h *PersonalizationHandlers) HandlePlatformMapping(w http.ResponseWriter, r *http.Request) {
	platform := personalization.Platform(chi.URLParam(r, "platform"))

	mapping, ok := personalization.PlatformMapping(platform)
	if !ok {
		respondError(w, http.StatusBadRequest, codeValidation, "unknown platform: "+string(platform))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"platform": platform,
		"mapping":  mapping,
	})
}

// ResolveRequest represents a resolution preview request
type ResolveRequest struct {
	Subject string                   `json:"subject"`
	Body    string                   `json:"body"`
	Lead    personalization.LeadData `json:"lead"`
}

// ResolveResponse carries the resolved content plus any tokens that could
// not be filled from the lead
type ResolveResponse struct {
	Subject    string   `json:"subject"`
	Body       string   `json:"body"`
	Unresolved []string `json:"unresolved,omitempty"`
}

// HandleResolve substitutes lead values into template content.
// POST /api/personalization/resolve
func (h *PersonalizationHandlers) HandleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}
	if req.Subject == "" && req.Body == "" {
		respondError(w, http.StatusBadRequest, codeValidation, "subject or body is required")
		return
	}

	content := personalization.Content{Subject: req.Subject, Body: req.Body}
	resolved := personalization.Resolve(content, req.Lead)

	unresolved := personalization.UnresolvedTokens(resolved.Subject + "\n" + resolved.Body)

	respondJSON(w, http.StatusOK, ResolveResponse{
		Subject:    resolved.Subject,
		Body:       resolved.Body,
		Unresolved: unresolved,
	})
}
