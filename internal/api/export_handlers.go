package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/export"
	"github.com/ignite/outreach-engine/internal/leads"
	"github.com/ignite/outreach-engine/internal/personalization"
)

// ExportHandlers provides HTTP handlers for preparing campaign content for
// destination platforms
type ExportHandlers struct {
	leads *leads.Store
}

// NewExportHandlers creates a new ExportHandlers instance
func NewExportHandlers(leadStore *leads.Store) *ExportHandlers {
	return &ExportHandlers{leads: leadStore}
}

// RegisterRoutes registers export routes on the router
func (h *ExportHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/campaigns/{campaignID}/prepare", h.HandlePrepare)
}

// PrepareRequest represents an export preparation request
type PrepareRequest struct {
	Platform string `json:"platform"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
}

// PrepareResponse carries the export payload for the requested platform.
// Exactly one of content, leads or csv is set, depending on the platform.
type PrepareResponse struct {
	Platform string                   `json:"platform"`
	Content  *personalization.Content `json:"content,omitempty"`
	Leads    []export.LeadContent     `json:"leads,omitempty"`
	CSV      string                   `json:"csv,omitempty"`
}

// HandlePrepare prepares campaign content for an export platform: snovio
// gets retagged templates, clipboard gets per-lead resolved content, csv
// gets a full file.
// POST /api/export/campaigns/{campaignID}/prepare
func (h *ExportHandlers) HandlePrepare(w http.ResponseWriter, r *http.Request) {
	campaignID, err := uuid.Parse(chi.URLParam(r, "campaignID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "invalid campaign ID")
		return
	}

	var req PrepareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}
	if req.Subject == "" && req.Body == "" {
		respondError(w, http.StatusBadRequest, codeValidation, "subject or body is required")
		return
	}

	platform := personalization.Platform(req.Platform)
	content := personalization.Content{Subject: req.Subject, Body: req.Body}

	switch platform {
	case personalization.PlatformSnovio:
		retagged, err := export.Retag(content, platform)
		if err != nil {
			respondError(w, http.StatusBadRequest, codeValidation, err.Error())
			return
		}
		respondJSON(w, http.StatusOK, PrepareResponse{Platform: req.Platform, Content: &retagged})

	case personalization.PlatformClipboard:
		campaignLeads, err := h.leads.ListByCampaign(r.Context(), campaignID)
		if err != nil {
			respondInternalError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, PrepareResponse{
			Platform: req.Platform,
			Leads:    export.ResolveForLeads(content, campaignLeads),
		})

	case personalization.PlatformCSV:
		campaignLeads, err := h.leads.ListByCampaign(r.Context(), campaignID)
		if err != nil {
			respondInternalError(w, err)
			return
		}
		csv, err := export.BuildCSV(content, campaignLeads)
		if err != nil {
			respondInternalError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, PrepareResponse{Platform: req.Platform, CSV: csv})

	default:
		respondError(w, http.StatusBadRequest, codeValidation, "unknown platform: "+req.Platform)
	}
}
