package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/ai"
	"github.com/ignite/outreach-engine/internal/config"
	"github.com/ignite/outreach-engine/internal/keystore"
	"github.com/ignite/outreach-engine/internal/prompts"
)

// KeyStore is the credential lookup the generation path needs.
type KeyStore interface {
	GetKey(ctx context.Context, tenantID uuid.UUID, provider string) (string, error)
}

// ProviderFactory builds a generation backend. Swappable in tests.
type ProviderFactory func(name string, settings ai.ProviderSettings) (ai.Provider, error)

// GenerationHandlers provides HTTP handlers for AI generation endpoints
type GenerationHandlers struct {
	prompts     *prompts.Manager
	keys        KeyStore
	newProvider ProviderFactory
	aiCfg       config.AIConfig
}

// NewGenerationHandlers creates a new GenerationHandlers instance
func NewGenerationHandlers(promptMgr *prompts.Manager, keys KeyStore, aiCfg config.AIConfig) *GenerationHandlers {
	return &GenerationHandlers{
		prompts:     promptMgr,
		keys:        keys,
		newProvider: ai.NewProvider,
		aiCfg:       aiCfg,
	}
}

// RegisterRoutes registers generation routes on the router
// (expects to be called within an /ai group)
func (h *GenerationHandlers) RegisterRoutes(r chi.Router) {
	r.Post("/generate", h.HandleGenerate)
	r.Get("/models", h.HandleModels)
}

// GenerateRequest represents the request for AI text generation
type GenerateRequest struct {
	PromptKey string            `json:"prompt_key"`
	Variables map[string]string `json:"variables"`
	Provider  string            `json:"provider,omitempty"`
	Options   *GenerateOptions  `json:"options,omitempty"`
}

// GenerateOptions tunes a single generation call
type GenerateOptions struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Stream      bool    `json:"stream,omitempty"`
}

// GenerateResponse represents a completed generation
type GenerateResponse struct {
	Text         string    `json:"text"`
	Model        string    `json:"model"`
	Usage        *ai.Usage `json:"usage,omitempty"`
	LatencyMs    int64     `json:"latency_ms"`
	FinishReason string    `json:"finish_reason,omitempty"`
	GeneratedAt  string    `json:"generated_at"`
}

// HandleGenerate renders the requested prompt and generates text, as JSON
// or as an SSE stream when options.stream is set.
// POST /api/ai/generate
func (h *GenerationHandlers) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	tenant := GetTenantFromContext(r.Context())
	if tenant == nil {
		respondError(w, http.StatusUnauthorized, codeUnauthorized, "tenant context required")
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}
	if req.PromptKey == "" {
		respondError(w, http.StatusBadRequest, codeValidation, "prompt_key is required")
		return
	}
	if req.Variables == nil {
		respondError(w, http.StatusBadRequest, codeValidation, "variables is required")
		return
	}
	if !prompts.ValidKey(prompts.Key(req.PromptKey)) {
		respondError(w, http.StatusBadRequest, codeValidation, fmt.Sprintf("unknown prompt_key %q", req.PromptKey))
		return
	}

	// The credential is a precondition: resolve it before touching the
	// template store, so a tenant without a key always sees API_KEY_ERROR
	// regardless of template state.
	provider, err := h.buildProvider(r.Context(), tenant.ID, req.Provider)
	if err != nil {
		if errors.Is(err, keystore.ErrKeyNotFound) {
			respondError(w, http.StatusUnauthorized, codeAPIKeyError,
				"No AI provider API key is configured for this workspace")
			return
		}
		var unknown *unknownProviderError
		if errors.As(err, &unknown) {
			respondError(w, http.StatusBadRequest, codeValidation, unknown.Error())
			return
		}
		// Decrypt failures and other keystore errors are credential
		// problems, not server faults.
		log.Printf("generation: key lookup failed for tenant %s: %v", tenant.ID, err)
		respondError(w, http.StatusUnauthorized, codeAPIKeyError,
			"The configured AI provider API key could not be read")
		return
	}

	rendered, err := h.prompts.Render(r.Context(), prompts.Key(req.PromptKey), req.Variables, tenant.ID)
	if err != nil {
		switch {
		case errors.Is(err, prompts.ErrInvalidKey):
			respondError(w, http.StatusBadRequest, codeValidation, fmt.Sprintf("unknown prompt_key %q", req.PromptKey))
		case errors.Is(err, prompts.ErrPromptNotFound):
			respondError(w, http.StatusNotFound, codePromptNotFound, fmt.Sprintf("no prompt template for %q", req.PromptKey))
		default:
			respondInternalError(w, err)
		}
		return
	}

	opts := mergeOptions(rendered, req.Options)

	if req.Options != nil && req.Options.Stream {
		h.streamGeneration(w, r, provider, rendered.Text, opts)
		return
	}

	result, err := generateWithRetry(r.Context(), provider, rendered.Text, opts)
	if err != nil {
		if pe, ok := ai.AsProviderError(err); ok {
			respondProviderError(w, pe)
			return
		}
		respondInternalError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, GenerateResponse{
		Text:         result.Text,
		Model:        result.Model,
		Usage:        result.Usage,
		LatencyMs:    result.LatencyMs,
		FinishReason: result.FinishReason,
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
	})
}

// streamGeneration writes the generation as server-sent events. Once the
// stream is committed, failures arrive as a terminal error event; flushed
// fragments are never retracted.
func (h *GenerationHandlers) streamGeneration(w http.ResponseWriter, r *http.Request, provider ai.Provider, prompt string, opts *ai.Options) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, codeInternal, "streaming not supported")
		return
	}

	ch, err := provider.GenerateStream(r.Context(), prompt, opts)
	if err != nil && ai.Retryable(err) {
		// Nothing is committed yet; one retry for transient failures.
		ch, err = provider.GenerateStream(r.Context(), prompt, opts)
	}
	if err != nil {
		if pe, ok := ai.AsProviderError(err); ok {
			respondProviderError(w, pe)
			return
		}
		respondInternalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	for chunk := range ch {
		if chunk.Err != nil {
			data, _ := json.Marshal(errorDetail{Code: string(chunk.Err.Code), Message: chunk.Err.Message})
			fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
			flusher.Flush()
			return
		}
		data, _ := json.Marshal(map[string]string{"text": chunk.Text})
		fmt.Fprintf(w, "event: chunk\ndata: %s\n\n", data)
		flusher.Flush()
	}

	fmt.Fprint(w, "event: done\ndata: {}\n\n")
	flusher.Flush()
}

// HandleModels returns the model catalog of the available providers.
// GET /api/ai/models
func (h *GenerationHandlers) HandleModels(w http.ResponseWriter, r *http.Request) {
	configs := []ai.ModelConfig{
		ai.NewOpenAIProvider("", h.aiCfg.OpenAIBaseURL, h.aiCfg.OpenAIModel).ModelConfig(),
	}
	if bedrock, err := ai.NewBedrockProvider(h.aiCfg.BedrockRegion, h.aiCfg.BedrockModel); err == nil {
		configs = append(configs, bedrock.ModelConfig())
	} else {
		log.Printf("models: bedrock unavailable: %v", err)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"providers": configs,
		"default":   h.aiCfg.DefaultProvider,
	})
}

type unknownProviderError struct{ name string }

func (e *unknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider %q", e.name)
}

// buildProvider resolves the tenant's credential and constructs the backend.
func (h *GenerationHandlers) buildProvider(ctx context.Context, tenantID uuid.UUID, name string) (ai.Provider, error) {
	if name == "" {
		name = h.aiCfg.DefaultProvider
	}

	settings := ai.ProviderSettings{
		BaseURL:   h.aiCfg.OpenAIBaseURL,
		Region:    h.aiCfg.BedrockRegion,
		AccessKey: h.aiCfg.AWSAccessKey,
		SecretKey: h.aiCfg.AWSSecretKey,
	}

	switch name {
	case "openai":
		key, err := h.keys.GetKey(ctx, tenantID, name)
		if err != nil {
			return nil, err
		}
		settings.APIKey = key
		settings.Model = h.aiCfg.OpenAIModel
	case "bedrock":
		// Bedrock authenticates with service AWS credentials, not a
		// per-tenant key.
		settings.Model = h.aiCfg.BedrockModel
	default:
		return nil, &unknownProviderError{name: name}
	}

	return h.newProvider(name, settings)
}

// generateWithRetry issues the call, retrying exactly once when the
// failure is transient (timeout or network). Auth, validation and rate
// limit failures surface immediately.
func generateWithRetry(ctx context.Context, provider ai.Provider, prompt string, opts *ai.Options) (*ai.Result, error) {
	result, err := provider.GenerateText(ctx, prompt, opts)
	if err == nil || !ai.Retryable(err) || ctx.Err() != nil {
		return result, err
	}
	log.Printf("generation: transient failure, retrying once: %v", err)
	return provider.GenerateText(ctx, prompt, opts)
}

// mergeOptions layers request options over the rendered prompt's metadata.
func mergeOptions(rendered *prompts.Rendered, reqOpts *GenerateOptions) *ai.Options {
	opts := &ai.Options{
		Model:       rendered.Model,
		Temperature: rendered.Temperature,
		MaxTokens:   rendered.MaxTokens,
	}
	if reqOpts != nil {
		if reqOpts.Model != "" {
			opts.Model = reqOpts.Model
		}
		if reqOpts.Temperature > 0 {
			opts.Temperature = reqOpts.Temperature
		}
		if reqOpts.MaxTokens > 0 {
			opts.MaxTokens = reqOpts.MaxTokens
		}
	}
	return opts
}
