// Package ai provides the provider-agnostic text generation layer. Concrete
// backends (OpenAI-compatible HTTP APIs, AWS Bedrock) are hidden behind the
// Provider interface so route handlers never touch provider wire formats.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DefaultTimeout bounds a single generation call when the caller's context
// carries no earlier deadline.
const DefaultTimeout = 10 * time.Second

// Options tunes a single generation call. Zero values fall back to the
// rendered prompt's metadata or the provider's model defaults.
type Options struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// Usage reports token accounting when the backend provides it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is a completed non-streaming generation.
type Result struct {
	Text         string `json:"text"`
	Model        string `json:"model"`
	Usage        *Usage `json:"usage,omitempty"`
	LatencyMs    int64  `json:"latency_ms"`
	FinishReason string `json:"finish_reason,omitempty"`
}

// StreamChunk is one element of a generation stream. Exactly one of Text or
// Err is set; a chunk with Err set is always the final chunk before the
// channel closes. Text is never empty.
type StreamChunk struct {
	Text string
	Err  *ProviderError
}

// ModelConfig describes the models a provider exposes.
type ModelConfig struct {
	Provider      string   `json:"provider"`
	DefaultModel  string   `json:"default_model"`
	Models        []string `json:"models"`
	MaxTokensCap  int      `json:"max_tokens_cap"`
	SupportsUsage bool     `json:"supports_usage"`
}

// Provider is the generation backend contract. Implementations classify all
// failures into *ProviderError and honor context cancellation.
type Provider interface {
	// GenerateText produces a full completion for the prompt.
	GenerateText(ctx context.Context, prompt string, opts *Options) (*Result, error)

	// GenerateStream produces completion fragments as they arrive. The
	// returned channel is finite and closes after the final chunk; it is
	// not restartable. An error after streaming began is delivered as a
	// terminal chunk rather than a return value.
	GenerateStream(ctx context.Context, prompt string, opts *Options) (<-chan StreamChunk, error)

	// ModelConfig returns the provider's model catalog and defaults.
	ModelConfig() ModelConfig
}

// ProviderSettings carries the per-call construction inputs the factory
// needs beyond the provider name.
type ProviderSettings struct {
	APIKey    string // decrypted tenant key (OpenAI-compatible providers)
	BaseURL   string // override for OpenAI-compatible endpoints
	Model     string // default model override
	Region    string // AWS region (Bedrock)
	AccessKey string // static AWS credentials (Bedrock, optional)
	SecretKey string
}

// NewProvider constructs a backend by name. Unknown names are an error so
// misconfigured tenants fail loudly instead of falling back silently.
func NewProvider(name string, settings ProviderSettings) (Provider, error) {
	switch strings.ToLower(name) {
	case "openai":
		return NewOpenAIProvider(settings.APIKey, settings.BaseURL, settings.Model), nil
	case "bedrock":
		if settings.AccessKey != "" && settings.SecretKey != "" {
			return NewBedrockProviderWithCredentials(settings.Region, settings.Model, settings.AccessKey, settings.SecretKey)
		}
		return NewBedrockProvider(settings.Region, settings.Model)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", name)
	}
}

// withDefaultTimeout applies DefaultTimeout only when the context carries no
// deadline of its own. The clock starts here, at the outbound call, not at
// request arrival.
func withDefaultTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		// An explicit caller deadline wins in both directions: shorter
		// cancels sooner, longer is allowed to run past the default.
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, DefaultTimeout)
}
