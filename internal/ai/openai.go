package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const openaiDefaultBaseURL = "https://api.openai.com/v1"

// OpenAIProvider calls an OpenAI-compatible chat completions API.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// openaiMessage is a chat message in the completions payload.
type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openaiRequest is the request to the chat completions endpoint.
type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

// openaiResponse is the non-streaming completions response.
type openaiResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int           `json:"index"`
		Message      openaiMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// openaiStreamChunk is one SSE data frame of a streaming response.
type openaiStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAIProvider creates a provider for an OpenAI-compatible endpoint.
func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = openaiDefaultBaseURL
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		// Transport timeout stays above DefaultTimeout; the per-call
		// context deadline is what bounds individual requests.
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// ModelConfig returns the OpenAI model catalog.
func (p *OpenAIProvider) ModelConfig() ModelConfig {
	return ModelConfig{
		Provider:      "openai",
		DefaultModel:  p.model,
		Models:        []string{"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-3.5-turbo"},
		MaxTokensCap:  4096,
		SupportsUsage: true,
	}
}

// GenerateText produces a full completion for the prompt.
func (p *OpenAIProvider) GenerateText(ctx context.Context, prompt string, opts *Options) (*Result, error) {
	request := p.buildRequest(prompt, opts, false)

	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := p.post(ctx, request)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError("openai", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus("openai", resp.StatusCode, extractOpenAIError(body))
	}

	var response openaiResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, NewProviderError("openai", ErrCodeProvider, fmt.Sprintf("unparseable response: %v", err))
	}
	if response.Error != nil {
		return nil, NewProviderError("openai", ErrCodeProvider, response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return nil, NewProviderError("openai", ErrCodeProvider, "no completion choices returned")
	}

	choice := response.Choices[0]
	result := &Result{
		Text:         choice.Message.Content,
		Model:        response.Model,
		LatencyMs:    time.Since(start).Milliseconds(),
		FinishReason: choice.FinishReason,
	}
	// Usage is backend-dependent; proxies for OpenAI-compatible APIs often
	// omit it. Absent stays absent rather than reporting zero tokens.
	if response.Usage != nil {
		result.Usage = &Usage{
			PromptTokens:     response.Usage.PromptTokens,
			CompletionTokens: response.Usage.CompletionTokens,
			TotalTokens:      response.Usage.TotalTokens,
		}
	}
	return result, nil
}

// GenerateStream produces completion fragments as they arrive over SSE.
func (p *OpenAIProvider) GenerateStream(ctx context.Context, prompt string, opts *Options) (<-chan StreamChunk, error) {
	request := p.buildRequest(prompt, opts, true)

	ctx, cancel := withDefaultTimeout(ctx)

	resp, err := p.post(ctx, request)
	if err != nil {
		cancel()
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		cancel()
		return nil, classifyHTTPStatus("openai", resp.StatusCode, extractOpenAIError(body))
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer cancel()
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		sawDone := false

		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			payload := strings.TrimPrefix(line, "data: ")
			if payload == "[DONE]" {
				sawDone = true
				break
			}

			var chunk openaiStreamChunk
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				continue
			}
			if chunk.Error != nil {
				ch <- StreamChunk{Err: NewProviderError("openai", ErrCodeProvider, chunk.Error.Message)}
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			// Backends interleave empty keep-alive deltas; consumers
			// only ever see non-empty fragments.
			if text := chunk.Choices[0].Delta.Content; text != "" {
				select {
				case ch <- StreamChunk{Text: text}:
				case <-ctx.Done():
					ch <- StreamChunk{Err: classifyTransportError("openai", ctx.Err())}
					return
				}
			}
		}

		if err := scanner.Err(); err != nil {
			ch <- StreamChunk{Err: classifyTransportError("openai", err)}
			return
		}
		if !sawDone {
			// Connection ended before the terminator; the completion
			// may be truncated and the caller must know.
			ch <- StreamChunk{Err: NewProviderError("openai", ErrCodeNetwork, "stream ended before completion")}
		}
	}()

	return ch, nil
}

func (p *OpenAIProvider) buildRequest(prompt string, opts *Options, stream bool) openaiRequest {
	request := openaiRequest{
		Model:       p.model,
		Messages:    []openaiMessage{{Role: "user", Content: prompt}},
		Temperature: 0.7,
		Stream:      stream,
	}
	if opts != nil {
		if opts.Model != "" {
			request.Model = opts.Model
		}
		if opts.Temperature > 0 {
			request.Temperature = opts.Temperature
		}
		if opts.MaxTokens > 0 {
			request.MaxTokens = opts.MaxTokens
		}
	}
	return request
}

func (p *OpenAIProvider) post(ctx context.Context, request openaiRequest) (*http.Response, error) {
	jsonBody, err := json.Marshal(request)
	if err != nil {
		return nil, NewProviderError("openai", ErrCodeInvalidRequest, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/chat/completions", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, NewProviderError("openai", ErrCodeInvalidRequest, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransportError("openai", err)
	}
	return resp, nil
}

// extractOpenAIError pulls the error message out of an error response body.
func extractOpenAIError(body []byte) string {
	var response openaiResponse
	if err := json.Unmarshal(body, &response); err == nil && response.Error != nil {
		return response.Error.Message
	}
	return ""
}
