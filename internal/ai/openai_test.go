package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func completionsServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIGenerateText(t *testing.T) {
	srv := completionsServer(t, func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("missing bearer token, got %q", auth)
		}

		var req openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "Write a subject line" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if req.MaxTokens != 200 {
			t.Errorf("max_tokens = %d, want 200", req.MaxTokens)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "cmpl-1",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Quick question"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
		}`)
	})

	provider := NewOpenAIProvider("test-key", srv.URL, "gpt-4o-mini")
	result, err := provider.GenerateText(context.Background(), "Write a subject line", &Options{MaxTokens: 200, Temperature: 0.5})
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}

	if result.Text != "Quick question" {
		t.Errorf("text = %q", result.Text)
	}
	if result.FinishReason != "stop" {
		t.Errorf("finish reason = %q", result.FinishReason)
	}
	if result.Usage == nil || result.Usage.TotalTokens != 15 {
		t.Errorf("usage = %+v", result.Usage)
	}
	if result.LatencyMs < 0 {
		t.Errorf("latency = %d", result.LatencyMs)
	}
}

func TestOpenAIGenerateTextNoUsageBlock(t *testing.T) {
	srv := completionsServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"id": "cmpl-2",
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hi"}, "finish_reason": "stop"}]
		}`)
	})

	provider := NewOpenAIProvider("test-key", srv.URL, "")
	result, err := provider.GenerateText(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if result.Usage != nil {
		t.Errorf("usage = %+v, want nil when the backend reports none", result.Usage)
	}
}

func TestOpenAIGenerateTextErrorMapping(t *testing.T) {
	tests := []struct {
		status   int
		body     string
		wantCode ErrorCode
		wantMsg  string
	}{
		{http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided"}}`, ErrCodeAuthFailed, "Incorrect API key provided"},
		{http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached"}}`, ErrCodeRateLimited, "Rate limit reached"},
		{http.StatusBadRequest, `{"error":{"message":"max_tokens too large"}}`, ErrCodeInvalidRequest, "max_tokens too large"},
		{http.StatusInternalServerError, `oops`, ErrCodeProvider, ""},
	}

	for _, tt := range tests {
		srv := completionsServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			fmt.Fprint(w, tt.body)
		})

		provider := NewOpenAIProvider("test-key", srv.URL, "")
		_, err := provider.GenerateText(context.Background(), "hello", nil)
		pe, ok := AsProviderError(err)
		if !ok {
			t.Fatalf("status %d: expected provider error, got %v", tt.status, err)
		}
		if pe.Code != tt.wantCode {
			t.Errorf("status %d: code = %s, want %s", tt.status, pe.Code, tt.wantCode)
		}
		if tt.wantMsg != "" && pe.Message != tt.wantMsg {
			t.Errorf("status %d: message = %q, want %q", tt.status, pe.Message, tt.wantMsg)
		}
		if tt.wantMsg == "" && pe.Message == "" {
			t.Errorf("status %d: expected a default message", tt.status)
		}
	}
}

func TestOpenAIGenerateTextTimeout(t *testing.T) {
	srv := completionsServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	})

	provider := NewOpenAIProvider("test-key", srv.URL, "")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := provider.GenerateText(ctx, "hello", nil)
	pe, ok := AsProviderError(err)
	if !ok {
		t.Fatalf("expected provider error, got %v", err)
	}
	if pe.Code != ErrCodeTimeout {
		t.Errorf("code = %s, want TIMEOUT", pe.Code)
	}
	if !Retryable(err) {
		t.Error("timeout should be retryable")
	}
}

func TestOpenAIGenerateStream(t *testing.T) {
	srv := completionsServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		frames := []string{
			`{"choices":[{"delta":{"content":"Quick "}}]}`,
			`{"choices":[{"delta":{"content":""}}]}`,
			`{"choices":[{"delta":{"content":"question"}}]}`,
			`{"choices":[{"delta":{},"finish_reason":"stop"}]}`,
		}
		for _, frame := range frames {
			fmt.Fprintf(w, "data: %s\n\n", frame)
			flusher.Flush()
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
		flusher.Flush()
	})

	provider := NewOpenAIProvider("test-key", srv.URL, "")
	ch, err := provider.GenerateStream(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}

	var fragments []string
	for chunk := range ch {
		if chunk.Err != nil {
			t.Fatalf("unexpected stream error: %v", chunk.Err)
		}
		if chunk.Text == "" {
			t.Error("received empty fragment")
		}
		fragments = append(fragments, chunk.Text)
	}

	got := strings.Join(fragments, "")
	if got != "Quick question" {
		t.Errorf("assembled text = %q, want %q", got, "Quick question")
	}
	if len(fragments) != 2 {
		t.Errorf("fragment count = %d, want 2 (empty deltas suppressed)", len(fragments))
	}
}

func TestOpenAIGenerateStreamPrematureEnd(t *testing.T) {
	srv := completionsServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
		// Connection closes without [DONE].
	})

	provider := NewOpenAIProvider("test-key", srv.URL, "")
	ch, err := provider.GenerateStream(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}

	var last StreamChunk
	var texts []string
	for chunk := range ch {
		last = chunk
		if chunk.Text != "" {
			texts = append(texts, chunk.Text)
		}
	}

	if last.Err == nil {
		t.Fatal("expected terminal error chunk on premature end")
	}
	if len(texts) != 1 || texts[0] != "partial" {
		t.Errorf("fragments before error = %v", texts)
	}
}

func TestOpenAIGenerateStreamAuthError(t *testing.T) {
	srv := completionsServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Incorrect API key provided"}}`)
	})

	provider := NewOpenAIProvider("bad-key", srv.URL, "")
	_, err := provider.GenerateStream(context.Background(), "hello", nil)
	pe, ok := AsProviderError(err)
	if !ok {
		t.Fatalf("expected provider error before streaming, got %v", err)
	}
	if pe.Code != ErrCodeAuthFailed {
		t.Errorf("code = %s, want AUTH_FAILED", pe.Code)
	}
}
