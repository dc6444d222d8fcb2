package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// BedrockProvider generates text through AWS Bedrock using the Anthropic
// messages payload. All traffic stays inside AWS.
type BedrockProvider struct {
	client  *bedrockruntime.Client
	modelID string
	region  string
}

// bedrockMessage is a message in the Anthropic Bedrock payload.
type bedrockMessage struct {
	Role    string                `json:"role"`
	Content []bedrockContentBlock `json:"content"`
}

// bedrockContentBlock is one content block of a message.
type bedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// bedrockRequest is the InvokeModel request body.
type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Messages         []bedrockMessage `json:"messages"`
	Temperature      float64          `json:"temperature,omitempty"`
}

// bedrockResponse is the InvokeModel response body.
type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// bedrockStreamEvent is one decoded chunk of a streaming response.
type bedrockStreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewBedrockProvider creates a Bedrock-backed provider using the default
// AWS credential chain (IAM role on ECS, profile locally).
func NewBedrockProvider(region, modelID string) (*BedrockProvider, error) {
	return newBedrockProvider(region, modelID, "", "")
}

// NewBedrockProviderWithCredentials creates a Bedrock-backed provider with
// explicit static credentials, for deployments without an instance role.
func NewBedrockProviderWithCredentials(region, modelID, accessKey, secretKey string) (*BedrockProvider, error) {
	return newBedrockProvider(region, modelID, accessKey, secretKey)
}

func newBedrockProvider(region, modelID, accessKey, secretKey string) (*BedrockProvider, error) {
	if region == "" {
		region = "us-east-1"
	}
	if modelID == "" {
		modelID = "anthropic.claude-3-haiku-20240307-v1:0"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" && secretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &BedrockProvider{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
		region:  region,
	}, nil
}

// ModelConfig returns the Bedrock model catalog.
func (p *BedrockProvider) ModelConfig() ModelConfig {
	return ModelConfig{
		Provider:     "bedrock",
		DefaultModel: p.modelID,
		Models: []string{
			"anthropic.claude-3-haiku-20240307-v1:0",
			"anthropic.claude-3-sonnet-20240229-v1:0",
			"anthropic.claude-3-5-sonnet-20240620-v1:0",
		},
		MaxTokensCap:  4096,
		SupportsUsage: true,
	}
}

// GenerateText produces a full completion for the prompt.
func (p *BedrockProvider) GenerateText(ctx context.Context, prompt string, opts *Options) (*Result, error) {
	requestBody, modelID, err := p.buildRequest(prompt, opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withDefaultTimeout(ctx)
	defer cancel()

	start := time.Now()
	output, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        requestBody,
	})
	if err != nil {
		return nil, classifyBedrockError(err)
	}

	var response bedrockResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return nil, NewProviderError("bedrock", ErrCodeProvider, fmt.Sprintf("unparseable response: %v", err))
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	return &Result{
		Text:         text.String(),
		Model:        modelID,
		LatencyMs:    time.Since(start).Milliseconds(),
		FinishReason: response.StopReason,
		Usage: &Usage{
			PromptTokens:     response.Usage.InputTokens,
			CompletionTokens: response.Usage.OutputTokens,
			TotalTokens:      response.Usage.InputTokens + response.Usage.OutputTokens,
		},
	}, nil
}

// GenerateStream produces completion fragments via the Bedrock response stream.
func (p *BedrockProvider) GenerateStream(ctx context.Context, prompt string, opts *Options) (<-chan StreamChunk, error) {
	requestBody, modelID, err := p.buildRequest(prompt, opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withDefaultTimeout(ctx)

	output, err := p.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        requestBody,
	})
	if err != nil {
		cancel()
		return nil, classifyBedrockError(err)
	}

	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		defer cancel()

		stream := output.GetStream()
		defer stream.Close()

		for event := range stream.Events() {
			chunk, ok := event.(*types.ResponseStreamMemberChunk)
			if !ok {
				continue
			}

			var decoded bedrockStreamEvent
			if err := json.Unmarshal(chunk.Value.Bytes, &decoded); err != nil {
				continue
			}
			if decoded.Error != nil {
				ch <- StreamChunk{Err: NewProviderError("bedrock", ErrCodeProvider, decoded.Error.Message)}
				return
			}
			if decoded.Type != "content_block_delta" || decoded.Delta.Text == "" {
				continue
			}

			select {
			case ch <- StreamChunk{Text: decoded.Delta.Text}:
			case <-ctx.Done():
				ch <- StreamChunk{Err: classifyTransportError("bedrock", ctx.Err())}
				return
			}
		}

		if err := stream.Err(); err != nil {
			ch <- StreamChunk{Err: classifyBedrockError(err)}
		}
	}()

	return ch, nil
}

func (p *BedrockProvider) buildRequest(prompt string, opts *Options) ([]byte, string, error) {
	request := bedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        1024,
		Temperature:      0.7,
		Messages: []bedrockMessage{
			{Role: "user", Content: []bedrockContentBlock{{Type: "text", Text: prompt}}},
		},
	}

	modelID := p.modelID
	if opts != nil {
		if opts.Model != "" {
			modelID = opts.Model
		}
		if opts.Temperature > 0 {
			request.Temperature = opts.Temperature
		}
		if opts.MaxTokens > 0 {
			request.MaxTokens = opts.MaxTokens
		}
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, "", NewProviderError("bedrock", ErrCodeInvalidRequest, err.Error())
	}
	return body, modelID, nil
}

// classifyBedrockError maps SDK failures into the error taxonomy. The SDK
// wraps context errors, so transport classification runs first.
func classifyBedrockError(err error) *ProviderError {
	if pe, ok := AsProviderError(err); ok {
		return pe
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "deadline exceeded") || strings.Contains(lower, "context canceled"):
		return NewProviderError("bedrock", ErrCodeTimeout, "")
	case strings.Contains(lower, "throttling") || strings.Contains(lower, "too many requests"):
		return NewProviderError("bedrock", ErrCodeRateLimited, "")
	case strings.Contains(lower, "accessdenied") || strings.Contains(lower, "unrecognizedclient") ||
		strings.Contains(lower, "invalidsignature") || strings.Contains(lower, "expiredtoken"):
		return NewProviderError("bedrock", ErrCodeAuthFailed, "")
	case strings.Contains(lower, "validationexception"):
		return NewProviderError("bedrock", ErrCodeInvalidRequest, msg)
	case strings.Contains(lower, "no such host") || strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "dial tcp"):
		return NewProviderError("bedrock", ErrCodeNetwork, "")
	default:
		return NewProviderError("bedrock", ErrCodeProvider, msg)
	}
}
