package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorCode classifies provider failures into a closed set the API layer
// can map to HTTP statuses without inspecting provider-specific detail.
type ErrorCode string

const (
	ErrCodeTimeout        ErrorCode = "TIMEOUT"
	ErrCodeRateLimited    ErrorCode = "RATE_LIMITED"
	ErrCodeAuthFailed     ErrorCode = "AUTH_FAILED"
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeNetwork        ErrorCode = "NETWORK_ERROR"
	ErrCodeProvider       ErrorCode = "PROVIDER_ERROR"
)

// defaultMessages are the user-facing messages used when the backend failure
// carries no structured message of its own.
var defaultMessages = map[ErrorCode]string{
	ErrCodeTimeout:        "The AI provider took too long to respond. Please try again.",
	ErrCodeRateLimited:    "The AI provider is rate limiting requests. Please wait a moment and try again.",
	ErrCodeAuthFailed:     "The AI provider rejected the configured API key.",
	ErrCodeInvalidRequest: "The AI provider rejected the request as invalid.",
	ErrCodeNetwork:        "Could not reach the AI provider. Please try again.",
	ErrCodeProvider:       "The AI provider returned an error. Please try again.",
}

// ProviderError is the only error type that crosses the provider boundary.
type ProviderError struct {
	Provider string    `json:"provider"`
	Code     ErrorCode `json:"code"`
	Message  string    `json:"message"`
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Code, e.Message)
}

// NewProviderError builds a ProviderError, falling back to the code's
// default message when the backend gave nothing usable.
func NewProviderError(provider string, code ErrorCode, message string) *ProviderError {
	if message == "" {
		message = defaultMessages[code]
	}
	return &ProviderError{Provider: provider, Code: code, Message: message}
}

// AsProviderError unwraps err to a *ProviderError if one is in the chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// Retryable reports whether the error represents a transient condition that
// a single retry may clear. Auth and validation failures never are.
func Retryable(err error) bool {
	pe, ok := AsProviderError(err)
	if !ok {
		return false
	}
	return pe.Code == ErrCodeTimeout || pe.Code == ErrCodeNetwork
}

// classifyTransportError maps transport-level failures (no HTTP response
// received) to an error code.
func classifyTransportError(provider string, err error) *ProviderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewProviderError(provider, ErrCodeTimeout, "")
	case errors.Is(err, context.Canceled):
		return NewProviderError(provider, ErrCodeTimeout, "")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewProviderError(provider, ErrCodeTimeout, "")
	}
	return NewProviderError(provider, ErrCodeNetwork, "")
}

// classifyHTTPStatus maps a non-2xx HTTP status to an error code. The
// message comes from the response body when the caller parsed one out.
func classifyHTTPStatus(provider string, status int, message string) *ProviderError {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewProviderError(provider, ErrCodeAuthFailed, message)
	case status == http.StatusTooManyRequests:
		return NewProviderError(provider, ErrCodeRateLimited, message)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return NewProviderError(provider, ErrCodeInvalidRequest, message)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return NewProviderError(provider, ErrCodeTimeout, message)
	default:
		return NewProviderError(provider, ErrCodeProvider, message)
	}
}
