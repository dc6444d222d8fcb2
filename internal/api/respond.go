package api

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/ignite/outreach-engine/internal/ai"
)

// Error codes returned by the API, beyond the provider codes passed through
// from internal/ai.
const (
	codeUnauthorized   = "UNAUTHORIZED"
	codeForbidden      = "FORBIDDEN"
	codeValidation     = "VALIDATION_ERROR"
	codePromptNotFound = "PROMPT_NOT_FOUND"
	codeAPIKeyError    = "API_KEY_ERROR"
	codeRateLimited    = "RATE_LIMITED"
	codeInternal       = "INTERNAL_ERROR"
)

// errorBody is the wire shape of every API failure.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("respondJSON: encode failed: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

// respondInternalError logs the internal error and returns a generic
// message. 5xx bodies never carry internal error text.
func respondInternalError(w http.ResponseWriter, internalErr error) {
	if internalErr != nil {
		log.Printf("ERROR [500]: %v", internalErr)
	}
	respondError(w, http.StatusInternalServerError, codeInternal, "An internal error occurred")
}

// providerErrorStatus maps a provider error code to its HTTP status.
func providerErrorStatus(code ai.ErrorCode) int {
	switch code {
	case ai.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case ai.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case ai.ErrCodeAuthFailed:
		return http.StatusBadGateway
	case ai.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case ai.ErrCodeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusBadGateway
	}
}

// respondProviderError translates a provider failure to the wire taxonomy.
// The provider's user-facing message passes through; internal detail stays
// in the log.
func respondProviderError(w http.ResponseWriter, pe *ai.ProviderError) {
	log.Printf("provider error: %s", pe.Error())
	respondError(w, providerErrorStatus(pe.Code), string(pe.Code), pe.Message)
}
