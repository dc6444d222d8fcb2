// Package prompts manages the centralized prompt template catalog: symbolic
// keys, tenant overrides over global defaults, and variable rendering into
// provider-ready text.
package prompts

import (
	"time"

	"github.com/google/uuid"
)

// Key identifies a prompt template symbolically. Callers never pass raw
// prompt text across the API boundary.
type Key string

const (
	KeyEmailSubject    Key = "email_subject_generation"
	KeyEmailBody       Key = "email_body_generation"
	KeyIcebreaker      Key = "icebreaker_generation"
	KeyToneApplication Key = "tone_application"
	KeyCampaignSummary Key = "campaign_summary"
)

var validKeys = map[Key]bool{
	KeyEmailSubject:    true,
	KeyEmailBody:       true,
	KeyIcebreaker:      true,
	KeyToneApplication: true,
	KeyCampaignSummary: true,
}

// ValidKey reports whether k is a registered prompt key.
func ValidKey(k Key) bool {
	return validKeys[k]
}

// Keys returns all registered prompt keys.
func Keys() []Key {
	return []Key{KeyEmailSubject, KeyEmailBody, KeyIcebreaker, KeyToneApplication, KeyCampaignSummary}
}

// Template is a stored prompt template. A nil TenantID means the template
// is the global default for its key; a tenant row shadows the global row.
type Template struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    *uuid.UUID `json:"tenant_id,omitempty"`
	Key         Key        `json:"key"`
	Body        string     `json:"body"`
	Model       string     `json:"model"`
	Temperature float64    `json:"temperature"`
	MaxTokens   int        `json:"max_tokens"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Rendered is a template after variable substitution, carrying the
// generation metadata the provider call needs. It is never persisted.
type Rendered struct {
	Text        string  `json:"text"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}
