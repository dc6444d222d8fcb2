package prompts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrPromptNotFound means neither a tenant override nor a global default
// exists for the requested key.
var ErrPromptNotFound = errors.New("prompt template not found")

// ErrInvalidKey means the requested key is outside the registered set.
var ErrInvalidKey = errors.New("invalid prompt key")

// Manager resolves prompt keys to rendered, provider-ready prompts.
// Lookup order is tenant override, then global default. Managers are
// stateless apart from the optional cache and safe for concurrent use.
type Manager struct {
	store TemplateStore
	cache *Cache
}

// NewManager creates a prompt manager. cache may be nil to disable caching.
func NewManager(store TemplateStore, cache *Cache) *Manager {
	return &Manager{store: store, cache: cache}
}

// Render looks up the template for key (tenant override first) and
// substitutes the variable bag into its body. Placeholders with no value in
// the bag stay literal in the output, same as campaign content resolution.
func (m *Manager) Render(ctx context.Context, key Key, vars map[string]string, tenantID uuid.UUID) (*Rendered, error) {
	if !ValidKey(key) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	tmpl, err := m.lookup(ctx, key, tenantID)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, fmt.Errorf("%w: %s", ErrPromptNotFound, key)
	}

	return &Rendered{
		Text:        substitute(tmpl.Body, vars),
		Model:       tmpl.Model,
		Temperature: tmpl.Temperature,
		MaxTokens:   tmpl.MaxTokens,
	}, nil
}

func (m *Manager) lookup(ctx context.Context, key Key, tenantID uuid.UUID) (*Template, error) {
	if tenantID != uuid.Nil {
		tmpl, err := m.cachedLookup(ctx, cacheKey(key, tenantID), func(ctx context.Context) (*Template, error) {
			return m.store.GetForTenant(ctx, key, tenantID)
		})
		if err != nil {
			return nil, err
		}
		if tmpl != nil {
			return tmpl, nil
		}
	}

	return m.cachedLookup(ctx, cacheKey(key, uuid.Nil), func(ctx context.Context) (*Template, error) {
		return m.store.GetGlobal(ctx, key)
	})
}

func (m *Manager) cachedLookup(ctx context.Context, ck string, fetch func(context.Context) (*Template, error)) (*Template, error) {
	if m.cache != nil {
		if tmpl, ok := m.cache.get(ck); ok {
			return tmpl, nil
		}
	}
	tmpl, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if m.cache != nil {
		m.cache.set(ck, tmpl)
	}
	return tmpl, nil
}

func cacheKey(key Key, tenantID uuid.UUID) string {
	return tenantID.String() + "|" + string(key)
}

// substitute replaces {{name}} placeholders with values from the bag.
// Unmatched placeholders pass through so a template referencing a variable
// the caller didn't supply stays visibly unrendered instead of blanking.
func substitute(body string, vars map[string]string) string {
	for name, value := range vars {
		if value == "" {
			continue
		}
		body = strings.ReplaceAll(body, "{{"+name+"}}", value)
	}
	return body
}
