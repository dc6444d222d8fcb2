package prompts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStore struct {
	tenant  map[string]*Template // "tenantID|key"
	global  map[Key]*Template
	fetches int
}

func (f *fakeStore) GetForTenant(ctx context.Context, key Key, tenantID uuid.UUID) (*Template, error) {
	f.fetches++
	return f.tenant[tenantID.String()+"|"+string(key)], nil
}

func (f *fakeStore) GetGlobal(ctx context.Context, key Key) (*Template, error) {
	f.fetches++
	return f.global[key], nil
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tenant: make(map[string]*Template),
		global: make(map[Key]*Template),
	}
}

func TestRenderTenantOverrideShadowsGlobal(t *testing.T) {
	tenantID := uuid.New()
	store := newFakeStore()
	store.global[KeyEmailSubject] = &Template{
		Key: KeyEmailSubject, Body: "Global: {{topic}}", Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 100,
	}
	store.tenant[tenantID.String()+"|"+string(KeyEmailSubject)] = &Template{
		Key: KeyEmailSubject, Body: "Tenant: {{topic}}", Model: "gpt-4o", Temperature: 0.3, MaxTokens: 60,
	}

	m := NewManager(store, nil)
	rendered, err := m.Render(context.Background(), KeyEmailSubject, map[string]string{"topic": "pricing"}, tenantID)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if rendered.Text != "Tenant: pricing" {
		t.Errorf("text = %q, want tenant override", rendered.Text)
	}
	if rendered.Model != "gpt-4o" || rendered.Temperature != 0.3 || rendered.MaxTokens != 60 {
		t.Errorf("metadata = %+v, want tenant override metadata", rendered)
	}
}

func TestRenderFallsBackToGlobal(t *testing.T) {
	store := newFakeStore()
	store.global[KeyIcebreaker] = &Template{
		Key: KeyIcebreaker, Body: "Write an icebreaker for {{first_name}} at {{company_name}}",
		Model: "gpt-4o-mini", Temperature: 0.8, MaxTokens: 150,
	}

	m := NewManager(store, nil)
	rendered, err := m.Render(context.Background(), KeyIcebreaker,
		map[string]string{"first_name": "Ana", "company_name": "Globex"}, uuid.New())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if rendered.Text != "Write an icebreaker for Ana at Globex" {
		t.Errorf("text = %q", rendered.Text)
	}
}

func TestRenderNotFound(t *testing.T) {
	m := NewManager(newFakeStore(), nil)
	_, err := m.Render(context.Background(), KeyCampaignSummary, nil, uuid.New())
	if !errors.Is(err, ErrPromptNotFound) {
		t.Errorf("err = %v, want ErrPromptNotFound", err)
	}
}

func TestRenderInvalidKey(t *testing.T) {
	m := NewManager(newFakeStore(), nil)
	_, err := m.Render(context.Background(), Key("make_coffee"), nil, uuid.Nil)
	if !errors.Is(err, ErrInvalidKey) {
		t.Errorf("err = %v, want ErrInvalidKey", err)
	}
}

func TestRenderUnmatchedPlaceholderStaysLiteral(t *testing.T) {
	store := newFakeStore()
	store.global[KeyEmailBody] = &Template{
		Key: KeyEmailBody, Body: "Write to {{first_name}} about {{topic}}",
	}

	m := NewManager(store, nil)
	rendered, err := m.Render(context.Background(), KeyEmailBody,
		map[string]string{"first_name": "Ana"}, uuid.Nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if rendered.Text != "Write to Ana about {{topic}}" {
		t.Errorf("text = %q, unmatched placeholder must stay literal", rendered.Text)
	}
}

func TestRenderEmptyValueStaysLiteral(t *testing.T) {
	store := newFakeStore()
	store.global[KeyEmailBody] = &Template{Key: KeyEmailBody, Body: "Hello {{first_name}}"}

	m := NewManager(store, nil)
	rendered, err := m.Render(context.Background(), KeyEmailBody,
		map[string]string{"first_name": ""}, uuid.Nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if rendered.Text != "Hello {{first_name}}" {
		t.Errorf("text = %q", rendered.Text)
	}
}

func TestRenderUsesCache(t *testing.T) {
	store := newFakeStore()
	store.global[KeyEmailSubject] = &Template{Key: KeyEmailSubject, Body: "Subject about {{topic}}"}

	m := NewManager(store, NewCache(time.Minute))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := m.Render(ctx, KeyEmailSubject, map[string]string{"topic": "sales"}, uuid.Nil); err != nil {
			t.Fatalf("Render: %v", err)
		}
	}

	if store.fetches != 1 {
		t.Errorf("store fetches = %d, want 1 (cache should absorb repeats)", store.fetches)
	}
}

func TestCacheExpiry(t *testing.T) {
	cache := NewCache(time.Minute)
	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.set("k", &Template{Key: KeyEmailSubject})
	if _, ok := cache.get("k"); !ok {
		t.Fatal("fresh entry should hit")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := cache.get("k"); ok {
		t.Error("expired entry should miss")
	}
}

func TestCacheStoresNegativeLookups(t *testing.T) {
	tenantID := uuid.New()
	store := newFakeStore()
	store.global[KeyEmailSubject] = &Template{Key: KeyEmailSubject, Body: "Global"}

	m := NewManager(store, NewCache(time.Minute))
	ctx := context.Background()

	// Tenant has no override: lookup goes tenant miss -> global hit.
	if _, err := m.Render(ctx, KeyEmailSubject, nil, tenantID); err != nil {
		t.Fatalf("Render: %v", err)
	}
	first := store.fetches

	if _, err := m.Render(ctx, KeyEmailSubject, nil, tenantID); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if store.fetches != first {
		t.Errorf("second render fetched %d more times, want 0 (negative tenant lookup cached)", store.fetches-first)
	}
}
