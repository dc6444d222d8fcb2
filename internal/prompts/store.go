package prompts

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// TemplateStore abstracts template lookup so the manager can be tested
// without a database.
type TemplateStore interface {
	// GetForTenant returns the tenant's override for key, or nil when the
	// tenant has none.
	GetForTenant(ctx context.Context, key Key, tenantID uuid.UUID) (*Template, error)
	// GetGlobal returns the global default for key, or nil when none exists.
	GetGlobal(ctx context.Context, key Key) (*Template, error)
}

// SQLTemplateStore reads prompt templates from Postgres. The generation
// path is read-only; template editing happens through ops tooling.
type SQLTemplateStore struct {
	db *sql.DB
}

// NewSQLTemplateStore creates a Postgres-backed template store.
func NewSQLTemplateStore(db *sql.DB) *SQLTemplateStore {
	return &SQLTemplateStore{db: db}
}

const templateColumns = `id, tenant_id, key, body, COALESCE(model, '') as model,
	COALESCE(temperature, 0.7) as temperature, COALESCE(max_tokens, 0) as max_tokens,
	created_at, updated_at`

// GetForTenant returns the tenant's override for key, or nil when absent.
func (s *SQLTemplateStore) GetForTenant(ctx context.Context, key Key, tenantID uuid.UUID) (*Template, error) {
	query := `SELECT ` + templateColumns + `
		FROM prompt_templates
		WHERE key = $1 AND tenant_id = $2`

	tmpl, err := s.scanTemplate(s.db.QueryRowContext(ctx, query, string(key), tenantID))
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant prompt template: %w", err)
	}
	return tmpl, nil
}

// GetGlobal returns the global default for key, or nil when absent.
func (s *SQLTemplateStore) GetGlobal(ctx context.Context, key Key) (*Template, error) {
	query := `SELECT ` + templateColumns + `
		FROM prompt_templates
		WHERE key = $1 AND tenant_id IS NULL`

	tmpl, err := s.scanTemplate(s.db.QueryRowContext(ctx, query, string(key)))
	if err != nil {
		return nil, fmt.Errorf("failed to get global prompt template: %w", err)
	}
	return tmpl, nil
}

func (s *SQLTemplateStore) scanTemplate(row *sql.Row) (*Template, error) {
	tmpl := &Template{}
	var tenantID uuid.NullUUID
	err := row.Scan(
		&tmpl.ID, &tenantID, &tmpl.Key, &tmpl.Body, &tmpl.Model,
		&tmpl.Temperature, &tmpl.MaxTokens, &tmpl.CreatedAt, &tmpl.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if tenantID.Valid {
		id := tenantID.UUID
		tmpl.TenantID = &id
	}
	return tmpl, nil
}
