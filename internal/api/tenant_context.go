package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/auth"
)

// TenantContextKey is the key for storing tenant context
type TenantContextKey struct{}

// TenantContext holds tenant information extracted from the request
type TenantContext struct {
	ID     uuid.UUID
	Name   string
	Domain string
}

// SessionReader reports the authenticated session on a request, if any.
// Satisfied by auth.Manager; swappable in tests.
type SessionReader interface {
	GetSession(r *http.Request) *auth.Session
}

// TenantProvider resolves and caches tenant context per request
type TenantProvider struct {
	db       *sql.DB
	sessions SessionReader
	cache    map[uuid.UUID]*TenantContext
	cacheMu  sync.RWMutex
}

// NewTenantProvider creates a tenant provider. sessions may be nil when
// auth is disabled.
func NewTenantProvider(db *sql.DB, sessions SessionReader) *TenantProvider {
	return &TenantProvider{
		db:       db,
		sessions: sessions,
		cache:    make(map[uuid.UUID]*TenantContext),
	}
}

// ExtractTenantID extracts the tenant ID from the request.
// Priority: 1. Context (from middleware), 2. X-Tenant-ID header, 3. Query param
func ExtractTenantID(r *http.Request) (uuid.UUID, error) {
	if tc := GetTenantFromContext(r.Context()); tc != nil {
		return tc.ID, nil
	}

	if idStr := r.Header.Get("X-Tenant-ID"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid tenant ID %q", idStr)
		}
		return id, nil
	}

	if idStr := r.URL.Query().Get("tenant_id"); idStr != "" {
		id, err := uuid.Parse(idStr)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid tenant ID %q", idStr)
		}
		return id, nil
	}

	return uuid.Nil, fmt.Errorf("tenant ID not found in request")
}

// GetTenant retrieves full tenant context, caching lookups.
func (p *TenantProvider) GetTenant(ctx context.Context, tenantID uuid.UUID) (*TenantContext, error) {
	p.cacheMu.RLock()
	if cached, ok := p.cache[tenantID]; ok {
		p.cacheMu.RUnlock()
		return cached, nil
	}
	p.cacheMu.RUnlock()

	tenant := &TenantContext{}
	err := p.db.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(domain, '') as domain
		FROM tenants
		WHERE id = $1
	`, tenantID).Scan(&tenant.ID, &tenant.Name, &tenant.Domain)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	p.cacheMu.Lock()
	p.cache[tenantID] = tenant
	p.cacheMu.Unlock()
	return tenant, nil
}

// RequireTenant is middleware that resolves tenant context and rejects
// requests without one. Who the caller is decides the rejection: an
// authenticated session with no tenant scope is FORBIDDEN, an anonymous
// caller is UNAUTHORIZED. A session whose Workspace domain does not match
// the tenant's domain is likewise FORBIDDEN.
func (p *TenantProvider) RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := ExtractTenantID(r)
		if err != nil {
			p.respondNoTenant(w, r)
			return
		}

		tenant, err := p.GetTenant(r.Context(), tenantID)
		if err != nil {
			respondInternalError(w, err)
			return
		}
		if tenant == nil {
			p.respondNoTenant(w, r)
			return
		}

		if session := p.session(r); session != nil {
			if tenant.Domain != "" && !strings.EqualFold(session.Domain, tenant.Domain) {
				respondError(w, http.StatusForbidden, codeForbidden, "no access to this tenant")
				return
			}
		}

		ctx := context.WithValue(r.Context(), TenantContextKey{}, tenant)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (p *TenantProvider) session(r *http.Request) *auth.Session {
	if p.sessions == nil {
		return nil
	}
	return p.sessions.GetSession(r)
}

// respondNoTenant rejects a request that could not be scoped to a tenant.
func (p *TenantProvider) respondNoTenant(w http.ResponseWriter, r *http.Request) {
	if p.session(r) != nil {
		respondError(w, http.StatusForbidden, codeForbidden, "no tenant scope for this user")
		return
	}
	respondError(w, http.StatusUnauthorized, codeUnauthorized, "tenant context required")
}

// GetTenantFromContext retrieves tenant context, or nil
func GetTenantFromContext(ctx context.Context) *TenantContext {
	if tc, ok := ctx.Value(TenantContextKey{}).(*TenantContext); ok {
		return tc
	}
	return nil
}

// GetTenantIDFromContext retrieves the tenant ID, or uuid.Nil
func GetTenantIDFromContext(ctx context.Context) uuid.UUID {
	if tc := GetTenantFromContext(ctx); tc != nil {
		return tc.ID
	}
	return uuid.Nil
}
