// Package leads provides read access to campaign leads for the export and
// preview paths. Lead import and enrichment live in a separate service.
package leads

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/personalization"
)

// Lead is a campaign recipient with its personalization fields.
type Lead struct {
	ID          uuid.UUID `json:"id"`
	CampaignID  uuid.UUID `json:"campaign_id"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name,omitempty"`
	CompanyName string    `json:"company_name,omitempty"`
	Title       string    `json:"title,omitempty"`
	Icebreaker  string    `json:"icebreaker,omitempty"`
}

// Data returns the lead's personalization values keyed by variable name.
// Empty fields are omitted so the resolver leaves their tokens intact.
func (l *Lead) Data() personalization.LeadData {
	data := personalization.LeadData{}
	if l.FirstName != "" {
		data["first_name"] = l.FirstName
	}
	if l.CompanyName != "" {
		data["company_name"] = l.CompanyName
	}
	if l.Title != "" {
		data["title"] = l.Title
	}
	if l.Icebreaker != "" {
		data["icebreaker"] = l.Icebreaker
	}
	return data
}

// Store reads leads from Postgres.
type Store struct {
	db *sql.DB
}

// NewStore creates a lead store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetLead retrieves a single lead by ID, or nil when it does not exist.
func (s *Store) GetLead(ctx context.Context, id uuid.UUID) (*Lead, error) {
	query := `SELECT id, campaign_id, email,
		COALESCE(first_name, '') as first_name, COALESCE(company_name, '') as company_name,
		COALESCE(title, '') as title, COALESCE(icebreaker, '') as icebreaker
		FROM leads WHERE id = $1`

	lead := &Lead{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&lead.ID, &lead.CampaignID, &lead.Email,
		&lead.FirstName, &lead.CompanyName, &lead.Title, &lead.Icebreaker,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

// ListByCampaign returns all leads of a campaign ordered by email.
func (s *Store) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]*Lead, error) {
	query := `SELECT id, campaign_id, email,
		COALESCE(first_name, '') as first_name, COALESCE(company_name, '') as company_name,
		COALESCE(title, '') as title, COALESCE(icebreaker, '') as icebreaker
		FROM leads WHERE campaign_id = $1
		ORDER BY email`

	rows, err := s.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var out []*Lead
	for rows.Next() {
		lead := &Lead{}
		if err := rows.Scan(
			&lead.ID, &lead.CampaignID, &lead.Email,
			&lead.FirstName, &lead.CompanyName, &lead.Title, &lead.Icebreaker,
		); err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate leads: %w", err)
	}
	return out, nil
}
