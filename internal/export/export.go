// Package export prepares campaign content for destination platforms:
// retagging internal variable tokens into each platform's merge tag format,
// resolving content per lead, and building CSV exports.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ignite/outreach-engine/internal/leads"
	"github.com/ignite/outreach-engine/internal/personalization"
)

// LeadContent is content resolved for a single lead.
type LeadContent struct {
	LeadID  uuid.UUID `json:"lead_id"`
	Email   string    `json:"email"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
}

// Retag converts internal variable tokens in the content to the target
// platform's merge tag format. Unknown tokens pass through untouched, same
// as resolution. CSV has no inline tag format, so retagging to CSV is an
// identity operation; use BuildCSV instead.
func Retag(content personalization.Content, platform personalization.Platform) (personalization.Content, error) {
	mapping, ok := personalization.PlatformMapping(platform)
	if !ok {
		return personalization.Content{}, fmt.Errorf("unknown export platform %q", platform)
	}

	out := content
	for _, v := range personalization.ListVariables() {
		tag := mapping[v.Name]
		if tag == v.Token || platform == personalization.PlatformCSV {
			continue
		}
		out.Subject = strings.ReplaceAll(out.Subject, v.Token, tag)
		out.Body = strings.ReplaceAll(out.Body, v.Token, tag)
	}
	return out, nil
}

// ResolveForLeads resolves the content against every lead, producing
// ready-to-copy per-lead subject/body pairs for the clipboard flow.
func ResolveForLeads(content personalization.Content, ls []*leads.Lead) []LeadContent {
	out := make([]LeadContent, 0, len(ls))
	for _, lead := range ls {
		resolved := personalization.Resolve(content, lead.Data())
		out = append(out, LeadContent{
			LeadID:  lead.ID,
			Email:   lead.Email,
			Subject: resolved.Subject,
			Body:    resolved.Body,
		})
	}
	return out
}

// BuildCSV renders a CSV export: one row per lead with the bare-column
// variable values plus the resolved subject and body. The column names come
// from the CSV platform mapping.
func BuildCSV(content personalization.Content, ls []*leads.Lead) (string, error) {
	mapping, _ := personalization.PlatformMapping(personalization.PlatformCSV)

	header := []string{"email"}
	vars := personalization.ListVariables()
	for _, v := range vars {
		header = append(header, mapping[v.Name])
	}
	header = append(header, "subject", "body")

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, lead := range ls {
		data := lead.Data()
		resolved := personalization.Resolve(content, data)

		row := []string{lead.Email}
		for _, v := range vars {
			row = append(row, data[v.Name])
		}
		row = append(row, resolved.Subject, resolved.Body)

		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.String(), nil
}
