package prompts

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func templateRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "tenant_id", "key", "body", "model", "temperature", "max_tokens", "created_at", "updated_at",
	})
}

func TestGetForTenant(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	tenantID := uuid.New()
	templateID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT .+ FROM prompt_templates").
		WithArgs("email_subject_generation", tenantID).
		WillReturnRows(templateRows().AddRow(
			templateID, tenantID, "email_subject_generation", "Write a subject about {{topic}}",
			"gpt-4o", 0.5, 80, now, now,
		))

	store := NewSQLTemplateStore(db)
	tmpl, err := store.GetForTenant(context.Background(), KeyEmailSubject, tenantID)
	require.NoError(t, err)
	require.NotNil(t, tmpl)

	assert.Equal(t, templateID, tmpl.ID)
	require.NotNil(t, tmpl.TenantID)
	assert.Equal(t, tenantID, *tmpl.TenantID)
	assert.Equal(t, KeyEmailSubject, tmpl.Key)
	assert.Equal(t, "gpt-4o", tmpl.Model)
	assert.Equal(t, 0.5, tmpl.Temperature)
	assert.Equal(t, 80, tmpl.MaxTokens)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForTenantNoRows(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	tenantID := uuid.New()
	mock.ExpectQuery("SELECT .+ FROM prompt_templates").
		WithArgs("email_body_generation", tenantID).
		WillReturnRows(templateRows())

	store := NewSQLTemplateStore(db)
	tmpl, err := store.GetForTenant(context.Background(), KeyEmailBody, tenantID)
	require.NoError(t, err)
	assert.Nil(t, tmpl, "missing override is nil, not an error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetGlobal(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	templateID := uuid.New()
	now := time.Now()

	mock.ExpectQuery("SELECT .+ FROM prompt_templates").
		WithArgs("icebreaker_generation").
		WillReturnRows(templateRows().AddRow(
			templateID, nil, "icebreaker_generation", "Write an icebreaker for {{first_name}}",
			"gpt-4o-mini", 0.8, 150, now, now,
		))

	store := NewSQLTemplateStore(db)
	tmpl, err := store.GetGlobal(context.Background(), KeyIcebreaker)
	require.NoError(t, err)
	require.NotNil(t, tmpl)

	assert.Nil(t, tmpl.TenantID, "global templates carry no tenant")
	assert.Equal(t, "Write an icebreaker for {{first_name}}", tmpl.Body)
	assert.NoError(t, mock.ExpectationsWereMet())
}
