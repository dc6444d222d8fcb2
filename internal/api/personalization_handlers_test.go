package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func personalizationRouter() chi.Router {
	r := chi.NewRouter()
	NewPersonalizationHandlers().RegisterRoutes(r)
	return r
}

func TestHandleListVariables(t *testing.T) {
	rec := httptest.NewRecorder()
	personalizationRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/variables", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Variables []struct {
			Name  string `json:"name"`
			Token string `json:"token"`
		} `json:"variables"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Variables, 4)

	names := make(map[string]string)
	for _, v := range resp.Variables {
		names[v.Name] = v.Token
	}
	assert.Equal(t, "{{first_name}}", names["first_name"])
	assert.Equal(t, "{{icebreaker}}", names["icebreaker"])
}

func TestHandlePlatformMapping(t *testing.T) {
	rec := httptest.NewRecorder()
	personalizationRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mappings/snovio", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Platform string            `json:"platform"`
		Mapping  map[string]string `json:"mapping"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "snovio", resp.Platform)
	assert.Equal(t, "{{firstName}}", resp.Mapping["first_name"])
	assert.Equal(t, "{{position}}", resp.Mapping["title"])
}

func TestHandlePlatformMappingUnknown(t *testing.T) {
	rec := httptest.NewRecorder()
	personalizationRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mappings/mailchimp", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeValidation, decodeError(t, rec).Code)
}

func TestHandleResolve(t *testing.T) {
	body := `{
		"subject": "Quick question, {{first_name}}",
		"body": "{{icebreaker}} Keep scaling {{company_name}}.",
		"lead": {"first_name": "Ana", "company_name": "Driftwave"}
	}`
	rec := httptest.NewRecorder()
	personalizationRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/resolve", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ResolveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Quick question, Ana", resp.Subject)
	assert.Equal(t, "{{icebreaker}} Keep scaling Driftwave.", resp.Body)
	assert.Equal(t, []string{"icebreaker"}, resp.Unresolved)
}

func TestHandleResolveEmptyContent(t *testing.T) {
	rec := httptest.NewRecorder()
	personalizationRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/resolve", strings.NewReader(`{"lead":{}}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeValidation, decodeError(t, rec).Code)
}
