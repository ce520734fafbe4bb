package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cslearn/pkg/branding"
	"cslearn/pkg/config"
	"cslearn/pkg/session"
	"cslearn/pkg/tenants"
	"cslearn/pkg/tokens"
)

func newPipelineServer(t *testing.T) http.Handler {
	t.Helper()
	log := zap.NewNop().Sugar()
	cfg := config.Config{
		SessionCookie:    "csl_session",
		SessionCookieTag: "csl_session_",
		CSRFCookie:       "XSRF-TOKEN",
		SessionTTL:       2 * time.Hour,
		CookieSameSite:   "lax",
		AssetBaseURL:     "https://cdn.example.com",
	}
	reg := tenants.NewMemoryRegistry(log, tenants.Environment{
		ID: 7, Name: "Acme", PrimaryDomain: "learning.csl-brands.com",
		AdditionalDomains: []string{"portal.acme.io"},
		IsActive:          true,
	})
	brandings := branding.NewMemoryStore(branding.Branding{
		EnvironmentID: int64p(7), CompanyName: "Acme Learning",
		LogoPath: "logos/acme.png", IsActive: true,
	})
	toks := tokens.NewMemoryStore(tokens.Token{
		ID: 1, UserID: 42,
		SecretHash: tokens.HashSecret("s3cret"),
		Abilities:  []string{"read", "environment_id:7"},
	})
	sessions := session.NewManager(nil, cfg.SessionTTL, false, cfg.CookieSameSite, log)

	r := chi.NewRouter()
	for _, mw := range Pipeline(cfg, log, reg, toks, brandings, sessions) {
		r.Use(mw)
	}
	r.Get("/api/data", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	})
	r.Get("/api/me", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"authenticated": false}
		if p := PrincipalFrom(r.Context()); p != nil {
			resp["authenticated"] = true
			resp["user_id"] = p.UserID
		}
		if sec := SecurityFrom(r.Context()); sec != nil {
			resp["resolution_source"] = sec.Source.String()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})
	return r
}

func TestPipelineFrontendDomainFlow(t *testing.T) {
	srv := newPipelineServer(t)

	r := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	r.Header.Set("X-Frontend-Domain", "learning.csl-brands.com")
	r.Header.Set("Origin", "https://learning.csl-brands.com")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, r)
	resp := rec.Result()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "https://learning.csl-brands.com", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))

	var sess, csrf *http.Cookie
	for _, c := range resp.Cookies() {
		switch c.Name {
		case "csl_session_learning_csl_brands_com":
			sess = c
		case "XSRF-TOKEN":
			csrf = c
		}
	}
	require.NotNil(t, sess, "namespaced session cookie missing")
	assert.True(t, sess.HttpOnly)
	assert.Empty(t, sess.Domain, "session cookie must stay host-scoped")

	require.NotNil(t, csrf, "csrf cookie missing")
	assert.False(t, csrf.HttpOnly)
	assert.Contains(t, []string{"csl-brands.com", ".csl-brands.com"}, csrf.Domain)
	assert.Len(t, csrf.Value, 40)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Contains(t, body, "data")
	env := body["environment"].(map[string]any)
	assert.EqualValues(t, 7, env["id"])
	assert.Equal(t, "learning.csl-brands.com", env["primary_domain"])
	b := body["branding"].(map[string]any)
	assert.Equal(t, "Acme Learning", b["company_name"])
	assert.Equal(t, "https://cdn.example.com/logos/acme.png", b["logo_url"])
}

func TestPipelineSessionRoundTrip(t *testing.T) {
	srv := newPipelineServer(t)

	first := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	first.Header.Set("X-Frontend-Domain", "learning.csl-brands.com")
	rec1 := httptest.NewRecorder()
	srv.ServeHTTP(rec1, first)

	var sessCookie, csrf1 *http.Cookie
	for _, c := range rec1.Result().Cookies() {
		switch c.Name {
		case "csl_session_learning_csl_brands_com":
			sessCookie = c
		case "XSRF-TOKEN":
			csrf1 = c
		}
	}
	require.NotNil(t, sessCookie)
	require.NotNil(t, csrf1)

	second := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	second.Header.Set("X-Frontend-Domain", "learning.csl-brands.com")
	second.AddCookie(&http.Cookie{Name: sessCookie.Name, Value: sessCookie.Value})
	rec2 := httptest.NewRecorder()
	srv.ServeHTTP(rec2, second)

	for _, c := range rec2.Result().Cookies() {
		if c.Name == "XSRF-TOKEN" {
			assert.Equal(t, csrf1.Value, c.Value, "csrf token must be stable across a session")
		}
	}
}

func TestPipelineTokenScopedResolution(t *testing.T) {
	srv := newPipelineServer(t)

	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	r.Header.Set("Authorization", "Bearer 1|s3cret")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, r)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "token_ability", body["resolution_source"])
	env := body["environment"].(map[string]any)
	assert.EqualValues(t, 7, env["id"])

	var sess *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "csl_session" {
			sess = c
		}
	}
	require.NotNil(t, sess, "default session cookie expected without a frontend domain")
}

func TestPipelineUnknownDomainServesGlobally(t *testing.T) {
	srv := newPipelineServer(t)

	r := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	r.Header.Set("X-Frontend-Domain", "nobody.example.net")
	r.Header.Set("Origin", "https://nobody.example.net")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, r)
	resp := rec.Result()

	require.Equal(t, http.StatusOK, resp.StatusCode, "unresolved traffic must still be served")
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotContains(t, body, "environment")
	assert.NotContains(t, body, "branding")

	var sess *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "csl_session_nobody_example_net" {
			sess = c
		}
	}
	require.NotNil(t, sess, "unknown domains still get an isolated session namespace")
}
