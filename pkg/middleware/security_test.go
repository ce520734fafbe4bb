package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"cslearn/pkg/config"
	"cslearn/pkg/tenants"
)

func testConfig() config.Config {
	return config.Config{
		SessionCookie:    "csl_session",
		SessionCookieTag: "csl_session_",
		CSRFCookie:       "XSRF-TOKEN",
	}
}

func testRegistry() tenants.Registry {
	log := zap.NewNop().Sugar()
	return tenants.NewMemoryRegistry(log,
		tenants.Environment{
			ID: 7, Name: "Acme", PrimaryDomain: "learning.csl-brands.com",
			AdditionalDomains: []string{"portal.acme.io"},
			IsActive:          true,
		},
		tenants.Environment{
			ID: 8, Name: "Gone", PrimaryDomain: "gone.example.com",
			IsActive: false,
		},
	)
}

// resolveSecurity runs ConfigureSecurity over the request and captures the
// security context the inner handler sees.
func resolveSecurity(t *testing.T, r *http.Request) (*Security, *httptest.ResponseRecorder) {
	t.Helper()
	log := zap.NewNop().Sugar()
	var got *Security
	h := ConfigureSecurity(testConfig(), testRegistry(), log)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = SecurityFrom(r.Context())
		}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if got == nil {
		t.Fatal("security context not set")
	}
	return got, rec
}

func TestResolveByHostMatch(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	r.Header.Set("X-Frontend-Domain", "portal.acme.io")

	sec, _ := resolveSecurity(t, r)
	if sec.Environment == nil || sec.Environment.ID != 7 {
		t.Fatalf("environment = %+v, want id 7", sec.Environment)
	}
	if sec.Source != SourceHostMatch {
		t.Fatalf("source = %v, want host_match", sec.Source)
	}
}

func TestResolveTokenAbilityWinsOverHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	r.Header.Set("X-Frontend-Domain", "portal.acme.io")
	r = r.WithContext(WithPrincipal(r.Context(), &Principal{
		UserID: 42, TokenID: 1, Abilities: []string{"read", "environment_id:7"},
	}))

	sec, _ := resolveSecurity(t, r)
	if sec.Source != SourceTokenAbility {
		t.Fatalf("source = %v, want token_ability", sec.Source)
	}
	if sec.Environment == nil || sec.Environment.ID != 7 {
		t.Fatalf("environment = %+v, want id 7", sec.Environment)
	}
}

func TestResolveInactiveEnvironmentStaysUnresolved(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	r.Header.Set("X-Frontend-Domain", "gone.example.com")

	sec, _ := resolveSecurity(t, r)
	if sec.Environment != nil {
		t.Fatalf("environment = %+v, want nil", sec.Environment)
	}
	if sec.Source != SourceNone {
		t.Fatalf("source = %v, want none", sec.Source)
	}
}

func TestResolveInactiveTokenScopeStaysUnresolved(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	r = r.WithContext(WithPrincipal(r.Context(), &Principal{
		UserID: 42, TokenID: 1, Abilities: []string{"environment_id:8"},
	}))

	sec, _ := resolveSecurity(t, r)
	if sec.Environment != nil {
		t.Fatalf("environment = %+v, want nil for deactivated scope", sec.Environment)
	}
}

func TestUnknownHostStaysUnresolved(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	r.Header.Set("X-Frontend-Domain", "nobody.example.net")

	sec, _ := resolveSecurity(t, r)
	if sec.Environment != nil || sec.Source != SourceNone {
		t.Fatalf("got env=%+v source=%v, want unresolved", sec.Environment, sec.Source)
	}
}

func TestCookieNameFollowsFrontendDomain(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	r.Header.Set("X-Frontend-Domain", "learning.csl-brands.com")

	sec, _ := resolveSecurity(t, r)
	if got, want := sec.SessionCookieName, "csl_session_learning_csl_brands_com"; got != want {
		t.Fatalf("cookie name = %q, want %q", got, want)
	}
}

func TestCookieNameDefaultsWithoutFrontendDomain(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/data", nil)

	sec, _ := resolveSecurity(t, r)
	if got, want := sec.SessionCookieName, "csl_session"; got != want {
		t.Fatalf("cookie name = %q, want %q", got, want)
	}
}

func TestAllowedOriginsEchoRegisteredOnly(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	r.Header.Set("Origin", "https://portal.acme.io")

	sec, _ := resolveSecurity(t, r)
	if len(sec.AllowedOrigins) != 1 || sec.AllowedOrigins[0] != "https://portal.acme.io" {
		t.Fatalf("allowed origins = %v, want exact echo", sec.AllowedOrigins)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/data", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	sec, _ = resolveSecurity(t, r)
	if len(sec.AllowedOrigins) != 0 {
		t.Fatalf("allowed origins = %v, want empty for unregistered origin", sec.AllowedOrigins)
	}
}

func TestCORSAppliesAllowList(t *testing.T) {
	h := CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	r = r.WithContext(WithSecurity(r.Context(), &Security{
		AllowedOrigins: []string{"https://learning.csl-brands.com"},
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://learning.csl-brands.com" {
		t.Fatalf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("Allow-Credentials = %q", got)
	}
}

func TestCORSSilentWhenNoMatch(t *testing.T) {
	h := CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	r = r.WithContext(WithSecurity(r.Context(), &Security{}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("Allow-Origin = %q, want unset", got)
	}
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	called := false
	h := CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	r := httptest.NewRequest(http.MethodOptions, "/api/data", nil)
	r = r.WithContext(WithSecurity(r.Context(), &Security{
		AllowedOrigins: []string{"https://portal.acme.io"},
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	if called {
		t.Fatal("handler ran on preflight")
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
}
