package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"cslearn/pkg/branding"
	"cslearn/pkg/config"
	"cslearn/pkg/tenants"
)

func int64p(v int64) *int64 { return &v }

func testBrandings() branding.Store {
	return branding.NewMemoryStore(
		branding.Branding{
			EnvironmentID: int64p(7),
			CompanyName:   "Acme Learning",
			LogoPath:      "logos/acme.png",
			PrimaryColor:  "#003366",
			IsActive:      true,
		},
		branding.Branding{
			UserID:      int64p(42),
			CompanyName: "Personal Brand",
			IsActive:    true,
		},
	)
}

func augmentThrough(t *testing.T, r *http.Request, inner http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	cfg := config.Config{AssetBaseURL: "https://cdn.example.com"}
	h := Augment(cfg, testBrandings(), zap.NewNop().Sugar())(inner)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func jsonHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func resolvedRequest() *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	env := tenants.Environment{ID: 7, Name: "Acme", PrimaryDomain: "learning.csl-brands.com", IsActive: true}
	return r.WithContext(WithSecurity(r.Context(), &Security{
		Environment: &env, Source: SourceHostMatch,
	}))
}

func TestAugmentInjectsEnvironmentAndBranding(t *testing.T) {
	rec := augmentThrough(t, resolvedRequest(), jsonHandler(`{"data":[1,2]}`))

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	env, ok := out["environment"].(map[string]any)
	if !ok {
		t.Fatalf("environment missing: %v", out)
	}
	if env["id"].(float64) != 7 || env["primary_domain"] != "learning.csl-brands.com" {
		t.Fatalf("environment = %v", env)
	}
	b, ok := out["branding"].(map[string]any)
	if !ok {
		t.Fatalf("branding missing: %v", out)
	}
	if b["company_name"] != "Acme Learning" {
		t.Fatalf("branding = %v", b)
	}
	if b["logo_url"] != "https://cdn.example.com/logos/acme.png" {
		t.Fatalf("logo_url = %v, want absolutized", b["logo_url"])
	}
	if _, ok := out["data"]; !ok {
		t.Fatal("original payload dropped")
	}
}

func TestAugmentNeverOverwritesPresentFields(t *testing.T) {
	rec := augmentThrough(t, resolvedRequest(),
		jsonHandler(`{"environment":{"id":99},"branding":{"company_name":"Theirs"}}`))

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if out["environment"].(map[string]any)["id"].(float64) != 99 {
		t.Fatalf("environment overwritten: %v", out["environment"])
	}
	if out["branding"].(map[string]any)["company_name"] != "Theirs" {
		t.Fatalf("branding overwritten: %v", out["branding"])
	}
}

func TestAugmentUserBrandingWhenUnresolved(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	ctx := WithSecurity(r.Context(), &Security{})
	ctx = WithPrincipal(ctx, &Principal{UserID: 42, TokenID: 1})
	rec := augmentThrough(t, r.WithContext(ctx), jsonHandler(`{"ok":true}`))

	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if _, ok := out["environment"]; ok {
		t.Fatal("environment injected without resolution")
	}
	b, ok := out["branding"].(map[string]any)
	if !ok {
		t.Fatalf("user branding missing: %v", out)
	}
	if b["company_name"] != "Personal Brand" {
		t.Fatalf("branding = %v", b)
	}
	if b["environment_id"] != nil {
		t.Fatalf("environment_id = %v, want null", b["environment_id"])
	}
}

func TestAugmentPassesNonJSONThrough(t *testing.T) {
	const body = "<html>hello</html>"
	rec := augmentThrough(t, resolvedRequest(), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(body))
	})
	if rec.Body.String() != body {
		t.Fatalf("body = %q, want byte-identical passthrough", rec.Body.String())
	}
}

func TestAugmentPassesJSONArrayThrough(t *testing.T) {
	const body = `[1,2,3]`
	rec := augmentThrough(t, resolvedRequest(), jsonHandler(body))
	// Only top-level objects are augmentable.
	if rec.Body.String() != body {
		t.Fatalf("body = %q, want untouched array", rec.Body.String())
	}
}

func TestAugmentPreservesStatusCode(t *testing.T) {
	rec := augmentThrough(t, resolvedRequest(), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"missing"}`))
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if _, ok := out["environment"]; !ok {
		t.Fatal("error responses are augmented too")
	}
}
