// internal/api/handler.go
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"cslearn/pkg/middleware"
	"cslearn/pkg/problems"
	"cslearn/pkg/session"
)

// Routes mounts the tenant-facing API surface. Handlers here return plain
// JSON; the pipeline attaches environment identity and branding on the way
// out.
func Routes(r chi.Router, log *zap.SugaredLogger) {
	r.Get("/api/me", me)
	r.Get("/api/csrf", csrfToken)
	r.Get("/api/data", data)
	r.Get("/api/courses", courses)
	r.Get("/api/courses/{id}", course)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		problems.Write(w, http.StatusNotFound, "not-found", "no such resource: "+r.URL.Path)
	})
}

func me(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"authenticated": false}
	if p := middleware.PrincipalFrom(r.Context()); p != nil {
		resp["authenticated"] = true
		resp["user_id"] = p.UserID
	}
	if sec := middleware.SecurityFrom(r.Context()); sec != nil {
		resp["resolution_source"] = sec.Source.String()
	}
	writeJSON(w, resp, http.StatusOK)
}

// csrfToken lets frontends bootstrap the double-submit token when the cookie
// is not yet readable (first visit before the root-domain cookie lands).
func csrfToken(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{}
	if s := session.FromContext(r.Context()); s != nil {
		resp["csrf_token"] = s.CSRFToken
	}
	writeJSON(w, resp, http.StatusOK)
}

func data(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"data":         []any{},
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

func courses(w http.ResponseWriter, r *http.Request) {
	// Course catalog lives in the business layer; this surface only proves
	// the pipeline end to end.
	writeJSON(w, map[string]any{"courses": []any{}}, http.StatusOK)
}

func course(w http.ResponseWriter, r *http.Request) {
	problems.Write(w, http.StatusNotFound, "course-not-found",
		"course "+chi.URLParam(r, "id")+" does not exist")
}

func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
