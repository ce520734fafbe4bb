package adminapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Handler builds the HTTP handler with routes and middleware.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Logger, chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	allowed := []string{"http://localhost:3001"}
	if v := strings.TrimSpace(a.adminOrigins); v != "" {
		parts := strings.Split(v, ",")
		tmp := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				tmp = append(tmp, s)
			}
		}
		if len(tmp) > 0 {
			allowed = tmp
		}
	}

	r.Route("/admin", func(ar chi.Router) {
		ar.Use(cors(allowed))
		ar.Use(a.adminAuth)
		ar.Get("/environments", a.listEnvironments)
		ar.Post("/environments", a.createEnvironment)
		ar.Get("/environments/{id}", a.getEnvironment)
		ar.Put("/environments/{id}", a.updateEnvironment)
		ar.Post("/environments/{id}/deactivate", a.deactivateEnvironment)
		ar.Post("/environments/{id}/domains", a.addDomain)
		ar.Delete("/environments/{id}/domains/{domain}", a.removeDomain)
		ar.Get("/environments/{id}/branding", a.getBranding)
		ar.Put("/environments/{id}/branding", a.putBranding)
	})

	return r
}
