package adminapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"cslearn/pkg/domainutil"
)

type environmentPayload struct {
	Name              string   `json:"name"`
	PrimaryDomain     string   `json:"primary_domain"`
	AdditionalDomains []string `json:"additional_domains"`
	IsActive          *bool    `json:"is_active"`
}

type environmentView struct {
	ID                int64    `json:"id"`
	Name              string   `json:"name"`
	PrimaryDomain     string   `json:"primary_domain"`
	AdditionalDomains []string `json:"additional_domains"`
	IsActive          bool     `json:"is_active"`
}

func (a *App) listEnvironments(w http.ResponseWriter, r *http.Request) {
	rows, err := a.db.Query(r.Context(), `
		SELECT e.id, e.name, e.primary_domain, e.is_active,
		       COALESCE(array_agg(d.domain ORDER BY d.position) FILTER (WHERE d.domain IS NOT NULL), '{}')
		  FROM environments e
		  LEFT JOIN environment_domains d ON d.environment_id = e.id
		 GROUP BY e.id
		 ORDER BY e.id`)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	out := []environmentView{}
	for rows.Next() {
		var v environmentView
		if err := rows.Scan(&v.ID, &v.Name, &v.PrimaryDomain, &v.IsActive, &v.AdditionalDomains); err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		out = append(out, v)
	}
	writeJSON(w, map[string]any{"environments": out}, http.StatusOK)
}

func (a *App) getEnvironment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	row := a.db.QueryRow(r.Context(), `
		SELECT e.id, e.name, e.primary_domain, e.is_active,
		       COALESCE(array_agg(d.domain ORDER BY d.position) FILTER (WHERE d.domain IS NOT NULL), '{}')
		  FROM environments e
		  LEFT JOIN environment_domains d ON d.environment_id = e.id
		 WHERE e.id = $1
		 GROUP BY e.id`, id)
	var v environmentView
	if err := row.Scan(&v.ID, &v.Name, &v.PrimaryDomain, &v.IsActive, &v.AdditionalDomains); err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, v, http.StatusOK)
}

func (a *App) createEnvironment(w http.ResponseWriter, r *http.Request) {
	var in environmentPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	in.PrimaryDomain = strings.ToLower(strings.TrimSpace(in.PrimaryDomain))
	if in.PrimaryDomain == "" {
		http.Error(w, "primary_domain required", http.StatusBadRequest)
		return
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}
	var id int64
	err := a.db.QueryRow(r.Context(), `
		INSERT INTO environments (name, primary_domain, is_active)
		VALUES ($1,$2,$3) RETURNING id`, in.Name, in.PrimaryDomain, active).Scan(&id)
	if err != nil {
		http.Error(w, "domain already registered", http.StatusConflict)
		return
	}
	for i, dom := range in.AdditionalDomains {
		dom = strings.ToLower(strings.TrimSpace(dom))
		if dom == "" {
			continue
		}
		_, _ = a.db.Exec(r.Context(), `
			INSERT INTO environment_domains (environment_id, domain, position)
			VALUES ($1,$2,$3) ON CONFLICT (domain) DO NOTHING`, id, dom, i)
	}
	a.log.Infow("environment created", "id", id, "primary_domain", in.PrimaryDomain)
	writeJSON(w, map[string]any{"id": id}, http.StatusCreated)
}

func (a *App) updateEnvironment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var in environmentPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	in.PrimaryDomain = strings.ToLower(strings.TrimSpace(in.PrimaryDomain))
	tag, err := a.db.Exec(r.Context(), `
		UPDATE environments SET
		  name = COALESCE(NULLIF($2,''), name),
		  primary_domain = COALESCE(NULLIF($3,''), primary_domain),
		  is_active = COALESCE($4, is_active),
		  updated_at = NOW()
		 WHERE id = $1`, id, in.Name, in.PrimaryDomain, in.IsActive)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if tag.RowsAffected() == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"ok": true}, http.StatusOK)
}

// deactivateEnvironment takes the environment out of host resolution without
// deleting its data. Requests for its domains fall back to unresolved.
func (a *App) deactivateEnvironment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	tag, err := a.db.Exec(r.Context(),
		`UPDATE environments SET is_active=false, updated_at=NOW() WHERE id=$1`, id)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if tag.RowsAffected() == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	a.log.Infow("environment deactivated", "id", id)
	writeJSON(w, map[string]any{"ok": true}, http.StatusOK)
}

func (a *App) addDomain(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var in struct {
		Domain string `json:"domain"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	dom, ok := domainutil.HostWithPort("https://" + strings.TrimSpace(in.Domain))
	if !ok {
		http.Error(w, "invalid domain", http.StatusBadRequest)
		return
	}
	tag, err := a.db.Exec(r.Context(), `
		INSERT INTO environment_domains (environment_id, domain, position)
		SELECT $1, $2, COALESCE(MAX(position)+1, 0) FROM environment_domains WHERE environment_id=$1
		ON CONFLICT (domain) DO NOTHING`, id, dom)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if tag.RowsAffected() == 0 {
		http.Error(w, "domain already registered", http.StatusConflict)
		return
	}
	writeJSON(w, map[string]any{"ok": true}, http.StatusCreated)
}

func (a *App) removeDomain(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	dom := strings.ToLower(chi.URLParam(r, "domain"))
	tag, err := a.db.Exec(r.Context(),
		`DELETE FROM environment_domains WHERE environment_id=$1 AND domain=$2`, id, dom)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if tag.RowsAffected() == 0 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]any{"ok": true}, http.StatusOK)
}
