package adminapi

import (
	"encoding/json"
	"net/http"

	"cslearn/pkg/db"
)

type brandingPayload struct {
	CompanyName    string `json:"company_name"`
	LogoPath       string `json:"logo_path"`
	FaviconPath    string `json:"favicon_path"`
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	AccentColor    string `json:"accent_color"`
	FontFamily     string `json:"font_family"`
	CustomCSS      string `json:"custom_css"`
	CustomJS       string `json:"custom_js"`
}

func (a *App) getBranding(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	row := a.db.QueryRow(r.Context(), `
		SELECT company_name, logo_path, favicon_path, primary_color, secondary_color,
		       accent_color, font_family, custom_css, custom_js
		  FROM brandings WHERE environment_id=$1 AND is_active
		 ORDER BY updated_at DESC LIMIT 1`, id)
	var b brandingPayload
	if err := row.Scan(&b.CompanyName, &b.LogoPath, &b.FaviconPath, &b.PrimaryColor,
		&b.SecondaryColor, &b.AccentColor, &b.FontFamily, &b.CustomCSS, &b.CustomJS); err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, b, http.StatusOK)
}

// putBranding replaces the active branding for an environment. The write runs
// inside an environment-scoped transaction so row-level security policies see
// app.environment_id.
func (a *App) putBranding(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var in brandingPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := db.BeginTxWithEnvironment(ctx, a.db, id)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT true FROM environments WHERE id=$1`, id).Scan(&exists); err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if _, err := tx.Exec(ctx,
		`UPDATE brandings SET is_active=false, updated_at=NOW() WHERE environment_id=$1 AND is_active`, id); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	var brandingID int64
	if err := tx.QueryRow(ctx, `
		INSERT INTO brandings (environment_id, company_name, logo_path, favicon_path,
		  primary_color, secondary_color, accent_color, font_family, custom_css, custom_js)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id`,
		id, in.CompanyName, in.LogoPath, in.FaviconPath, in.PrimaryColor,
		in.SecondaryColor, in.AccentColor, in.FontFamily, in.CustomCSS, in.CustomJS).Scan(&brandingID); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	a.log.Infow("branding updated", "environment_id", id, "branding_id", brandingID)
	writeJSON(w, map[string]any{"id": brandingID}, http.StatusOK)
}
