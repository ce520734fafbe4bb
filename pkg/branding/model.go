package branding

import "strings"

// Branding holds the white-label appearance settings attached to JSON
// responses. A record is scoped either to an environment or to a user.
type Branding struct {
	ID             int64
	EnvironmentID  *int64
	UserID         *int64
	CompanyName    string
	LogoPath       string // stored relative, absolutized on output
	FaviconPath    string
	PrimaryColor   string
	SecondaryColor string
	AccentColor    string
	FontFamily     string
	CustomCSS      string
	CustomJS       string
	IsActive       bool
}

// AssetURL absolutizes a stored asset path against base. Already-absolute
// paths pass through untouched.
func AssetURL(base, path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// Payload builds the injectable branding object. environmentID may be nil
// (user-scoped branding on unresolved traffic).
func (b Branding) Payload(assetBase string, environmentID *int64) map[string]any {
	var envID any
	if environmentID != nil {
		envID = *environmentID
	}
	return map[string]any{
		"environment_id":  envID,
		"company_name":    b.CompanyName,
		"logo_url":        AssetURL(assetBase, b.LogoPath),
		"favicon_url":     AssetURL(assetBase, b.FaviconPath),
		"primary_color":   b.PrimaryColor,
		"secondary_color": b.SecondaryColor,
		"accent_color":    b.AccentColor,
		"font_family":     b.FontFamily,
		"custom_css":      b.CustomCSS,
		"custom_js":       b.CustomJS,
	}
}
