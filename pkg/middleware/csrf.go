// pkg/middleware/csrf.go
package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cslearn/pkg/config"
	"cslearn/pkg/session"

	"go.uber.org/zap"
)

// csrfState carries the active session's CSRF token from the session
// middleware (which runs inside) back out to the synchronizing writer.
type csrfState struct {
	token string
}

type ctxCSRFStateKey struct{}

func noteCSRFToken(ctx context.Context, token string) {
	if st, ok := ctx.Value(ctxCSRFStateKey{}).(*csrfState); ok {
		st.token = token
	}
}

// SyncCSRFCookie reconciles the outgoing XSRF cookie just before the response
// is written. Two cases, computed as one declarative desired state so a name
// never gets duplicate Set-Cookie headers:
//
//   - a cookie already queued by the session layer (narrow, host-scoped) is
//     re-scoped to the shared root domain of the detected frontend origin,
//     preserving value, expiry and the secure flag, forcing HttpOnly=false
//     and path "/";
//   - no cookie queued but the session holds a token: a fresh cookie is
//     created at root-domain scope (host scope when no root domain exists).
//
// When no frontend domain is detected, or the host is localhost/an IP
// literal, the cookie stays host-scoped: an undetected domain must narrow the
// scope, never widen it.
//
// The session cookie itself is deliberately left alone — the two cookies use
// two different domain scopes by design.
func SyncCSRFCookie(cfg config.Config, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	sameSite := session.ParseSameSite(cfg.CookieSameSite, log)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			st := &csrfState{}
			ctx := context.WithValue(r.Context(), ctxCSRFStateKey{}, st)
			r = r.WithContext(ctx)
			cw := &csrfSyncWriter{
				ResponseWriter: w,
				req:            r,
				state:          st,
				cookieName:     cfg.CSRFCookie,
				ttl:            cfg.SessionTTL,
				secure:         cfg.CookieSecure,
				sameSite:       sameSite,
			}
			next.ServeHTTP(cw, r)
			cw.sync() // handlers that never write still get the cookie
		})
	}
}

// csrfSyncWriter rewrites the Set-Cookie headers exactly once, at the first
// write (headers are immutable after that).
type csrfSyncWriter struct {
	http.ResponseWriter
	req        *http.Request
	state      *csrfState
	cookieName string
	ttl        time.Duration
	secure     bool
	sameSite   http.SameSite
	synced     bool
}

func (cw *csrfSyncWriter) WriteHeader(code int) {
	cw.sync()
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *csrfSyncWriter) Write(b []byte) (int, error) {
	cw.sync()
	return cw.ResponseWriter.Write(b)
}

func (cw *csrfSyncWriter) sync() {
	if cw.synced {
		return
	}
	cw.synced = true

	h := cw.Header()
	var existing *http.Cookie
	var others []string
	for _, line := range h.Values("Set-Cookie") {
		if c := parseSetCookie(line); c != nil && c.Name == cw.cookieName {
			existing = c
			continue
		}
		others = append(others, line)
	}

	var sharedDomain string
	if sec := SecurityFrom(cw.req.Context()); sec != nil && sec.Origin != nil && sec.Origin.RootDomain != "" {
		// Leading dot covers every subdomain of the shared root.
		sharedDomain = "." + sec.Origin.RootDomain
	}

	var desired *http.Cookie
	switch {
	case existing != nil:
		if sharedDomain == "" {
			return // keep the narrow scope untouched
		}
		desired = &http.Cookie{
			Name:     existing.Name,
			Value:    existing.Value,
			Path:     "/",
			Domain:   sharedDomain,
			Expires:  existing.Expires,
			MaxAge:   existing.MaxAge,
			Secure:   existing.Secure,
			HttpOnly: false,
			SameSite: existing.SameSite,
		}
	case cw.state.token != "":
		desired = &http.Cookie{
			Name:     cw.cookieName,
			Value:    cw.state.token,
			Path:     "/",
			Domain:   sharedDomain,
			MaxAge:   int(cw.ttl.Seconds()),
			Secure:   cw.secure,
			HttpOnly: false,
			SameSite: cw.sameSite,
		}
	default:
		return
	}

	h.Del("Set-Cookie")
	for _, line := range others {
		h.Add("Set-Cookie", line)
	}
	h.Add("Set-Cookie", desired.String())
}

// parseSetCookie decodes a Set-Cookie header line. Returns nil for lines that
// do not look like a cookie.
func parseSetCookie(line string) *http.Cookie {
	parts := strings.Split(line, ";")
	name, value, found := strings.Cut(strings.TrimSpace(parts[0]), "=")
	if !found || name == "" {
		return nil
	}
	c := &http.Cookie{Name: name, Value: strings.Trim(value, `"`)}
	for _, p := range parts[1:] {
		attr, val, _ := strings.Cut(strings.TrimSpace(p), "=")
		switch strings.ToLower(attr) {
		case "path":
			c.Path = val
		case "domain":
			c.Domain = val
		case "max-age":
			if n, err := strconv.Atoi(val); err == nil {
				c.MaxAge = n
			}
		case "expires":
			if t, err := time.Parse(time.RFC1123, val); err == nil {
				c.Expires = t
			} else if t, err := time.Parse("Mon, 02-Jan-2006 15:04:05 MST", val); err == nil {
				c.Expires = t
			}
		case "secure":
			c.Secure = true
		case "httponly":
			c.HttpOnly = true
		case "samesite":
			switch strings.ToLower(val) {
			case "lax":
				c.SameSite = http.SameSiteLaxMode
			case "strict":
				c.SameSite = http.SameSiteStrictMode
			case "none":
				c.SameSite = http.SameSiteNoneMode
			}
		}
	}
	return c
}
