// pkg/middleware/cors.go
package middleware

import (
	"net/http"
)

// CORS applies the per-request allow-list computed by ConfigureSecurity.
// Tenant domains are data, not configuration, so there is no static origin
// list: the single matched origin is echoed back verbatim with credentials
// enabled, and anything else gets no CORS headers at all. Enforcement of an
// empty allow-list is the browser's job; the request itself still proceeds.
func CORS() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sec := SecurityFrom(r.Context())
			if sec != nil && len(sec.AllowedOrigins) > 0 {
				w.Header().Set("Access-Control-Allow-Origin", sec.AllowedOrigins[0])
				w.Header().Add("Vary", "Origin")
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Frontend-Domain, X-XSRF-TOKEN, X-Requested-With")
				w.Header().Set("Access-Control-Expose-Headers", "X-Request-Id")
				w.Header().Set("Access-Control-Max-Age", "86400")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
