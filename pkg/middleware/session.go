// pkg/middleware/session.go
package middleware

import (
	"net/http"

	"cslearn/pkg/config"
	"cslearn/pkg/session"

	"go.uber.org/zap"
)

// Sessions loads the session under the cookie name fixed by
// ConfigureSecurity. The name is read, never derived here: deriving it after
// the session subsystem starts could read another environment's session data,
// which is exactly the isolation failure the pre-session phase exists to
// prevent.
//
// Alongside the narrow session cookie it emits a host-scoped XSRF cookie the
// way generic session frameworks do; SyncCSRFCookie widens that one (and only
// that one) to the shared root domain on the way out.
func Sessions(cfg config.Config, mgr *session.Manager, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			cookieName := cfg.SessionCookie
			if sec := SecurityFrom(ctx); sec != nil && sec.SessionCookieName != "" {
				cookieName = sec.SessionCookieName
			}

			sess := mgr.Load(ctx, r, cookieName)
			mgr.WriteCookie(w, cookieName, sess)
			http.SetCookie(w, &http.Cookie{
				Name:     cfg.CSRFCookie,
				Value:    sess.CSRFToken,
				Path:     "/",
				MaxAge:   int(mgr.TTL().Seconds()),
				Secure:   mgr.Secure(),
				HttpOnly: false, // must stay readable by frontend JS
				SameSite: mgr.SameSite(),
			})
			noteCSRFToken(ctx, sess.CSRFToken)

			next.ServeHTTP(w, r.WithContext(session.WithSession(ctx, sess)))

			if err := mgr.Persist(ctx, sess); err != nil {
				log.Warnw("session persist", "session_id", sess.ID, "err", err)
			}
		})
	}
}
