// pkg/middleware/pipeline.go
package middleware

import (
	"net/http"

	"cslearn/pkg/branding"
	"cslearn/pkg/config"
	"cslearn/pkg/session"
	"cslearn/pkg/tenants"
	"cslearn/pkg/tokens"

	"go.uber.org/zap"
)

// Pipeline returns the full request pipeline in its required order, so the
// ordering constraints live in one place instead of in registration
// convention at each call site:
//
//	pre-session phase:  BearerAuth → ConfigureSecurity → CORS
//	post-response phase: Augment, SyncCSRFCookie (applied around the handler)
//	session phase:      Sessions (must see the final cookie name)
//
// ConfigureSecurity must complete before Sessions loads anything — the
// session cookie name and the CORS allow-list are inputs to everything that
// follows, and renaming a session after it has been read can leak another
// environment's data.
func Pipeline(cfg config.Config, log *zap.SugaredLogger, reg tenants.Registry, toks tokens.Store, brandings branding.Store, sessions *session.Manager) []func(http.Handler) http.Handler {
	return []func(http.Handler) http.Handler{
		RequestID(),
		Recover(log),
		DebugWriteHeader(),
		Tracing(cfg),
		BearerAuth(toks, log),
		ConfigureSecurity(cfg, reg, log),
		CORS(),
		Augment(cfg, brandings, log),
		SyncCSRFCookie(cfg, log),
		Sessions(cfg, sessions, log),
	}
}
