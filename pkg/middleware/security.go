// pkg/middleware/security.go
package middleware

import (
	"context"
	"net/http"

	"cslearn/pkg/config"
	"cslearn/pkg/domainutil"
	"cslearn/pkg/tenants"
	"cslearn/pkg/tokens"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// ResolutionSource records how (or whether) the environment was resolved.
type ResolutionSource int

const (
	SourceNone ResolutionSource = iota
	SourceTokenAbility
	SourceHostMatch
)

func (s ResolutionSource) String() string {
	switch s {
	case SourceTokenAbility:
		return "token_ability"
	case SourceHostMatch:
		return "host_match"
	default:
		return "none"
	}
}

// Security is the per-request security context. It is computed once, before
// the session loads, and threaded through the request context — never stored
// in package state, so concurrent requests for different environments stay
// isolated.
type Security struct {
	Environment       *tenants.Environment // nil when unresolved
	Source            ResolutionSource
	Origin            *domainutil.FrontendOrigin // nil when no frontend domain detected
	AllowedOrigins    []string                   // exact origins allowed for credentialed CORS
	StatefulHosts     []string                   // all registered hostnames across active environments
	SessionCookieName string
}

type ctxSecurityKey struct{}

// SecurityFrom returns the request's security context, or nil outside the
// pipeline.
func SecurityFrom(ctx context.Context) *Security {
	if v := ctx.Value(ctxSecurityKey{}); v != nil {
		if s, ok := v.(*Security); ok {
			return s
		}
	}
	return nil
}

// WithSecurity stores the security context. Exposed for tests.
func WithSecurity(ctx context.Context, s *Security) context.Context {
	return context.WithValue(ctx, ctxSecurityKey{}, s)
}

var resolutionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "cslearn_environment_resolution_total",
	Help: "Environment resolution outcomes by source.",
}, []string{"source"})

// ConfigureSecurity is the pre-session phase of the pipeline: it resolves the
// acting environment, computes the CORS allow-list and the stateful host set,
// and fixes the session cookie name. Everything downstream (session load,
// CSRF sync, augmentation) reads this context; nothing may recompute it
// mid-request.
//
// Resolution order, short-circuiting on first success:
//  1. environment scope carried by the bearer token's abilities
//  2. X-Frontend-Domain host matched against the registry
//
// Unresolved is a valid terminal state, not an error.
func ConfigureSecurity(cfg config.Config, reg tenants.Registry, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sec := &Security{SessionCookieName: cfg.SessionCookie}

			sec.Origin = domainutil.OriginFromRequest(r)
			if sec.Origin != nil {
				sec.SessionCookieName = cfg.SessionCookieTag + domainutil.Slug(sec.Origin.Host)
			}

			if p := PrincipalFrom(ctx); p != nil {
				if envID, ok := tokens.EnvironmentScope(p.Abilities); ok {
					// The ability is trusted as issued, but a deactivated
					// environment must never resolve: fall through to
					// unresolved instead.
					if env, err := reg.FindByID(ctx, envID); err == nil {
						sec.Environment = &env
						sec.Source = SourceTokenAbility
					} else if err != tenants.ErrNotFound {
						log.Warnw("environment lookup by token scope", "environment_id", envID, "err", err)
					}
				}
			}
			if sec.Environment == nil {
				if declared := r.Header.Get("X-Frontend-Domain"); declared != "" {
					host := domainutil.HostOnly(declared)
					if env, err := reg.FindByHostname(ctx, host); err == nil {
						sec.Environment = &env
						sec.Source = SourceHostMatch
					} else if err != tenants.ErrNotFound {
						log.Warnw("environment lookup by host", "host", host, "err", err)
					}
				}
			}

			hosts, err := reg.AllHostnames(ctx)
			if err != nil {
				// Degrade to an empty stateful set: no credentialed CORS this
				// request, but the request itself proceeds.
				log.Warnw("registry hostnames", "err", err)
			}
			sec.StatefulHosts = hosts

			if origin := r.Header.Get("Origin"); origin != "" {
				if hostPort, ok := domainutil.HostWithPort(origin); ok && containsHost(hosts, hostPort) {
					// Exact echoed origin, never a wildcard: the allow-list
					// accompanies credentialed requests.
					sec.AllowedOrigins = []string{origin}
				}
			}

			resolutionTotal.WithLabelValues(sec.Source.String()).Inc()
			next.ServeHTTP(w, r.WithContext(WithSecurity(ctx, sec)))
		})
	}
}

func containsHost(hosts []string, h string) bool {
	for _, x := range hosts {
		if x == h {
			return true
		}
	}
	return false
}
