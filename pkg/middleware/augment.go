// pkg/middleware/augment.go
package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"cslearn/pkg/branding"
	"cslearn/pkg/config"

	"go.uber.org/zap"
)

// Augment attaches the resolved environment's identity and branding to JSON
// object responses. Fields already present are never overwritten, so running
// the augmenter over an already-augmented body is a no-op. Non-JSON bodies
// and bodies that fail to parse as an object pass through byte-identical.
func Augment(cfg config.Config, brandings branding.Store, log *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			aw := &augmentWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(aw, r)

			body := aw.buf.Bytes()
			if isJSONResponse(aw.Header()) {
				if out, changed := augmentBody(r, cfg, brandings, log, body); changed {
					body = out
				}
			}

			aw.Header().Del("Content-Length")
			aw.Header().Set("Content-Length", strconv.Itoa(len(body)))
			aw.ResponseWriter.WriteHeader(aw.status)
			if len(body) > 0 {
				if _, err := aw.ResponseWriter.Write(body); err != nil {
					log.Debugw("augmented response write", "err", err)
				}
			}
		})
	}
}

func augmentBody(r *http.Request, cfg config.Config, brandings branding.Store, log *zap.SugaredLogger, body []byte) ([]byte, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return nil, false
	}

	ctx := r.Context()
	sec := SecurityFrom(ctx)
	changed := false

	if sec != nil && sec.Environment != nil {
		if _, present := obj["environment"]; !present {
			raw, err := json.Marshal(map[string]any{
				"id":             sec.Environment.ID,
				"name":           sec.Environment.Name,
				"primary_domain": sec.Environment.PrimaryDomain,
			})
			if err == nil {
				obj["environment"] = raw
				changed = true
			}
		}
	}

	if _, present := obj["branding"]; !present {
		var (
			b     branding.Branding
			err   = branding.ErrNotFound
			envID *int64
		)
		if sec != nil && sec.Environment != nil {
			envID = &sec.Environment.ID
			b, err = brandings.ActiveForEnvironment(ctx, sec.Environment.ID)
		} else if p := PrincipalFrom(ctx); p != nil {
			b, err = brandings.ActiveForUser(ctx, p.UserID)
		}
		if err == nil {
			if raw, merr := json.Marshal(b.Payload(cfg.AssetBaseURL, envID)); merr == nil {
				obj["branding"] = raw
				changed = true
			}
		} else if err != branding.ErrNotFound {
			log.Warnw("branding lookup", "err", err)
		}
	}

	if !changed {
		return nil, false
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return nil, false
	}
	return out, true
}

func isJSONResponse(h http.Header) bool {
	ct := h.Get("Content-Type")
	return strings.Contains(strings.ToLower(ct), "application/json")
}

// augmentWriter buffers the response so the body can be parsed and rewritten
// before anything reaches the wire.
type augmentWriter struct {
	http.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (aw *augmentWriter) WriteHeader(code int) {
	aw.status = code
}

func (aw *augmentWriter) Write(b []byte) (int, error) {
	return aw.buf.Write(b)
}
