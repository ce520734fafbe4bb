// pkg/session/session.go
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Session is the per-browser state addressed by the namespaced session cookie.
// The CSRF token lives here; the synchronizer mirrors it into the XSRF cookie.
type Session struct {
	ID        string `json:"id"`
	UserID    int64  `json:"user_id,omitempty"`
	CSRFToken string `json:"csrf_token"`
	Fresh     bool   `json:"-"` // created during this request
}

// Manager loads and persists sessions. Redis-backed when a client is
// provided; in-process map otherwise (dev only).
type Manager struct {
	rdb      *redis.Client
	ttl      time.Duration
	secure   bool
	sameSite http.SameSite
	log      *zap.SugaredLogger

	mu  sync.Mutex
	mem map[string]memEntry
}

type memEntry struct {
	raw     []byte
	expires time.Time
}

// NewManager builds a session manager. sameSite accepts the config strings
// "", "lax", "strict", "none".
func NewManager(rdb *redis.Client, ttl time.Duration, secure bool, sameSite string, log *zap.SugaredLogger) *Manager {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Manager{
		rdb:      rdb,
		ttl:      ttl,
		secure:   secure,
		sameSite: ParseSameSite(sameSite, log),
		log:      log,
		mem:      map[string]memEntry{},
	}
}

// ParseSameSite maps a config string to http.SameSite, defaulting to Lax.
func ParseSameSite(s string, log *zap.SugaredLogger) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		if log != nil {
			log.Warnw("unknown SameSite value, using Lax", "value", s)
		}
		return http.SameSiteLaxMode
	}
}

// Secure reports the configured Secure cookie flag.
func (m *Manager) Secure() bool { return m.secure }

// SameSite reports the configured SameSite cookie mode.
func (m *Manager) SameSite() http.SameSite { return m.sameSite }

// TTL reports the session lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Load resolves the session for the request under the given cookie name,
// creating a fresh one (with a new CSRF token) when the cookie is absent or
// its session expired. The cookie name must be fixed before calling: it is
// the isolation boundary between environments sharing a browser.
func (m *Manager) Load(ctx context.Context, r *http.Request, cookieName string) *Session {
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		if s := m.fetch(ctx, c.Value); s != nil {
			return s
		}
	}
	return &Session{
		ID:        uuid.NewString(),
		CSRFToken: newCSRFToken(),
		Fresh:     true,
	}
}

// WriteCookie emits the narrow, host-scoped session cookie. No Domain
// attribute is ever set here: the session cookie stays isolated to the exact
// host while the XSRF cookie gets the shared root-domain scope elsewhere.
func (m *Manager) WriteCookie(w http.ResponseWriter, cookieName string, s *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    s.ID,
		Path:     "/",
		Expires:  time.Now().UTC().Add(m.ttl),
		MaxAge:   int(m.ttl.Seconds()),
		Secure:   m.secure,
		HttpOnly: true,
		SameSite: m.sameSite,
	})
}

// Persist stores the session server-side under its TTL.
func (m *Manager) Persist(ctx context.Context, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	if m.rdb != nil {
		return m.rdb.Set(ctx, "session:"+s.ID, raw, m.ttl).Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mem[s.ID] = memEntry{raw: raw, expires: time.Now().Add(m.ttl)}
	return nil
}

func (m *Manager) fetch(ctx context.Context, id string) *Session {
	var raw []byte
	if m.rdb != nil {
		b, err := m.rdb.Get(ctx, "session:"+id).Bytes()
		if err != nil {
			return nil
		}
		raw = b
	} else {
		m.mu.Lock()
		e, ok := m.mem[id]
		m.mu.Unlock()
		if !ok || time.Now().After(e.expires) {
			return nil
		}
		raw = e.raw
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil || s.ID == "" {
		return nil
	}
	return &s
}

func newCSRFToken() string {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failure is unrecoverable for token issuance
		panic(err)
	}
	return hex.EncodeToString(b)
}

type ctxSessionKey struct{}

// WithSession stores the session in the context.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxSessionKey{}, s)
}

// FromContext extracts the session, or nil outside the session middleware.
func FromContext(ctx context.Context) *Session {
	if v := ctx.Value(ctxSessionKey{}); v != nil {
		if s, ok := v.(*Session); ok {
			return s
		}
	}
	return nil
}
