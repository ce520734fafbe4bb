// pkg/domainutil/domain.go
package domainutil

import (
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// FrontendOrigin is the browser-facing host a request claims to originate from.
// Derived once per request; never cached across requests.
type FrontendOrigin struct {
	Host       string // hostname without port, lowercased
	Port       int    // 0 when not declared
	RootDomain string // last two DNS labels; empty for localhost, IP literals and single-label hosts
}

// HostOnly strips a port suffix from a header value (everything after the first colon).
func HostOnly(v string) string {
	v = strings.TrimSpace(v)
	if i := strings.Index(v, ":"); i >= 0 {
		return v[:i]
	}
	return v
}

// HostWithPort parses raw as a URL and returns its lowercased host, with the port
// appended when one is present. ok is false when raw has no host component.
func HostWithPort(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	if p := u.Port(); p != "" {
		return host + ":" + p, true
	}
	return host, true
}

// RootDomain returns the last two DNS labels of host, the shared scope for
// cross-subdomain cookies. ok is false for localhost, IP literals and hosts
// with fewer than two labels.
func RootDomain(host string) (string, bool) {
	h := strings.ToLower(strings.TrimSpace(host))
	h = strings.TrimPrefix(strings.TrimSuffix(h, "]"), "[")
	if h == "" || h == "localhost" || net.ParseIP(h) != nil {
		return "", false
	}
	labels := strings.Split(h, ".")
	if len(labels) < 2 {
		return "", false
	}
	return strings.Join(labels[len(labels)-2:], "."), true
}

// Slug lowercases host and collapses every run of non-alphanumeric characters
// into a single underscore, leading and trailing runs included: "host." and
// "host" must stay distinct namespaces. Used to namespace per-frontend cookies.
func Slug(host string) string {
	var b strings.Builder
	b.Grow(len(host))
	sep := false
	for _, r := range strings.ToLower(host) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			sep = false
		default:
			if !sep {
				b.WriteByte('_')
			}
			sep = true
		}
	}
	return b.String()
}

// OriginFromRequest derives the frontend origin from X-Frontend-Domain, then
// Origin, then Referer. Returns nil when none of the headers yields a host.
func OriginFromRequest(r *http.Request) *FrontendOrigin {
	if v := strings.TrimSpace(r.Header.Get("X-Frontend-Domain")); v != "" {
		return originFromHostPort(v)
	}
	for _, h := range []string{"Origin", "Referer"} {
		v := strings.TrimSpace(r.Header.Get(h))
		if v == "" {
			continue
		}
		u, err := url.Parse(v)
		if err != nil || u.Host == "" {
			continue
		}
		return originFromHostPort(u.Host)
	}
	return nil
}

func originFromHostPort(v string) *FrontendOrigin {
	host := v
	port := 0
	if h, p, err := net.SplitHostPort(v); err == nil {
		host = h
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return nil
	}
	o := &FrontendOrigin{Host: host, Port: port}
	if root, ok := RootDomain(host); ok {
		o.RootDomain = root
	}
	return o
}
