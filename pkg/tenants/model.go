package tenants

// Environment represents an isolated customer instance identified by its
// registered domains. A hostname maps to at most one active environment.
type Environment struct {
	ID                int64
	Name              string
	PrimaryDomain     string   // unique (learning.csl-brands.com)
	AdditionalDomains []string // ordered, may be empty
	IsActive          bool
}

// Hostnames returns the primary domain followed by the additional domains.
func (e Environment) Hostnames() []string {
	out := make([]string, 0, 1+len(e.AdditionalDomains))
	out = append(out, e.PrimaryDomain)
	out = append(out, e.AdditionalDomains...)
	return out
}

// ServesHost reports whether host is one of the environment's registered domains.
func (e Environment) ServesHost(host string) bool {
	if e.PrimaryDomain == host {
		return true
	}
	for _, d := range e.AdditionalDomains {
		if d == host {
			return true
		}
	}
	return false
}
