package tenants

import (
	"context"
	"testing"
	"time"
)

// mapCache is an in-process registryCache fake recording writes.
type mapCache struct {
	entries map[string][]byte
	sets    int
}

func newMapCache() *mapCache { return &mapCache{entries: map[string][]byte{}} }

func (m *mapCache) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, ok := m.entries[key]
	return raw, ok
}

func (m *mapCache) Set(ctx context.Context, key string, raw []byte, ttl time.Duration) {
	m.entries[key] = raw
	m.sets++
}

// swapRegistry delegates to whatever registry it currently points at, so a
// test can change the backing data between calls.
type swapRegistry struct {
	current Registry
	calls   int
}

func (s *swapRegistry) AllHostnames(ctx context.Context) ([]string, error) {
	s.calls++
	return s.current.AllHostnames(ctx)
}

func (s *swapRegistry) FindByHostname(ctx context.Context, host string) (Environment, error) {
	s.calls++
	return s.current.FindByHostname(ctx, host)
}

func (s *swapRegistry) FindByID(ctx context.Context, id int64) (Environment, error) {
	s.calls++
	return s.current.FindByID(ctx, id)
}

func TestCachedRegistry_ServesStaleEntryWithinTTL(t *testing.T) {
	inner := &swapRegistry{current: NewMemoryRegistry(testLog(),
		Environment{ID: 1, Name: "Acme", PrimaryDomain: "training.acme.com", IsActive: true},
	)}
	reg := newCachedRegistry(inner, newMapCache(), 30*time.Second)
	ctx := context.Background()

	e, err := reg.FindByHostname(ctx, "training.acme.com")
	if err != nil || e.Name != "Acme" {
		t.Fatalf("first lookup: env=%+v err=%v", e, err)
	}

	// Rename upstream; the cached entry keeps serving until its TTL lapses.
	inner.current = NewMemoryRegistry(testLog(),
		Environment{ID: 1, Name: "Renamed", PrimaryDomain: "training.acme.com", IsActive: true},
	)
	e, err = reg.FindByHostname(ctx, "training.acme.com")
	if err != nil || e.Name != "Acme" {
		t.Fatalf("cached lookup: env=%+v err=%v, want stale entry", e, err)
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls = %d, want 1 (second lookup must come from cache)", inner.calls)
	}
}

func TestCachedRegistry_MissesAreNotCached(t *testing.T) {
	inner := &swapRegistry{current: NewMemoryRegistry(testLog())}
	cache := newMapCache()
	reg := newCachedRegistry(inner, cache, 30*time.Second)
	ctx := context.Background()

	if _, err := reg.FindByHostname(ctx, "new.tenant.com"); err != ErrNotFound {
		t.Fatalf("empty registry: err=%v, want ErrNotFound", err)
	}
	if cache.sets != 0 {
		t.Fatalf("cache writes after miss = %d, want 0", cache.sets)
	}

	// Register the domain; the very next lookup must resolve it.
	inner.current = NewMemoryRegistry(testLog(),
		Environment{ID: 9, PrimaryDomain: "new.tenant.com", IsActive: true},
	)
	e, err := reg.FindByHostname(ctx, "new.tenant.com")
	if err != nil || e.ID != 9 {
		t.Fatalf("post-registration lookup: env=%+v err=%v", e, err)
	}
}

func TestCachedRegistry_FindByIDMissesAreNotCached(t *testing.T) {
	inner := &swapRegistry{current: NewMemoryRegistry(testLog())}
	cache := newMapCache()
	reg := newCachedRegistry(inner, cache, 30*time.Second)
	ctx := context.Background()

	if _, err := reg.FindByID(ctx, 5); err != ErrNotFound {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
	if cache.sets != 0 {
		t.Fatalf("cache writes after miss = %d, want 0", cache.sets)
	}

	inner.current = NewMemoryRegistry(testLog(),
		Environment{ID: 5, PrimaryDomain: "five.tenant.com", IsActive: true},
	)
	if e, err := reg.FindByID(ctx, 5); err != nil || e.PrimaryDomain != "five.tenant.com" {
		t.Fatalf("env=%+v err=%v", e, err)
	}
}

func TestCachedRegistry_AllHostnamesRoundTrip(t *testing.T) {
	inner := &swapRegistry{current: NewMemoryRegistry(testLog(),
		Environment{ID: 1, PrimaryDomain: "a.one.com", AdditionalDomains: []string{"b.one.com"}, IsActive: true},
	)}
	reg := newCachedRegistry(inner, newMapCache(), 30*time.Second)
	ctx := context.Background()

	hosts, err := reg.AllHostnames(ctx)
	if err != nil || len(hosts) != 2 {
		t.Fatalf("first call: hosts=%v err=%v", hosts, err)
	}

	inner.current = NewMemoryRegistry(testLog()) // upstream wiped
	hosts, err = reg.AllHostnames(ctx)
	if err != nil || len(hosts) != 2 {
		t.Fatalf("cached call: hosts=%v err=%v, want the cached pair", hosts, err)
	}
	if inner.calls != 1 {
		t.Fatalf("inner calls = %d, want 1", inner.calls)
	}
}

func TestNewCachedRegistry_NilClientPassesThrough(t *testing.T) {
	inner := NewMemoryRegistry(testLog())
	if got := NewCachedRegistry(inner, nil, time.Second, testLog()); got != inner {
		t.Fatal("nil redis client must return the inner registry unchanged")
	}
}
