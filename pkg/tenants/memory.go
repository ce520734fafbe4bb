// pkg/tenants/memory.go
package tenants

import (
	"context"
	"encoding/json"
	"os"

	"go.uber.org/zap"
)

type memRegistry struct {
	log  *zap.SugaredLogger
	byID map[int64]Environment
}

// NewMemoryRegistry builds a registry from explicit environments. Inactive
// environments are stored but never resolve. Intended for dev and tests.
func NewMemoryRegistry(log *zap.SugaredLogger, envs ...Environment) Registry {
	m := &memRegistry{log: log, byID: map[int64]Environment{}}
	for _, e := range envs {
		m.byID[e.ID] = e
	}
	return m
}

// NewMemoryRegistryFromEnv seeds from ENVIRONMENT_SEED_JSON, falling back to a
// single localhost environment so local bring-up works without configuration.
func NewMemoryRegistryFromEnv(log *zap.SugaredLogger) Registry {
	seed := os.Getenv("ENVIRONMENT_SEED_JSON")
	if seed != "" {
		var entries []struct {
			ID                int64    `json:"id"`
			Name              string   `json:"name"`
			PrimaryDomain     string   `json:"primary_domain"`
			AdditionalDomains []string `json:"additional_domains"`
			IsActive          *bool    `json:"is_active"`
		}
		if err := json.Unmarshal([]byte(seed), &entries); err != nil {
			log.Warnw("environment seed parse failed", "err", err)
		}
		envs := make([]Environment, 0, len(entries))
		for _, e := range entries {
			active := true
			if e.IsActive != nil {
				active = *e.IsActive
			}
			envs = append(envs, Environment{
				ID: e.ID, Name: e.Name,
				PrimaryDomain:     e.PrimaryDomain,
				AdditionalDomains: e.AdditionalDomains,
				IsActive:          active,
			})
		}
		return NewMemoryRegistry(log, envs...)
	}
	return NewMemoryRegistry(log, Environment{
		ID: 1, Name: "dev", PrimaryDomain: "localhost",
		AdditionalDomains: []string{"127.0.0.1", "host.docker.internal"},
		IsActive:          true,
	})
}

func (m *memRegistry) AllHostnames(ctx context.Context) ([]string, error) {
	var hosts []string
	for _, e := range m.byID {
		if !e.IsActive {
			continue
		}
		hosts = append(hosts, e.Hostnames()...)
	}
	return hosts, nil
}

func (m *memRegistry) FindByHostname(ctx context.Context, host string) (Environment, error) {
	for _, e := range m.byID {
		if e.IsActive && e.ServesHost(host) {
			return e, nil
		}
	}
	return Environment{}, ErrNotFound
}

func (m *memRegistry) FindByID(ctx context.Context, id int64) (Environment, error) {
	e, ok := m.byID[id]
	if !ok || !e.IsActive {
		return Environment{}, ErrNotFound
	}
	return e, nil
}
