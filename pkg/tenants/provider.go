package tenants

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no active environment matches the lookup.
var ErrNotFound = errors.New("environment not found")

// Registry is the read-only view of environment configuration the request
// pipeline depends on. Implementations must only ever return active environments.
type Registry interface {
	// All hostnames (primary + additional) across all active environments.
	AllHostnames(ctx context.Context) ([]string, error)
	// Resolve an active environment owning the given hostname.
	FindByHostname(ctx context.Context, host string) (Environment, error)
	// Resolve an active environment by id (token-scoped resolution).
	FindByID(ctx context.Context, id int64) (Environment, error)
}
