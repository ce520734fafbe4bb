package branding

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no active branding matches the scope.
var ErrNotFound = errors.New("branding not found")

// Store is the read lookup the response augmenter depends on.
type Store interface {
	ActiveForEnvironment(ctx context.Context, environmentID int64) (Branding, error)
	ActiveForUser(ctx context.Context, userID int64) (Branding, error)
}

// memStore is a fixture-style in-memory store for dev and tests.
type memStore struct {
	byEnv  map[int64]Branding
	byUser map[int64]Branding
}

// NewMemoryStore indexes the given records by their scope. Inactive records
// are dropped at construction.
func NewMemoryStore(records ...Branding) Store {
	m := &memStore{byEnv: map[int64]Branding{}, byUser: map[int64]Branding{}}
	for _, b := range records {
		if !b.IsActive {
			continue
		}
		if b.EnvironmentID != nil {
			m.byEnv[*b.EnvironmentID] = b
		}
		if b.UserID != nil {
			m.byUser[*b.UserID] = b
		}
	}
	return m
}

func (m *memStore) ActiveForEnvironment(ctx context.Context, environmentID int64) (Branding, error) {
	if b, ok := m.byEnv[environmentID]; ok {
		return b, nil
	}
	return Branding{}, ErrNotFound
}

func (m *memStore) ActiveForUser(ctx context.Context, userID int64) (Branding, error) {
	if b, ok := m.byUser[userID]; ok {
		return b, nil
	}
	return Branding{}, ErrNotFound
}
