package routes

import (
	"context"
	"errors"

	"github.com/appcache-hub/appcache-hub/internal/store"
)

// readOnlyStore rejects rewrites once locked.
type readOnlyStore struct {
	store.Store
	locked bool
}

func (s *readOnlyStore) Update(ctx context.Context, name string, fn func([]byte) ([]byte, error)) (*store.Entry, error) {
	if !s.locked {
		return s.Store.Update(ctx, name, fn)
	}
	body, _, err := store.ReadAll(ctx, s.Store, name)
	if err != nil {
		return nil, err
	}
	if _, err := fn(body); err != nil {
		return nil, err
	}
	return nil, errors.New("read-only filesystem")
}
