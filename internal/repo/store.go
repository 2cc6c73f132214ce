// Package repo contains the entity store for the route tracking service.
// The store owns the canonical User and Location collections and exposes
// whole-collection reads and writes, each all-or-nothing. No business logic
// lives here, only persistence and type mapping.
package repo

import (
	"context"

	"github.com/pkordes/routetracker/internal/domain"
)

// UserMutation edits a loaded user collection in place (or returns a new
// slice). Returning an error aborts the update and nothing is saved.
type UserMutation func(users []domain.User) ([]domain.User, error)

// LocationMutation is the Location counterpart of UserMutation.
type LocationMutation func(locs []domain.Location) ([]domain.Location, error)

// UserStore persists the User collection.
// The service layer depends on this interface, not a concrete backend, which
// allows it to be unit-tested with a mock.
type UserStore interface {
	// LoadUsers returns a copy of the full collection. An empty store yields
	// an empty, non-nil slice.
	LoadUsers(ctx context.Context) ([]domain.User, error)

	// SaveUsers replaces the full collection. Either every user is written or
	// none is.
	SaveUsers(ctx context.Context, users []domain.User) error

	// UpdateUsers loads the collection, applies fn and saves the result while
	// holding the collection lock, so concurrent updates never lose writes.
	UpdateUsers(ctx context.Context, fn UserMutation) error
}

// LocationStore persists the Location collection.
type LocationStore interface {
	LoadLocations(ctx context.Context) ([]domain.Location, error)
	SaveLocations(ctx context.Context, locs []domain.Location) error
	UpdateLocations(ctx context.Context, fn LocationMutation) error
}

// Store is the full entity store consumed by the services.
type Store interface {
	UserStore
	LocationStore
}

// validateUsers rejects a collection containing a user that breaks the
// allocation invariants, so corrupt data is reported instead of served.
func validateUsers(users []domain.User) error {
	for i := range users {
		if err := users[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
