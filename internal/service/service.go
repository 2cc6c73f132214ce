// Package service contains the business logic for the route tracking API.
// Services check the acting user's capability, enforce the allocation and
// tracking rules, and run every mutation as a single locked read-modify-write
// through the entity store. No persistence code lives here; services depend
// on repo interfaces, not implementations.
package service

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pkordes/routetracker/internal/domain"
)

// Clock returns the current instant. Services default to time.Now and
// accept a fixed clock in tests.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// ---- capability checks -----------------------------------------------------

// requireActor rejects callers that carry no recognised role.
func requireActor(actor domain.Actor) error {
	if !actor.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", domain.ErrForbidden, actor.Role)
	}
	return nil
}

// requireAdmin rejects non-admin callers of admin-only operations.
func requireAdmin(actor domain.Actor, op string) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: %s requires the admin role", domain.ErrForbidden, op)
	}
	return nil
}

// authorize rejects callers that may not act on userID's data.
func authorize(actor domain.Actor, userID int64) error {
	if !actor.CanAccess(userID) {
		return fmt.Errorf("%w: user %d may not act on user %d", domain.ErrForbidden, actor.UserID, userID)
	}
	return nil
}

// ---- lookups ---------------------------------------------------------------

// findUser returns a pointer into users so mutations land in the slice the
// store will save.
func findUser(users []domain.User, id int64) (*domain.User, error) {
	i := domain.FindUser(users, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: user %d", domain.ErrNotFound, id)
	}
	return &users[i], nil
}

func findAllocation(u *domain.User, locationID int64) (*domain.AllocationRecord, error) {
	i := u.FindAllocation(locationID)
	if i < 0 {
		return nil, fmt.Errorf("%w: allocation of location %d to user %d", domain.ErrNotFound, locationID, u.ID)
	}
	return &u.Allocations[i], nil
}
