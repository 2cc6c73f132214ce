package service

import (
	"context"
	"fmt"

	"github.com/pkordes/routetracker/internal/domain"
	"github.com/pkordes/routetracker/internal/repo"
)

// QueryService serves read-only views over the user collection.
type QueryService struct {
	store repo.UserStore
}

// NewQueryService constructs a QueryService backed by store.
func NewQueryService(store repo.UserStore) *QueryService {
	return &QueryService{store: store}
}

// ListUsers returns one page of users holding the user role, in store order,
// together with the total number of such users. Admins only.
func (s *QueryService) ListUsers(ctx context.Context, actor domain.Actor, p domain.PaginationParams) ([]domain.User, int, error) {
	if err := requireAdmin(actor, "list users"); err != nil {
		return nil, 0, err
	}
	users, err := s.store.LoadUsers(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("service.QueryService.ListUsers: %w", err)
	}

	drivers := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.Role == domain.RoleUser {
			drivers = append(drivers, u)
		}
	}
	lo, hi := p.Window(len(drivers))
	return drivers[lo:hi], len(drivers), nil
}

// GetUser returns the full user record.
// Returns domain.ErrNotFound if the user does not exist.
func (s *QueryService) GetUser(ctx context.Context, actor domain.Actor, userID int64) (domain.User, error) {
	u, err := s.loadUser(ctx, actor, userID)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.QueryService.GetUser: %w", err)
	}
	return u, nil
}

// ListHistory returns one page of the user's history in sequence order,
// together with the total number of records.
// Returns domain.ErrNotFound if the user does not exist.
func (s *QueryService) ListHistory(ctx context.Context, actor domain.Actor, userID int64, p domain.PaginationParams) ([]domain.HistoryRecord, int, error) {
	u, err := s.loadUser(ctx, actor, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("service.QueryService.ListHistory: %w", err)
	}
	lo, hi := p.Window(len(u.History))
	page := make([]domain.HistoryRecord, hi-lo)
	copy(page, u.History[lo:hi])
	return page, len(u.History), nil
}

// ExportHistory returns the user's complete history in sequence order.
// Always returns a non-nil slice.
func (s *QueryService) ExportHistory(ctx context.Context, actor domain.Actor, userID int64) ([]domain.HistoryRecord, error) {
	u, err := s.loadUser(ctx, actor, userID)
	if err != nil {
		return nil, fmt.Errorf("service.QueryService.ExportHistory: %w", err)
	}
	if u.History == nil {
		return []domain.HistoryRecord{}, nil
	}
	return u.History, nil
}

func (s *QueryService) loadUser(ctx context.Context, actor domain.Actor, userID int64) (domain.User, error) {
	if err := authorize(actor, userID); err != nil {
		return domain.User{}, err
	}
	users, err := s.store.LoadUsers(ctx)
	if err != nil {
		return domain.User{}, err
	}
	u, err := findUser(users, userID)
	if err != nil {
		return domain.User{}, err
	}
	return *u, nil
}
