package repo

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkordes/routetracker/internal/domain"
)

// MemoryStore is an in-process Store used by tests and ephemeral
// deployments (STORE_DRIVER=memory). Collections are deep-copied on every
// read and write so callers never share state with the store.
type MemoryStore struct {
	userMu sync.Mutex
	users  []domain.User

	locMu sync.Mutex
	locs  []domain.Location
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a MemoryStore seeded with the given collections.
// Either argument may be nil.
func NewMemoryStore(users []domain.User, locs []domain.Location) *MemoryStore {
	return &MemoryStore{
		users: domain.CloneUsers(users),
		locs:  domain.CloneLocations(locs),
	}
}

func (s *MemoryStore) LoadUsers(ctx context.Context) ([]domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("repo.MemoryStore.LoadUsers: %w: %w", domain.ErrStore, err)
	}
	s.userMu.Lock()
	defer s.userMu.Unlock()
	return domain.CloneUsers(s.users), nil
}

func (s *MemoryStore) SaveUsers(ctx context.Context, users []domain.User) error {
	if err := validateUsers(users); err != nil {
		return fmt.Errorf("repo.MemoryStore.SaveUsers: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("repo.MemoryStore.SaveUsers: %w: %w", domain.ErrStore, err)
	}
	s.userMu.Lock()
	defer s.userMu.Unlock()
	s.users = domain.CloneUsers(users)
	return nil
}

func (s *MemoryStore) UpdateUsers(ctx context.Context, fn UserMutation) error {
	s.userMu.Lock()
	defer s.userMu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("repo.MemoryStore.UpdateUsers: %w: %w", domain.ErrStore, err)
	}
	next, err := fn(domain.CloneUsers(s.users))
	if err != nil {
		return err
	}
	if err := validateUsers(next); err != nil {
		return fmt.Errorf("repo.MemoryStore.UpdateUsers: %w", err)
	}
	s.users = domain.CloneUsers(next)
	return nil
}

func (s *MemoryStore) LoadLocations(ctx context.Context) ([]domain.Location, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("repo.MemoryStore.LoadLocations: %w: %w", domain.ErrStore, err)
	}
	s.locMu.Lock()
	defer s.locMu.Unlock()
	return domain.CloneLocations(s.locs), nil
}

func (s *MemoryStore) SaveLocations(ctx context.Context, locs []domain.Location) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("repo.MemoryStore.SaveLocations: %w: %w", domain.ErrStore, err)
	}
	s.locMu.Lock()
	defer s.locMu.Unlock()
	s.locs = domain.CloneLocations(locs)
	return nil
}

func (s *MemoryStore) UpdateLocations(ctx context.Context, fn LocationMutation) error {
	s.locMu.Lock()
	defer s.locMu.Unlock()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("repo.MemoryStore.UpdateLocations: %w: %w", domain.ErrStore, err)
	}
	next, err := fn(domain.CloneLocations(s.locs))
	if err != nil {
		return err
	}
	s.locs = domain.CloneLocations(next)
	return nil
}
