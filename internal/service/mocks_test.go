package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/pkordes/routetracker/internal/domain"
	"github.com/pkordes/routetracker/internal/repo"
	"github.com/pkordes/routetracker/internal/service"
)

// mockStore is a hand-written test double for repo.Store.
// Each method is a function field; set only the ones your test needs.
type mockStore struct {
	loadUsers       func(ctx context.Context) ([]domain.User, error)
	saveUsers       func(ctx context.Context, users []domain.User) error
	updateUsers     func(ctx context.Context, fn repo.UserMutation) error
	loadLocations   func(ctx context.Context) ([]domain.Location, error)
	saveLocations   func(ctx context.Context, locs []domain.Location) error
	updateLocations func(ctx context.Context, fn repo.LocationMutation) error
}

func (m *mockStore) LoadUsers(ctx context.Context) ([]domain.User, error) {
	return m.loadUsers(ctx)
}
func (m *mockStore) SaveUsers(ctx context.Context, users []domain.User) error {
	return m.saveUsers(ctx, users)
}
func (m *mockStore) UpdateUsers(ctx context.Context, fn repo.UserMutation) error {
	return m.updateUsers(ctx, fn)
}
func (m *mockStore) LoadLocations(ctx context.Context) ([]domain.Location, error) {
	return m.loadLocations(ctx)
}
func (m *mockStore) SaveLocations(ctx context.Context, locs []domain.Location) error {
	return m.saveLocations(ctx, locs)
}
func (m *mockStore) UpdateLocations(ctx context.Context, fn repo.LocationMutation) error {
	return m.updateLocations(ctx, fn)
}

// compile-time check: mockStore must satisfy repo.Store.
var _ repo.Store = (*mockStore)(nil)

// mockCache is a test double for service.PositionCache. Unset fill and del
// succeed without effect.
type mockCache struct {
	get  func(ctx context.Context, userID int64) (domain.Position, bool, error)
	set  func(ctx context.Context, userID int64, p domain.Position) error
	fill func(ctx context.Context, userID int64, p domain.Position) error
	del  func(ctx context.Context, userID int64) error
}

func (m *mockCache) GetPosition(ctx context.Context, userID int64) (domain.Position, bool, error) {
	return m.get(ctx, userID)
}
func (m *mockCache) SetPosition(ctx context.Context, userID int64, p domain.Position) error {
	return m.set(ctx, userID, p)
}
func (m *mockCache) FillPosition(ctx context.Context, userID int64, p domain.Position) error {
	if m.fill == nil {
		return nil
	}
	return m.fill(ctx, userID, p)
}
func (m *mockCache) DeletePosition(ctx context.Context, userID int64) error {
	if m.del == nil {
		return nil
	}
	return m.del(ctx, userID)
}

// mapCache is an in-process PositionCache. beforeSet, when set, runs at the
// start of every SetPosition without the cache lock held.
type mapCache struct {
	mu        sync.Mutex
	positions map[int64]domain.Position
	beforeSet func(p domain.Position)
}

func newMapCache() *mapCache {
	return &mapCache{positions: map[int64]domain.Position{}}
}

func (c *mapCache) GetPosition(_ context.Context, userID int64) (domain.Position, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.positions[userID]
	return p, ok, nil
}
func (c *mapCache) SetPosition(_ context.Context, userID int64, p domain.Position) error {
	if c.beforeSet != nil {
		c.beforeSet(p)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.positions[userID] = p
	return nil
}
func (c *mapCache) FillPosition(_ context.Context, userID int64, p domain.Position) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.positions[userID]; !ok {
		c.positions[userID] = p
	}
	return nil
}
func (c *mapCache) DeletePosition(_ context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.positions, userID)
	return nil
}

var (
	_ service.PositionCache = (*mockCache)(nil)
	_ service.PositionCache = (*mapCache)(nil)
)

// seqIDs issues 100, 101, 102, ...
type seqIDs struct{ next int64 }

func (g *seqIDs) NextID() int64 {
	if g.next == 0 {
		g.next = 100
	}
	id := g.next
	g.next++
	return id
}

// ---- fixtures --------------------------------------------------------------

const (
	driverID  int64 = 7
	airportID int64 = 3
	harbourID int64 = 4
)

var (
	admin  = domain.Actor{UserID: 1, Role: domain.RoleAdmin}
	driver = domain.Actor{UserID: driverID, Role: domain.RoleUser}
	other  = domain.Actor{UserID: 8, Role: domain.RoleUser}
)

// clock returns a fixed instant on 2025-06-01 UTC.
func clock(h, m, s int) time.Time {
	return time.Date(2025, 6, 1, h, m, s, 0, time.UTC)
}

func fixedClock(t time.Time) service.Clock {
	return func() time.Time { return t }
}

func adminUser() domain.User {
	return domain.User{
		ID:       1,
		Email:    "ops@example.com",
		Username: "ops",
		Role:     domain.RoleAdmin,
		Status:   domain.StatusOffline,
	}
}

func driverUser(id int64, allocated ...int64) domain.User {
	u := domain.User{
		ID:          id,
		Email:       "driver@example.com",
		Username:    "driver",
		Role:        domain.RoleUser,
		Status:      domain.StatusOffline,
		Allocations: []domain.AllocationRecord{},
		History:     []domain.HistoryRecord{},
	}
	for _, loc := range allocated {
		u.Allocations = append(u.Allocations, domain.AllocationRecord{
			LocationID:    loc,
			ScheduledTime: "08:00",
			Status:        domain.StatusOffline,
			AssignedAt:    clock(7, 0, 0),
		})
	}
	return u
}

func airport() domain.Location {
	return domain.Location{ID: airportID, Name: "Airport Loop", Source: "Depot", Destination: "Terminal 2"}
}

// seededStore holds an admin, driver 7 allocated to the airport route, and
// the airport location.
func seededStore() *repo.MemoryStore {
	return repo.NewMemoryStore(
		[]domain.User{adminUser(), driverUser(driverID, airportID)},
		[]domain.Location{airport()},
	)
}

func mustLoadUser(store repo.UserStore, id int64) domain.User {
	users, err := store.LoadUsers(context.Background())
	if err != nil {
		panic(err)
	}
	i := domain.FindUser(users, id)
	if i < 0 {
		panic("fixture user missing")
	}
	return users[i]
}
