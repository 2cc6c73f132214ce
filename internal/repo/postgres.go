package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pkordes/routetracker/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test; Begin on a
// pgx.Tx opens a savepoint, so the store's own transactions nest cleanly.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Advisory lock keys, one per collection.
const (
	usersLockKey     = "routetracker.users"
	locationsLockKey = "routetracker.locations"
)

// PGStore is the Postgres implementation of Store. Each collection maps to a
// table; embedded allocation, history and position documents are JSONB.
// Every save runs in one transaction holding a per-collection advisory lock.
type PGStore struct {
	db db
}

var _ Store = (*PGStore)(nil)

// NewPGStore constructs a PGStore backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewPGStore(db db) *PGStore {
	return &PGStore{db: db}
}

const selectUsersSQL = `
	SELECT id, email, username, role, status, allocations, history, live_location
	FROM users
	ORDER BY id`

const upsertUserSQL = `
	INSERT INTO users (id, email, username, role, status, allocations, history, live_location, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
	ON CONFLICT (id) DO UPDATE
	SET email         = EXCLUDED.email,
	    username      = EXCLUDED.username,
	    role          = EXCLUDED.role,
	    status        = EXCLUDED.status,
	    allocations   = EXCLUDED.allocations,
	    history       = EXCLUDED.history,
	    live_location = EXCLUDED.live_location,
	    updated_at    = now()`

const selectLocationsSQL = `
	SELECT id, name, source, destination, points
	FROM locations
	ORDER BY id`

const upsertLocationSQL = `
	INSERT INTO locations (id, name, source, destination, points)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE
	SET name        = EXCLUDED.name,
	    source      = EXCLUDED.source,
	    destination = EXCLUDED.destination,
	    points      = EXCLUDED.points`

// LoadUsers returns every user ordered by id.
func (s *PGStore) LoadUsers(ctx context.Context) ([]domain.User, error) {
	users, err := loadUsers(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("repo.PGStore.LoadUsers: %w", err)
	}
	return users, nil
}

// SaveUsers replaces the users table with the given collection.
func (s *PGStore) SaveUsers(ctx context.Context, users []domain.User) error {
	if err := validateUsers(users); err != nil {
		return fmt.Errorf("repo.PGStore.SaveUsers: %w", err)
	}
	err := s.inLockedTx(ctx, usersLockKey, func(tx pgx.Tx) error {
		return saveUsers(ctx, tx, users)
	})
	if err != nil {
		return fmt.Errorf("repo.PGStore.SaveUsers: %w", err)
	}
	return nil
}

// UpdateUsers loads, mutates and saves the users collection in one locked
// transaction. An error from fn rolls the transaction back untouched.
func (s *PGStore) UpdateUsers(ctx context.Context, fn UserMutation) error {
	var fnErr error
	err := s.inLockedTx(ctx, usersLockKey, func(tx pgx.Tx) error {
		users, err := loadUsers(ctx, tx)
		if err != nil {
			return err
		}
		next, err := fn(users)
		if err != nil {
			fnErr = err
			return err
		}
		if err := validateUsers(next); err != nil {
			return err
		}
		return saveUsers(ctx, tx, next)
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return fmt.Errorf("repo.PGStore.UpdateUsers: %w", err)
	}
	return nil
}

// LoadLocations returns every location ordered by id.
func (s *PGStore) LoadLocations(ctx context.Context) ([]domain.Location, error) {
	locs, err := loadLocations(ctx, s.db)
	if err != nil {
		return nil, fmt.Errorf("repo.PGStore.LoadLocations: %w", err)
	}
	return locs, nil
}

// SaveLocations replaces the locations table with the given collection.
func (s *PGStore) SaveLocations(ctx context.Context, locs []domain.Location) error {
	err := s.inLockedTx(ctx, locationsLockKey, func(tx pgx.Tx) error {
		return saveLocations(ctx, tx, locs)
	})
	if err != nil {
		return fmt.Errorf("repo.PGStore.SaveLocations: %w", err)
	}
	return nil
}

// UpdateLocations is the Location counterpart of UpdateUsers.
func (s *PGStore) UpdateLocations(ctx context.Context, fn LocationMutation) error {
	var fnErr error
	err := s.inLockedTx(ctx, locationsLockKey, func(tx pgx.Tx) error {
		locs, err := loadLocations(ctx, tx)
		if err != nil {
			return err
		}
		next, err := fn(locs)
		if err != nil {
			fnErr = err
			return err
		}
		return saveLocations(ctx, tx, next)
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return fmt.Errorf("repo.PGStore.UpdateLocations: %w", err)
	}
	return nil
}

// inLockedTx runs fn inside a transaction that first takes the advisory
// lock for key. The lock is released on commit or rollback.
func (s *PGStore) inLockedTx(ctx context.Context, key string, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", domain.ErrStore, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext(@key))`, pgx.NamedArgs{"key": key}); err != nil {
		return fmt.Errorf("%w: lock %s: %w", domain.ErrStore, key, err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %w", domain.ErrStore, err)
	}
	return nil
}

func loadUsers(ctx context.Context, q db) ([]domain.User, error) {
	rows, err := q.Query(ctx, selectUsersSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %w", domain.ErrStore, err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %w", domain.ErrStore, err)
	}
	if err := validateUsers(users); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}
	return users, nil
}

func saveUsers(ctx context.Context, tx pgx.Tx, users []domain.User) error {
	ids := make([]int64, len(users))
	batch := &pgx.Batch{}
	for i, u := range users {
		ids[i] = u.ID
		args, err := userArgs(u)
		if err != nil {
			return fmt.Errorf("%w: encode user %d: %w", domain.ErrStore, u.ID, err)
		}
		batch.Queue(upsertUserSQL, args...)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM users WHERE NOT (id = ANY(@ids))`, pgx.NamedArgs{"ids": ids}); err != nil {
		return fmt.Errorf("%w: prune users: %w", domain.ErrStore, err)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%w: upsert users: %w", domain.ErrStore, err)
	}
	return nil
}

func loadLocations(ctx context.Context, q db) ([]domain.Location, error) {
	rows, err := q.Query(ctx, selectLocationsSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStore, err)
	}
	defer rows.Close()

	locs := []domain.Location{}
	for rows.Next() {
		l, err := scanLocation(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan: %w", domain.ErrStore, err)
		}
		locs = append(locs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %w", domain.ErrStore, err)
	}
	return locs, nil
}

func saveLocations(ctx context.Context, tx pgx.Tx, locs []domain.Location) error {
	ids := make([]int64, len(locs))
	batch := &pgx.Batch{}
	for i, l := range locs {
		ids[i] = l.ID
		points, err := json.Marshal(nonNil(l.Points))
		if err != nil {
			return fmt.Errorf("%w: encode location %d: %w", domain.ErrStore, l.ID, err)
		}
		batch.Queue(upsertLocationSQL, l.ID, l.Name, l.Source, l.Destination, points)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM locations WHERE NOT (id = ANY(@ids))`, pgx.NamedArgs{"ids": ids}); err != nil {
		return fmt.Errorf("%w: prune locations: %w", domain.ErrStore, err)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%w: upsert locations: %w", domain.ErrStore, err)
	}
	return nil
}

// userArgs encodes u into the positional arguments of upsertUserSQL.
// A nil live location becomes SQL NULL.
func userArgs(u domain.User) ([]any, error) {
	allocations, err := json.Marshal(nonNil(u.Allocations))
	if err != nil {
		return nil, err
	}
	history, err := json.Marshal(nonNil(u.History))
	if err != nil {
		return nil, err
	}
	var live any
	if u.LiveLocation != nil {
		b, err := json.Marshal(u.LiveLocation)
		if err != nil {
			return nil, err
		}
		live = b
	}
	return []any{u.ID, u.Email, u.Username, string(u.Role), string(u.Status), allocations, history, live}, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan
// helpers to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanUser maps a single row into a domain.User, decoding the JSONB columns.
func scanUser(s scanner) (domain.User, error) {
	var (
		u                          domain.User
		role, status               string
		allocations, history, live []byte
	)
	if err := s.Scan(&u.ID, &u.Email, &u.Username, &role, &status, &allocations, &history, &live); err != nil {
		return domain.User{}, err
	}
	u.Role = domain.Role(role)
	u.Status = domain.TrackingStatus(status)

	u.Allocations = []domain.AllocationRecord{}
	if err := json.Unmarshal(allocations, &u.Allocations); err != nil {
		return domain.User{}, fmt.Errorf("allocations of user %d: %w", u.ID, err)
	}
	u.History = []domain.HistoryRecord{}
	if err := json.Unmarshal(history, &u.History); err != nil {
		return domain.User{}, fmt.Errorf("history of user %d: %w", u.ID, err)
	}
	if live != nil {
		var p domain.Position
		if err := json.Unmarshal(live, &p); err != nil {
			return domain.User{}, fmt.Errorf("live location of user %d: %w", u.ID, err)
		}
		u.LiveLocation = &p
	}
	return u, nil
}

// scanLocation maps a single row into a domain.Location.
func scanLocation(s scanner) (domain.Location, error) {
	var (
		l      domain.Location
		points []byte
	)
	if err := s.Scan(&l.ID, &l.Name, &l.Source, &l.Destination, &points); err != nil {
		return domain.Location{}, err
	}
	l.Points = []domain.Position{}
	if err := json.Unmarshal(points, &l.Points); err != nil {
		return domain.Location{}, fmt.Errorf("points of location %d: %w", l.ID, err)
	}
	return l, nil
}

// nonNil turns a nil slice into an empty one so it encodes as [] not null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
