package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkordes/routetracker/internal/domain"
)

// Default file names inside the data directory.
const (
	UsersFile     = "user.json"
	LocationsFile = "location.json"
)

// FileStore keeps each collection in one JSON document under dir.
// Writes go to a temporary file that is synced and renamed over the target,
// so a reader never observes a partially written collection.
type FileStore struct {
	dir string

	userMu sync.Mutex
	locMu  sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore constructs a FileStore rooted at dir, creating the directory
// if needed. Missing collection files read as empty collections.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("repo.NewFileStore: %w: %w", domain.ErrStore, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) LoadUsers(ctx context.Context) ([]domain.User, error) {
	s.userMu.Lock()
	defer s.userMu.Unlock()
	users, err := s.readUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo.FileStore.LoadUsers: %w", err)
	}
	return users, nil
}

func (s *FileStore) SaveUsers(ctx context.Context, users []domain.User) error {
	if err := validateUsers(users); err != nil {
		return fmt.Errorf("repo.FileStore.SaveUsers: %w", err)
	}
	s.userMu.Lock()
	defer s.userMu.Unlock()
	if err := s.write(ctx, UsersFile, users); err != nil {
		return fmt.Errorf("repo.FileStore.SaveUsers: %w", err)
	}
	return nil
}

func (s *FileStore) UpdateUsers(ctx context.Context, fn UserMutation) error {
	s.userMu.Lock()
	defer s.userMu.Unlock()

	users, err := s.readUsers(ctx)
	if err != nil {
		return fmt.Errorf("repo.FileStore.UpdateUsers: %w", err)
	}
	next, err := fn(users)
	if err != nil {
		return err
	}
	if err := validateUsers(next); err != nil {
		return fmt.Errorf("repo.FileStore.UpdateUsers: %w", err)
	}
	if err := s.write(ctx, UsersFile, next); err != nil {
		return fmt.Errorf("repo.FileStore.UpdateUsers: %w", err)
	}
	return nil
}

func (s *FileStore) LoadLocations(ctx context.Context) ([]domain.Location, error) {
	s.locMu.Lock()
	defer s.locMu.Unlock()
	locs, err := s.readLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo.FileStore.LoadLocations: %w", err)
	}
	return locs, nil
}

func (s *FileStore) SaveLocations(ctx context.Context, locs []domain.Location) error {
	s.locMu.Lock()
	defer s.locMu.Unlock()
	if err := s.write(ctx, LocationsFile, locs); err != nil {
		return fmt.Errorf("repo.FileStore.SaveLocations: %w", err)
	}
	return nil
}

func (s *FileStore) UpdateLocations(ctx context.Context, fn LocationMutation) error {
	s.locMu.Lock()
	defer s.locMu.Unlock()

	locs, err := s.readLocations(ctx)
	if err != nil {
		return fmt.Errorf("repo.FileStore.UpdateLocations: %w", err)
	}
	next, err := fn(locs)
	if err != nil {
		return err
	}
	if err := s.write(ctx, LocationsFile, next); err != nil {
		return fmt.Errorf("repo.FileStore.UpdateLocations: %w", err)
	}
	return nil
}

func (s *FileStore) readUsers(ctx context.Context) ([]domain.User, error) {
	users := []domain.User{}
	if err := s.read(ctx, UsersFile, &users); err != nil {
		return nil, err
	}
	if err := validateUsers(users); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrStore, UsersFile, err)
	}
	return users, nil
}

func (s *FileStore) readLocations(ctx context.Context) ([]domain.Location, error) {
	locs := []domain.Location{}
	if err := s.read(ctx, LocationsFile, &locs); err != nil {
		return nil, err
	}
	return locs, nil
}

// read decodes the named file into dst. A missing file leaves dst untouched.
func (s *FileStore) read(ctx context.Context, name string, dst any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStore, err)
	}
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", domain.ErrStore, name, err)
	}
	if len(b) == 0 {
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("%w: decode %s: %w", domain.ErrStore, name, err)
	}
	return nil
}

// write atomically replaces the named file with the JSON encoding of v.
func (s *FileStore) write(ctx context.Context, name string, v any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrStore, err)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", domain.ErrStore, name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %w", domain.ErrStore, name, err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %w", domain.ErrStore, name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync %s: %w", domain.ErrStore, name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", domain.ErrStore, name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("%w: rename %s: %w", domain.ErrStore, name, err)
	}
	return nil
}
