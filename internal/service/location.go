package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkordes/routetracker/internal/domain"
	"github.com/pkordes/routetracker/internal/repo"
)

// IDGenerator issues unique ids for new locations.
type IDGenerator interface {
	NextID() int64
}

// LocationService manages the location collection.
type LocationService struct {
	store repo.LocationStore
	ids   IDGenerator
	log   *slog.Logger
}

// NewLocationService constructs a LocationService. A nil logger discards
// output.
func NewLocationService(store repo.LocationStore, ids IDGenerator, log *slog.Logger) *LocationService {
	if log == nil {
		log = discardLogger()
	}
	return &LocationService{store: store, ids: ids, log: log}
}

// Create validates and persists a new location with a freshly issued id.
// Only admins may create locations.
// Returns domain.ErrValidation if the name is blank or a route point is out
// of range.
func (s *LocationService) Create(ctx context.Context, actor domain.Actor, loc domain.Location) (domain.Location, error) {
	if err := requireAdmin(actor, "create location"); err != nil {
		return domain.Location{}, err
	}
	loc.Name = strings.TrimSpace(loc.Name)
	loc.Source = strings.TrimSpace(loc.Source)
	loc.Destination = strings.TrimSpace(loc.Destination)
	if err := validateLocation(loc); err != nil {
		return domain.Location{}, err
	}
	if loc.Points == nil {
		loc.Points = []domain.Position{}
	}

	loc.ID = s.ids.NextID()
	err := s.store.UpdateLocations(ctx, func(locs []domain.Location) ([]domain.Location, error) {
		if domain.FindLocation(locs, loc.ID) >= 0 {
			return nil, fmt.Errorf("%w: location id %d already issued", domain.ErrStore, loc.ID)
		}
		return append(locs, loc.Clone()), nil
	})
	if err != nil {
		return domain.Location{}, fmt.Errorf("service.LocationService.Create: %w", err)
	}

	s.log.InfoContext(ctx, "location created",
		slog.Int64("location_id", loc.ID),
		slog.String("name", loc.Name),
	)
	return loc, nil
}

// GetByID returns a single location.
// Returns domain.ErrNotFound if no location has that id.
func (s *LocationService) GetByID(ctx context.Context, actor domain.Actor, id int64) (domain.Location, error) {
	if err := requireActor(actor); err != nil {
		return domain.Location{}, err
	}
	locs, err := s.store.LoadLocations(ctx)
	if err != nil {
		return domain.Location{}, fmt.Errorf("service.LocationService.GetByID: %w", err)
	}
	i := domain.FindLocation(locs, id)
	if i < 0 {
		return domain.Location{}, fmt.Errorf("service.LocationService.GetByID: %w: location %d", domain.ErrNotFound, id)
	}
	return locs[i], nil
}

// List returns every location in insertion order.
// Always returns a non-nil slice so callers can safely range over it.
func (s *LocationService) List(ctx context.Context, actor domain.Actor) ([]domain.Location, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	locs, err := s.store.LoadLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.LocationService.List: %w", err)
	}
	if locs == nil {
		return []domain.Location{}, nil
	}
	return locs, nil
}

func validateLocation(loc domain.Location) error {
	if loc.Name == "" {
		return fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	for i, p := range loc.Points {
		if err := validatePosition(p); err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
	}
	return nil
}
