package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pkordes/routetracker/internal/domain"
	"github.com/pkordes/routetracker/internal/repo"
)

// scheduledTimeLayouts are the accepted forms of AllocationRecord.ScheduledTime.
var scheduledTimeLayouts = []string{"15:04:05", "15:04"}

// AllocationService assigns locations to users and lists those assignments.
type AllocationService struct {
	store repo.Store
	now   Clock
	log   *slog.Logger
}

// NewAllocationService constructs an AllocationService backed by store.
// A nil logger discards output.
func NewAllocationService(store repo.Store, log *slog.Logger) *AllocationService {
	if log == nil {
		log = discardLogger()
	}
	return &AllocationService{store: store, now: systemClock, log: log}
}

// WithClock replaces the clock used to stamp AssignedAt.
func (s *AllocationService) WithClock(now Clock) *AllocationService {
	s.now = now
	return s
}

// Allocate assigns locationID to userID. Only admins may allocate.
//
// The location id is not checked against the location collection; unknown
// ids are listed as "Unknown". Allocating a pair that already exists updates
// its scheduled time and direction and leaves its tracking state alone, so a
// user holds at most one record per location.
//
// created reports whether a new record was added rather than an existing
// one updated.
//
// Returns domain.ErrNotFound if the user does not exist and
// domain.ErrValidation if scheduledTime is not HH:MM or HH:MM:SS.
func (s *AllocationService) Allocate(ctx context.Context, actor domain.Actor, userID, locationID int64, scheduledTime string, reversed bool) (rec domain.AllocationRecord, created bool, err error) {
	if err := requireAdmin(actor, "allocate"); err != nil {
		return domain.AllocationRecord{}, false, err
	}
	scheduledTime = strings.TrimSpace(scheduledTime)
	if err := validateScheduledTime(scheduledTime); err != nil {
		return domain.AllocationRecord{}, false, err
	}

	var result domain.AllocationRecord
	err = s.store.UpdateUsers(ctx, func(users []domain.User) ([]domain.User, error) {
		u, err := findUser(users, userID)
		if err != nil {
			return nil, err
		}
		if i := u.FindAllocation(locationID); i >= 0 {
			u.Allocations[i].ScheduledTime = scheduledTime
			u.Allocations[i].Reversed = reversed
			result = u.Allocations[i]
			return users, nil
		}
		added := domain.AllocationRecord{
			LocationID:    locationID,
			ScheduledTime: scheduledTime,
			Status:        domain.StatusOffline,
			Reversed:      reversed,
			AssignedAt:    s.now().UTC(),
		}
		u.Allocations = append(u.Allocations, added)
		result, created = added, true
		return users, nil
	})
	if err != nil {
		return domain.AllocationRecord{}, false, fmt.Errorf("service.AllocationService.Allocate: %w", err)
	}

	s.log.InfoContext(ctx, "location allocated",
		slog.Int64("user_id", userID),
		slog.Int64("location_id", locationID),
		slog.Bool("created", created),
	)
	return result, created, nil
}

// ListAllocations returns the user's allocations joined with location names.
// A user with no allocations yields an empty, non-nil slice.
// Returns domain.ErrNotFound if the user does not exist.
func (s *AllocationService) ListAllocations(ctx context.Context, actor domain.Actor, userID int64) ([]domain.AllocationView, error) {
	if err := authorize(actor, userID); err != nil {
		return nil, err
	}
	users, err := s.store.LoadUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.AllocationService.ListAllocations: %w", err)
	}
	u, err := findUser(users, userID)
	if err != nil {
		return nil, fmt.Errorf("service.AllocationService.ListAllocations: %w", err)
	}

	views := make([]domain.AllocationView, 0, len(u.Allocations))
	if len(u.Allocations) == 0 {
		return views, nil
	}

	locs, err := s.store.LoadLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.AllocationService.ListAllocations: %w", err)
	}
	names := make(map[int64]string, len(locs))
	for _, l := range locs {
		names[l.ID] = l.Name
	}

	for _, a := range u.Allocations {
		name, ok := names[a.LocationID]
		if !ok {
			name = domain.UnknownLocationName
		}
		views = append(views, domain.AllocationView{LocationID: a.LocationID, Name: name, Status: a.Status})
	}
	return views, nil
}

// validateScheduledTime accepts an empty value (no schedule) or a wall-clock
// time in one of scheduledTimeLayouts.
func validateScheduledTime(v string) error {
	if v == "" {
		return nil
	}
	for _, layout := range scheduledTimeLayouts {
		if _, err := time.Parse(layout, v); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: time %q must be HH:MM or HH:MM:SS", domain.ErrValidation, v)
}
