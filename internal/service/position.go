package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/pkordes/routetracker/internal/domain"
	"github.com/pkordes/routetracker/internal/repo"
)

// PositionCache is an optional read-through cache of the last reported
// position per user. The entity store stays authoritative; cache failures
// are logged and never fail a request.
type PositionCache interface {
	// GetPosition returns the cached position and whether it was present.
	GetPosition(ctx context.Context, userID int64) (domain.Position, bool, error)

	// SetPosition overwrites the cached position.
	SetPosition(ctx context.Context, userID int64, p domain.Position) error

	// FillPosition caches p only if no position is cached for userID.
	FillPosition(ctx context.Context, userID int64, p domain.Position) error

	// DeletePosition drops the cached position, if any.
	DeletePosition(ctx context.Context, userID int64) error
}

// PositionService accepts live coordinate reports and serves the latest one.
// Only the most recent report per user is kept.
type PositionService struct {
	store repo.UserStore
	cache PositionCache
	log   *slog.Logger
}

// NewPositionService constructs a PositionService backed by store. cache may
// be nil, in which case every read goes to the store. A nil logger discards
// output.
func NewPositionService(store repo.UserStore, cache PositionCache, log *slog.Logger) *PositionService {
	if log == nil {
		log = discardLogger()
	}
	return &PositionService{store: store, cache: cache, log: log}
}

// Report overwrites userID's live location with p regardless of tracking
// state. Reporting the same position twice leaves the same state as once.
//
// Returns domain.ErrNotFound if the user does not exist and
// domain.ErrValidation if p is not a valid coordinate.
func (s *PositionService) Report(ctx context.Context, actor domain.Actor, userID int64, p domain.Position) error {
	if err := authorize(actor, userID); err != nil {
		return err
	}
	if err := validatePosition(p); err != nil {
		return err
	}

	// The cache is written inside the mutation, under the store's collection
	// lock, so concurrent reports reach the cache in commit order.
	cached := false
	err := s.store.UpdateUsers(ctx, func(users []domain.User) ([]domain.User, error) {
		u, err := findUser(users, userID)
		if err != nil {
			return nil, err
		}
		pos := p
		u.LiveLocation = &pos
		if s.cache != nil {
			s.writeCache(ctx, userID, p)
			cached = true
		}
		return users, nil
	})
	if err != nil {
		if cached {
			// The save failed after the cache took p.
			s.dropCache(ctx, userID)
		}
		return fmt.Errorf("service.PositionService.Report: %w", err)
	}
	return nil
}

// writeCache overwrites the cached position. When the write fails the key
// is dropped so an older position cannot outlive the report.
func (s *PositionService) writeCache(ctx context.Context, userID int64, p domain.Position) {
	if err := s.cache.SetPosition(ctx, userID, p); err != nil {
		s.log.WarnContext(ctx, "position cache write failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
		s.dropCache(ctx, userID)
	}
}

func (s *PositionService) dropCache(ctx context.Context, userID int64) {
	if err := s.cache.DeletePosition(ctx, userID); err != nil {
		s.log.WarnContext(ctx, "position cache delete failed",
			slog.Int64("user_id", userID),
			slog.String("error", err.Error()),
		)
	}
}

// Get returns userID's last reported position, or nil when none has been
// reported yet. Returns domain.ErrNotFound if the user does not exist.
func (s *PositionService) Get(ctx context.Context, actor domain.Actor, userID int64) (*domain.Position, error) {
	if err := authorize(actor, userID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		p, ok, err := s.cache.GetPosition(ctx, userID)
		switch {
		case err != nil:
			s.log.WarnContext(ctx, "position cache read failed",
				slog.Int64("user_id", userID),
				slog.String("error", err.Error()),
			)
		case ok:
			return &p, nil
		}
	}

	users, err := s.store.LoadUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.PositionService.Get: %w", err)
	}
	u, err := findUser(users, userID)
	if err != nil {
		return nil, fmt.Errorf("service.PositionService.Get: %w", err)
	}
	if u.LiveLocation == nil {
		return nil, nil
	}

	// Fill only an empty key: a report that committed after the load above
	// has already cached a newer position.
	if s.cache != nil {
		if err := s.cache.FillPosition(ctx, userID, *u.LiveLocation); err != nil {
			s.log.WarnContext(ctx, "position cache fill failed",
				slog.Int64("user_id", userID),
				slog.String("error", err.Error()),
			)
		}
	}
	return u.LiveLocation, nil
}

func validatePosition(p domain.Position) error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: lat %v out of range [-90, 90]", domain.ErrValidation, p.Lat)
	}
	if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
		return fmt.Errorf("%w: lng %v out of range [-180, 180]", domain.ErrValidation, p.Lng)
	}
	return nil
}
