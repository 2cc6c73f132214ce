package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/routetracker/internal/domain"
	"github.com/pkordes/routetracker/internal/repo"
)

// TrackingService moves a user's allocation between offline and live and
// records a history entry for every completed session.
//
//	offline --Start--> live --Stop--> offline
//
// Both transitions are re-enterable. Start on a live record and Stop on an
// offline record are rejected with domain.ErrInvalidTransition.
type TrackingService struct {
	store repo.UserStore
	now   Clock
	log   *slog.Logger
}

// NewTrackingService constructs a TrackingService backed by store.
// A nil logger discards output.
func NewTrackingService(store repo.UserStore, log *slog.Logger) *TrackingService {
	if log == nil {
		log = discardLogger()
	}
	return &TrackingService{store: store, now: systemClock, log: log}
}

// WithClock replaces the clock used when a caller supplies no timestamp.
func (s *TrackingService) WithClock(now Clock) *TrackingService {
	s.now = now
	return s
}

// Start puts the allocation of locationID to userID live at the instant at,
// or at the current time when at is zero. The user's aggregate status
// becomes live and a new session id is issued.
//
// Returns domain.ErrNotFound if the user or the allocation does not exist
// and domain.ErrInvalidTransition if the allocation is already live.
func (s *TrackingService) Start(ctx context.Context, actor domain.Actor, userID, locationID int64, at time.Time) (domain.AllocationRecord, error) {
	if err := authorize(actor, userID); err != nil {
		return domain.AllocationRecord{}, err
	}
	at = s.instant(at)

	var result domain.AllocationRecord
	err := s.store.UpdateUsers(ctx, func(users []domain.User) ([]domain.User, error) {
		u, err := findUser(users, userID)
		if err != nil {
			return nil, err
		}
		a, err := findAllocation(u, locationID)
		if err != nil {
			return nil, err
		}
		if a.Status == domain.StatusLive {
			return nil, fmt.Errorf("%w: allocation of location %d to user %d is already live",
				domain.ErrInvalidTransition, locationID, userID)
		}

		session := uuid.New()
		start := at
		a.Status = domain.StatusLive
		a.StartTime = &start
		a.SessionID = &session
		u.Status = domain.StatusLive
		result = *a
		return users, nil
	})
	if err != nil {
		return domain.AllocationRecord{}, fmt.Errorf("service.TrackingService.Start: %w", err)
	}

	s.log.InfoContext(ctx, "tracking started",
		slog.Int64("user_id", userID),
		slog.Int64("location_id", locationID),
		slog.String("session_id", result.SessionID.String()),
	)
	return result, nil
}

// Stop ends the live session of the allocation of locationID to userID at
// the instant at, or at the current time when at is zero. It appends a
// HistoryRecord with the next sequence number and returns it. The user's
// aggregate status drops to offline only when none of their other
// allocations is still live.
//
// Returns domain.ErrNotFound if the user or the allocation does not exist,
// domain.ErrInvalidTransition if the allocation is already offline and
// domain.ErrInvalidTimestamp if at precedes the session start. Nothing is
// mutated on error.
func (s *TrackingService) Stop(ctx context.Context, actor domain.Actor, userID, locationID int64, at time.Time) (domain.HistoryRecord, error) {
	if err := authorize(actor, userID); err != nil {
		return domain.HistoryRecord{}, err
	}
	at = s.instant(at)

	var result domain.HistoryRecord
	err := s.store.UpdateUsers(ctx, func(users []domain.User) ([]domain.User, error) {
		u, err := findUser(users, userID)
		if err != nil {
			return nil, err
		}
		a, err := findAllocation(u, locationID)
		if err != nil {
			return nil, err
		}
		if a.Status != domain.StatusLive {
			return nil, fmt.Errorf("%w: allocation of location %d to user %d is already offline",
				domain.ErrInvalidTransition, locationID, userID)
		}

		d, err := domain.SessionDuration(*a.StartTime, at)
		if err != nil {
			return nil, err
		}
		rec := domain.HistoryRecord{
			Seq:             u.NextHistorySeq(),
			LocationID:      locationID,
			SessionID:       *a.SessionID,
			StartTime:       *a.StartTime,
			EndTime:         at,
			TotalDuration:   domain.FormatDuration(d),
			DurationSeconds: int64(d / time.Second),
		}
		u.History = append(u.History, rec)

		a.Status = domain.StatusOffline
		a.StartTime = nil
		a.SessionID = nil
		if !u.HasLiveAllocation() {
			u.Status = domain.StatusOffline
		}
		result = rec
		return users, nil
	})
	if err != nil {
		return domain.HistoryRecord{}, fmt.Errorf("service.TrackingService.Stop: %w", err)
	}

	s.log.InfoContext(ctx, "tracking stopped",
		slog.Int64("user_id", userID),
		slog.Int64("location_id", locationID),
		slog.String("session_id", result.SessionID.String()),
		slog.String("duration", result.TotalDuration),
	)
	return result, nil
}

func (s *TrackingService) instant(at time.Time) time.Time {
	if at.IsZero() {
		return s.now().UTC()
	}
	return at.UTC()
}
