package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkordes/routetracker/internal/domain"
)

// wallClockLayouts are the bare time-of-day forms accepted for a tracking
// timestamp. They are anchored to the current UTC date.
var wallClockLayouts = []string{"15:04:05", "15:04"}

// TrackingRequest is the optional body of the start and stop endpoints.
// An absent or empty timestamp means "now".
type TrackingRequest struct {
	Timestamp string `json:"timestamp"`
}

// StartTracking handles POST /users/{userId}/allocations/{locationId}/start.
func (s *Server) StartTracking(w http.ResponseWriter, r *http.Request) {
	actor, userID, locationID, at, ok := s.trackingInput(w, r)
	if !ok {
		return
	}
	rec, err := s.tracking.Start(r.Context(), actor, userID, locationID, at)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// StopTracking handles POST /users/{userId}/allocations/{locationId}/stop.
// The response is the history record appended for the finished session.
func (s *Server) StopTracking(w http.ResponseWriter, r *http.Request) {
	actor, userID, locationID, at, ok := s.trackingInput(w, r)
	if !ok {
		return
	}
	rec, err := s.tracking.Stop(r.Context(), actor, userID, locationID, at)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) trackingInput(w http.ResponseWriter, r *http.Request) (actor domain.Actor, userID, locationID int64, at time.Time, ok bool) {
	if actor, ok = actorFrom(w, r); !ok {
		return
	}
	if userID, ok = pathID(w, r, "userId"); !ok {
		return
	}
	if locationID, ok = pathID(w, r, "locationId"); !ok {
		return
	}
	var body TrackingRequest
	if ok = decodeJSON(w, r, &body, true); !ok {
		return
	}
	at, err := parseTimestamp(body.Timestamp, s.now())
	if err != nil {
		s.writeServiceError(w, r, err)
		return actor, userID, locationID, time.Time{}, false
	}
	return actor, userID, locationID, at, true
}

// parseTimestamp accepts an RFC 3339 instant or a bare HH:MM[:SS], which is
// taken as that time today in UTC. An empty value yields the zero time.
func parseTimestamp(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	for _, layout := range wallClockLayouts {
		if c, err := time.Parse(layout, raw); err == nil {
			y, m, d := now.UTC().Date()
			return time.Date(y, m, d, c.Hour(), c.Minute(), c.Second(), 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is neither RFC 3339 nor HH:MM[:SS]", domain.ErrInvalidTimestamp, raw)
}
