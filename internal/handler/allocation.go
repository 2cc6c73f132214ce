package handler

import (
	"net/http"

	"github.com/pkordes/routetracker/internal/domain"
)

// AllocationRequest is the body of POST /users/{userId}/allocations.
type AllocationRequest struct {
	LocationID *int64 `json:"location_id"`
	Time       string `json:"time"`
	Reversed   bool   `json:"reversed"`
}

// Allocate handles POST /users/{userId}/allocations.
// Answers 201 for a new allocation and 200 when an existing one is updated.
func (s *Server) Allocate(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	var body AllocationRequest
	if !decodeJSON(w, r, &body, false) {
		return
	}
	if body.LocationID == nil {
		writeRequestError(w, "location_id is required")
		return
	}

	rec, created, err := s.allocations.Allocate(r.Context(), actor, userID, *body.LocationID, body.Time, body.Reversed)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, rec)
}

// ListAllocations handles GET /users/{userId}/locations.
// A user without allocations gets an empty array.
func (s *Server) ListAllocations(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	views, err := s.allocations.ListAllocations(r.Context(), actor, userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if views == nil {
		views = []domain.AllocationView{}
	}
	writeJSON(w, http.StatusOK, views)
}
