package handler

import (
	"net/http"

	"github.com/pkordes/routetracker/internal/domain"
)

// PositionRequest is the body of PUT /users/{userId}/position.
// Both coordinates are required; pointers distinguish 0 from absent.
type PositionRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// PositionResponse is the body of GET /users/{userId}/position.
// LiveLocation is null until the user first reports a position.
type PositionResponse struct {
	UserID       int64            `json:"user_id"`
	LiveLocation *domain.Position `json:"live_location"`
}

// ReportPosition handles PUT /users/{userId}/position.
func (s *Server) ReportPosition(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	var body PositionRequest
	if !decodeJSON(w, r, &body, false) {
		return
	}
	if body.Lat == nil || body.Lng == nil {
		writeRequestError(w, "lat and lng are required")
		return
	}

	p := domain.Position{Lat: *body.Lat, Lng: *body.Lng}
	if err := s.positions.Report(r.Context(), actor, userID, p); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetPosition handles GET /users/{userId}/position.
func (s *Server) GetPosition(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	p, err := s.positions.Get(r.Context(), actor, userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PositionResponse{UserID: userID, LiveLocation: p})
}
