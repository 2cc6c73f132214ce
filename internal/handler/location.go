package handler

import (
	"net/http"
	"strconv"

	"github.com/pkordes/routetracker/internal/domain"
)

// LocationRequest is the body of POST /locations.
type LocationRequest struct {
	Name        string            `json:"name"`
	Source      string            `json:"source"`
	Destination string            `json:"destination"`
	Points      []domain.Position `json:"points"`
}

// ListLocations handles GET /locations.
func (s *Server) ListLocations(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	locs, err := s.locations.List(r.Context(), actor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

// CreateLocation handles POST /locations.
func (s *Server) CreateLocation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var body LocationRequest
	if !decodeJSON(w, r, &body, false) {
		return
	}

	created, err := s.locations.Create(r.Context(), actor, domain.Location{
		Name:        body.Name,
		Source:      body.Source,
		Destination: body.Destination,
		Points:      body.Points,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", "/locations/"+strconv.FormatInt(created.ID, 10))
	writeJSON(w, http.StatusCreated, created)
}

// GetLocation handles GET /locations/{locationId}.
func (s *Server) GetLocation(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "locationId")
	if !ok {
		return
	}
	loc, err := s.locations.GetByID(r.Context(), actor, id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loc)
}
