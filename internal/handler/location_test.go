package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/routetracker/internal/domain"
	"github.com/pkordes/routetracker/internal/handler"
)

func locationHandler(m *mockLocations) http.Handler {
	return newHTTPHandler(handler.Services{Locations: m})
}

func locationFixture() domain.Location {
	return domain.Location{
		ID:          1790000000000000001,
		Name:        "Airport Loop",
		Source:      "Depot",
		Destination: "Terminal 2",
		Points:      []domain.Position{{Lat: 12.97, Lng: 77.59}},
	}
}

func TestCreateLocation_201(t *testing.T) {
	fixture := locationFixture()
	m := &mockLocations{
		create: func(_ context.Context, actor domain.Actor, loc domain.Location) (domain.Location, error) {
			assert.Equal(t, admin, actor)
			assert.Equal(t, "Airport Loop", loc.Name)
			assert.Len(t, loc.Points, 1)
			return fixture, nil
		},
	}

	rec := serve(t, locationHandler(m), admin, http.MethodPost, "/locations", jsonBody(t, map[string]any{
		"name":        "Airport Loop",
		"source":      "Depot",
		"destination": "Terminal 2",
		"points":      []map[string]float64{{"lat": 12.97, "lng": 77.59}},
	}))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/locations/1790000000000000001", rec.Header().Get("Location"))
	var resp domain.Location
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, fixture, resp)
}

func TestCreateLocation_MissingName_422(t *testing.T) {
	m := &mockLocations{
		create: func(context.Context, domain.Actor, domain.Location) (domain.Location, error) {
			return domain.Location{}, fmt.Errorf("%w: name is required", domain.ErrValidation)
		},
	}

	rec := serve(t, locationHandler(m), admin, http.MethodPost, "/locations", jsonBody(t, map[string]any{"source": "Depot"}))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "name is required", decodeError(t, rec).Message)
}

func TestListLocations_200(t *testing.T) {
	m := &mockLocations{
		list: func(context.Context, domain.Actor) ([]domain.Location, error) {
			return []domain.Location{locationFixture()}, nil
		},
	}

	rec := serve(t, locationHandler(m), driver, http.MethodGet, "/locations", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []domain.Location
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp, 1)
}

func TestGetLocation_200(t *testing.T) {
	m := &mockLocations{
		getByID: func(_ context.Context, _ domain.Actor, id int64) (domain.Location, error) {
			assert.Equal(t, int64(1790000000000000001), id)
			return locationFixture(), nil
		},
	}

	rec := serve(t, locationHandler(m), driver, http.MethodGet, "/locations/1790000000000000001", nil)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetLocation_404(t *testing.T) {
	m := &mockLocations{
		getByID: func(context.Context, domain.Actor, int64) (domain.Location, error) {
			return domain.Location{}, fmt.Errorf("service.LocationService.GetByID: %w: location 5", domain.ErrNotFound)
		},
	}

	rec := serve(t, locationHandler(m), driver, http.MethodGet, "/locations/5", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "location 5", decodeError(t, rec).Message)
}
