package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/routetracker/internal/domain"
	"github.com/pkordes/routetracker/internal/handler"
)

func positionHandler(m *mockPositions) http.Handler {
	return newHTTPHandler(handler.Services{Positions: m})
}

func TestReportPosition_204(t *testing.T) {
	var got domain.Position
	m := &mockPositions{
		report: func(_ context.Context, _ domain.Actor, userID int64, p domain.Position) error {
			assert.Equal(t, int64(7), userID)
			got = p
			return nil
		},
	}

	rec := serve(t, positionHandler(m), driver, http.MethodPut, "/users/7/position",
		strings.NewReader(`{"lat": 12.9716, "lng": 77.5946}`))

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, domain.Position{Lat: 12.9716, Lng: 77.5946}, got)
	assert.Zero(t, rec.Body.Len())
}

// Zero is a valid coordinate, so 0/0 must reach the service.
func TestReportPosition_ZeroCoordinates(t *testing.T) {
	called := false
	m := &mockPositions{
		report: func(context.Context, domain.Actor, int64, domain.Position) error {
			called = true
			return nil
		},
	}

	rec := serve(t, positionHandler(m), driver, http.MethodPut, "/users/7/position",
		strings.NewReader(`{"lat": 0, "lng": 0}`))

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, called)
}

func TestReportPosition_MissingCoordinate_400(t *testing.T) {
	rec := serve(t, positionHandler(&mockPositions{}), driver, http.MethodPut, "/users/7/position",
		strings.NewReader(`{"lat": 12.9}`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "lat and lng are required", decodeError(t, rec).Message)
}

func TestReportPosition_Malformed_400(t *testing.T) {
	rec := serve(t, positionHandler(&mockPositions{}), driver, http.MethodPut, "/users/7/position",
		strings.NewReader(`{"lat": "north"`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportPosition_OutOfRange_422(t *testing.T) {
	m := &mockPositions{
		report: func(context.Context, domain.Actor, int64, domain.Position) error {
			return fmt.Errorf("%w: lat 91 out of range [-90, 90]", domain.ErrValidation)
		},
	}

	rec := serve(t, positionHandler(m), driver, http.MethodPut, "/users/7/position",
		strings.NewReader(`{"lat": 91, "lng": 0}`))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "lat 91 out of range [-90, 90]", decodeError(t, rec).Message)
}

func TestGetPosition_200(t *testing.T) {
	m := &mockPositions{
		get: func(context.Context, domain.Actor, int64) (*domain.Position, error) {
			return &domain.Position{Lat: 1.5, Lng: 2.5}, nil
		},
	}

	rec := serve(t, positionHandler(m), admin, http.MethodGet, "/users/7/position", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id": 7, "live_location": {"lat": 1.5, "lng": 2.5}}`, rec.Body.String())
}

func TestGetPosition_NeverReported(t *testing.T) {
	m := &mockPositions{
		get: func(context.Context, domain.Actor, int64) (*domain.Position, error) { return nil, nil },
	}

	rec := serve(t, positionHandler(m), driver, http.MethodGet, "/users/7/position", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id": 7, "live_location": null}`, rec.Body.String())
}

func TestGetPosition_UserNotFound_404(t *testing.T) {
	m := &mockPositions{
		get: func(context.Context, domain.Actor, int64) (*domain.Position, error) {
			return nil, fmt.Errorf("service.PositionService.Get: %w: user 99", domain.ErrNotFound)
		},
	}

	rec := serve(t, positionHandler(m), admin, http.MethodGet, "/users/99/position", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
