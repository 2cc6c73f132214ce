package handler_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/routetracker/internal/domain"
	"github.com/pkordes/routetracker/internal/handler"
)

func queryHandler(m *mockQueries) http.Handler {
	return newHTTPHandler(handler.Services{Queries: m})
}

func historyFixture(seq int) domain.HistoryRecord {
	start := time.Date(2025, 6, 1, 8, 5, 0, 0, time.UTC)
	return domain.HistoryRecord{
		Seq:             seq,
		LocationID:      3,
		SessionID:       uuid.MustParse("0b0e5a52-8b9a-4d0e-9c8e-7f6a5b4c3d2e"),
		StartTime:       start,
		EndTime:         start.Add(75 * time.Minute),
		TotalDuration:   "01:15:00",
		DurationSeconds: 4500,
	}
}

// ---- GET /users ------------------------------------------------------------

func TestListUsers_200_WithPagination(t *testing.T) {
	m := &mockQueries{
		listUsers: func(_ context.Context, _ domain.Actor, p domain.PaginationParams) ([]domain.User, int, error) {
			assert.Equal(t, 2, p.Page)
			assert.Equal(t, 5, p.Limit)
			return []domain.User{{ID: 7, Username: "driver", Role: domain.RoleUser, Status: domain.StatusOffline}}, 6, nil
		},
	}

	rec := serve(t, queryHandler(m), admin, http.MethodGet, "/users?page=2&limit=5", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data       []map[string]any   `json:"data"`
		Pagination handler.Pagination `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Data, 1)
	assert.EqualValues(t, 7, resp.Data[0]["_id"])
	assert.Equal(t, handler.Pagination{Page: 2, Limit: 5, Total: 6}, resp.Pagination)
}

func TestListUsers_EmptyPageIsArray(t *testing.T) {
	m := &mockQueries{
		listUsers: func(context.Context, domain.Actor, domain.PaginationParams) ([]domain.User, int, error) {
			return nil, 0, nil
		},
	}

	rec := serve(t, queryHandler(m), admin, http.MethodGet, "/users", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data": [], "pagination": {"page": 1, "limit": 20, "total": 0}}`, rec.Body.String())
}

func TestListUsers_BadPage_400(t *testing.T) {
	rec := serve(t, queryHandler(&mockQueries{}), admin, http.MethodGet, "/users?page=first", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---- GET /users/{userId} ---------------------------------------------------

func TestGetUser_200(t *testing.T) {
	m := &mockQueries{
		getUser: func(_ context.Context, _ domain.Actor, userID int64) (domain.User, error) {
			return domain.User{
				ID: userID, Username: "driver", Role: domain.RoleUser, Status: domain.StatusOffline,
				Allocations: []domain.AllocationRecord{{LocationID: 3, ScheduledTime: "08:00", Status: domain.StatusOffline}},
				History:     []domain.HistoryRecord{},
			}, nil
		},
	}

	rec := serve(t, queryHandler(m), driver, http.MethodGet, "/users/7", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.EqualValues(t, 7, resp["_id"])
	assert.Len(t, resp["allocated_places"], 1)
	assert.Nil(t, resp["live_location"])
}

func TestGetUser_404(t *testing.T) {
	m := &mockQueries{
		getUser: func(context.Context, domain.Actor, int64) (domain.User, error) {
			return domain.User{}, fmt.Errorf("service.QueryService.GetUser: %w: user 99", domain.ErrNotFound)
		},
	}

	rec := serve(t, queryHandler(m), admin, http.MethodGet, "/users/99", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

// ---- GET /users/{userId}/history -------------------------------------------

func TestListHistory_JSON(t *testing.T) {
	m := &mockQueries{
		listHistory: func(_ context.Context, _ domain.Actor, userID int64, p domain.PaginationParams) ([]domain.HistoryRecord, int, error) {
			assert.Equal(t, int64(7), userID)
			return []domain.HistoryRecord{historyFixture(1)}, 1, nil
		},
	}

	rec := serve(t, queryHandler(m), driver, http.MethodGet, "/users/7/history", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp struct {
		Data []domain.HistoryRecord `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "01:15:00", resp.Data[0].TotalDuration)
}

func TestListHistory_CSV(t *testing.T) {
	m := &mockQueries{
		exportHistory: func(context.Context, domain.Actor, int64) ([]domain.HistoryRecord, error) {
			return []domain.HistoryRecord{historyFixture(1), historyFixture(2)}, nil
		},
	}

	rec := serve(t, queryHandler(m), driver, http.MethodGet, "/users/7/history?format=csv", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="history-7.csv"`)

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"id", "location_id", "session_id", "start_time", "end_time", "total_duration", "duration_seconds"}, rows[0])
	assert.Equal(t, []string{
		"1", "3", "0b0e5a52-8b9a-4d0e-9c8e-7f6a5b4c3d2e",
		"2025-06-01T08:05:00Z", "2025-06-01T09:20:00Z", "01:15:00", "4500",
	}, rows[1])
	assert.Equal(t, "2", rows[2][0])
}

func TestListHistory_CSV_Empty(t *testing.T) {
	m := &mockQueries{
		exportHistory: func(context.Context, domain.Actor, int64) ([]domain.HistoryRecord, error) {
			return []domain.HistoryRecord{}, nil
		},
	}

	rec := serve(t, queryHandler(m), driver, http.MethodGet, "/users/7/history?format=csv", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header row only")
}

func TestListHistory_UnknownFormat_400(t *testing.T) {
	rec := serve(t, queryHandler(&mockQueries{}), driver, http.MethodGet, "/users/7/history?format=xml", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListHistory_Forbidden_403(t *testing.T) {
	m := &mockQueries{
		exportHistory: func(context.Context, domain.Actor, int64) ([]domain.HistoryRecord, error) {
			return nil, fmt.Errorf("%w: user 7 may not act on user 8", domain.ErrForbidden)
		},
	}

	rec := serve(t, queryHandler(m), driver, http.MethodGet, "/users/8/history?format=csv", nil)

	require.Equal(t, http.StatusForbidden, rec.Code)
}
