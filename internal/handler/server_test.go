package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/routetracker/internal/domain"
	"github.com/pkordes/routetracker/internal/handler"
	"github.com/pkordes/routetracker/internal/middleware"
)

// ---- mocks -----------------------------------------------------------------
// Each mock is a test double for one handler.*Servicer interface.
// Set only the method fields your test needs.

type mockAllocations struct {
	allocate        func(ctx context.Context, actor domain.Actor, userID, locationID int64, scheduledTime string, reversed bool) (domain.AllocationRecord, bool, error)
	listAllocations func(ctx context.Context, actor domain.Actor, userID int64) ([]domain.AllocationView, error)
}

func (m *mockAllocations) Allocate(ctx context.Context, actor domain.Actor, userID, locationID int64, scheduledTime string, reversed bool) (domain.AllocationRecord, bool, error) {
	return m.allocate(ctx, actor, userID, locationID, scheduledTime, reversed)
}
func (m *mockAllocations) ListAllocations(ctx context.Context, actor domain.Actor, userID int64) ([]domain.AllocationView, error) {
	return m.listAllocations(ctx, actor, userID)
}

type mockTracking struct {
	start func(ctx context.Context, actor domain.Actor, userID, locationID int64, at time.Time) (domain.AllocationRecord, error)
	stop  func(ctx context.Context, actor domain.Actor, userID, locationID int64, at time.Time) (domain.HistoryRecord, error)
}

func (m *mockTracking) Start(ctx context.Context, actor domain.Actor, userID, locationID int64, at time.Time) (domain.AllocationRecord, error) {
	return m.start(ctx, actor, userID, locationID, at)
}
func (m *mockTracking) Stop(ctx context.Context, actor domain.Actor, userID, locationID int64, at time.Time) (domain.HistoryRecord, error) {
	return m.stop(ctx, actor, userID, locationID, at)
}

type mockPositions struct {
	report func(ctx context.Context, actor domain.Actor, userID int64, p domain.Position) error
	get    func(ctx context.Context, actor domain.Actor, userID int64) (*domain.Position, error)
}

func (m *mockPositions) Report(ctx context.Context, actor domain.Actor, userID int64, p domain.Position) error {
	return m.report(ctx, actor, userID, p)
}
func (m *mockPositions) Get(ctx context.Context, actor domain.Actor, userID int64) (*domain.Position, error) {
	return m.get(ctx, actor, userID)
}

type mockLocations struct {
	create  func(ctx context.Context, actor domain.Actor, loc domain.Location) (domain.Location, error)
	getByID func(ctx context.Context, actor domain.Actor, id int64) (domain.Location, error)
	list    func(ctx context.Context, actor domain.Actor) ([]domain.Location, error)
}

func (m *mockLocations) Create(ctx context.Context, actor domain.Actor, loc domain.Location) (domain.Location, error) {
	return m.create(ctx, actor, loc)
}
func (m *mockLocations) GetByID(ctx context.Context, actor domain.Actor, id int64) (domain.Location, error) {
	return m.getByID(ctx, actor, id)
}
func (m *mockLocations) List(ctx context.Context, actor domain.Actor) ([]domain.Location, error) {
	return m.list(ctx, actor)
}

type mockQueries struct {
	listUsers     func(ctx context.Context, actor domain.Actor, p domain.PaginationParams) ([]domain.User, int, error)
	getUser       func(ctx context.Context, actor domain.Actor, userID int64) (domain.User, error)
	listHistory   func(ctx context.Context, actor domain.Actor, userID int64, p domain.PaginationParams) ([]domain.HistoryRecord, int, error)
	exportHistory func(ctx context.Context, actor domain.Actor, userID int64) ([]domain.HistoryRecord, error)
}

func (m *mockQueries) ListUsers(ctx context.Context, actor domain.Actor, p domain.PaginationParams) ([]domain.User, int, error) {
	return m.listUsers(ctx, actor, p)
}
func (m *mockQueries) GetUser(ctx context.Context, actor domain.Actor, userID int64) (domain.User, error) {
	return m.getUser(ctx, actor, userID)
}
func (m *mockQueries) ListHistory(ctx context.Context, actor domain.Actor, userID int64, p domain.PaginationParams) ([]domain.HistoryRecord, int, error) {
	return m.listHistory(ctx, actor, userID, p)
}
func (m *mockQueries) ExportHistory(ctx context.Context, actor domain.Actor, userID int64) ([]domain.HistoryRecord, error) {
	return m.exportHistory(ctx, actor, userID)
}

// compile-time checks: every mock must satisfy its interface.
var (
	_ handler.AllocationServicer = (*mockAllocations)(nil)
	_ handler.TrackingServicer   = (*mockTracking)(nil)
	_ handler.PositionServicer   = (*mockPositions)(nil)
	_ handler.LocationServicer   = (*mockLocations)(nil)
	_ handler.QueryServicer      = (*mockQueries)(nil)
)

// ---- helpers ---------------------------------------------------------------

var testSecret = []byte("handler-test-secret")

var (
	admin  = domain.Actor{UserID: 1, Role: domain.RoleAdmin}
	driver = domain.Actor{UserID: 7, Role: domain.RoleUser}
)

// newHTTPHandler wires a Server with the given mocks behind the real
// authenticator. This mirrors how main.go wires it in production.
func newHTTPHandler(svc handler.Services) http.Handler {
	srv := handler.NewServer(svc, nil)
	return srv.Routes(middleware.NewAuthenticator(testSecret))
}

// bearer returns an Authorization header value for actor.
func bearer(t *testing.T, actor domain.Actor) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		Role: actor.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(actor.UserID, 10),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)
	return "Bearer " + tok
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

// serve sends one request as actor through h and returns the recorder.
func serve(t *testing.T, h http.Handler, actor domain.Actor, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", bearer(t, actor))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// decodeError parses the standard error envelope.
func decodeError(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Error
}
