// Package handler implements the HTTP handlers for the route tracking API.
// All handlers are methods on Server. They are split into domain-specific
// files (health.go, tracking.go, etc.) but share the same Server struct so
// they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/routetracker/internal/domain"
)

// AllocationServicer defines the allocation operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the store or service layer.
type AllocationServicer interface {
	Allocate(ctx context.Context, actor domain.Actor, userID, locationID int64, scheduledTime string, reversed bool) (domain.AllocationRecord, bool, error)
	ListAllocations(ctx context.Context, actor domain.Actor, userID int64) ([]domain.AllocationView, error)
}

// TrackingServicer defines the tracking state machine operations.
type TrackingServicer interface {
	Start(ctx context.Context, actor domain.Actor, userID, locationID int64, at time.Time) (domain.AllocationRecord, error)
	Stop(ctx context.Context, actor domain.Actor, userID, locationID int64, at time.Time) (domain.HistoryRecord, error)
}

// PositionServicer defines the live position operations.
type PositionServicer interface {
	Report(ctx context.Context, actor domain.Actor, userID int64, p domain.Position) error
	Get(ctx context.Context, actor domain.Actor, userID int64) (*domain.Position, error)
}

// LocationServicer defines the location operations.
type LocationServicer interface {
	Create(ctx context.Context, actor domain.Actor, loc domain.Location) (domain.Location, error)
	GetByID(ctx context.Context, actor domain.Actor, id int64) (domain.Location, error)
	List(ctx context.Context, actor domain.Actor) ([]domain.Location, error)
}

// QueryServicer defines the read-only user views.
type QueryServicer interface {
	ListUsers(ctx context.Context, actor domain.Actor, p domain.PaginationParams) ([]domain.User, int, error)
	GetUser(ctx context.Context, actor domain.Actor, userID int64) (domain.User, error)
	ListHistory(ctx context.Context, actor domain.Actor, userID int64, p domain.PaginationParams) ([]domain.HistoryRecord, int, error)
	ExportHistory(ctx context.Context, actor domain.Actor, userID int64) ([]domain.HistoryRecord, error)
}

// Services bundles the service dependencies of Server.
type Services struct {
	Allocations AllocationServicer
	Tracking    TrackingServicer
	Positions   PositionServicer
	Locations   LocationServicer
	Queries     QueryServicer
}

// Server serves every API endpoint.
type Server struct {
	allocations AllocationServicer
	tracking    TrackingServicer
	positions   PositionServicer
	locations   LocationServicer
	queries     QueryServicer

	log *slog.Logger
	now func() time.Time
}

// NewServer constructs the Server with all its dependencies.
// A nil logger discards output.
func NewServer(svc Services, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Server{
		allocations: svc.Allocations,
		tracking:    svc.Tracking,
		positions:   svc.Positions,
		locations:   svc.Locations,
		queries:     svc.Queries,
		log:         log,
		now:         time.Now,
	}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(Services{}, nil)
}

// Routes returns the API router. authn guards every route except the health
// check and the API document; it must store a domain.Actor in the request
// context (see middleware.NewAuthenticator).
func (s *Server) Routes(authn func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Group(func(r chi.Router) {
		r.Use(authn)

		r.Route("/locations", func(r chi.Router) {
			r.Get("/", s.ListLocations)
			r.Post("/", s.CreateLocation)
			r.Get("/{locationId}", s.GetLocation)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.ListUsers)
			r.Route("/{userId}", func(r chi.Router) {
				r.Get("/", s.GetUser)
				r.Get("/locations", s.ListAllocations)
				r.Post("/allocations", s.Allocate)
				r.Post("/allocations/{locationId}/start", s.StartTracking)
				r.Post("/allocations/{locationId}/stop", s.StopTracking)
				r.Get("/history", s.ListHistory)
				r.Get("/position", s.GetPosition)
				r.Put("/position", s.ReportPosition)
			})
		})
	})
	return r
}
