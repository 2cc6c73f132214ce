package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/pkordes/routetracker/internal/domain"
)

// historyCSVHeaders defines the column names written as the first row of a
// history CSV export.
var historyCSVHeaders = []string{
	"id", "location_id", "session_id", "start_time", "end_time",
	"total_duration", "duration_seconds",
}

// ListUsers handles GET /users.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	params, ok := paginationParams(w, r)
	if !ok {
		return
	}

	users, total, err := s.queries.ListUsers(r.Context(), actor, params)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(users, params, total))
}

// GetUser handles GET /users/{userId}.
func (s *Server) GetUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	u, err := s.queries.GetUser(r.Context(), actor, userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// ListHistory handles GET /users/{userId}/history.
// Returns one JSON page by default; ?format=csv returns the full history as CSV.
func (s *Server) ListHistory(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}
	format, ok := queryString(w, r, "format")
	if !ok {
		return
	}

	switch {
	case format == nil || *format == "json":
	case *format == "csv":
		s.exportHistoryCSV(w, r, actor, userID)
		return
	default:
		writeRequestError(w, fmt.Sprintf("unsupported format %q, want json or csv", *format))
		return
	}

	params, ok := paginationParams(w, r)
	if !ok {
		return
	}
	records, total, err := s.queries.ListHistory(r.Context(), actor, userID, params)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPage(records, params, total))
}

func (s *Server) exportHistoryCSV(w http.ResponseWriter, r *http.Request, actor domain.Actor, userID int64) {
	records, err := s.queries.ExportHistory(r.Context(), actor, userID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	cw.Write(historyCSVHeaders)
	for _, h := range records {
		//nolint:errcheck
		cw.Write(historyToCSVRecord(h))
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="history-%d.csv"`, userID))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // the client is gone if this fails
	buf.WriteTo(w)
}

func historyToCSVRecord(h domain.HistoryRecord) []string {
	return []string{
		strconv.Itoa(h.Seq),
		strconv.FormatInt(h.LocationID, 10),
		h.SessionID.String(),
		h.StartTime.UTC().Format(time.RFC3339),
		h.EndTime.UTC().Format(time.RFC3339),
		h.TotalDuration,
		strconv.FormatInt(h.DurationSeconds, 10),
	}
}
