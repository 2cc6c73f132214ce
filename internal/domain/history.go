package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// HistoryRecord is one completed tracking session. It is appended exactly
// once when an allocation goes from live to offline and is never mutated.
type HistoryRecord struct {
	Seq             int       `json:"id"`
	LocationID      int64     `json:"location_id"`
	SessionID       uuid.UUID `json:"session_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	TotalDuration   string    `json:"total_duration"`
	DurationSeconds int64     `json:"duration_seconds"`
}

// SessionDuration returns end - start. A negative interval is rejected with
// ErrInvalidTimestamp rather than wrapped or clamped.
func SessionDuration(start, end time.Time) (time.Duration, error) {
	if end.Before(start) {
		return 0, fmt.Errorf("%w: end %s is before start %s",
			ErrInvalidTimestamp, end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return end.Sub(start), nil
}

// FormatDuration renders d as HH:MM:SS, truncated to whole seconds.
// Hours are not wrapped at 24, so a 26 hour session reads "26:00:00".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}
