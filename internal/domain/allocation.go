package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TrackingStatus is the state of an allocation record, and the aggregate
// state of a user. No other value is ever persisted.
type TrackingStatus string

const (
	StatusOffline TrackingStatus = "offline"
	StatusLive    TrackingStatus = "live"
)

// Valid reports whether s is offline or live.
func (s TrackingStatus) Valid() bool {
	return s == StatusOffline || s == StatusLive
}

// AllocationRecord assigns one Location to its owning User.
// LocationID is a weak reference: it is never validated against the
// location collection and resolves to "Unknown" when missing.
//
// A live record always carries StartTime and SessionID; an offline record
// never does.
type AllocationRecord struct {
	LocationID    int64          `json:"id"`
	ScheduledTime string         `json:"time"`
	Status        TrackingStatus `json:"status"`
	StartTime     *time.Time     `json:"start_time"`
	SessionID     *uuid.UUID     `json:"session_id,omitempty"`
	Reversed      bool           `json:"reversed"`
	AssignedAt    time.Time      `json:"date"`
}

// Validate checks the status/start-time pairing invariant.
func (a AllocationRecord) Validate() error {
	if !a.Status.Valid() {
		return errInvalidStatus(a.LocationID, string(a.Status))
	}
	if a.Status == StatusLive && (a.StartTime == nil || a.SessionID == nil) {
		return fmt.Errorf("%w: live allocation for location %d has no session start", ErrValidation, a.LocationID)
	}
	if a.Status == StatusOffline && (a.StartTime != nil || a.SessionID != nil) {
		return fmt.Errorf("%w: offline allocation for location %d carries a session start", ErrValidation, a.LocationID)
	}
	return nil
}

// UnmarshalJSON accepts an empty "date", as written by older deployments,
// and decodes it as the zero time.
func (a *AllocationRecord) UnmarshalJSON(b []byte) error {
	type plain AllocationRecord
	aux := struct {
		*plain
		AssignedAt string `json:"date"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	a.AssignedAt = time.Time{}
	if aux.AssignedAt == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, aux.AssignedAt)
	if err != nil {
		return fmt.Errorf("allocation %d: date: %w", a.LocationID, err)
	}
	a.AssignedAt = t
	return nil
}

func (a AllocationRecord) clone() AllocationRecord {
	out := a
	if a.StartTime != nil {
		t := *a.StartTime
		out.StartTime = &t
	}
	if a.SessionID != nil {
		id := *a.SessionID
		out.SessionID = &id
	}
	return out
}

// AllocationView is the read projection returned by ListAllocations: the
// record joined with the referenced location's name.
type AllocationView struct {
	LocationID int64          `json:"_id"`
	Name       string         `json:"name"`
	Status     TrackingStatus `json:"status"`
}

// UnknownLocationName is shown for allocations whose location id does not
// resolve.
const UnknownLocationName = "Unknown"

func errInvalidStatus(id int64, status string) error {
	return fmt.Errorf("%w: status %q on record %d is neither offline nor live", ErrValidation, status, id)
}
