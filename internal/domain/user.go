// Package domain contains the core data types for the route tracking service.
// This package depends only on the standard library and google/uuid, and is
// imported by every other internal package (repo, service, handler).
package domain

// Role is the binary capability assigned to a user by the authentication
// collaborator.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is the aggregate owned by the entity store. Allocations and History
// are embedded and only ever mutated through the allocation and tracking
// services. LiveLocation is nil until the first position report.
type User struct {
	ID           int64              `json:"_id"`
	Email        string             `json:"email"`
	Username     string             `json:"username"`
	Role         Role               `json:"role"`
	Status       TrackingStatus     `json:"status"`
	Allocations  []AllocationRecord `json:"allocated_places"`
	History      []HistoryRecord    `json:"history"`
	LiveLocation *Position          `json:"live_location"`
}

// Clone returns a deep copy of u so store implementations can hand out
// collections that callers may mutate freely.
func (u User) Clone() User {
	out := u
	if u.Allocations != nil {
		out.Allocations = make([]AllocationRecord, len(u.Allocations))
		for i, a := range u.Allocations {
			out.Allocations[i] = a.clone()
		}
	}
	if u.History != nil {
		out.History = make([]HistoryRecord, len(u.History))
		copy(out.History, u.History)
	}
	if u.LiveLocation != nil {
		p := *u.LiveLocation
		out.LiveLocation = &p
	}
	return out
}

// FindAllocation returns the index of the allocation record for locationID,
// or -1 when the user has no such allocation.
func (u *User) FindAllocation(locationID int64) int {
	for i := range u.Allocations {
		if u.Allocations[i].LocationID == locationID {
			return i
		}
	}
	return -1
}

// HasLiveAllocation reports whether any of the user's allocations is live.
func (u *User) HasLiveAllocation() bool {
	for i := range u.Allocations {
		if u.Allocations[i].Status == StatusLive {
			return true
		}
	}
	return false
}

// NextHistorySeq returns the sequence number the next history record must
// carry. Sequence numbers start at 1 and increase by one with no gaps.
func (u *User) NextHistorySeq() int {
	if n := len(u.History); n > 0 {
		return u.History[n-1].Seq + 1
	}
	return 1
}

// Validate checks the invariants a persisted user must satisfy. Store
// implementations call it on load so a corrupt collection is never served.
func (u *User) Validate() error {
	if !u.Status.Valid() {
		return errInvalidStatus(u.ID, string(u.Status))
	}
	for _, a := range u.Allocations {
		if err := a.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CloneUsers deep-copies a whole user collection.
func CloneUsers(users []User) []User {
	out := make([]User, len(users))
	for i, u := range users {
		out[i] = u.Clone()
	}
	return out
}

// FindUser returns the index of the user with the given id, or -1.
func FindUser(users []User, id int64) int {
	for i := range users {
		if users[i].ID == id {
			return i
		}
	}
	return -1
}
