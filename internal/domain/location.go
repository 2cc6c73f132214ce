package domain

// Position is a coordinate pair. As a user's live location only the most
// recent value is kept; no timestamp is stored.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is a route or place that administrators allocate to users.
// Points is the ordered route between Source and Destination.
type Location struct {
	ID          int64      `json:"_id"`
	Name        string     `json:"name"`
	Source      string     `json:"source"`
	Destination string     `json:"destination"`
	Points      []Position `json:"points"`
}

// Clone returns a deep copy of l.
func (l Location) Clone() Location {
	out := l
	if l.Points != nil {
		out.Points = make([]Position, len(l.Points))
		copy(out.Points, l.Points)
	}
	return out
}

// CloneLocations deep-copies a whole location collection.
func CloneLocations(locs []Location) []Location {
	out := make([]Location, len(locs))
	for i, l := range locs {
		out[i] = l.Clone()
	}
	return out
}

// FindLocation returns the index of the location with the given id, or -1.
func FindLocation(locs []Location, id int64) int {
	for i := range locs {
		if locs[i].ID == id {
			return i
		}
	}
	return -1
}
