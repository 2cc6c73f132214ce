package domain

// Actor is the authenticated caller of a core operation, as asserted by the
// authentication collaborator. Every service method receives one and checks
// it before touching the store.
type Actor struct {
	UserID int64
	Role   Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanAccess reports whether the actor may read or act on userID's data:
// admins may act on anyone, users only on themselves.
func (a Actor) CanAccess(userID int64) bool {
	return a.IsAdmin() || (a.Role == RoleUser && a.UserID == userID)
}
