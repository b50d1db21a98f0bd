package models

import "errors"

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleViewer UserRole = "viewer"
)

var ErrNotAdmin = errors.New("admin role required")

// Principal is the authenticated caller as established by the auth middleware.
type Principal struct {
	UserID int      `json:"user_id"`
	Role   UserRole `json:"role"`
}

// AdminGrant is the capability required by every bracket-mutating entry point.
// It can only be obtained through GrantAdmin, so its zero value is never valid.
type AdminGrant struct {
	userID int
	valid  bool
}

func GrantAdmin(p Principal) (AdminGrant, error) {
	if p.Role != RoleAdmin || p.UserID <= 0 {
		return AdminGrant{}, ErrNotAdmin
	}
	return AdminGrant{userID: p.UserID, valid: true}, nil
}

func (g AdminGrant) Valid() bool { return g.valid }
func (g AdminGrant) UserID() int { return g.userID }
