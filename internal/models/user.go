package models

import "time"

// Roles a user account can hold
const (
	RoleKid     = "kid"
	RoleParent  = "parent"
	RoleTeacher = "teacher"
)

// IsValidRole reports whether role is one of the known roles
func IsValidRole(role string) bool {
	switch role {
	case RoleKid, RoleParent, RoleTeacher:
		return true
	}
	return false
}

// User represents an account of any role.
// ParentID is only ever set on kids and always references a parent.
type User struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Role          string    `json:"role"`
	ParentID      *int64    `json:"parent_id"`
	Avatar        string    `json:"avatar"`
	OAuthProvider string    `json:"-"`
	OAuthSubject  string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsLinkedTo reports whether the user is a kid linked to parentID
func (u *User) IsLinkedTo(parentID int64) bool {
	return u.Role == RoleKid && u.ParentID != nil && *u.ParentID == parentID
}

// LinkedKid is the view of a kid returned to their parent
type LinkedKid struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is the authenticated caller attached to a request
type Identity struct {
	UserID int64
	Role   string
}
