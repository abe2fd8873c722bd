package domain

import "time"

// Role enumerates what a user may do.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSupport  Role = "support"
	RoleEmployee Role = "employee"
)

// User is an account that can authenticate and act on requests.
type User struct {
	ID           string
	Username     string
	FullName     string
	Department   []string
	Position     string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports admin privilege.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// IsStaff reports support or admin privilege.
func (u *User) IsStaff() bool {
	return u != nil && (u.Role == RoleSupport || u.Role == RoleAdmin)
}
