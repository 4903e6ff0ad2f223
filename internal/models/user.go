package models

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// AuthUser is the caller identity handed over by the session provider.
type AuthUser struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	Role     UserRole `json:"role"`
	Verified bool     `json:"verified"`
}

// CanAuthor reports whether the user may create or edit questions.
// Teachers must be verified by an administrator first.
func (u AuthUser) CanAuthor() bool {
	switch u.Role {
	case RoleAdmin:
		return true
	case RoleTeacher:
		return u.Verified
	default:
		return false
	}
}
