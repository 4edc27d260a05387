package models

import "time"

// Role enumerates user roles.
type Role string

const (
	RoleAdmin      Role = "Admin"
	RoleStaff      Role = "Staff"
	RoleInstructor Role = "Instructor"
)

// User is a login account, optionally linked to a student or instructor.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	Role         Role       `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Actor is the authorization context threaded into mutating operations in
// place of any ambient request state.
type Actor struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// CanSchedule reports whether the actor may create or modify sessions and
// enrollments.
func (a Actor) CanSchedule() bool {
	return a.Role == RoleAdmin || a.Role == RoleStaff
}
