package models

import (
	"fmt"
	"time"
)

// InstructorStatus enumerates instructor lifecycle states.
type InstructorStatus string

const (
	InstructorStatusActive   InstructorStatus = "Active"
	InstructorStatusOnLeave  InstructorStatus = "On Leave"
	InstructorStatusInactive InstructorStatus = "Inactive"
	InstructorStatusArchived InstructorStatus = "Archived"
)

// Instructor teaches sessions. Seniors are eligible for priority assignment
// to the first and last session of a practical course.
type Instructor struct {
	Code      string           `db:"instructor_code" json:"instructor_code"`
	FirstName string           `db:"first_name" json:"first_name"`
	LastName  *string          `db:"last_name" json:"last_name,omitempty"`
	UserID    *string          `db:"user_id" json:"user_id,omitempty"`
	IsSenior  bool             `db:"is_senior" json:"is_senior"`
	Branch    string           `db:"branch_name" json:"branch_name"`
	Status    InstructorStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// DisplayName renders the scheduling-UI label, marking seniors with "SR".
func (i Instructor) DisplayName() string {
	if i.IsSenior {
		return fmt.Sprintf("%s SR / %s", i.FirstName, i.Branch)
	}
	return fmt.Sprintf("%s / %s", i.FirstName, i.Branch)
}

// InstructorFilter carries list query options.
type InstructorFilter struct {
	Branch   string
	Status   InstructorStatus
	Page     int
	PageSize int
}
