package models

import "time"

// StudentStatus enumerates student lifecycle states.
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "Active"
	StudentStatusArchived StudentStatus = "Archived"
)

// Student is a person enrolled in one or more courses. The code is generated
// as <2-digit year>-<5-digit random> and is the key.
type Student struct {
	Code            string        `db:"student_code" json:"student_code"`
	FirstName       string        `db:"first_name" json:"first_name"`
	LastName        *string       `db:"last_name" json:"last_name,omitempty"`
	Address         *string       `db:"address" json:"address,omitempty"`
	ContactNumber   *string       `db:"contact_number" json:"contact_number,omitempty"`
	EmergencyNumber *string       `db:"emergency_number" json:"emergency_number,omitempty"`
	UserID          *string       `db:"user_id" json:"user_id,omitempty"`
	YearJoined      int           `db:"year_joined" json:"year_joined"`
	Status          StudentStatus `db:"status" json:"status"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentFilter carries list query options.
type StudentFilter struct {
	Search   string
	Status   StudentStatus
	Page     int
	PageSize int
}
