package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EnrollmentStatus is derived from session counts by the status engine and
// must never be written through any other path.
type EnrollmentStatus string

const (
	EnrollmentAwaitingAction       EnrollmentStatus = "Awaiting Action"
	EnrollmentAwaitingFollowUp     EnrollmentStatus = "Awaiting Follow-Up"
	EnrollmentAllSessionsScheduled EnrollmentStatus = "All Sessions Scheduled"
	EnrollmentInProgress           EnrollmentStatus = "In Progress"
	EnrollmentCompleted            EnrollmentStatus = "Completed"
	EnrollmentForfeited            EnrollmentStatus = "Forfeited"
	EnrollmentArchived             EnrollmentStatus = "Archived"
)

// DateList is an ordered list of YYYY-MM-DD dates persisted as a JSON array.
type DateList []string

// Value implements driver.Valuer.
func (d DateList) Value() (driver.Value, error) {
	if d == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal date list: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (d *DateList) Scan(src interface{}) error {
	if src == nil {
		*d = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported date list source %T", src)
	}
	if len(raw) == 0 {
		*d = nil
		return nil
	}
	return json.Unmarshal(raw, d)
}

// Enrollment is a purchase of course hours by a student at a branch. The id
// is a generated 6-digit code.
type Enrollment struct {
	ID             string           `db:"enrollment_id" json:"enrollment_id"`
	Date           string           `db:"enrollment_date" json:"enrollment_date"`
	Branch         string           `db:"branch_name" json:"branch_name"`
	StudentCode    string           `db:"student_code" json:"student_code"`
	CourseCode     string           `db:"course_code" json:"course_code"`
	Transmission   Transmission     `db:"transmission_type" json:"transmission_type"`
	TotalHours     int              `db:"total_hours" json:"total_hours"`
	PreferredDates DateList         `db:"preferred_dates" json:"preferred_dates"`
	Remarks        *string          `db:"remarks" json:"remarks,omitempty"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail joins display fields and live session counts onto the row.
type EnrollmentDetail struct {
	Enrollment
	StudentName       string       `db:"student_name" json:"student_name"`
	CourseName        string       `db:"course_name" json:"course_name"`
	CategoryType      CategoryType `db:"category_type" json:"category_type"`
	BookedSessions    int          `db:"booked_sessions" json:"booked_sessions"`
	CompletedSessions int          `db:"completed_sessions" json:"completed_sessions"`
}

// EnrollmentFilter carries list query options.
type EnrollmentFilter struct {
	Status       EnrollmentStatus
	CategoryType CategoryType
	Branch       string
	StudentCode  string
	Page         int
	PageSize     int
}
