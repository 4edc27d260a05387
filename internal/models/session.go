package models

import "time"

// SessionStatus enumerates the session state machine:
// Scheduled -> Completed | Missed | Cancelled -> Archived, with Scheduled
// also allowed to archive directly.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "Scheduled"
	SessionCompleted SessionStatus = "Completed"
	SessionMissed    SessionStatus = "Missed"
	SessionCancelled SessionStatus = "Cancelled"
	SessionArchived  SessionStatus = "Archived"
)

// Ordinal markers for sessions outside the regular numbered sequence.
const (
	SessionNthExtension  = "EXT"
	SessionNthAssessment = "ASS"
)

// Session is a concrete training appointment tied to an enrollment, an
// instructor and a facility. Nth is recomputed across siblings on every save.
type Session struct {
	ID             string        `db:"session_id" json:"session_id"`
	Nth            string        `db:"session_nth" json:"session_nth"`
	Date           string        `db:"session_date" json:"session_date"`
	StartTime      string        `db:"start_time" json:"start_time"`
	EndTime        string        `db:"end_time" json:"end_time"`
	EnrollmentID   string        `db:"enrollment_id" json:"enrollment_id"`
	InstructorCode string        `db:"instructor_code" json:"instructor_code"`
	FacilityID     *int64        `db:"facility_id" json:"facility_id"`
	Status         SessionStatus `db:"status" json:"status"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// SessionDetail joins display fields from the enrollment, instructor and
// facility onto the session row.
type SessionDetail struct {
	Session
	CourseCode     string       `db:"course_code" json:"course_code"`
	CourseName     string       `db:"course_name" json:"course_name"`
	CategoryType   CategoryType `db:"category_type" json:"category_type"`
	StudentCode    string       `db:"student_code" json:"student_code"`
	StudentName    string       `db:"student_name" json:"student_name"`
	Branch         string       `db:"branch_name" json:"branch_name"`
	InstructorName string       `db:"instructor_name" json:"instructor_name"`
	FacilityKind   FacilityKind `db:"facility_kind" json:"facility_kind"`
	FacilityCode   string       `db:"facility_code" json:"facility_code"`
}

// SessionCounts aggregates an enrollment's sessions by status, excluding
// archived rows.
type SessionCounts struct {
	Scheduled int `db:"scheduled"`
	Completed int `db:"completed"`
	Missed    int `db:"missed"`
	Cancelled int `db:"cancelled"`
}

// Booked is the number of sessions occupying a slot in the required sequence.
func (c SessionCounts) Booked() int {
	return c.Scheduled + c.Completed
}

// SessionFilter carries list query options.
type SessionFilter struct {
	Status       SessionStatus
	Date         string
	Month        int
	Year         int
	Branch       string
	EnrollmentID string
	Page         int
	PageSize     int
}

// StudentSessionGroup groups a student's sessions under their enrollment, the
// shape consumed by the student schedule view.
type StudentSessionGroup struct {
	EnrollmentID string          `json:"enrollment_id"`
	Sessions     []SessionDetail `json:"sessions"`
}
