package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CategoryType distinguishes practical from theoretical courses.
type CategoryType string

const (
	CategoryPDC CategoryType = "PDC"
	CategoryTDC CategoryType = "TDC"
)

// SessionHours returns the fixed per-session duration for the category.
// PDC sessions run 2 hours behind the wheel, TDC sessions 7.5 hours in a
// classroom; unknown categories contribute nothing.
func (t CategoryType) SessionHours() decimal.Decimal {
	switch t {
	case CategoryPDC:
		return decimal.NewFromInt(2)
	case CategoryTDC:
		return decimal.NewFromFloat(7.5)
	default:
		return decimal.Zero
	}
}

// RequiredSessions derives the number of sessions needed to cover totalHours.
func (t CategoryType) RequiredSessions(totalHours int) int {
	per := t.SessionHours()
	if per.IsZero() || totalHours <= 0 {
		return 0
	}
	return int(decimal.NewFromInt(int64(totalHours)).Div(per).Ceil().IntPart())
}

// FacilityKindFor returns the facility kind a session of this category must use.
func (t CategoryType) FacilityKindFor() FacilityKind {
	switch t {
	case CategoryPDC:
		return FacilityKindVehicle
	case CategoryTDC:
		return FacilityKindClassroom
	default:
		return ""
	}
}

// CourseCategory groups courses by delivery mode.
type CourseCategory struct {
	Code string       `db:"category_code" json:"category_code"`
	Name string       `db:"category_name" json:"category_name"`
	Type CategoryType `db:"category_type" json:"category_type"`
}

// CourseStatus enumerates course lifecycle states.
type CourseStatus string

const (
	CourseStatusOpen     CourseStatus = "Open"
	CourseStatusClosed   CourseStatus = "Closed"
	CourseStatusArchived CourseStatus = "Archived"
)

// Course is a sellable driving course.
type Course struct {
	Code         string       `db:"course_code" json:"course_code"`
	Name         string       `db:"course_name" json:"course_name"`
	CategoryCode string       `db:"category_code" json:"category_code"`
	Description  string       `db:"course_description" json:"course_description"`
	Status       CourseStatus `db:"status" json:"status"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// CourseDetail joins the owning category onto the course row.
type CourseDetail struct {
	Course
	CategoryName string       `db:"category_name" json:"category_name"`
	CategoryType CategoryType `db:"category_type" json:"category_type"`
}

// CourseFilter carries list query options.
type CourseFilter struct {
	CategoryType CategoryType
	Status       CourseStatus
	Page         int
	PageSize     int
}
