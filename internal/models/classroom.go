package models

import (
	"fmt"
	"time"
)

// Classroom is a theory-lecture room. Capacity is the number of sessions that
// may share the room at the same time, not a binary occupied flag.
type Classroom struct {
	Code      string         `db:"classroom_code" json:"classroom_code"`
	Capacity  int            `db:"capacity" json:"capacity"`
	Branch    string         `db:"branch_name" json:"branch_name"`
	Status    ResourceStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

// DisplayName renders the scheduling-UI label.
func (c Classroom) DisplayName() string {
	return fmt.Sprintf("%s / %s", c.Code, c.Branch)
}

// ClassroomFilter carries list query options.
type ClassroomFilter struct {
	Branch   string
	Status   ResourceStatus
	Page     int
	PageSize int
}

// ClassroomSlots annotates a classroom with its remaining concurrent-session
// capacity for a queried time window.
type ClassroomSlots struct {
	Classroom
	SlotsAvailable int `json:"slots_available"`
}
