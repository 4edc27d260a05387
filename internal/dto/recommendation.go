package dto

// RecommendedResource is one ranked candidate for a session slot. FacilityID
// is only present for vehicles and classrooms; instructors are referenced by
// code alone.
type RecommendedResource struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	FacilityID *int64 `json:"facility_id,omitempty"`
}

// ScheduleRecommendation is the ranked candidate response for a proposed
// session slot. Only the lists relevant to the course category are populated:
// vehicles for PDC, classrooms for TDC, instructors for both.
type ScheduleRecommendation struct {
	Vehicles    []RecommendedResource `json:"vehicles"`
	Classrooms  []RecommendedResource `json:"classrooms"`
	Instructors []RecommendedResource `json:"instructors"`
}

// Empty returns a recommendation with non-nil, zero-length lists. The
// recommendation endpoint answers 200 with this shape on internal failure so
// the scheduling UI never blocks.
func Empty() ScheduleRecommendation {
	return ScheduleRecommendation{
		Vehicles:    []RecommendedResource{},
		Classrooms:  []RecommendedResource{},
		Instructors: []RecommendedResource{},
	}
}

// TDCScheduleSlot is one open classroom session that additional students can
// join, used by the TDC group-scheduling helpers.
type TDCScheduleSlot struct {
	SessionDate    string `json:"session_date"`
	Classroom      string `json:"classroom"`
	Instructor     string `json:"instructor"`
	InstructorCode string `json:"instructor_code"`
	Capacity       int    `json:"capacity"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	FacilityID     int64  `json:"facility_id"`
	Scheduled      int    `json:"scheduled"`
	AvailableSlots int    `json:"available_slots"`
	IsPreferred    bool   `json:"is_preferred"`
}

// TDCScheduleMatch reports whether a proposed slot coincides with an open
// group session.
type TDCScheduleMatch struct {
	Matches  []TDCScheduleSlot `json:"matches"`
	HasMatch bool              `json:"has_match"`
}
