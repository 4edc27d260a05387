package models

// FacilityKind tags the concrete resource behind a facility handle.
type FacilityKind string

const (
	FacilityKindVehicle   FacilityKind = "Vehicle"
	FacilityKindClassroom FacilityKind = "Classroom"
)

// Facility is the schedulable-resource handle unifying vehicles and
// classrooms. Exactly one row exists per vehicle or classroom; it is created
// alongside the resource and hard-deleted with it.
type Facility struct {
	ID           int64        `db:"id" json:"id"`
	Kind         FacilityKind `db:"facility_kind" json:"facility_kind"`
	ResourceCode string       `db:"resource_code" json:"resource_code"`
}
