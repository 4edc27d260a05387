package models

import (
	"fmt"
	"time"
)

// WheelCount enumerates supported vehicle configurations.
type WheelCount string

const (
	Wheels2 WheelCount = "2W"
	Wheels3 WheelCount = "3W"
	Wheels4 WheelCount = "4W"
)

// Transmission enumerates gearbox types. TransmissionNA is only valid on
// enrollments (theoretical courses carry no vehicle requirement).
type Transmission string

const (
	TransmissionManual    Transmission = "MT"
	TransmissionAutomatic Transmission = "AT"
	TransmissionNA        Transmission = "NA"
)

// ResourceStatus enumerates schedulable-resource lifecycle states, shared by
// vehicles and classrooms.
type ResourceStatus string

const (
	ResourceStatusAvailable   ResourceStatus = "Available"
	ResourceStatusUnavailable ResourceStatus = "Unavailable"
	ResourceStatusArchived    ResourceStatus = "Archived"
)

// Vehicle is a training vehicle. The code is generated from the
// transmission/wheel-count pair, e.g. M4-017 or A2-113.
type Vehicle struct {
	Code         string         `db:"vehicle_code" json:"vehicle_code"`
	WheelNum     WheelCount     `db:"wheel_num" json:"wheel_num"`
	Transmission Transmission   `db:"transmission_type" json:"transmission_type"`
	Model        string         `db:"vehicle_model" json:"vehicle_model"`
	Color        string         `db:"color" json:"color"`
	Manufacturer string         `db:"manufacturer" json:"manufacturer"`
	Branch       string         `db:"branch_name" json:"branch_name"`
	Status       ResourceStatus `db:"status" json:"status"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}

// DisplayName renders the scheduling-UI label.
func (v Vehicle) DisplayName() string {
	return fmt.Sprintf("%s %s %s / %s", v.Model, v.Transmission, v.Color, v.Branch)
}

// VehicleCodePrefix maps a transmission/wheel-count pair onto its two-letter
// code prefix.
func VehicleCodePrefix(tr Transmission, wheels WheelCount) string {
	prefixes := map[Transmission]string{
		TransmissionManual:    "M",
		TransmissionAutomatic: "A",
	}
	p, ok := prefixes[tr]
	if !ok {
		return ""
	}
	switch wheels {
	case Wheels2, Wheels3, Wheels4:
		return p + string(wheels[0])
	default:
		return ""
	}
}

// VehicleFilter carries list query options.
type VehicleFilter struct {
	Branch       string
	WheelNum     WheelCount
	Transmission Transmission
	Status       ResourceStatus
	Page         int
	PageSize     int
}
