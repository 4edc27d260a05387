package dto

import "github.com/roadready/drivemis-api/internal/models"

// ResourceUtilization is the per-resource row of a utilization report.
// Rate is a percentage rounded to two decimal places.
type ResourceUtilization struct {
	Code           string              `json:"code"`
	Name           string              `json:"name"`
	Branch         string              `json:"branch"`
	IsSenior       bool                `json:"is_senior,omitempty"`
	Capacity       int                 `json:"capacity,omitempty"`
	WheelNum       models.WheelCount   `json:"wheel_num,omitempty"`
	Transmission   models.Transmission `json:"transmission_type,omitempty"`
	HoursAssigned  float64             `json:"hours_assigned"`
	HoursAvailable float64             `json:"hours_available"`
	Rate           float64             `json:"utilization_rate"`
}

// UtilizationReport aggregates assigned vs available hours for one resource
// kind over a date range, sorted by rate ascending.
type UtilizationReport struct {
	Kind                models.FacilityKind   `json:"kind,omitempty"`
	StartDate           string                `json:"start_date"`
	EndDate             string                `json:"end_date"`
	OverallRate         float64               `json:"overall_utilization_rate"`
	TotalHoursAssigned  float64               `json:"total_hours_assigned"`
	TotalHoursAvailable float64               `json:"total_hours_available"`
	Resources           []ResourceUtilization `json:"resources"`
}
