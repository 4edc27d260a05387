package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadready/drivemis-api/internal/dto"
	"github.com/roadready/drivemis-api/internal/models"
	"github.com/roadready/drivemis-api/internal/repository"
	appErrors "github.com/roadready/drivemis-api/pkg/errors"
)

type mockLoadReader struct {
	instructorLoads []repository.UtilizationLoad
	facilityLoads   map[models.FacilityKind][]repository.UtilizationLoad
	window          [2]string
}

func (m *mockLoadReader) InstructorLoads(ctx context.Context, startDate, endDate string) ([]repository.UtilizationLoad, error) {
	m.window = [2]string{startDate, endDate}
	return m.instructorLoads, nil
}

func (m *mockLoadReader) FacilityLoads(ctx context.Context, kind models.FacilityKind, startDate, endDate string) ([]repository.UtilizationLoad, error) {
	m.window = [2]string{startDate, endDate}
	return m.facilityLoads[kind], nil
}

type mockReportCache struct {
	store map[string]dto.UtilizationReport
	gets  []string
	sets  []string
}

func (m *mockReportCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.gets = append(m.gets, key)
	if report, ok := m.store[key]; ok {
		*dest.(*dto.UtilizationReport) = report
		return true, nil
	}
	return false, nil
}

func (m *mockReportCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets = append(m.sets, key)
	if m.store == nil {
		m.store = make(map[string]dto.UtilizationReport)
	}
	m.store[key] = value.(dto.UtilizationReport)
	return nil
}

func TestInstructorReportHourMath(t *testing.T) {
	loads := &mockLoadReader{instructorLoads: []repository.UtilizationLoad{
		{Code: "INS-0001", CategoryType: models.CategoryPDC, Sessions: 10},
		{Code: "INS-0001", CategoryType: models.CategoryTDC, Sessions: 2},
		{Code: "INS-0002", CategoryType: models.CategoryPDC, Sessions: 2},
	}}
	instructors := &mockInstructorLister{instructors: []models.Instructor{
		{Code: "INS-0001", Branch: "Main"},
		{Code: "INS-0002", Branch: "Main"},
	}}
	svc := NewUtilizationService(loads, &mockVehicleLister{}, &mockClassroomLister{}, instructors, nil, 0, nil)

	// 14 days minus 2 rest days is 12 working days of 8 hours.
	report, err := svc.InstructorReport(context.Background(), "2026-06-01", "2026-06-14")
	require.NoError(t, err)
	require.Len(t, report.Resources, 2)
	assert.Equal(t, [2]string{"2026-06-01", "2026-06-14"}, loads.window)

	// Sorted least-used first: INS-0002 with 4 assigned hours leads.
	least := report.Resources[0]
	assert.Equal(t, "INS-0002", least.Code)
	assert.InDelta(t, 4.0, least.HoursAssigned, 1e-9)
	assert.InDelta(t, 96.0, least.HoursAvailable, 1e-9)
	assert.InDelta(t, 4.17, least.Rate, 1e-9)

	// INS-0001: 10 driving sessions at 2h plus 2 theory sessions at 7.5h.
	most := report.Resources[1]
	assert.Equal(t, "INS-0001", most.Code)
	assert.InDelta(t, 35.0, most.HoursAssigned, 1e-9)
	assert.InDelta(t, 36.46, most.Rate, 1e-9)

	assert.InDelta(t, 39.0, report.TotalHoursAssigned, 1e-9)
	assert.InDelta(t, 192.0, report.TotalHoursAvailable, 1e-9)
	assert.InDelta(t, 20.31, report.OverallRate, 1e-9)
}

func TestVehicleReportUsesFullDays(t *testing.T) {
	loads := &mockLoadReader{facilityLoads: map[models.FacilityKind][]repository.UtilizationLoad{
		models.FacilityKindVehicle: {
			{Code: "M4-001", CategoryType: models.CategoryPDC, Sessions: 7},
		},
	}}
	vehicles := &mockVehicleLister{vehicles: []models.Vehicle{
		{Code: "M4-001", Branch: "Main", Transmission: models.TransmissionManual, WheelNum: models.Wheels4},
	}}
	svc := NewUtilizationService(loads, vehicles, &mockClassroomLister{}, &mockInstructorLister{}, nil, 0, nil)

	// Vehicles take no rest days: 7 days of 8 hours.
	report, err := svc.VehicleReport(context.Background(), "2026-06-01", "2026-06-07")
	require.NoError(t, err)
	require.Len(t, report.Resources, 1)
	assert.Equal(t, models.FacilityKindVehicle, report.Kind)
	assert.InDelta(t, 14.0, report.Resources[0].HoursAssigned, 1e-9)
	assert.InDelta(t, 56.0, report.Resources[0].HoursAvailable, 1e-9)
	assert.InDelta(t, 25.0, report.Resources[0].Rate, 1e-9)
}

func TestClassroomReportTheoryHours(t *testing.T) {
	loads := &mockLoadReader{facilityLoads: map[models.FacilityKind][]repository.UtilizationLoad{
		models.FacilityKindClassroom: {
			{Code: "RM-101", CategoryType: models.CategoryTDC, Sessions: 2},
		},
	}}
	classrooms := &mockClassroomLister{classrooms: []models.Classroom{
		{Code: "RM-101", Branch: "Main", Capacity: 10},
	}}
	svc := NewUtilizationService(loads, &mockVehicleLister{}, classrooms, &mockInstructorLister{}, nil, 0, nil)

	report, err := svc.ClassroomReport(context.Background(), "2026-06-01", "2026-06-10")
	require.NoError(t, err)
	require.Len(t, report.Resources, 1)
	assert.InDelta(t, 15.0, report.Resources[0].HoursAssigned, 1e-9)
	assert.InDelta(t, 80.0, report.Resources[0].HoursAvailable, 1e-9)
	assert.InDelta(t, 18.75, report.Resources[0].Rate, 1e-9)
	assert.Equal(t, 10, report.Resources[0].Capacity)
}

func TestUtilizationRejectsInvertedRange(t *testing.T) {
	svc := NewUtilizationService(&mockLoadReader{}, &mockVehicleLister{}, &mockClassroomLister{}, &mockInstructorLister{}, nil, 0, nil)

	_, err := svc.InstructorReport(context.Background(), "2026-06-10", "2026-06-01")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUtilizationReportCaching(t *testing.T) {
	loads := &mockLoadReader{}
	cache := &mockReportCache{}
	svc := NewUtilizationService(loads, &mockVehicleLister{}, &mockClassroomLister{}, &mockInstructorLister{}, cache, time.Minute, nil)

	_, err := svc.InstructorReport(context.Background(), "2026-06-01", "2026-06-14")
	require.NoError(t, err)
	require.Len(t, cache.sets, 1)
	assert.Equal(t, "utilization:instructors:2026-06-01:2026-06-14", cache.sets[0])

	// Second call is served from the cache.
	loads.window = [2]string{}
	_, err = svc.InstructorReport(context.Background(), "2026-06-01", "2026-06-14")
	require.NoError(t, err)
	assert.Equal(t, [2]string{}, loads.window, "cached responses must not hit the store")
}
