package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadready/drivemis-api/internal/models"
	appErrors "github.com/roadready/drivemis-api/pkg/errors"
)

type mockVehicleLister struct {
	vehicles []models.Vehicle
	branch   string
}

func (m *mockVehicleLister) ListUsable(ctx context.Context, branch string) ([]models.Vehicle, error) {
	m.branch = branch
	return m.vehicles, nil
}

type mockClassroomLister struct {
	classrooms []models.Classroom
}

func (m *mockClassroomLister) ListUsable(ctx context.Context, branch string) ([]models.Classroom, error) {
	return m.classrooms, nil
}

type mockInstructorLister struct {
	instructors []models.Instructor
}

func (m *mockInstructorLister) ListTeachable(ctx context.Context, branch string) ([]models.Instructor, error) {
	return m.instructors, nil
}

type mockBusyReader struct {
	vehicles    []string
	instructors []string
	overlaps    map[string]int
	window      [3]string
}

func (m *mockBusyReader) BusyResourceCodes(ctx context.Context, kind models.FacilityKind, date, startTime, endTime, excludeSessionID string) ([]string, error) {
	m.window = [3]string{date, startTime, endTime}
	return m.vehicles, nil
}

func (m *mockBusyReader) BusyInstructorCodes(ctx context.Context, date, startTime, endTime, excludeSessionID string) ([]string, error) {
	m.window = [3]string{date, startTime, endTime}
	return m.instructors, nil
}

func (m *mockBusyReader) ClassroomOverlapCounts(ctx context.Context, date, startTime, endTime, excludeSessionID string) (map[string]int, error) {
	return m.overlaps, nil
}

func TestAvailabilityVehiclesFiltersBusy(t *testing.T) {
	vehicles := &mockVehicleLister{vehicles: []models.Vehicle{
		{Code: "M4-001"}, {Code: "M4-002"}, {Code: "A2-001"},
	}}
	busy := &mockBusyReader{vehicles: []string{"M4-002"}}
	svc := NewAvailabilityService(vehicles, &mockClassroomLister{}, &mockInstructorLister{}, busy, nil, nil)

	free, err := svc.Vehicles(context.Background(), AvailabilityQuery{Date: "2026-09-01", StartTime: "10:00", EndTime: "12:00", Branch: "Main"})
	require.NoError(t, err)
	require.Len(t, free, 2)
	assert.Equal(t, "M4-001", free[0].Code)
	assert.Equal(t, "A2-001", free[1].Code)
	assert.Equal(t, "Main", vehicles.branch)
}

func TestAvailabilityEndTimeDefaultsToEndOfDay(t *testing.T) {
	busy := &mockBusyReader{}
	svc := NewAvailabilityService(&mockVehicleLister{}, &mockClassroomLister{}, &mockInstructorLister{}, busy, nil, nil)

	_, err := svc.Vehicles(context.Background(), AvailabilityQuery{Date: "2026-09-01", StartTime: "10:00"})
	require.NoError(t, err)
	assert.Equal(t, [3]string{"2026-09-01", "10:00", models.EndOfDay}, busy.window)
}

func TestAvailabilityRejectsInvertedWindow(t *testing.T) {
	svc := NewAvailabilityService(&mockVehicleLister{}, &mockClassroomLister{}, &mockInstructorLister{}, &mockBusyReader{}, nil, nil)

	_, err := svc.Instructors(context.Background(), AvailabilityQuery{Date: "2026-09-01", StartTime: "12:00", EndTime: "10:00"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAvailabilityInstructorsFiltersBusy(t *testing.T) {
	instructors := &mockInstructorLister{instructors: []models.Instructor{
		{Code: "INS-0001"}, {Code: "INS-0002"},
	}}
	busy := &mockBusyReader{instructors: []string{"INS-0001"}}
	svc := NewAvailabilityService(&mockVehicleLister{}, &mockClassroomLister{}, instructors, busy, nil, nil)

	free, err := svc.Instructors(context.Background(), AvailabilityQuery{Date: "2026-09-01", StartTime: "10:00", EndTime: "11:00"})
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.Equal(t, "INS-0002", free[0].Code)
}

func TestAvailabilityClassroomsReportRemainingSlots(t *testing.T) {
	classrooms := &mockClassroomLister{classrooms: []models.Classroom{
		{Code: "RM-101", Capacity: 3},
		{Code: "RM-102", Capacity: 1},
		{Code: "RM-103", Capacity: 2},
	}}
	busy := &mockBusyReader{overlaps: map[string]int{"RM-101": 2, "RM-102": 1, "RM-103": 5}}
	svc := NewAvailabilityService(&mockVehicleLister{}, classrooms, &mockInstructorLister{}, busy, nil, nil)

	listed, err := svc.Classrooms(context.Background(), AvailabilityQuery{Date: "2026-09-01", StartTime: "10:00", EndTime: "12:00"})
	require.NoError(t, err)
	// Full rooms stay listed at zero; over-subscribed counts floor at zero.
	require.Len(t, listed, 3)
	assert.Equal(t, "RM-101", listed[0].Code)
	assert.Equal(t, 1, listed[0].SlotsAvailable)
	assert.Equal(t, "RM-102", listed[1].Code)
	assert.Equal(t, 0, listed[1].SlotsAvailable)
	assert.Equal(t, "RM-103", listed[2].Code)
	assert.Equal(t, 0, listed[2].SlotsAvailable)
}
