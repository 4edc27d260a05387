package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadready/drivemis-api/internal/models"
	"github.com/roadready/drivemis-api/internal/repository"
	appErrors "github.com/roadready/drivemis-api/pkg/errors"
)

type mockAvailability struct {
	vehicles    []models.Vehicle
	classrooms  []models.ClassroomSlots
	instructors []models.Instructor
}

func (m *mockAvailability) Vehicles(ctx context.Context, q AvailabilityQuery) ([]models.Vehicle, error) {
	return m.vehicles, nil
}

func (m *mockAvailability) Classrooms(ctx context.Context, q AvailabilityQuery) ([]models.ClassroomSlots, error) {
	return m.classrooms, nil
}

func (m *mockAvailability) Instructors(ctx context.Context, q AvailabilityQuery) ([]models.Instructor, error) {
	return m.instructors, nil
}

type mockFacilityMapper struct {
	ids map[string]int64
}

func (m *mockFacilityMapper) MapByResourceCodes(ctx context.Context, kind models.FacilityKind, codes []string) (map[string]int64, error) {
	return m.ids, nil
}

type mockOpenSlotReader struct {
	counts models.SessionCounts
	slots  []repository.OpenTDCSlot
}

func (m *mockOpenSlotReader) CountsForEnrollment(ctx context.Context, enrollmentID string) (models.SessionCounts, error) {
	return m.counts, nil
}

func (m *mockOpenSlotReader) OpenTDCSlots(ctx context.Context, fromDate string) ([]repository.OpenTDCSlot, error) {
	return m.slots, nil
}

func newRecommendationFixture(availability *mockAvailability, slots *mockOpenSlotReader) *RecommendationService {
	enrollments := &mockEnrollmentReader{enrollments: map[string]models.Enrollment{
		"100001": {
			ID: "100001", Branch: "Quezon", CourseCode: "PDC-20", TotalHours: 8,
			Transmission: models.TransmissionManual, Status: models.EnrollmentAwaitingFollowUp,
			PreferredDates: models.DateList{"2099-06-01", "2099-06-03"},
		},
		"100002": {
			ID: "100002", Branch: "Quezon", CourseCode: "TDC-15", TotalHours: 15,
			Transmission: models.TransmissionNA, Status: models.EnrollmentAwaitingFollowUp,
		},
	}}
	courses := &mockCourseReader{courses: map[string]models.CourseDetail{
		"PDC-20": {Course: models.Course{Code: "PDC-20"}, CategoryType: models.CategoryPDC},
		"TDC-15": {Course: models.Course{Code: "TDC-15"}, CategoryType: models.CategoryTDC},
	}}
	if slots == nil {
		slots = &mockOpenSlotReader{}
	}
	return NewRecommendationService(availability, enrollments, courses, &mockFacilityMapper{ids: map[string]int64{"M4-001": 7}}, slots, "Main", nil, nil)
}

func TestRecommendVehiclesFiltersAndRanks(t *testing.T) {
	availability := &mockAvailability{
		vehicles: []models.Vehicle{
			{Code: "A2-001", Transmission: models.TransmissionAutomatic, WheelNum: models.Wheels2, Branch: "Quezon"},
			{Code: "M4-003", Transmission: models.TransmissionManual, WheelNum: models.Wheels4, Branch: "Cebu"},
			{Code: "M4-002", Transmission: models.TransmissionManual, WheelNum: models.Wheels4, Branch: "Main"},
			{Code: "M4-001", Transmission: models.TransmissionManual, WheelNum: models.Wheels4, Branch: "Quezon"},
		},
		instructors: []models.Instructor{{Code: "INS-0001", Branch: "Quezon"}},
	}
	svc := newRecommendationFixture(availability, nil)

	out, err := svc.Recommend(context.Background(), RecommendationRequest{
		EnrollmentID: "100001", Date: "2026-09-01", StartTime: "10:00", EndTime: "12:00",
	})
	require.NoError(t, err)

	// AT vehicle dropped; home branch leads and the rest keeps its
	// availability order, Main included.
	require.Len(t, out.Vehicles, 3)
	assert.Equal(t, "M4-001", out.Vehicles[0].Code)
	assert.Equal(t, "M4-003", out.Vehicles[1].Code)
	assert.Equal(t, "M4-002", out.Vehicles[2].Code)
	require.NotNil(t, out.Vehicles[0].FacilityID)
	assert.Equal(t, int64(7), *out.Vehicles[0].FacilityID)
	assert.Empty(t, out.Classrooms)
}

func TestRecommendVehiclesWheelFilter(t *testing.T) {
	availability := &mockAvailability{
		vehicles: []models.Vehicle{
			{Code: "M2-001", Transmission: models.TransmissionManual, WheelNum: models.Wheels2, Branch: "Quezon"},
			{Code: "M4-001", Transmission: models.TransmissionManual, WheelNum: models.Wheels4, Branch: "Quezon"},
		},
	}
	svc := newRecommendationFixture(availability, nil)

	out, err := svc.Recommend(context.Background(), RecommendationRequest{
		EnrollmentID: "100001", Date: "2026-09-01", StartTime: "10:00", EndTime: "12:00",
		WheelNum: models.Wheels2,
	})
	require.NoError(t, err)
	require.Len(t, out.Vehicles, 1)
	assert.Equal(t, "M2-001", out.Vehicles[0].Code)
}

func TestRecommendInstructorsSeniorFirstOnFirstSession(t *testing.T) {
	availability := &mockAvailability{
		instructors: []models.Instructor{
			{Code: "INS-0003", Branch: "Quezon", IsSenior: false},
			{Code: "INS-0002", Branch: "Quezon", IsSenior: true},
			{Code: "INS-0001", Branch: "Cebu", IsSenior: true},
		},
	}
	// Nothing booked yet, so the proposed slot opens the course.
	slots := &mockOpenSlotReader{counts: models.SessionCounts{}}
	svc := newRecommendationFixture(availability, slots)

	out, err := svc.Recommend(context.Background(), RecommendationRequest{
		EnrollmentID: "100001", Date: "2026-09-01", StartTime: "10:00", EndTime: "12:00",
	})
	require.NoError(t, err)
	require.Len(t, out.Instructors, 3)
	// The branch partition outranks seniority: the home-branch senior leads,
	// the home-branch regular follows, and the out-of-branch senior trails
	// even on an opening session.
	assert.Equal(t, "INS-0002", out.Instructors[0].Code)
	assert.Equal(t, "INS-0003", out.Instructors[1].Code)
	assert.Equal(t, "INS-0001", out.Instructors[2].Code)
}

func TestRecommendInstructorsExplicitSessionOrdinal(t *testing.T) {
	availability := &mockAvailability{
		instructors: []models.Instructor{
			{Code: "INS-0003", Branch: "Quezon", IsSenior: false},
			{Code: "INS-0002", Branch: "Quezon", IsSenior: true},
		},
	}
	// Booked counts say mid-course; the explicit ordinal wins.
	slots := &mockOpenSlotReader{counts: models.SessionCounts{Scheduled: 2}}
	svc := newRecommendationFixture(availability, slots)

	// 8h PDC needs 4 sessions, so the fourth closes the course.
	out, err := svc.Recommend(context.Background(), RecommendationRequest{
		EnrollmentID: "100001", Date: "2026-09-01", StartTime: "10:00", EndTime: "12:00",
		SessionNth: 4,
	})
	require.NoError(t, err)
	require.Len(t, out.Instructors, 2)
	assert.Equal(t, "INS-0002", out.Instructors[0].Code, "senior leads on the closing session")

	out, err = svc.Recommend(context.Background(), RecommendationRequest{
		EnrollmentID: "100001", Date: "2026-09-01", StartTime: "10:00", EndTime: "12:00",
		SessionNth: 2,
	})
	require.NoError(t, err)
	require.Len(t, out.Instructors, 2)
	assert.Equal(t, "INS-0003", out.Instructors[0].Code, "mid-course ordinal keeps availability order")
}

func TestRecommendBranchOverride(t *testing.T) {
	availability := &mockAvailability{
		vehicles: []models.Vehicle{
			{Code: "M4-001", Transmission: models.TransmissionManual, WheelNum: models.Wheels4, Branch: "Quezon"},
			{Code: "M4-003", Transmission: models.TransmissionManual, WheelNum: models.Wheels4, Branch: "Cebu"},
		},
	}
	slots := &mockOpenSlotReader{counts: models.SessionCounts{Scheduled: 2}}
	svc := newRecommendationFixture(availability, slots)

	out, err := svc.Recommend(context.Background(), RecommendationRequest{
		EnrollmentID: "100001", Date: "2026-09-01", StartTime: "10:00", EndTime: "12:00",
		Branch: "Cebu",
	})
	require.NoError(t, err)
	require.Len(t, out.Vehicles, 2)
	assert.Equal(t, "M4-003", out.Vehicles[0].Code, "requested branch replaces the enrollment's")
}

func TestRecommendMainLeadsOnlyWithoutHomeCandidates(t *testing.T) {
	availability := &mockAvailability{
		vehicles: []models.Vehicle{
			{Code: "M4-003", Transmission: models.TransmissionManual, WheelNum: models.Wheels4, Branch: "Cebu"},
			{Code: "M4-002", Transmission: models.TransmissionManual, WheelNum: models.Wheels4, Branch: "Main"},
		},
	}
	slots := &mockOpenSlotReader{counts: models.SessionCounts{Scheduled: 2}}
	svc := newRecommendationFixture(availability, slots)

	// No Quezon vehicle is free, so the main branch steps in front.
	out, err := svc.Recommend(context.Background(), RecommendationRequest{
		EnrollmentID: "100001", Date: "2026-09-01", StartTime: "10:00", EndTime: "12:00",
	})
	require.NoError(t, err)
	require.Len(t, out.Vehicles, 2)
	assert.Equal(t, "M4-002", out.Vehicles[0].Code)
	assert.Equal(t, "M4-003", out.Vehicles[1].Code)
}

func TestRecommendInstructorsBranchOrderMidCourse(t *testing.T) {
	availability := &mockAvailability{
		instructors: []models.Instructor{
			{Code: "INS-0001", Branch: "Cebu", IsSenior: true},
			{Code: "INS-0002", Branch: "Quezon", IsSenior: false},
		},
	}
	// 8h PDC needs 4 sessions; 2 booked is neither first nor last.
	slots := &mockOpenSlotReader{counts: models.SessionCounts{Scheduled: 2}}
	svc := newRecommendationFixture(availability, slots)

	out, err := svc.Recommend(context.Background(), RecommendationRequest{
		EnrollmentID: "100001", Date: "2026-09-01", StartTime: "10:00", EndTime: "12:00",
	})
	require.NoError(t, err)
	require.Len(t, out.Instructors, 2)
	assert.Equal(t, "INS-0002", out.Instructors[0].Code, "home branch wins when seniority is not forced")
}

func TestRecommendClassroomsConsolidatesGroups(t *testing.T) {
	availability := &mockAvailability{
		classrooms: []models.ClassroomSlots{
			{Classroom: models.Classroom{Code: "RM-102", Branch: "Quezon", Capacity: 10}, SlotsAvailable: 9},
			{Classroom: models.Classroom{Code: "RM-103", Branch: "Quezon", Capacity: 10}, SlotsAvailable: 0},
			{Classroom: models.Classroom{Code: "RM-101", Branch: "Quezon", Capacity: 10}, SlotsAvailable: 4},
		},
	}
	svc := newRecommendationFixture(availability, nil)

	out, err := svc.Recommend(context.Background(), RecommendationRequest{
		EnrollmentID: "100002", Date: "2026-09-01", StartTime: "10:00", EndTime: "12:00",
	})
	require.NoError(t, err)
	// The full room is listed by availability but never suggested.
	require.Len(t, out.Classrooms, 2)
	assert.Equal(t, "RM-101", out.Classrooms[0].Code, "fuller room first so group sessions consolidate")
	assert.Equal(t, "RM-102", out.Classrooms[1].Code)
	assert.Empty(t, out.Vehicles)
}

func TestRecommendUnknownEnrollment(t *testing.T) {
	svc := newRecommendationFixture(&mockAvailability{}, nil)

	out, err := svc.Recommend(context.Background(), RecommendationRequest{
		EnrollmentID: "999999", Date: "2026-09-01", StartTime: "10:00", EndTime: "12:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.NotNil(t, out.Vehicles, "even failures keep the empty-list shape")
}

func TestOpenTheorySlotsMarksPreferredAndSkipsFull(t *testing.T) {
	future := time.Now().UTC().AddDate(0, 1, 0).Format(models.DateLayout)
	slots := &mockOpenSlotReader{slots: []repository.OpenTDCSlot{
		{SessionDate: "2099-06-01", StartTime: "09:00", EndTime: "16:30", FacilityID: 3, Classroom: "RM-101", Capacity: 10, InstructorCode: "INS-0001", Scheduled: 4},
		{SessionDate: future, StartTime: "09:00", EndTime: "16:30", FacilityID: 4, Classroom: "RM-102", Capacity: 5, InstructorCode: "INS-0002", Scheduled: 5},
	}}
	svc := newRecommendationFixture(&mockAvailability{}, slots)

	out, err := svc.OpenTheorySlots(context.Background(), "100001")
	require.NoError(t, err)
	// The full room drops out entirely.
	require.Len(t, out, 1)
	assert.Equal(t, "2099-06-01", out[0].SessionDate)
	assert.Equal(t, 6, out[0].AvailableSlots)
	assert.True(t, out[0].IsPreferred)
}

func TestOpenTheorySlotsOrdering(t *testing.T) {
	slots := &mockOpenSlotReader{slots: []repository.OpenTDCSlot{
		{SessionDate: "2099-07-10", StartTime: "13:00", EndTime: "20:30", Classroom: "RM-103", Capacity: 10, Scheduled: 2},
		{SessionDate: "2099-07-10", StartTime: "09:00", EndTime: "16:30", Classroom: "RM-102", Capacity: 10, Scheduled: 2},
		{SessionDate: "2099-07-05", StartTime: "09:00", EndTime: "16:30", Classroom: "RM-104", Capacity: 10, Scheduled: 2},
		{SessionDate: "2099-07-20", StartTime: "09:00", EndTime: "16:30", Classroom: "RM-105", Capacity: 10, Scheduled: 5},
		{SessionDate: "2099-06-01", StartTime: "09:00", EndTime: "16:30", Classroom: "RM-101", Capacity: 10, Scheduled: 8},
	}}
	svc := newRecommendationFixture(&mockAvailability{}, slots)

	out, err := svc.OpenTheorySlots(context.Background(), "100001")
	require.NoError(t, err)
	require.Len(t, out, 5)
	// Preferred dates first, then more seats, then later dates, then
	// earlier start times.
	assert.Equal(t, "RM-101", out[0].Classroom)
	assert.Equal(t, "RM-102", out[1].Classroom)
	assert.Equal(t, "RM-103", out[2].Classroom)
	assert.Equal(t, "RM-104", out[3].Classroom)
	assert.Equal(t, "RM-105", out[4].Classroom)
}

func TestMatchTheorySlots(t *testing.T) {
	slots := &mockOpenSlotReader{slots: []repository.OpenTDCSlot{
		{SessionDate: "2099-06-01", Classroom: "RM-101", Capacity: 10, Scheduled: 1},
		{SessionDate: "2099-06-02", Classroom: "RM-101", Capacity: 10, Scheduled: 1},
	}}
	svc := newRecommendationFixture(&mockAvailability{}, slots)

	match, err := svc.MatchTheorySlots(context.Background(), "100001")
	require.NoError(t, err)
	assert.True(t, match.HasMatch)
	require.Len(t, match.Matches, 1)
	assert.Equal(t, "2099-06-01", match.Matches[0].SessionDate)

	// An enrollment with no preferred dates never matches.
	match, err = svc.MatchTheorySlots(context.Background(), "100002")
	require.NoError(t, err)
	assert.False(t, match.HasMatch)
	assert.Empty(t, match.Matches)
}
