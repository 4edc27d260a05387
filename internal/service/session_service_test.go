package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadready/drivemis-api/internal/models"
	appErrors "github.com/roadready/drivemis-api/pkg/errors"
)

type mockSessionRepo struct {
	sessions       map[string]models.Session
	busyInstructor []string
	busyVehicles   []string
	overlaps       map[string]int
	counts         models.SessionCounts
	applied        *models.Session
	derivedStatus  models.EnrollmentStatus
	excludedID     string
}

func (m *mockSessionRepo) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, int, error) {
	return nil, 0, nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*models.Session, error) {
	if s, ok := m.sessions[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) FindDetailByID(ctx context.Context, id string) (*models.SessionDetail, error) {
	if m.applied != nil && m.applied.ID == id {
		return &models.SessionDetail{Session: *m.applied}, nil
	}
	if s, ok := m.sessions[id]; ok {
		return &models.SessionDetail{Session: s}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionRepo) ApplySessionChange(ctx context.Context, session *models.Session, derive func(models.SessionCounts) models.EnrollmentStatus) (models.SessionCounts, error) {
	m.applied = session
	m.derivedStatus = derive(m.counts)
	if m.sessions == nil {
		m.sessions = make(map[string]models.Session)
	}
	m.sessions[session.ID] = *session
	return m.counts, nil
}

func (m *mockSessionRepo) BusyResourceCodes(ctx context.Context, kind models.FacilityKind, date, startTime, endTime, excludeSessionID string) ([]string, error) {
	m.excludedID = excludeSessionID
	return m.busyVehicles, nil
}

func (m *mockSessionRepo) BusyInstructorCodes(ctx context.Context, date, startTime, endTime, excludeSessionID string) ([]string, error) {
	m.excludedID = excludeSessionID
	return m.busyInstructor, nil
}

func (m *mockSessionRepo) ClassroomOverlapCounts(ctx context.Context, date, startTime, endTime, excludeSessionID string) (map[string]int, error) {
	return m.overlaps, nil
}

type mockEnrollmentReader struct {
	enrollments map[string]models.Enrollment
}

func (m *mockEnrollmentReader) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

type mockCourseReader struct {
	courses map[string]models.CourseDetail
}

func (m *mockCourseReader) FindByCode(ctx context.Context, code string) (*models.CourseDetail, error) {
	if c, ok := m.courses[code]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type mockInstructorReader struct {
	instructors map[string]models.Instructor
}

func (m *mockInstructorReader) FindByCode(ctx context.Context, code string) (*models.Instructor, error) {
	if i, ok := m.instructors[code]; ok {
		return &i, nil
	}
	return nil, sql.ErrNoRows
}

type mockFacilityReader struct {
	facilities map[int64]models.Facility
}

func (m *mockFacilityReader) FindByID(ctx context.Context, id int64) (*models.Facility, error) {
	if f, ok := m.facilities[id]; ok {
		return &f, nil
	}
	return nil, sql.ErrNoRows
}

type mockClassroomReader struct {
	classrooms map[string]models.Classroom
}

func (m *mockClassroomReader) FindByCode(ctx context.Context, code string) (*models.Classroom, error) {
	if c, ok := m.classrooms[code]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type mockInvalidator struct {
	patterns []string
}

func (m *mockInvalidator) Invalidate(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func newSessionFixture() (*SessionService, *mockSessionRepo, *mockInvalidator) {
	repo := &mockSessionRepo{}
	cache := &mockInvalidator{}
	enrollments := &mockEnrollmentReader{enrollments: map[string]models.Enrollment{
		"100001": {ID: "100001", CourseCode: "PDC-20", TotalHours: 8, Transmission: models.TransmissionManual, Status: models.EnrollmentAwaitingFollowUp},
		"100002": {ID: "100002", CourseCode: "TDC-15", TotalHours: 15, Transmission: models.TransmissionNA, Status: models.EnrollmentAwaitingFollowUp},
		"100009": {ID: "100009", CourseCode: "PDC-20", TotalHours: 8, Status: models.EnrollmentForfeited},
	}}
	courses := &mockCourseReader{courses: map[string]models.CourseDetail{
		"PDC-20": {Course: models.Course{Code: "PDC-20"}, CategoryType: models.CategoryPDC},
		"TDC-15": {Course: models.Course{Code: "TDC-15"}, CategoryType: models.CategoryTDC},
	}}
	instructors := &mockInstructorReader{instructors: map[string]models.Instructor{
		"INS-0001": {Code: "INS-0001", Status: models.InstructorStatusActive},
		"INS-0002": {Code: "INS-0002", Status: models.InstructorStatusInactive},
	}}
	facilities := &mockFacilityReader{facilities: map[int64]models.Facility{
		1: {ID: 1, Kind: models.FacilityKindVehicle, ResourceCode: "M4-001"},
		2: {ID: 2, Kind: models.FacilityKindClassroom, ResourceCode: "RM-101"},
	}}
	classrooms := &mockClassroomReader{classrooms: map[string]models.Classroom{
		"RM-101": {Code: "RM-101", Capacity: 2},
	}}
	svc := NewSessionService(repo, enrollments, courses, instructors, facilities, classrooms, cache, nil, nil, nil)
	return svc, repo, cache
}

func staffActor() models.Actor {
	return models.Actor{UserID: "u1", Email: "staff@example.com", Role: models.RoleStaff}
}

func TestSessionScheduleHappyPath(t *testing.T) {
	svc, repo, cache := newSessionFixture()
	repo.counts = models.SessionCounts{Scheduled: 1}

	detail, err := svc.Schedule(context.Background(), staffActor(), ScheduleSessionRequest{
		EnrollmentID:   "100001",
		Date:           "2026-09-01",
		StartTime:      "10:00",
		EndTime:        "12:00",
		InstructorCode: "INS-0001",
		FacilityID:     1,
	})
	require.NoError(t, err)
	require.NotNil(t, repo.applied)

	assert.Equal(t, models.SessionScheduled, repo.applied.Status)
	assert.Equal(t, "0", repo.applied.Nth, "regular sessions get a placeholder ordinal")
	assert.Equal(t, "100001", repo.applied.EnrollmentID)
	assert.NotEmpty(t, detail.ID)
	// 8 hours of PDC is 4 sessions; one scheduled leaves follow-up.
	assert.Equal(t, models.EnrollmentAwaitingFollowUp, repo.derivedStatus)
	assert.Contains(t, cache.patterns, "utilization:*")
}

func TestSessionScheduleKeepsExamMarker(t *testing.T) {
	svc, repo, _ := newSessionFixture()

	_, err := svc.Schedule(context.Background(), staffActor(), ScheduleSessionRequest{
		EnrollmentID:   "100001",
		Date:           "2026-09-01",
		StartTime:      "10:00",
		EndTime:        "12:00",
		InstructorCode: "INS-0001",
		FacilityID:     1,
		Nth:            "EXT",
	})
	require.NoError(t, err)
	assert.Equal(t, "EXT", repo.applied.Nth)
}

func TestSessionScheduleForbiddenForInstructorRole(t *testing.T) {
	svc, repo, _ := newSessionFixture()

	actor := models.Actor{UserID: "u2", Role: models.RoleInstructor}
	_, err := svc.Schedule(context.Background(), actor, ScheduleSessionRequest{
		EnrollmentID:   "100001",
		Date:           "2026-09-01",
		StartTime:      "10:00",
		EndTime:        "12:00",
		InstructorCode: "INS-0001",
		FacilityID:     1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.applied)
}

func TestSessionScheduleRejectsClosedEnrollment(t *testing.T) {
	svc, _, _ := newSessionFixture()

	_, err := svc.Schedule(context.Background(), staffActor(), ScheduleSessionRequest{
		EnrollmentID:   "100009",
		Date:           "2026-09-01",
		StartTime:      "10:00",
		EndTime:        "12:00",
		InstructorCode: "INS-0001",
		FacilityID:     1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestSessionScheduleFacilityKindMismatch(t *testing.T) {
	svc, _, _ := newSessionFixture()

	// PDC enrollment pointed at a classroom facility.
	_, err := svc.Schedule(context.Background(), staffActor(), ScheduleSessionRequest{
		EnrollmentID:   "100001",
		Date:           "2026-09-01",
		StartTime:      "10:00",
		EndTime:        "12:00",
		InstructorCode: "INS-0001",
		FacilityID:     2,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFacilityMismatch.Code, appErrors.FromError(err).Code)
}

func TestSessionScheduleVehicleConflict(t *testing.T) {
	svc, repo, _ := newSessionFixture()
	repo.busyVehicles = []string{"M4-001"}

	_, err := svc.Schedule(context.Background(), staffActor(), ScheduleSessionRequest{
		EnrollmentID:   "100001",
		Date:           "2026-09-01",
		StartTime:      "10:00",
		EndTime:        "12:00",
		InstructorCode: "INS-0001",
		FacilityID:     1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSessionScheduleInstructorConflict(t *testing.T) {
	svc, repo, _ := newSessionFixture()
	repo.busyInstructor = []string{"INS-0001"}

	_, err := svc.Schedule(context.Background(), staffActor(), ScheduleSessionRequest{
		EnrollmentID:   "100001",
		Date:           "2026-09-01",
		StartTime:      "10:00",
		EndTime:        "12:00",
		InstructorCode: "INS-0001",
		FacilityID:     1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSessionScheduleRejectsInactiveInstructor(t *testing.T) {
	svc, _, _ := newSessionFixture()

	_, err := svc.Schedule(context.Background(), staffActor(), ScheduleSessionRequest{
		EnrollmentID:   "100001",
		Date:           "2026-09-01",
		StartTime:      "10:00",
		EndTime:        "12:00",
		InstructorCode: "INS-0002",
		FacilityID:     1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestSessionScheduleClassroomCapacity(t *testing.T) {
	svc, repo, _ := newSessionFixture()

	req := ScheduleSessionRequest{
		EnrollmentID:   "100002",
		Date:           "2026-09-01",
		StartTime:      "13:00",
		EndTime:        "15:00",
		InstructorCode: "INS-0001",
		FacilityID:     2,
	}

	// One concurrent session in a two-seat room still fits.
	repo.overlaps = map[string]int{"RM-101": 1}
	_, err := svc.Schedule(context.Background(), staffActor(), req)
	require.NoError(t, err)

	// At capacity the slot is rejected.
	repo.overlaps = map[string]int{"RM-101": 2}
	_, err = svc.Schedule(context.Background(), staffActor(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSessionScheduleInvalidSlot(t *testing.T) {
	svc, _, _ := newSessionFixture()

	_, err := svc.Schedule(context.Background(), staffActor(), ScheduleSessionRequest{
		EnrollmentID:   "100001",
		Date:           "2026-09-01",
		StartTime:      "12:00",
		EndTime:        "10:00",
		InstructorCode: "INS-0001",
		FacilityID:     1,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSessionRescheduleExcludesOwnSession(t *testing.T) {
	svc, repo, _ := newSessionFixture()
	facilityID := int64(1)
	repo.sessions = map[string]models.Session{
		"sess-1": {
			ID: "sess-1", Nth: "0", Date: "2026-09-01", StartTime: "10:00", EndTime: "12:00",
			EnrollmentID: "100001", InstructorCode: "INS-0001", FacilityID: &facilityID,
			Status: models.SessionScheduled,
		},
	}

	start, end := "14:00", "16:00"
	detail, err := svc.Reschedule(context.Background(), staffActor(), "sess-1", RescheduleSessionRequest{
		StartTime: &start,
		EndTime:   &end,
	})
	require.NoError(t, err)
	assert.Equal(t, "14:00", detail.StartTime)
	assert.Equal(t, "sess-1", repo.excludedID, "conflict checks must not collide with the session itself")
}

func TestSessionRescheduleOnlyScheduled(t *testing.T) {
	svc, repo, _ := newSessionFixture()
	facilityID := int64(1)
	repo.sessions = map[string]models.Session{
		"sess-done": {ID: "sess-done", EnrollmentID: "100001", FacilityID: &facilityID, Status: models.SessionCompleted},
	}

	date := "2026-09-05"
	_, err := svc.Reschedule(context.Background(), staffActor(), "sess-done", RescheduleSessionRequest{Date: &date})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestSessionSetStatusTransitions(t *testing.T) {
	facilityID := int64(1)
	scheduled := models.Session{
		ID: "sess-1", Nth: "0", Date: "2026-09-01", StartTime: "10:00", EndTime: "12:00",
		EnrollmentID: "100001", InstructorCode: "INS-0001", FacilityID: &facilityID,
		Status: models.SessionScheduled,
	}

	t.Run("complete scheduled", func(t *testing.T) {
		svc, repo, _ := newSessionFixture()
		repo.sessions = map[string]models.Session{"sess-1": scheduled}
		repo.counts = models.SessionCounts{Completed: 4}

		detail, err := svc.SetStatus(context.Background(), staffActor(), "sess-1", models.SessionCompleted)
		require.NoError(t, err)
		assert.Equal(t, models.SessionCompleted, detail.Status)
		assert.Equal(t, models.EnrollmentCompleted, repo.derivedStatus)
	})

	t.Run("cannot re-record an outcome", func(t *testing.T) {
		svc, repo, _ := newSessionFixture()
		done := scheduled
		done.Status = models.SessionMissed
		repo.sessions = map[string]models.Session{"sess-1": done}

		_, err := svc.SetStatus(context.Background(), staffActor(), "sess-1", models.SessionCompleted)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	})

	t.Run("archive any active session", func(t *testing.T) {
		svc, repo, _ := newSessionFixture()
		done := scheduled
		done.Status = models.SessionCancelled
		repo.sessions = map[string]models.Session{"sess-1": done}

		detail, err := svc.SetStatus(context.Background(), staffActor(), "sess-1", models.SessionArchived)
		require.NoError(t, err)
		assert.Equal(t, models.SessionArchived, detail.Status)
	})

	t.Run("unsupported target status", func(t *testing.T) {
		svc, repo, _ := newSessionFixture()
		repo.sessions = map[string]models.Session{"sess-1": scheduled}

		_, err := svc.SetStatus(context.Background(), staffActor(), "sess-1", models.SessionScheduled)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	})
}
