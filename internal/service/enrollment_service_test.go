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

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	statuses    map[string]models.EnrollmentStatus
	archived    []string
	created     *models.Enrollment
	updated     *models.Enrollment
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	details := make([]models.EnrollmentDetail, 0, len(m.enrollments))
	for _, e := range m.enrollments {
		details = append(details, models.EnrollmentDetail{Enrollment: e})
	}
	return details, len(details), nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if e, ok := m.enrollments[id]; ok {
		return &models.EnrollmentDetail{Enrollment: e}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := m.enrollments[id]
	return ok, nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	m.created = enrollment
	m.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (m *mockEnrollmentRepo) Update(ctx context.Context, enrollment *models.Enrollment) error {
	m.updated = enrollment
	m.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (m *mockEnrollmentRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	if m.statuses == nil {
		m.statuses = make(map[string]models.EnrollmentStatus)
	}
	m.statuses[id] = status
	e := m.enrollments[id]
	e.Status = status
	m.enrollments[id] = e
	return nil
}

func (m *mockEnrollmentRepo) Archive(ctx context.Context, id string) error {
	m.archived = append(m.archived, id)
	return nil
}

type mockStudentReader struct {
	students map[string]models.Student
}

func (m *mockStudentReader) FindByCode(ctx context.Context, code string) (*models.Student, error) {
	if s, ok := m.students[code]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

type mockBranchReader struct {
	branches map[string]models.Branch
}

func (m *mockBranchReader) FindByName(ctx context.Context, name string) (*models.Branch, error) {
	if b, ok := m.branches[name]; ok {
		return &b, nil
	}
	return nil, sql.ErrNoRows
}

type mockCountsReader struct {
	counts map[string]models.SessionCounts
}

func (m *mockCountsReader) CountsForEnrollment(ctx context.Context, enrollmentID string) (models.SessionCounts, error) {
	return m.counts[enrollmentID], nil
}

func newEnrollmentFixture() (*EnrollmentService, *mockEnrollmentRepo, *mockCountsReader) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		"100001": {ID: "100001", Branch: "Quezon", StudentCode: "26-00001", CourseCode: "PDC-20", Transmission: models.TransmissionManual, TotalHours: 8, Status: models.EnrollmentAwaitingAction},
		"100009": {ID: "100009", Branch: "Quezon", StudentCode: "26-00001", CourseCode: "PDC-20", Transmission: models.TransmissionManual, TotalHours: 8, Status: models.EnrollmentForfeited},
	}}
	students := &mockStudentReader{students: map[string]models.Student{
		"26-00001": {Code: "26-00001", FirstName: "Ana", Status: models.StudentStatusActive},
		"26-00002": {Code: "26-00002", FirstName: "Ben", Status: models.StudentStatusArchived},
	}}
	courses := &mockCourseReader{courses: map[string]models.CourseDetail{
		"PDC-20": {Course: models.Course{Code: "PDC-20", Status: models.CourseStatusOpen}, CategoryType: models.CategoryPDC},
		"TDC-15": {Course: models.Course{Code: "TDC-15", Status: models.CourseStatusOpen}, CategoryType: models.CategoryTDC},
	}}
	branches := &mockBranchReader{branches: map[string]models.Branch{
		"Quezon": {Name: "Quezon"},
		"Main":   {Name: "Main"},
	}}
	counts := &mockCountsReader{counts: map[string]models.SessionCounts{}}
	svc := NewEnrollmentService(repo, students, courses, branches, counts, NewCodeGenerator(0), nil, nil)
	return svc, repo, counts
}

func TestEnrollmentCreateDerivesInitialStatus(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture()

	detail, err := svc.Create(context.Background(), staffActor(), CreateEnrollmentRequest{
		Branch:       "Quezon",
		StudentCode:  "26-00001",
		CourseCode:   "PDC-20",
		Transmission: models.TransmissionManual,
		TotalHours:   8,
	})
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Regexp(t, `^\d{6}$`, detail.ID)
	// 8 hours of driving means sessions remain, so the student needs a call.
	assert.Equal(t, models.EnrollmentAwaitingFollowUp, detail.Status)
}

func TestEnrollmentCreateTransmissionRules(t *testing.T) {
	svc, _, _ := newEnrollmentFixture()

	_, err := svc.Create(context.Background(), staffActor(), CreateEnrollmentRequest{
		Branch: "Quezon", StudentCode: "26-00001", CourseCode: "PDC-20",
		Transmission: models.TransmissionNA, TotalHours: 8,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Create(context.Background(), staffActor(), CreateEnrollmentRequest{
		Branch: "Quezon", StudentCode: "26-00001", CourseCode: "TDC-15",
		Transmission: models.TransmissionManual, TotalHours: 15,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentCreateRejectsInactiveStudent(t *testing.T) {
	svc, _, _ := newEnrollmentFixture()

	_, err := svc.Create(context.Background(), staffActor(), CreateEnrollmentRequest{
		Branch: "Quezon", StudentCode: "26-00002", CourseCode: "PDC-20",
		Transmission: models.TransmissionManual, TotalHours: 8,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentCreateRejectsBadPreferredDate(t *testing.T) {
	svc, _, _ := newEnrollmentFixture()

	_, err := svc.Create(context.Background(), staffActor(), CreateEnrollmentRequest{
		Branch: "Quezon", StudentCode: "26-00001", CourseCode: "PDC-20",
		Transmission: models.TransmissionManual, TotalHours: 8,
		PreferredDates: models.DateList{"June 1st"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentCreateForbiddenForInstructors(t *testing.T) {
	svc, _, _ := newEnrollmentFixture()

	_, err := svc.Create(context.Background(), models.Actor{UserID: "u2", Role: models.RoleInstructor}, CreateEnrollmentRequest{
		Branch: "Quezon", StudentCode: "26-00001", CourseCode: "PDC-20",
		Transmission: models.TransmissionManual, TotalHours: 8,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentUpdateRejectsClosed(t *testing.T) {
	svc, _, _ := newEnrollmentFixture()

	branch := "Main"
	_, err := svc.Update(context.Background(), staffActor(), "100009", UpdateEnrollmentRequest{Branch: &branch})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentUpdateChangesBranch(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture()

	branch := "Main"
	detail, err := svc.Update(context.Background(), staffActor(), "100001", UpdateEnrollmentRequest{Branch: &branch})
	require.NoError(t, err)
	assert.Equal(t, "Main", detail.Branch)
	require.NotNil(t, repo.updated)
}

func TestEnrollmentRefreshStatus(t *testing.T) {
	svc, repo, counts := newEnrollmentFixture()
	// 8 hours of driving is 4 sessions; all completed closes the enrollment.
	counts.counts["100001"] = models.SessionCounts{Completed: 4}

	detail, err := svc.RefreshStatus(context.Background(), "100001")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentCompleted, detail.Status)
	assert.Equal(t, models.EnrollmentCompleted, repo.statuses["100001"])
}

func TestEnrollmentRefreshStatusLeavesClosedAlone(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture()

	detail, err := svc.RefreshStatus(context.Background(), "100009")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentForfeited, detail.Status)
	assert.Empty(t, repo.statuses)
}

func TestEnrollmentForfeit(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture()

	detail, err := svc.Forfeit(context.Background(), staffActor(), "100001")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentForfeited, detail.Status)
	assert.Equal(t, models.EnrollmentForfeited, repo.statuses["100001"])

	_, err = svc.Forfeit(context.Background(), staffActor(), "100001")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestEnrollmentArchive(t *testing.T) {
	svc, repo, _ := newEnrollmentFixture()

	require.NoError(t, svc.Archive(context.Background(), staffActor(), "100001"))
	assert.Equal(t, []string{"100001"}, repo.archived)

	err := svc.Archive(context.Background(), staffActor(), "999999")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
