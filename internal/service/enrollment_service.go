package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/roadready/drivemis-api/internal/models"
	"github.com/roadready/drivemis-api/internal/repository"
	appErrors "github.com/roadready/drivemis-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	Exists(ctx context.Context, id string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Update(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
	Archive(ctx context.Context, id string) error
}

type studentReader interface {
	FindByCode(ctx context.Context, code string) (*models.Student, error)
}

type courseReader interface {
	FindByCode(ctx context.Context, code string) (*models.CourseDetail, error)
}

type branchReader interface {
	FindByName(ctx context.Context, name string) (*models.Branch, error)
}

// CreateEnrollmentRequest describes enrollment creation payload.
type CreateEnrollmentRequest struct {
	Date           string              `json:"enrollment_date" validate:"omitempty"`
	Branch         string              `json:"branch_name" validate:"required"`
	StudentCode    string              `json:"student_code" validate:"required"`
	CourseCode     string              `json:"course_code" validate:"required"`
	Transmission   models.Transmission `json:"transmission_type" validate:"required,oneof=MT AT NA"`
	TotalHours     int                 `json:"total_hours" validate:"required,min=1,max=500"`
	PreferredDates models.DateList     `json:"preferred_dates"`
	Remarks        *string             `json:"remarks" validate:"omitempty,max=500"`
}

// UpdateEnrollmentRequest describes enrollment update payload. Hours and the
// course are frozen once sessions exist; the handler keeps this narrow.
type UpdateEnrollmentRequest struct {
	Branch         *string          `json:"branch_name"`
	PreferredDates *models.DateList `json:"preferred_dates"`
	Remarks        *string          `json:"remarks" validate:"omitempty,max=500"`
}

// EnrollmentService orchestrates enrollment lifecycle workflows. Status is
// never accepted from callers; it is derived from session counts or set by
// the explicit forfeit and archive transitions.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentReader
	courses   courseReader
	branches  branchReader
	sessions  sessionCountsReader
	codegen   *CodeGenerator
	validator *validator.Validate
	logger    *zap.Logger
}

type sessionCountsReader interface {
	CountsForEnrollment(ctx context.Context, enrollmentID string) (models.SessionCounts, error)
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, courses courseReader, branches branchReader, sessions sessionCountsReader, codegen *CodeGenerator, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if codegen == nil {
		codegen = NewCodeGenerator(0)
	}
	return &EnrollmentService{repo: repo, students: students, courses: courses, branches: branches, sessions: sessions, codegen: codegen, validator: validate, logger: logger}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get loads one enrollment with counts and display fields.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// Create registers a purchase of course hours for a student.
func (s *EnrollmentService) Create(ctx context.Context, actor models.Actor, req CreateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if !actor.CanSchedule() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to create enrollments")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	date := req.Date
	if date == "" {
		date = time.Now().UTC().Format(models.DateLayout)
	}
	date, err := models.ParseDate(date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment date")
	}
	for _, preferred := range req.PreferredDates {
		if _, err := models.ParseDate(preferred); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preferred date")
		}
	}

	student, err := s.students.FindByCode(ctx, req.StudentCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Status != models.StudentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student is not active")
	}

	course, err := s.courses.FindByCode(ctx, req.CourseCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if course.Status != models.CourseStatusOpen {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "course is not open")
	}

	// Practical courses need a gearbox choice; theory courses carry none.
	switch course.CategoryType {
	case models.CategoryPDC:
		if req.Transmission == models.TransmissionNA {
			return nil, appErrors.Clone(appErrors.ErrValidation, "practical enrollment requires a transmission type")
		}
	case models.CategoryTDC:
		if req.Transmission != models.TransmissionNA {
			return nil, appErrors.Clone(appErrors.ErrValidation, "theory enrollment does not take a transmission type")
		}
	}

	if _, err := s.branches.FindByName(ctx, req.Branch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "branch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch")
	}

	id, err := s.codegen.EnrollmentID(ctx, s.repo.Exists)
	if err != nil {
		return nil, appErrors.FromError(err)
	}

	totalSessions := course.CategoryType.RequiredSessions(req.TotalHours)
	enrollment := &models.Enrollment{
		ID:             id,
		Date:           date,
		Branch:         req.Branch,
		StudentCode:    req.StudentCode,
		CourseCode:     req.CourseCode,
		Transmission:   req.Transmission,
		TotalHours:     req.TotalHours,
		PreferredDates: req.PreferredDates,
		Remarks:        req.Remarks,
		Status:         DeriveEnrollmentStatus(totalSessions, models.SessionCounts{}),
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "enrollment id collision, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return s.Get(ctx, id)
}

// Update modifies an enrollment's branch, preferred dates or remarks.
func (s *EnrollmentService) Update(ctx context.Context, actor models.Actor, id string, req UpdateEnrollmentRequest) (*models.EnrollmentDetail, error) {
	if !actor.CanSchedule() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to modify enrollments")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status == models.EnrollmentArchived || enrollment.Status == models.EnrollmentForfeited {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment is closed")
	}
	if req.Branch != nil {
		if _, err := s.branches.FindByName(ctx, *req.Branch); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "branch not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch")
		}
		enrollment.Branch = *req.Branch
	}
	if req.PreferredDates != nil {
		for _, preferred := range *req.PreferredDates {
			if _, err := models.ParseDate(preferred); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preferred date")
			}
		}
		enrollment.PreferredDates = *req.PreferredDates
	}
	if req.Remarks != nil {
		enrollment.Remarks = req.Remarks
	}
	if err := s.repo.Update(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
	}
	return s.Get(ctx, id)
}

// RefreshStatus recomputes the derived status from live session counts. Used
// after out-of-band session changes such as archiving.
func (s *EnrollmentService) RefreshStatus(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status == models.EnrollmentArchived || enrollment.Status == models.EnrollmentForfeited {
		return s.Get(ctx, id)
	}
	totalSessions, err := s.totalSessionsFor(ctx, enrollment)
	if err != nil {
		return nil, err
	}
	counts, err := s.sessions.CountsForEnrollment(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sessions")
	}
	status := DeriveEnrollmentStatus(totalSessions, counts)
	if status != enrollment.Status {
		if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
		}
	}
	return s.Get(ctx, id)
}

// Forfeit marks an enrollment as abandoned by the student. Terminal.
func (s *EnrollmentService) Forfeit(ctx context.Context, actor models.Actor, id string) (*models.EnrollmentDetail, error) {
	if !actor.CanSchedule() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to forfeit enrollments")
	}
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	switch enrollment.Status {
	case models.EnrollmentCompleted, models.EnrollmentForfeited, models.EnrollmentArchived:
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment is already closed")
	}
	if err := s.repo.UpdateStatus(ctx, id, models.EnrollmentForfeited); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to forfeit enrollment")
	}
	return s.Get(ctx, id)
}

// Archive soft-deletes an enrollment.
func (s *EnrollmentService) Archive(ctx context.Context, actor models.Actor, id string) error {
	if !actor.CanSchedule() {
		return appErrors.Clone(appErrors.ErrForbidden, "not allowed to archive enrollments")
	}
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Archive(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive enrollment")
	}
	return nil
}

func (s *EnrollmentService) totalSessionsFor(ctx context.Context, enrollment *models.Enrollment) (int, error) {
	course, err := s.courses.FindByCode(ctx, enrollment.CourseCode)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course.CategoryType.RequiredSessions(enrollment.TotalHours), nil
}
