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

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByCode(ctx context.Context, code string) (*models.Student, error)
	Exists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Archive(ctx context.Context, code string) error
}

type studentEnrollmentReader interface {
	ListByStudent(ctx context.Context, studentCode string) ([]models.EnrollmentDetail, error)
}

type studentSessionReader interface {
	ListByStudent(ctx context.Context, studentCode string) ([]models.SessionDetail, error)
}

// CreateStudentRequest describes student registration payload.
type CreateStudentRequest struct {
	FirstName       string  `json:"first_name" validate:"required,max=100"`
	LastName        *string `json:"last_name" validate:"omitempty,max=100"`
	Address         *string `json:"address" validate:"omitempty,max=255"`
	ContactNumber   *string `json:"contact_number" validate:"omitempty,max=30"`
	EmergencyNumber *string `json:"emergency_number" validate:"omitempty,max=30"`
}

// UpdateStudentRequest describes student update payload.
type UpdateStudentRequest struct {
	FirstName       *string `json:"first_name" validate:"omitempty,max=100"`
	LastName        *string `json:"last_name" validate:"omitempty,max=100"`
	Address         *string `json:"address" validate:"omitempty,max=255"`
	ContactNumber   *string `json:"contact_number" validate:"omitempty,max=30"`
	EmergencyNumber *string `json:"emergency_number" validate:"omitempty,max=30"`
}

// StudentService manages student records and their schedule views.
type StudentService struct {
	repo        studentRepository
	enrollments studentEnrollmentReader
	sessions    studentSessionReader
	codegen     *CodeGenerator
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, enrollments studentEnrollmentReader, sessions studentSessionReader, codegen *CodeGenerator, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if codegen == nil {
		codegen = NewCodeGenerator(0)
	}
	return &StudentService{repo: repo, enrollments: enrollments, sessions: sessions, codegen: codegen, validator: validate, logger: logger}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get loads one student by code.
func (s *StudentService) Get(ctx context.Context, code string) (*models.Student, error) {
	student, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a student, minting a year-scoped code.
func (s *StudentService) Create(ctx context.Context, req CreateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	year := time.Now().UTC().Year()
	code, err := s.codegen.StudentCode(ctx, year, s.repo.Exists)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	student := &models.Student{
		Code:            code,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Address:         req.Address,
		ContactNumber:   req.ContactNumber,
		EmergencyNumber: req.EmergencyNumber,
		YearJoined:      year,
		Status:          models.StudentStatusActive,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student code collision, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update modifies a student's contact details.
func (s *StudentService) Update(ctx context.Context, code string, req UpdateStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if req.FirstName != nil {
		student.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		student.LastName = req.LastName
	}
	if req.Address != nil {
		student.Address = req.Address
	}
	if req.ContactNumber != nil {
		student.ContactNumber = req.ContactNumber
	}
	if req.EmergencyNumber != nil {
		student.EmergencyNumber = req.EmergencyNumber
	}
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Archive soft-deletes a student.
func (s *StudentService) Archive(ctx context.Context, code string) error {
	if _, err := s.Get(ctx, code); err != nil {
		return err
	}
	if err := s.repo.Archive(ctx, code); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive student")
	}
	return nil
}

// Enrollments returns the student's enrollment history.
func (s *StudentService) Enrollments(ctx context.Context, code string) ([]models.EnrollmentDetail, error) {
	if _, err := s.Get(ctx, code); err != nil {
		return nil, err
	}
	enrollments, err := s.enrollments.ListByStudent(ctx, code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student enrollments")
	}
	if enrollments == nil {
		enrollments = []models.EnrollmentDetail{}
	}
	return enrollments, nil
}

// Sessions returns the student's sessions grouped per enrollment, in
// chronological order inside each group.
func (s *StudentService) Sessions(ctx context.Context, code string) ([]models.StudentSessionGroup, error) {
	if _, err := s.Get(ctx, code); err != nil {
		return nil, err
	}
	sessions, err := s.sessions.ListByStudent(ctx, code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list student sessions")
	}
	groups := []models.StudentSessionGroup{}
	for _, session := range sessions {
		if n := len(groups); n == 0 || groups[n-1].EnrollmentID != session.EnrollmentID {
			groups = append(groups, models.StudentSessionGroup{EnrollmentID: session.EnrollmentID})
		}
		last := &groups[len(groups)-1]
		last.Sessions = append(last.Sessions, session)
	}
	return groups, nil
}
