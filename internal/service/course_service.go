package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/roadready/drivemis-api/internal/models"
	"github.com/roadready/drivemis-api/internal/repository"
	appErrors "github.com/roadready/drivemis-api/pkg/errors"
)

type courseRepository interface {
	ListCategories(ctx context.Context) ([]models.CourseCategory, error)
	FindCategory(ctx context.Context, code string) (*models.CourseCategory, error)
	CreateCategory(ctx context.Context, category *models.CourseCategory) error
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindByCode(ctx context.Context, code string) (*models.CourseDetail, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Archive(ctx context.Context, code string) error
}

// CreateCategoryRequest describes category creation payload.
type CreateCategoryRequest struct {
	Code string              `json:"category_code" validate:"required,max=20"`
	Name string              `json:"category_name" validate:"required,max=100"`
	Type models.CategoryType `json:"category_type" validate:"required,oneof=PDC TDC"`
}

// CreateCourseRequest describes course creation payload.
type CreateCourseRequest struct {
	Code         string `json:"course_code" validate:"required,max=20"`
	Name         string `json:"course_name" validate:"required,max=100"`
	CategoryCode string `json:"category_code" validate:"required"`
	Description  string `json:"course_description" validate:"max=500"`
}

// UpdateCourseRequest describes course update payload.
type UpdateCourseRequest struct {
	Name        *string              `json:"course_name" validate:"omitempty,max=100"`
	Description *string              `json:"course_description" validate:"omitempty,max=500"`
	Status      *models.CourseStatus `json:"status" validate:"omitempty,oneof=Open Closed"`
}

// CourseService manages course categories and courses.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// ListCategories returns every course category.
func (s *CourseService) ListCategories(ctx context.Context) ([]models.CourseCategory, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list categories")
	}
	return categories, nil
}

// CreateCategory registers a new course category.
func (s *CourseService) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*models.CourseCategory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload")
	}
	category := &models.CourseCategory{Code: req.Code, Name: req.Name, Type: req.Type}
	if err := s.repo.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "category already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create category")
	}
	return category, nil
}

// List returns courses with pagination metadata.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	return courses, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get loads one course by code.
func (s *CourseService) Get(ctx context.Context, code string) (*models.CourseDetail, error) {
	course, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create registers a new course under an existing category.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if _, err := s.repo.FindCategory(ctx, req.CategoryCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	course := &models.Course{Code: req.Code, Name: req.Name, CategoryCode: req.CategoryCode, Description: req.Description, Status: models.CourseStatusOpen}
	if err := s.repo.Create(ctx, course); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	return s.Get(ctx, course.Code)
}

// Update modifies a course.
func (s *CourseService) Update(ctx context.Context, code string, req UpdateCourseRequest) (*models.CourseDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	detail, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	course := detail.Course
	if req.Name != nil {
		course.Name = *req.Name
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Status != nil {
		course.Status = *req.Status
	}
	if err := s.repo.Update(ctx, &course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return s.Get(ctx, code)
}

// Archive soft-deletes a course.
func (s *CourseService) Archive(ctx context.Context, code string) error {
	if _, err := s.Get(ctx, code); err != nil {
		return err
	}
	if err := s.repo.Archive(ctx, code); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive course")
	}
	return nil
}
