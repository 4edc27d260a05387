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

type classroomRepository interface {
	List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error)
	FindByCode(ctx context.Context, code string) (*models.Classroom, error)
	Exists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, classroom *models.Classroom) error
	Update(ctx context.Context, classroom *models.Classroom) error
	Archive(ctx context.Context, code string) error
	Delete(ctx context.Context, code string) error
}

// CreateClassroomRequest describes classroom creation payload.
type CreateClassroomRequest struct {
	Capacity int    `json:"capacity" validate:"required,min=1,max=100"`
	Branch   string `json:"branch_name" validate:"required"`
}

// UpdateClassroomRequest describes classroom update payload.
type UpdateClassroomRequest struct {
	Capacity *int                   `json:"capacity" validate:"omitempty,min=1,max=100"`
	Branch   *string                `json:"branch_name"`
	Status   *models.ResourceStatus `json:"status" validate:"omitempty,oneof=Available Unavailable"`
}

// ClassroomService manages theory classrooms and their facility handles.
type ClassroomService struct {
	repo      classroomRepository
	branches  branchRepository
	codegen   *CodeGenerator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassroomService constructs ClassroomService.
func NewClassroomService(repo classroomRepository, branches branchRepository, codegen *CodeGenerator, validate *validator.Validate, logger *zap.Logger) *ClassroomService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if codegen == nil {
		codegen = NewCodeGenerator(0)
	}
	return &ClassroomService{repo: repo, branches: branches, codegen: codegen, validator: validate, logger: logger}
}

// List returns classrooms with pagination metadata.
func (s *ClassroomService) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, *models.Pagination, error) {
	classrooms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
	}
	return classrooms, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get loads one classroom by code.
func (s *ClassroomService) Get(ctx context.Context, code string) (*models.Classroom, error) {
	classroom, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
	}
	return classroom, nil
}

// Create registers a classroom, minting an RM code and the facility handle
// in one transaction.
func (s *ClassroomService) Create(ctx context.Context, req CreateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}
	if _, err := s.branches.FindByName(ctx, req.Branch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "branch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch")
	}
	code, err := s.codegen.ClassroomCode(ctx, s.repo.Exists)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	classroom := &models.Classroom{
		Code:     code,
		Capacity: req.Capacity,
		Branch:   req.Branch,
		Status:   models.ResourceStatusAvailable,
	}
	if err := s.repo.Create(ctx, classroom); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "classroom code collision, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create classroom")
	}
	return classroom, nil
}

// Update modifies a classroom.
func (s *ClassroomService) Update(ctx context.Context, code string, req UpdateClassroomRequest) (*models.Classroom, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid classroom payload")
	}
	classroom, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if req.Branch != nil {
		if _, err := s.branches.FindByName(ctx, *req.Branch); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "branch not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch")
		}
		classroom.Branch = *req.Branch
	}
	if req.Capacity != nil {
		classroom.Capacity = *req.Capacity
	}
	if req.Status != nil {
		classroom.Status = *req.Status
	}
	if err := s.repo.Update(ctx, classroom); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update classroom")
	}
	return classroom, nil
}

// Archive soft-deletes a classroom, keeping the facility handle for
// historical sessions.
func (s *ClassroomService) Archive(ctx context.Context, code string) error {
	if _, err := s.Get(ctx, code); err != nil {
		return err
	}
	if err := s.repo.Archive(ctx, code); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive classroom")
	}
	return nil
}

// Delete removes the classroom and its facility handle for good. Meant for
// records created in error; rooms with session history should be archived
// instead.
func (s *ClassroomService) Delete(ctx context.Context, code string) error {
	if _, err := s.Get(ctx, code); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, code); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete classroom")
	}
	return nil
}
