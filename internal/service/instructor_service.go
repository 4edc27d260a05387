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

type instructorRepository interface {
	List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, int, error)
	FindByCode(ctx context.Context, code string) (*models.Instructor, error)
	Exists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, instructor *models.Instructor) error
	Update(ctx context.Context, instructor *models.Instructor) error
	Archive(ctx context.Context, code string) error
}

// CreateInstructorRequest describes instructor creation payload.
type CreateInstructorRequest struct {
	FirstName string  `json:"first_name" validate:"required,max=100"`
	LastName  *string `json:"last_name" validate:"omitempty,max=100"`
	IsSenior  bool    `json:"is_senior"`
	Branch    string  `json:"branch_name" validate:"required"`
}

// UpdateInstructorRequest describes instructor update payload.
type UpdateInstructorRequest struct {
	FirstName *string                  `json:"first_name" validate:"omitempty,max=100"`
	LastName  *string                  `json:"last_name" validate:"omitempty,max=100"`
	IsSenior  *bool                    `json:"is_senior"`
	Branch    *string                  `json:"branch_name"`
	Status    *models.InstructorStatus `json:"status" validate:"omitempty,oneof=Active 'On Leave' Inactive"`
}

// InstructorService manages instructors.
type InstructorService struct {
	repo      instructorRepository
	branches  branchRepository
	codegen   *CodeGenerator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInstructorService constructs InstructorService.
func NewInstructorService(repo instructorRepository, branches branchRepository, codegen *CodeGenerator, validate *validator.Validate, logger *zap.Logger) *InstructorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if codegen == nil {
		codegen = NewCodeGenerator(0)
	}
	return &InstructorService{repo: repo, branches: branches, codegen: codegen, validator: validate, logger: logger}
}

// List returns instructors with pagination metadata.
func (s *InstructorService) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, *models.Pagination, error) {
	instructors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}
	return instructors, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get loads one instructor by code.
func (s *InstructorService) Get(ctx context.Context, code string) (*models.Instructor, error) {
	instructor, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	return instructor, nil
}

// Create registers an instructor at a branch, minting an INS code.
func (s *InstructorService) Create(ctx context.Context, req CreateInstructorRequest) (*models.Instructor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instructor payload")
	}
	if _, err := s.branches.FindByName(ctx, req.Branch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "branch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch")
	}
	code, err := s.codegen.InstructorCode(ctx, s.repo.Exists)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	instructor := &models.Instructor{
		Code:      code,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsSenior:  req.IsSenior,
		Branch:    req.Branch,
		Status:    models.InstructorStatusActive,
	}
	if err := s.repo.Create(ctx, instructor); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "instructor code collision, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create instructor")
	}
	return instructor, nil
}

// Update modifies an instructor.
func (s *InstructorService) Update(ctx context.Context, code string, req UpdateInstructorRequest) (*models.Instructor, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instructor payload")
	}
	instructor, err := s.Get(ctx, code)
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
		instructor.Branch = *req.Branch
	}
	if req.FirstName != nil {
		instructor.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		instructor.LastName = req.LastName
	}
	if req.IsSenior != nil {
		instructor.IsSenior = *req.IsSenior
	}
	if req.Status != nil {
		instructor.Status = *req.Status
	}
	if err := s.repo.Update(ctx, instructor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update instructor")
	}
	return instructor, nil
}

// Archive soft-deletes an instructor.
func (s *InstructorService) Archive(ctx context.Context, code string) error {
	if _, err := s.Get(ctx, code); err != nil {
		return err
	}
	if err := s.repo.Archive(ctx, code); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive instructor")
	}
	return nil
}
