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

type branchRepository interface {
	List(ctx context.Context, filter models.BranchFilter) ([]models.Branch, int, error)
	FindByName(ctx context.Context, name string) (*models.Branch, error)
	Create(ctx context.Context, branch *models.Branch) error
	Update(ctx context.Context, branch *models.Branch) error
	Archive(ctx context.Context, name string) error
}

// CreateBranchRequest describes branch creation payload.
type CreateBranchRequest struct {
	Name    string `json:"branch_name" validate:"required,max=100"`
	Address string `json:"branch_address" validate:"required,max=255"`
}

// UpdateBranchRequest describes branch update payload.
type UpdateBranchRequest struct {
	Address *string              `json:"branch_address" validate:"omitempty,max=255"`
	Status  *models.BranchStatus `json:"status" validate:"omitempty,oneof=Open Closed"`
}

// BranchService manages school branches.
type BranchService struct {
	repo      branchRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBranchService constructs BranchService.
func NewBranchService(repo branchRepository, validate *validator.Validate, logger *zap.Logger) *BranchService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BranchService{repo: repo, validator: validate, logger: logger}
}

// List returns branches with pagination metadata.
func (s *BranchService) List(ctx context.Context, filter models.BranchFilter) ([]models.Branch, *models.Pagination, error) {
	branches, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list branches")
	}
	return branches, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get loads one branch by name.
func (s *BranchService) Get(ctx context.Context, name string) (*models.Branch, error) {
	branch, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "branch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch")
	}
	return branch, nil
}

// Create opens a new branch.
func (s *BranchService) Create(ctx context.Context, req CreateBranchRequest) (*models.Branch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid branch payload")
	}
	branch := &models.Branch{Name: req.Name, Address: req.Address, Status: models.BranchStatusOpen}
	if err := s.repo.Create(ctx, branch); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "branch already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create branch")
	}
	return branch, nil
}

// Update modifies a branch's address or status.
func (s *BranchService) Update(ctx context.Context, name string, req UpdateBranchRequest) (*models.Branch, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid branch payload")
	}
	branch, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "branch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch")
	}
	if req.Address != nil {
		branch.Address = *req.Address
	}
	if req.Status != nil {
		branch.Status = *req.Status
	}
	if err := s.repo.Update(ctx, branch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update branch")
	}
	return branch, nil
}

// Archive soft-deletes a branch.
func (s *BranchService) Archive(ctx context.Context, name string) error {
	if _, err := s.Get(ctx, name); err != nil {
		return err
	}
	if err := s.repo.Archive(ctx, name); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive branch")
	}
	return nil
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
