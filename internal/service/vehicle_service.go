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

type vehicleRepository interface {
	List(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, int, error)
	FindByCode(ctx context.Context, code string) (*models.Vehicle, error)
	Exists(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, vehicle *models.Vehicle) error
	Update(ctx context.Context, vehicle *models.Vehicle) error
	Archive(ctx context.Context, code string) error
	Delete(ctx context.Context, code string) error
}

// CreateVehicleRequest describes vehicle registration payload.
type CreateVehicleRequest struct {
	WheelNum     models.WheelCount   `json:"wheel_num" validate:"required,oneof=2W 3W 4W"`
	Transmission models.Transmission `json:"transmission_type" validate:"required,oneof=MT AT"`
	Model        string              `json:"vehicle_model" validate:"required,max=100"`
	Color        string              `json:"color" validate:"required,max=50"`
	Manufacturer string              `json:"manufacturer" validate:"required,max=100"`
	Branch       string              `json:"branch_name" validate:"required"`
}

// UpdateVehicleRequest describes vehicle update payload. The code encodes
// transmission and wheel count, so those fields are immutable.
type UpdateVehicleRequest struct {
	Model        *string                `json:"vehicle_model" validate:"omitempty,max=100"`
	Color        *string                `json:"color" validate:"omitempty,max=50"`
	Manufacturer *string                `json:"manufacturer" validate:"omitempty,max=100"`
	Branch       *string                `json:"branch_name"`
	Status       *models.ResourceStatus `json:"status" validate:"omitempty,oneof=Available Unavailable"`
}

// VehicleService manages training vehicles and their facility handles.
type VehicleService struct {
	repo      vehicleRepository
	branches  branchRepository
	codegen   *CodeGenerator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewVehicleService constructs VehicleService.
func NewVehicleService(repo vehicleRepository, branches branchRepository, codegen *CodeGenerator, validate *validator.Validate, logger *zap.Logger) *VehicleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if codegen == nil {
		codegen = NewCodeGenerator(0)
	}
	return &VehicleService{repo: repo, branches: branches, codegen: codegen, validator: validate, logger: logger}
}

// List returns vehicles with pagination metadata.
func (s *VehicleService) List(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, *models.Pagination, error) {
	vehicles, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list vehicles")
	}
	return vehicles, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get loads one vehicle by code.
func (s *VehicleService) Get(ctx context.Context, code string) (*models.Vehicle, error) {
	vehicle, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "vehicle not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load vehicle")
	}
	return vehicle, nil
}

// Create registers a vehicle, minting its transmission/wheel-count code and
// the facility handle in one transaction.
func (s *VehicleService) Create(ctx context.Context, req CreateVehicleRequest) (*models.Vehicle, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid vehicle payload")
	}
	if _, err := s.branches.FindByName(ctx, req.Branch); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "branch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load branch")
	}
	code, err := s.codegen.VehicleCode(ctx, req.Transmission, req.WheelNum, s.repo.Exists)
	if err != nil {
		return nil, appErrors.FromError(err)
	}
	vehicle := &models.Vehicle{
		Code:         code,
		WheelNum:     req.WheelNum,
		Transmission: req.Transmission,
		Model:        req.Model,
		Color:        req.Color,
		Manufacturer: req.Manufacturer,
		Branch:       req.Branch,
		Status:       models.ResourceStatusAvailable,
	}
	if err := s.repo.Create(ctx, vehicle); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "vehicle code collision, retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create vehicle")
	}
	return vehicle, nil
}

// Update modifies a vehicle.
func (s *VehicleService) Update(ctx context.Context, code string, req UpdateVehicleRequest) (*models.Vehicle, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid vehicle payload")
	}
	vehicle, err := s.Get(ctx, code)
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
		vehicle.Branch = *req.Branch
	}
	if req.Model != nil {
		vehicle.Model = *req.Model
	}
	if req.Color != nil {
		vehicle.Color = *req.Color
	}
	if req.Manufacturer != nil {
		vehicle.Manufacturer = *req.Manufacturer
	}
	if req.Status != nil {
		vehicle.Status = *req.Status
	}
	if err := s.repo.Update(ctx, vehicle); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update vehicle")
	}
	return vehicle, nil
}

// Archive soft-deletes a vehicle. The facility handle is kept so historical
// sessions stay resolvable.
func (s *VehicleService) Archive(ctx context.Context, code string) error {
	if _, err := s.Get(ctx, code); err != nil {
		return err
	}
	if err := s.repo.Archive(ctx, code); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive vehicle")
	}
	return nil
}

// Delete removes the vehicle and its facility handle for good. Meant for
// records created in error; archived vehicles with session history should
// stay archived.
func (s *VehicleService) Delete(ctx context.Context, code string) error {
	if _, err := s.Get(ctx, code); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, code); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete vehicle")
	}
	return nil
}
