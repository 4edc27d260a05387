package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/roadready/drivemis-api/internal/models"
)

// VehicleRepository provides persistence for vehicles and their facility
// handles.
type VehicleRepository struct {
	db *sqlx.DB
}

// NewVehicleRepository creates a new vehicle repository.
func NewVehicleRepository(db *sqlx.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

const vehicleColumns = `vehicle_code, wheel_num, transmission_type, vehicle_model, color, manufacturer, branch_name, status, created_at, updated_at`

// List returns non-archived vehicles with optional filtering.
func (r *VehicleRepository) List(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, int, error) {
	base := "FROM vehicles WHERE status <> 'Archived'"
	var conditions []string
	var args []interface{}

	if filter.Branch != "" {
		conditions = append(conditions, fmt.Sprintf("branch_name = $%d", len(args)+1))
		args = append(args, filter.Branch)
	}
	if filter.WheelNum != "" {
		conditions = append(conditions, fmt.Sprintf("wheel_num = $%d", len(args)+1))
		args = append(args, filter.WheelNum)
	}
	if filter.Transmission != "" {
		conditions = append(conditions, fmt.Sprintf("transmission_type = $%d", len(args)+1))
		args = append(args, filter.Transmission)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY vehicle_code ASC LIMIT %d OFFSET %d", vehicleColumns, base, size, offset)
	var vehicles []models.Vehicle
	if err := r.db.SelectContext(ctx, &vehicles, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list vehicles: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count vehicles: %w", err)
	}

	return vehicles, total, nil
}

// ListUsable returns vehicles eligible for scheduling (neither archived nor
// unavailable), optionally scoped to a branch.
func (r *VehicleRepository) ListUsable(ctx context.Context, branch string) ([]models.Vehicle, error) {
	query := fmt.Sprintf("SELECT %s FROM vehicles WHERE status NOT IN ('Archived', 'Unavailable')", vehicleColumns)
	var args []interface{}
	if branch != "" {
		query += " AND branch_name = $1"
		args = append(args, branch)
	}
	query += " ORDER BY vehicle_code ASC"

	var vehicles []models.Vehicle
	if err := r.db.SelectContext(ctx, &vehicles, query, args...); err != nil {
		return nil, fmt.Errorf("list usable vehicles: %w", err)
	}
	return vehicles, nil
}

// FindByCode loads a vehicle by code.
func (r *VehicleRepository) FindByCode(ctx context.Context, code string) (*models.Vehicle, error) {
	query := fmt.Sprintf("SELECT %s FROM vehicles WHERE vehicle_code = $1", vehicleColumns)
	var vehicle models.Vehicle
	if err := r.db.GetContext(ctx, &vehicle, query, code); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// Exists reports whether a vehicle code is already taken.
func (r *VehicleRepository) Exists(ctx context.Context, code string) (bool, error) {
	var one int
	err := r.db.GetContext(ctx, &one, `SELECT 1 FROM vehicles WHERE vehicle_code = $1 LIMIT 1`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("vehicle code exists: %w", err)
	}
	return true, nil
}

// Create stores a new vehicle and its facility handle in one transaction.
func (r *VehicleRepository) Create(ctx context.Context, vehicle *models.Vehicle) error {
	now := time.Now().UTC()
	vehicle.CreatedAt = now
	vehicle.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create vehicle: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO vehicles (vehicle_code, wheel_num, transmission_type, vehicle_model, color, manufacturer, branch_name, status, created_at, updated_at) VALUES (:vehicle_code, :wheel_num, :transmission_type, :vehicle_model, :color, :manufacturer, :branch_name, :status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, vehicle); err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("create vehicle %s: %w", vehicle.Code, ErrDuplicate)
			return err
		}
		err = fmt.Errorf("create vehicle: %w", err)
		return err
	}

	if err = insertFacility(ctx, tx, models.FacilityKindVehicle, vehicle.Code); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create vehicle: %w", err)
	}
	return nil
}

// Update modifies a vehicle record.
func (r *VehicleRepository) Update(ctx context.Context, vehicle *models.Vehicle) error {
	vehicle.UpdatedAt = time.Now().UTC()
	const query = `UPDATE vehicles SET wheel_num = :wheel_num, transmission_type = :transmission_type, vehicle_model = :vehicle_model, color = :color, manufacturer = :manufacturer, branch_name = :branch_name, status = :status, updated_at = :updated_at WHERE vehicle_code = :vehicle_code`
	if _, err := r.db.NamedExecContext(ctx, query, vehicle); err != nil {
		return fmt.Errorf("update vehicle: %w", err)
	}
	return nil
}

// Archive soft-deletes a vehicle. The facility handle stays so historical
// sessions keep resolving.
func (r *VehicleRepository) Archive(ctx context.Context, code string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE vehicles SET status = 'Archived', updated_at = $2 WHERE vehicle_code = $1`, code, time.Now().UTC()); err != nil {
		return fmt.Errorf("archive vehicle: %w", err)
	}
	return nil
}

// Delete removes the vehicle and its facility handle in one transaction.
func (r *VehicleRepository) Delete(ctx context.Context, code string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete vehicle: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = deleteFacility(ctx, tx, models.FacilityKindVehicle, code); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM vehicles WHERE vehicle_code = $1`, code); err != nil {
		err = fmt.Errorf("delete vehicle: %w", err)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete vehicle: %w", err)
	}
	return nil
}
