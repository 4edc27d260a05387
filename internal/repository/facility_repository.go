package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/roadready/drivemis-api/internal/models"
)

// FacilityRepository provides lookups over the schedulable-resource handles.
// Facility rows themselves are written by the vehicle and classroom
// repositories inside the owning resource's transaction.
type FacilityRepository struct {
	db *sqlx.DB
}

// NewFacilityRepository creates a new facility repository.
func NewFacilityRepository(db *sqlx.DB) *FacilityRepository {
	return &FacilityRepository{db: db}
}

// FindByID loads a facility handle by row id.
func (r *FacilityRepository) FindByID(ctx context.Context, id int64) (*models.Facility, error) {
	const query = `SELECT id, facility_kind, resource_code FROM facilities WHERE id = $1`
	var facility models.Facility
	if err := r.db.GetContext(ctx, &facility, query, id); err != nil {
		return nil, err
	}
	return &facility, nil
}

// FindByResource loads the facility handle for a concrete resource.
func (r *FacilityRepository) FindByResource(ctx context.Context, kind models.FacilityKind, code string) (*models.Facility, error) {
	const query = `SELECT id, facility_kind, resource_code FROM facilities WHERE facility_kind = $1 AND resource_code = $2`
	var facility models.Facility
	if err := r.db.GetContext(ctx, &facility, query, kind, code); err != nil {
		return nil, err
	}
	return &facility, nil
}

// MapByResourceCodes resolves facility row ids for a set of resource codes of
// one kind.
func (r *FacilityRepository) MapByResourceCodes(ctx context.Context, kind models.FacilityKind, codes []string) (map[string]int64, error) {
	result := make(map[string]int64, len(codes))
	if len(codes) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT id, facility_kind, resource_code FROM facilities WHERE facility_kind = ? AND resource_code IN (?)`, kind, codes)
	if err != nil {
		return nil, fmt.Errorf("build facility map query: %w", err)
	}
	query = r.db.Rebind(query)

	var facilities []models.Facility
	if err := r.db.SelectContext(ctx, &facilities, query, args...); err != nil {
		return nil, fmt.Errorf("map facilities: %w", err)
	}
	for _, f := range facilities {
		result[f.ResourceCode] = f.ID
	}
	return result, nil
}

// insertFacility writes the handle row for a newly created resource. Shared
// by the vehicle and classroom repositories so the handle lives and dies in
// the resource's own transaction.
func insertFacility(ctx context.Context, exec sqlx.ExtContext, kind models.FacilityKind, code string) error {
	if _, err := exec.ExecContext(ctx, exec.Rebind(`INSERT INTO facilities (facility_kind, resource_code) VALUES (?, ?)`), kind, code); err != nil {
		return fmt.Errorf("insert facility %s/%s: %w", kind, code, err)
	}
	return nil
}

// deleteFacility removes the handle row for a deleted resource.
func deleteFacility(ctx context.Context, exec sqlx.ExtContext, kind models.FacilityKind, code string) error {
	if _, err := exec.ExecContext(ctx, exec.Rebind(`DELETE FROM facilities WHERE facility_kind = ? AND resource_code = ?`), kind, code); err != nil {
		return fmt.Errorf("delete facility %s/%s: %w", kind, code, err)
	}
	return nil
}
