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

type mockVehicleRepo struct {
	vehicles map[string]models.Vehicle
	archived []string
	deleted  []string
}

func (m *mockVehicleRepo) List(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, int, error) {
	out := []models.Vehicle{}
	for _, v := range m.vehicles {
		out = append(out, v)
	}
	return out, len(out), nil
}

func (m *mockVehicleRepo) FindByCode(ctx context.Context, code string) (*models.Vehicle, error) {
	if v, ok := m.vehicles[code]; ok {
		return &v, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockVehicleRepo) Exists(ctx context.Context, code string) (bool, error) {
	_, ok := m.vehicles[code]
	return ok, nil
}

func (m *mockVehicleRepo) Create(ctx context.Context, vehicle *models.Vehicle) error {
	m.vehicles[vehicle.Code] = *vehicle
	return nil
}

func (m *mockVehicleRepo) Update(ctx context.Context, vehicle *models.Vehicle) error {
	m.vehicles[vehicle.Code] = *vehicle
	return nil
}

func (m *mockVehicleRepo) Archive(ctx context.Context, code string) error {
	m.archived = append(m.archived, code)
	return nil
}

func (m *mockVehicleRepo) Delete(ctx context.Context, code string) error {
	m.deleted = append(m.deleted, code)
	delete(m.vehicles, code)
	return nil
}

func TestVehicleArchiveKeepsRecord(t *testing.T) {
	repo := &mockVehicleRepo{vehicles: map[string]models.Vehicle{
		"M4-001": {Code: "M4-001", Branch: "Main"},
	}}
	svc := NewVehicleService(repo, nil, nil, nil, nil)

	require.NoError(t, svc.Archive(context.Background(), "M4-001"))
	assert.Equal(t, []string{"M4-001"}, repo.archived)
	assert.Empty(t, repo.deleted)
}

func TestVehicleDeletePurgesRecord(t *testing.T) {
	repo := &mockVehicleRepo{vehicles: map[string]models.Vehicle{
		"M4-001": {Code: "M4-001", Branch: "Main"},
	}}
	svc := NewVehicleService(repo, nil, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "M4-001"))
	assert.Equal(t, []string{"M4-001"}, repo.deleted)
	assert.Empty(t, repo.archived)

	err := svc.Delete(context.Background(), "M4-001")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
