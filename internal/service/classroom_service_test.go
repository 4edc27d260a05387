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

type mockClassroomRepo struct {
	classrooms map[string]models.Classroom
	archived   []string
	deleted    []string
}

func (m *mockClassroomRepo) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error) {
	out := []models.Classroom{}
	for _, c := range m.classrooms {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *mockClassroomRepo) FindByCode(ctx context.Context, code string) (*models.Classroom, error) {
	if c, ok := m.classrooms[code]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockClassroomRepo) Exists(ctx context.Context, code string) (bool, error) {
	_, ok := m.classrooms[code]
	return ok, nil
}

func (m *mockClassroomRepo) Create(ctx context.Context, classroom *models.Classroom) error {
	m.classrooms[classroom.Code] = *classroom
	return nil
}

func (m *mockClassroomRepo) Update(ctx context.Context, classroom *models.Classroom) error {
	m.classrooms[classroom.Code] = *classroom
	return nil
}

func (m *mockClassroomRepo) Archive(ctx context.Context, code string) error {
	m.archived = append(m.archived, code)
	return nil
}

func (m *mockClassroomRepo) Delete(ctx context.Context, code string) error {
	m.deleted = append(m.deleted, code)
	delete(m.classrooms, code)
	return nil
}

func TestClassroomDeletePurgesRecord(t *testing.T) {
	repo := &mockClassroomRepo{classrooms: map[string]models.Classroom{
		"RM-101": {Code: "RM-101", Branch: "Main", Capacity: 10},
	}}
	svc := NewClassroomService(repo, nil, nil, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "RM-101"))
	assert.Equal(t, []string{"RM-101"}, repo.deleted)
	assert.Empty(t, repo.archived)

	err := svc.Delete(context.Background(), "RM-101")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestClassroomArchiveKeepsRecord(t *testing.T) {
	repo := &mockClassroomRepo{classrooms: map[string]models.Classroom{
		"RM-101": {Code: "RM-101", Branch: "Main", Capacity: 10},
	}}
	svc := NewClassroomService(repo, nil, nil, nil, nil)

	require.NoError(t, svc.Archive(context.Background(), "RM-101"))
	assert.Equal(t, []string{"RM-101"}, repo.archived)
	assert.Empty(t, repo.deleted)
}
