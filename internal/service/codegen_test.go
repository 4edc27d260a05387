package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadready/drivemis-api/internal/models"
	appErrors "github.com/roadready/drivemis-api/pkg/errors"
)

func neverTaken(ctx context.Context, code string) (bool, error) {
	return false, nil
}

func alwaysTaken(ctx context.Context, code string) (bool, error) {
	return true, nil
}

func TestCodeGeneratorFormats(t *testing.T) {
	g := NewCodeGenerator(0)
	ctx := context.Background()

	student, err := g.StudentCode(ctx, 2026, neverTaken)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^26-\d{5}$`), student)

	instructor, err := g.InstructorCode(ctx, neverTaken)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^INS-\d{4}$`), instructor)

	classroom, err := g.ClassroomCode(ctx, neverTaken)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^RM-\d{3}$`), classroom)

	enrollment, err := g.EnrollmentID(ctx, neverTaken)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), enrollment)
}

func TestCodeGeneratorVehicleCode(t *testing.T) {
	g := NewCodeGenerator(0)
	ctx := context.Background()

	code, err := g.VehicleCode(ctx, models.TransmissionManual, models.Wheels4, neverTaken)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^M4-\d{3}$`), code)

	code, err = g.VehicleCode(ctx, models.TransmissionAutomatic, models.Wheels2, neverTaken)
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^A2-\d{3}$`), code)

	// NA transmission has no code prefix and must be rejected.
	_, err = g.VehicleCode(ctx, models.TransmissionNA, models.Wheels4, neverTaken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCodeGeneratorRetriesCollisions(t *testing.T) {
	g := NewCodeGenerator(5)
	ctx := context.Background()

	calls := 0
	exists := func(ctx context.Context, code string) (bool, error) {
		calls++
		return calls < 3, nil
	}

	code, err := g.InstructorCode(ctx, exists)
	require.NoError(t, err)
	assert.NotEmpty(t, code)
	assert.Equal(t, 3, calls)
}

func TestCodeGeneratorExhaustsAttempts(t *testing.T) {
	g := NewCodeGenerator(4)

	_, err := g.EnrollmentID(context.Background(), alwaysTaken)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrCodeExhausted.Code, appErrors.FromError(err).Code)
}
