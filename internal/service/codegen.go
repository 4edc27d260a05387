package service

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/roadready/drivemis-api/internal/models"
	appErrors "github.com/roadready/drivemis-api/pkg/errors"
)

// existsFunc reports whether a candidate code is already taken.
type existsFunc func(ctx context.Context, code string) (bool, error)

// CodeGenerator mints the human-readable identifiers used across the system.
// Candidates are drawn at random and probed against the store; the database
// unique constraint remains the final arbiter against concurrent winners.
type CodeGenerator struct {
	maxAttempts int
}

// NewCodeGenerator constructs a generator. maxAttempts bounds the retry loop
// per allocation.
func NewCodeGenerator(maxAttempts int) *CodeGenerator {
	if maxAttempts <= 0 {
		maxAttempts = 25
	}
	return &CodeGenerator{maxAttempts: maxAttempts}
}

func (g *CodeGenerator) generate(ctx context.Context, exists existsFunc, mint func() string) (string, error) {
	for i := 0; i < g.maxAttempts; i++ {
		code := mint()
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrCodeExhausted, "")
}

// StudentCode mints <2-digit join year>-<5-digit random>, e.g. 26-04812.
func (g *CodeGenerator) StudentCode(ctx context.Context, yearJoined int, exists existsFunc) (string, error) {
	return g.generate(ctx, exists, func() string {
		return fmt.Sprintf("%02d-%05d", yearJoined%100, rand.Intn(100000))
	})
}

// InstructorCode mints INS-<4-digit random>.
func (g *CodeGenerator) InstructorCode(ctx context.Context, exists existsFunc) (string, error) {
	return g.generate(ctx, exists, func() string {
		return fmt.Sprintf("INS-%04d", rand.Intn(10000))
	})
}

// VehicleCode mints <transmission letter><wheel count>-<3-digit random>,
// e.g. M4-017 or A2-113.
func (g *CodeGenerator) VehicleCode(ctx context.Context, tr models.Transmission, wheels models.WheelCount, exists existsFunc) (string, error) {
	prefix := models.VehicleCodePrefix(tr, wheels)
	if prefix == "" {
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported transmission or wheel count")
	}
	return g.generate(ctx, exists, func() string {
		return fmt.Sprintf("%s-%03d", prefix, rand.Intn(1000))
	})
}

// ClassroomCode mints RM-<3-digit random>.
func (g *CodeGenerator) ClassroomCode(ctx context.Context, exists existsFunc) (string, error) {
	return g.generate(ctx, exists, func() string {
		return fmt.Sprintf("RM-%03d", rand.Intn(1000))
	})
}

// EnrollmentID mints a 6-digit numeric id.
func (g *CodeGenerator) EnrollmentID(ctx context.Context, exists existsFunc) (string, error) {
	return g.generate(ctx, exists, func() string {
		return fmt.Sprintf("%06d", rand.Intn(1000000))
	})
}
