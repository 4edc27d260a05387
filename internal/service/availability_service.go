package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/roadready/drivemis-api/internal/models"
	appErrors "github.com/roadready/drivemis-api/pkg/errors"
)

type usableVehicleReader interface {
	ListUsable(ctx context.Context, branch string) ([]models.Vehicle, error)
}

type usableClassroomReader interface {
	ListUsable(ctx context.Context, branch string) ([]models.Classroom, error)
}

type teachableInstructorReader interface {
	ListTeachable(ctx context.Context, branch string) ([]models.Instructor, error)
}

type busyReader interface {
	BusyResourceCodes(ctx context.Context, kind models.FacilityKind, date, startTime, endTime, excludeSessionID string) ([]string, error)
	BusyInstructorCodes(ctx context.Context, date, startTime, endTime, excludeSessionID string) ([]string, error)
	ClassroomOverlapCounts(ctx context.Context, date, startTime, endTime, excludeSessionID string) (map[string]int, error)
}

// AvailabilityQuery describes a requested time window. EndTime defaults to
// end of day when omitted; Branch narrows candidates when set.
type AvailabilityQuery struct {
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time"`
	Branch    string `json:"branch_name"`
}

// AvailabilityService answers which resources are free for a slot. Vehicles
// and instructors are binary; classrooms report remaining concurrent
// capacity.
type AvailabilityService struct {
	vehicles    usableVehicleReader
	classrooms  usableClassroomReader
	instructors teachableInstructorReader
	sessions    busyReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAvailabilityService constructs AvailabilityService.
func NewAvailabilityService(vehicles usableVehicleReader, classrooms usableClassroomReader, instructors teachableInstructorReader, sessions busyReader, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{vehicles: vehicles, classrooms: classrooms, instructors: instructors, sessions: sessions, validator: validate, logger: logger}
}

func (s *AvailabilityService) normalise(q AvailabilityQuery) (AvailabilityQuery, error) {
	if err := s.validator.Struct(q); err != nil {
		return q, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability query")
	}
	var err error
	if q.Date, err = models.ParseDate(q.Date); err != nil {
		return q, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date")
	}
	if q.StartTime, err = models.ParseClock(q.StartTime); err != nil {
		return q, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	if q.EndTime == "" {
		q.EndTime = models.EndOfDay
	} else if q.EndTime, err = models.ParseClock(q.EndTime); err != nil {
		return q, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time")
	}
	if q.EndTime <= q.StartTime {
		return q, appErrors.Clone(appErrors.ErrValidation, "end time must come after start time")
	}
	return q, nil
}

// Vehicles returns the usable vehicles with no overlapping session in the
// window.
func (s *AvailabilityService) Vehicles(ctx context.Context, q AvailabilityQuery) ([]models.Vehicle, error) {
	q, err := s.normalise(q)
	if err != nil {
		return nil, err
	}
	candidates, err := s.vehicles.ListUsable(ctx, q.Branch)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list vehicles")
	}
	busy, err := s.sessions.BusyResourceCodes(ctx, models.FacilityKindVehicle, q.Date, q.StartTime, q.EndTime, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load busy vehicles")
	}
	taken := toSet(busy)
	available := []models.Vehicle{}
	for _, v := range candidates {
		if !taken[v.Code] {
			available = append(available, v)
		}
	}
	return available, nil
}

// Instructors returns the teachable instructors with no overlapping session
// in the window.
func (s *AvailabilityService) Instructors(ctx context.Context, q AvailabilityQuery) ([]models.Instructor, error) {
	q, err := s.normalise(q)
	if err != nil {
		return nil, err
	}
	candidates, err := s.instructors.ListTeachable(ctx, q.Branch)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}
	busy, err := s.sessions.BusyInstructorCodes(ctx, q.Date, q.StartTime, q.EndTime, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load busy instructors")
	}
	taken := toSet(busy)
	available := []models.Instructor{}
	for _, i := range candidates {
		if !taken[i.Code] {
			available = append(available, i)
		}
	}
	return available, nil
}

// Classrooms returns every usable classroom annotated with the seats left in
// the window, floored at zero. Full rooms stay in the listing so callers can
// show them; candidate selection filters them out.
func (s *AvailabilityService) Classrooms(ctx context.Context, q AvailabilityQuery) ([]models.ClassroomSlots, error) {
	q, err := s.normalise(q)
	if err != nil {
		return nil, err
	}
	candidates, err := s.classrooms.ListUsable(ctx, q.Branch)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
	}
	overlaps, err := s.sessions.ClassroomOverlapCounts(ctx, q.Date, q.StartTime, q.EndTime, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom occupancy")
	}
	listed := []models.ClassroomSlots{}
	for _, c := range candidates {
		slots := c.Capacity - overlaps[c.Code]
		if slots < 0 {
			slots = 0
		}
		listed = append(listed, models.ClassroomSlots{Classroom: c, SlotsAvailable: slots})
	}
	return listed, nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
