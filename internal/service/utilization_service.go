package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/roadready/drivemis-api/internal/dto"
	"github.com/roadready/drivemis-api/internal/models"
	"github.com/roadready/drivemis-api/internal/repository"
	appErrors "github.com/roadready/drivemis-api/pkg/errors"
)

// workdayHours is the schedulable span assumed per resource per day.
var workdayHours = decimal.NewFromInt(8)

type loadReader interface {
	InstructorLoads(ctx context.Context, startDate, endDate string) ([]repository.UtilizationLoad, error)
	FacilityLoads(ctx context.Context, kind models.FacilityKind, startDate, endDate string) ([]repository.UtilizationLoad, error)
}

type reportCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// UtilizationService computes assigned-versus-available hour reports for
// instructors, vehicles and classrooms. Assigned hours are session counts
// weighted by the fixed per-category durations; available hours assume an
// eight hour day, with one rest day per week for instructors.
type UtilizationService struct {
	loads       loadReader
	vehicles    usableVehicleReader
	classrooms  usableClassroomReader
	instructors teachableInstructorReader
	cache       reportCache
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewUtilizationService constructs UtilizationService. cache may be nil.
func NewUtilizationService(loads loadReader, vehicles usableVehicleReader, classrooms usableClassroomReader, instructors teachableInstructorReader, cache reportCache, cacheTTL time.Duration, logger *zap.Logger) *UtilizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UtilizationService{loads: loads, vehicles: vehicles, classrooms: classrooms, instructors: instructors, cache: cache, cacheTTL: cacheTTL, logger: logger}
}

// normaliseRange validates the window, defaulting to the current month so
// far when omitted.
func normaliseRange(startDate, endDate string) (string, string, int, error) {
	now := time.Now().UTC()
	if endDate == "" {
		endDate = now.Format(models.DateLayout)
	}
	if startDate == "" {
		startDate = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format(models.DateLayout)
	}
	start, err := models.ParseDate(startDate)
	if err != nil {
		return "", "", 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start date")
	}
	end, err := models.ParseDate(endDate)
	if err != nil {
		return "", "", 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end date")
	}
	if end < start {
		return "", "", 0, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}
	from, _ := time.Parse(models.DateLayout, start)
	to, _ := time.Parse(models.DateLayout, end)
	days := int(to.Sub(from).Hours()/24) + 1
	return start, end, days, nil
}

func assignedByCode(loads []repository.UtilizationLoad) map[string]decimal.Decimal {
	assigned := make(map[string]decimal.Decimal, len(loads))
	for _, load := range loads {
		hours := load.CategoryType.SessionHours().Mul(decimal.NewFromInt(int64(load.Sessions)))
		assigned[load.Code] = assigned[load.Code].Add(hours)
	}
	return assigned
}

// InstructorReport reports utilization per teachable instructor.
func (s *UtilizationService) InstructorReport(ctx context.Context, startDate, endDate string) (dto.UtilizationReport, error) {
	start, end, days, err := normaliseRange(startDate, endDate)
	if err != nil {
		return dto.UtilizationReport{}, err
	}

	key := fmt.Sprintf("utilization:instructors:%s:%s", start, end)
	var cached dto.UtilizationReport
	if s.cacheHit(ctx, key, &cached) {
		return cached, nil
	}

	loads, err := s.loads.InstructorLoads(ctx, start, end)
	if err != nil {
		return dto.UtilizationReport{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor sessions")
	}
	instructors, err := s.instructors.ListTeachable(ctx, "")
	if err != nil {
		return dto.UtilizationReport{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
	}

	// One rest day per full or partial week.
	workingDays := days - days/7
	available := workdayHours.Mul(decimal.NewFromInt(int64(workingDays)))
	assigned := assignedByCode(loads)

	report := dto.UtilizationReport{StartDate: start, EndDate: end, Resources: []dto.ResourceUtilization{}}
	totalAssigned, totalAvailable := decimal.Zero, decimal.Zero
	for _, instructor := range instructors {
		hours := assigned[instructor.Code]
		report.Resources = append(report.Resources, resourceRow(dto.ResourceUtilization{
			Code:     instructor.Code,
			Name:     instructor.DisplayName(),
			Branch:   instructor.Branch,
			IsSenior: instructor.IsSenior,
		}, hours, available))
		totalAssigned = totalAssigned.Add(hours)
		totalAvailable = totalAvailable.Add(available)
	}
	finishReport(&report, totalAssigned, totalAvailable)

	s.cachePut(ctx, key, report)
	return report, nil
}

// VehicleReport reports utilization per usable vehicle.
func (s *UtilizationService) VehicleReport(ctx context.Context, startDate, endDate string) (dto.UtilizationReport, error) {
	start, end, days, err := normaliseRange(startDate, endDate)
	if err != nil {
		return dto.UtilizationReport{}, err
	}

	key := fmt.Sprintf("utilization:vehicles:%s:%s", start, end)
	var cached dto.UtilizationReport
	if s.cacheHit(ctx, key, &cached) {
		return cached, nil
	}

	loads, err := s.loads.FacilityLoads(ctx, models.FacilityKindVehicle, start, end)
	if err != nil {
		return dto.UtilizationReport{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load vehicle sessions")
	}
	vehicles, err := s.vehicles.ListUsable(ctx, "")
	if err != nil {
		return dto.UtilizationReport{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list vehicles")
	}

	available := workdayHours.Mul(decimal.NewFromInt(int64(days)))
	assigned := assignedByCode(loads)

	report := dto.UtilizationReport{Kind: models.FacilityKindVehicle, StartDate: start, EndDate: end, Resources: []dto.ResourceUtilization{}}
	totalAssigned, totalAvailable := decimal.Zero, decimal.Zero
	for _, vehicle := range vehicles {
		hours := assigned[vehicle.Code]
		report.Resources = append(report.Resources, resourceRow(dto.ResourceUtilization{
			Code:         vehicle.Code,
			Name:         vehicle.DisplayName(),
			Branch:       vehicle.Branch,
			WheelNum:     vehicle.WheelNum,
			Transmission: vehicle.Transmission,
		}, hours, available))
		totalAssigned = totalAssigned.Add(hours)
		totalAvailable = totalAvailable.Add(available)
	}
	finishReport(&report, totalAssigned, totalAvailable)

	s.cachePut(ctx, key, report)
	return report, nil
}

// ClassroomReport reports utilization per usable classroom.
func (s *UtilizationService) ClassroomReport(ctx context.Context, startDate, endDate string) (dto.UtilizationReport, error) {
	start, end, days, err := normaliseRange(startDate, endDate)
	if err != nil {
		return dto.UtilizationReport{}, err
	}

	key := fmt.Sprintf("utilization:classrooms:%s:%s", start, end)
	var cached dto.UtilizationReport
	if s.cacheHit(ctx, key, &cached) {
		return cached, nil
	}

	loads, err := s.loads.FacilityLoads(ctx, models.FacilityKindClassroom, start, end)
	if err != nil {
		return dto.UtilizationReport{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom sessions")
	}
	classrooms, err := s.classrooms.ListUsable(ctx, "")
	if err != nil {
		return dto.UtilizationReport{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classrooms")
	}

	available := workdayHours.Mul(decimal.NewFromInt(int64(days)))
	assigned := assignedByCode(loads)

	report := dto.UtilizationReport{Kind: models.FacilityKindClassroom, StartDate: start, EndDate: end, Resources: []dto.ResourceUtilization{}}
	totalAssigned, totalAvailable := decimal.Zero, decimal.Zero
	for _, classroom := range classrooms {
		hours := assigned[classroom.Code]
		report.Resources = append(report.Resources, resourceRow(dto.ResourceUtilization{
			Code:     classroom.Code,
			Name:     classroom.DisplayName(),
			Branch:   classroom.Branch,
			Capacity: classroom.Capacity,
		}, hours, available))
		totalAssigned = totalAssigned.Add(hours)
		totalAvailable = totalAvailable.Add(available)
	}
	finishReport(&report, totalAssigned, totalAvailable)

	s.cachePut(ctx, key, report)
	return report, nil
}

func resourceRow(row dto.ResourceUtilization, assigned, available decimal.Decimal) dto.ResourceUtilization {
	row.HoursAssigned = assigned.InexactFloat64()
	row.HoursAvailable = available.InexactFloat64()
	if available.IsPositive() {
		row.Rate = utilizationPercent(assigned, available)
	}
	return row
}

// utilizationPercent is the assigned share expressed as a percentage, two
// decimal places.
func utilizationPercent(assigned, available decimal.Decimal) float64 {
	return assigned.Div(available).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}

// finishReport sorts least-used first and fills the totals.
func finishReport(report *dto.UtilizationReport, assigned, available decimal.Decimal) {
	sort.SliceStable(report.Resources, func(i, j int) bool {
		return report.Resources[i].Rate < report.Resources[j].Rate
	})
	report.TotalHoursAssigned = assigned.InexactFloat64()
	report.TotalHoursAvailable = available.InexactFloat64()
	if available.IsPositive() {
		report.OverallRate = utilizationPercent(assigned, available)
	}
}

func (s *UtilizationService) cacheHit(ctx context.Context, key string, dest *dto.UtilizationReport) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		s.logger.Warn("utilization cache read failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return hit
}

func (s *UtilizationService) cachePut(ctx context.Context, key string, report dto.UtilizationReport) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, report, s.cacheTTL); err != nil {
		s.logger.Warn("utilization cache write failed", zap.String("key", key), zap.Error(err))
	}
}
