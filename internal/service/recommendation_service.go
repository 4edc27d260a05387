package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/roadready/drivemis-api/internal/dto"
	"github.com/roadready/drivemis-api/internal/models"
	"github.com/roadready/drivemis-api/internal/repository"
	appErrors "github.com/roadready/drivemis-api/pkg/errors"
)

type availabilityProvider interface {
	Vehicles(ctx context.Context, q AvailabilityQuery) ([]models.Vehicle, error)
	Classrooms(ctx context.Context, q AvailabilityQuery) ([]models.ClassroomSlots, error)
	Instructors(ctx context.Context, q AvailabilityQuery) ([]models.Instructor, error)
}

type facilityMapper interface {
	MapByResourceCodes(ctx context.Context, kind models.FacilityKind, codes []string) (map[string]int64, error)
}

type openSlotReader interface {
	CountsForEnrollment(ctx context.Context, enrollmentID string) (models.SessionCounts, error)
	OpenTDCSlots(ctx context.Context, fromDate string) ([]repository.OpenTDCSlot, error)
}

// RecommendationRequest proposes a slot for an enrollment's next session.
// SessionNth names the ordinal being scheduled; when omitted the position is
// inferred from the enrollment's booked count. Branch overrides the
// enrollment's home branch for the affinity ranking.
type RecommendationRequest struct {
	EnrollmentID string            `json:"enrollment_id" validate:"required"`
	Date         string            `json:"date" validate:"required"`
	StartTime    string            `json:"start_time" validate:"required"`
	EndTime      string            `json:"end_time"`
	WheelNum     models.WheelCount `json:"wheel_num" validate:"omitempty,oneof=2W 3W 4W"`
	SessionNth   int               `json:"session_nth" validate:"omitempty,min=1"`
	Branch       string            `json:"branch_name"`
}

// RecommendationService ranks free resources for a proposed session slot.
// Home-branch candidates lead the list; the main branch substitutes only
// when the home branch has no candidate, and the remainder keeps
// availability order. Seniors lead the instructor list when the slot would
// be the course's first or last session.
type RecommendationService struct {
	availability availabilityProvider
	enrollments  enrollmentReader
	courses      courseReader
	facilities   facilityMapper
	sessions     openSlotReader
	mainBranch   string
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewRecommendationService constructs RecommendationService. mainBranch is
// the fallback partition for cross-branch suggestions.
func NewRecommendationService(availability availabilityProvider, enrollments enrollmentReader, courses courseReader, facilities facilityMapper, sessions openSlotReader, mainBranch string, validate *validator.Validate, logger *zap.Logger) *RecommendationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if mainBranch == "" {
		mainBranch = "Main"
	}
	return &RecommendationService{availability: availability, enrollments: enrollments, courses: courses, facilities: facilities, sessions: sessions, mainBranch: mainBranch, validator: validate, logger: logger}
}

// Recommend returns ranked candidates for the proposed slot. Vehicle and
// classroom lists are mutually exclusive by course category; instructors are
// always populated.
func (s *RecommendationService) Recommend(ctx context.Context, req RecommendationRequest) (dto.ScheduleRecommendation, error) {
	out := dto.Empty()
	if err := s.validator.Struct(req); err != nil {
		return out, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recommendation query")
	}

	enrollment, err := s.enrollments.FindByID(ctx, req.EnrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return out, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return out, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	course, err := s.courses.FindByCode(ctx, enrollment.CourseCode)
	if err != nil {
		return out, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	query := AvailabilityQuery{Date: req.Date, StartTime: req.StartTime, EndTime: req.EndTime}
	home := req.Branch
	if home == "" {
		home = enrollment.Branch
	}

	switch course.CategoryType {
	case models.CategoryPDC:
		vehicles, err := s.recommendVehicles(ctx, query, enrollment, home, req.WheelNum)
		if err != nil {
			return out, err
		}
		out.Vehicles = vehicles
	case models.CategoryTDC:
		classrooms, err := s.recommendClassrooms(ctx, query, home)
		if err != nil {
			return out, err
		}
		out.Classrooms = classrooms
	}

	instructors, err := s.recommendInstructors(ctx, query, enrollment, home, course.CategoryType, req.SessionNth)
	if err != nil {
		return out, err
	}
	out.Instructors = instructors
	return out, nil
}

func (s *RecommendationService) recommendVehicles(ctx context.Context, query AvailabilityQuery, enrollment *models.Enrollment, home string, wheels models.WheelCount) ([]dto.RecommendedResource, error) {
	available, err := s.availability.Vehicles(ctx, query)
	if err != nil {
		return nil, err
	}
	matched := available[:0]
	for _, v := range available {
		if v.Transmission != enrollment.Transmission {
			continue
		}
		if wheels != "" && v.WheelNum != wheels {
			continue
		}
		matched = append(matched, v)
	}
	branches := make([]string, 0, len(matched))
	for _, v := range matched {
		branches = append(branches, v.Branch)
	}
	lead := s.leadBranch(home, branches)
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Branch == lead && matched[j].Branch != lead
	})

	codes := make([]string, 0, len(matched))
	for _, v := range matched {
		codes = append(codes, v.Code)
	}
	ids, err := s.facilities.MapByResourceCodes(ctx, models.FacilityKindVehicle, codes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to map vehicle facilities")
	}

	result := []dto.RecommendedResource{}
	for _, v := range matched {
		resource := dto.RecommendedResource{Code: v.Code, Name: v.DisplayName()}
		if id, ok := ids[v.Code]; ok {
			facilityID := id
			resource.FacilityID = &facilityID
		}
		result = append(result, resource)
	}
	return result, nil
}

func (s *RecommendationService) recommendClassrooms(ctx context.Context, query AvailabilityQuery, home string) ([]dto.RecommendedResource, error) {
	listed, err := s.availability.Classrooms(ctx, query)
	if err != nil {
		return nil, err
	}
	// The listing keeps full rooms for display; candidates need a seat.
	available := listed[:0]
	for _, c := range listed {
		if c.SlotsAvailable > 0 {
			available = append(available, c)
		}
	}
	branches := make([]string, 0, len(available))
	for _, c := range available {
		branches = append(branches, c.Branch)
	}
	lead := s.leadBranch(home, branches)
	sort.SliceStable(available, func(i, j int) bool {
		li, lj := available[i].Branch == lead, available[j].Branch == lead
		if li != lj {
			return li
		}
		// Fuller rooms first so group sessions consolidate.
		return available[i].SlotsAvailable < available[j].SlotsAvailable
	})

	codes := make([]string, 0, len(available))
	for _, c := range available {
		codes = append(codes, c.Code)
	}
	ids, err := s.facilities.MapByResourceCodes(ctx, models.FacilityKindClassroom, codes)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to map classroom facilities")
	}

	result := []dto.RecommendedResource{}
	for _, c := range available {
		resource := dto.RecommendedResource{Code: c.Code, Name: c.DisplayName()}
		if id, ok := ids[c.Code]; ok {
			facilityID := id
			resource.FacilityID = &facilityID
		}
		result = append(result, resource)
	}
	return result, nil
}

func (s *RecommendationService) recommendInstructors(ctx context.Context, query AvailabilityQuery, enrollment *models.Enrollment, home string, category models.CategoryType, sessionNth int) ([]dto.RecommendedResource, error) {
	available, err := s.availability.Instructors(ctx, query)
	if err != nil {
		return nil, err
	}

	seniorFirst := false
	if category == models.CategoryPDC {
		if sessionNth > 0 {
			total := category.RequiredSessions(enrollment.TotalHours)
			seniorFirst = sessionNth == 1 || (total > 0 && sessionNth == total)
		} else if seniorFirst, err = s.slotIsFirstOrLast(ctx, enrollment, category); err != nil {
			return nil, err
		}
	}

	// Seniority reorders the whole pool first; the branch partition is the
	// outer ranking, so a home-branch regular still outranks an outside
	// senior.
	if seniorFirst {
		sort.SliceStable(available, func(i, j int) bool {
			return available[i].IsSenior && !available[j].IsSenior
		})
	}
	branches := make([]string, 0, len(available))
	for _, i := range available {
		branches = append(branches, i.Branch)
	}
	lead := s.leadBranch(home, branches)
	sort.SliceStable(available, func(i, j int) bool {
		return available[i].Branch == lead && available[j].Branch != lead
	})

	result := []dto.RecommendedResource{}
	for _, i := range available {
		result = append(result, dto.RecommendedResource{Code: i.Code, Name: i.DisplayName()})
	}
	return result, nil
}

// slotIsFirstOrLast reports whether the next booked session would open or
// close the practical course, the points where a senior instructor is
// preferred.
func (s *RecommendationService) slotIsFirstOrLast(ctx context.Context, enrollment *models.Enrollment, category models.CategoryType) (bool, error) {
	total := category.RequiredSessions(enrollment.TotalHours)
	if total == 0 {
		return false, nil
	}
	counts, err := s.sessions.CountsForEnrollment(ctx, enrollment.ID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sessions")
	}
	booked := counts.Booked()
	return booked == 0 || booked == total-1, nil
}

// leadBranch picks the branch whose candidates head the list. The main
// branch stands in only when no candidate belongs to the home branch.
func (s *RecommendationService) leadBranch(home string, branches []string) string {
	for _, b := range branches {
		if b == home {
			return home
		}
	}
	return s.mainBranch
}

// OpenTheorySlots lists upcoming theory class slots that still have seats,
// marking those that fall on the enrollment's preferred dates.
func (s *RecommendationService) OpenTheorySlots(ctx context.Context, enrollmentID string) ([]dto.TDCScheduleSlot, error) {
	preferred := map[string]bool{}
	if enrollmentID != "" {
		enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
		}
		for _, d := range enrollment.PreferredDates {
			preferred[d] = true
		}
	}

	today := time.Now().UTC().Format(models.DateLayout)
	raw, err := s.sessions.OpenTDCSlots(ctx, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load theory slots")
	}

	slots := []dto.TDCScheduleSlot{}
	for _, r := range raw {
		free := r.Capacity - r.Scheduled
		if free <= 0 {
			continue
		}
		slots = append(slots, dto.TDCScheduleSlot{
			SessionDate:    r.SessionDate,
			Classroom:      r.Classroom,
			Instructor:     r.InstructorName,
			InstructorCode: r.InstructorCode,
			Capacity:       r.Capacity,
			StartTime:      r.StartTime,
			EndTime:        r.EndTime,
			FacilityID:     r.FacilityID,
			Scheduled:      r.Scheduled,
			AvailableSlots: free,
			IsPreferred:    preferred[r.SessionDate],
		})
	}
	sort.SliceStable(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.IsPreferred != b.IsPreferred {
			return a.IsPreferred
		}
		if a.AvailableSlots != b.AvailableSlots {
			return a.AvailableSlots > b.AvailableSlots
		}
		if a.SessionDate != b.SessionDate {
			return a.SessionDate > b.SessionDate
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		return a.EndTime < b.EndTime
	})
	return slots, nil
}

// MatchTheorySlots finds open theory slots on the enrollment's preferred
// dates so students can join an existing group session.
func (s *RecommendationService) MatchTheorySlots(ctx context.Context, enrollmentID string) (dto.TDCScheduleMatch, error) {
	slots, err := s.OpenTheorySlots(ctx, enrollmentID)
	if err != nil {
		return dto.TDCScheduleMatch{Matches: []dto.TDCScheduleSlot{}}, err
	}
	matches := []dto.TDCScheduleSlot{}
	for _, slot := range slots {
		if slot.IsPreferred {
			matches = append(matches, slot)
		}
	}
	return dto.TDCScheduleMatch{Matches: matches, HasMatch: len(matches) > 0}, nil
}
