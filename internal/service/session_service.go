package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roadready/drivemis-api/internal/models"
	appErrors "github.com/roadready/drivemis-api/pkg/errors"
)

type sessionRepository interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	FindDetailByID(ctx context.Context, id string) (*models.SessionDetail, error)
	ApplySessionChange(ctx context.Context, session *models.Session, derive func(models.SessionCounts) models.EnrollmentStatus) (models.SessionCounts, error)
	BusyResourceCodes(ctx context.Context, kind models.FacilityKind, date, startTime, endTime, excludeSessionID string) ([]string, error)
	BusyInstructorCodes(ctx context.Context, date, startTime, endTime, excludeSessionID string) ([]string, error)
	ClassroomOverlapCounts(ctx context.Context, date, startTime, endTime, excludeSessionID string) (map[string]int, error)
}

type facilityReader interface {
	FindByID(ctx context.Context, id int64) (*models.Facility, error)
}

type instructorReader interface {
	FindByCode(ctx context.Context, code string) (*models.Instructor, error)
}

type enrollmentReader interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
}

type classroomReader interface {
	FindByCode(ctx context.Context, code string) (*models.Classroom, error)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// ScheduleSessionRequest describes session creation payload.
type ScheduleSessionRequest struct {
	EnrollmentID   string `json:"enrollment_id" validate:"required"`
	Date           string `json:"session_date" validate:"required"`
	StartTime      string `json:"start_time" validate:"required"`
	EndTime        string `json:"end_time" validate:"required"`
	InstructorCode string `json:"instructor_code" validate:"required"`
	FacilityID     int64  `json:"facility_id" validate:"required"`
	Nth            string `json:"session_nth" validate:"omitempty,oneof=EXT ASS"`
}

// RescheduleSessionRequest describes session reschedule payload. Only
// scheduled sessions may move.
type RescheduleSessionRequest struct {
	Date           *string `json:"session_date"`
	StartTime      *string `json:"start_time"`
	EndTime        *string `json:"end_time"`
	InstructorCode *string `json:"instructor_code"`
	FacilityID     *int64  `json:"facility_id"`
}

// SessionService runs the scheduling workflow: slot validation, facility and
// instructor conflict checks, and the transactional save cascade that keeps
// ordinals and the parent enrollment status consistent.
type SessionService struct {
	repo        sessionRepository
	enrollments enrollmentReader
	courses     courseReader
	instructors instructorReader
	facilities  facilityReader
	classrooms  classroomReader
	cache       cacheInvalidator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSessionService constructs SessionService.
func NewSessionService(repo sessionRepository, enrollments enrollmentReader, courses courseReader, instructors instructorReader, facilities facilityReader, classrooms classroomReader, cache cacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, enrollments: enrollments, courses: courses, instructors: instructors, facilities: facilities, classrooms: classrooms, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// List returns sessions with pagination metadata.
func (s *SessionService) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, *models.Pagination, error) {
	sessions, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get loads one session with joined display fields.
func (s *SessionService) Get(ctx context.Context, id string) (*models.SessionDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return detail, nil
}

// Schedule books a new session against an enrollment. The whole change is
// applied in one transaction; nothing persists on any validation failure.
func (s *SessionService) Schedule(ctx context.Context, actor models.Actor, req ScheduleSessionRequest) (*models.SessionDetail, error) {
	if !actor.CanSchedule() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to schedule sessions")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}

	slot, err := s.normaliseSlot(req.Date, req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	enrollment, totalSessions, category, err := s.loadEnrollment(ctx, req.EnrollmentID)
	if err != nil {
		return nil, err
	}

	if err := s.checkInstructor(ctx, req.InstructorCode, slot, ""); err != nil {
		return nil, err
	}
	if err := s.checkFacility(ctx, req.FacilityID, category, slot, ""); err != nil {
		return nil, err
	}

	nth := req.Nth
	if nth == "" {
		// Placeholder; the cascade renumbers regular sessions.
		nth = "0"
	}
	facilityID := req.FacilityID
	session := &models.Session{
		ID:             uuid.NewString(),
		Nth:            nth,
		Date:           slot.date,
		StartTime:      slot.start,
		EndTime:        slot.end,
		EnrollmentID:   enrollment.ID,
		InstructorCode: req.InstructorCode,
		FacilityID:     &facilityID,
		Status:         models.SessionScheduled,
	}
	if err := s.applyChange(ctx, session, totalSessions); err != nil {
		return nil, err
	}
	return s.Get(ctx, session.ID)
}

// Reschedule moves a scheduled session to a new slot, instructor or facility.
func (s *SessionService) Reschedule(ctx context.Context, actor models.Actor, id string, req RescheduleSessionRequest) (*models.SessionDetail, error) {
	if !actor.CanSchedule() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to reschedule sessions")
	}
	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionScheduled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "only scheduled sessions can be rescheduled")
	}

	date, start, end := session.Date, session.StartTime, session.EndTime
	if req.Date != nil {
		date = *req.Date
	}
	if req.StartTime != nil {
		start = *req.StartTime
	}
	if req.EndTime != nil {
		end = *req.EndTime
	}
	slot, err := s.normaliseSlot(date, start, end)
	if err != nil {
		return nil, err
	}
	session.Date, session.StartTime, session.EndTime = slot.date, slot.start, slot.end
	if req.InstructorCode != nil {
		session.InstructorCode = *req.InstructorCode
	}
	if req.FacilityID != nil {
		session.FacilityID = req.FacilityID
	}
	if session.FacilityID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session requires a facility")
	}

	_, totalSessions, category, err := s.loadEnrollment(ctx, session.EnrollmentID)
	if err != nil {
		return nil, err
	}

	if err := s.checkInstructor(ctx, session.InstructorCode, slot, session.ID); err != nil {
		return nil, err
	}
	if err := s.checkFacility(ctx, *session.FacilityID, category, slot, session.ID); err != nil {
		return nil, err
	}

	if err := s.applyChange(ctx, session, totalSessions); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// SetStatus transitions a session's outcome. Scheduled sessions may become
// Completed, Missed or Cancelled; any active session may be Archived.
func (s *SessionService) SetStatus(ctx context.Context, actor models.Actor, id string, status models.SessionStatus) (*models.SessionDetail, error) {
	if !actor.CanSchedule() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to modify sessions")
	}
	session, err := s.loadSession(ctx, id)
	if err != nil {
		return nil, err
	}

	switch status {
	case models.SessionCompleted, models.SessionMissed, models.SessionCancelled:
		if session.Status != models.SessionScheduled {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "session outcome is already recorded")
		}
	case models.SessionArchived:
		if session.Status == models.SessionArchived {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "session is already archived")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported session status")
	}

	_, totalSessions, _, err := s.loadEnrollment(ctx, session.EnrollmentID)
	if err != nil {
		return nil, err
	}

	session.Status = status
	if err := s.applyChange(ctx, session, totalSessions); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

type slot struct {
	date  string
	start string
	end   string
}

func (s *SessionService) normaliseSlot(date, start, end string) (slot, error) {
	var out slot
	var err error
	if out.date, err = models.ParseDate(date); err != nil {
		return out, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session date")
	}
	if out.start, err = models.ParseClock(start); err != nil {
		return out, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	if out.end, err = models.ParseClock(end); err != nil {
		return out, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time")
	}
	if out.end <= out.start {
		return out, appErrors.Clone(appErrors.ErrValidation, "end time must come after start time")
	}
	return out, nil
}

func (s *SessionService) loadSession(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

func (s *SessionService) loadEnrollment(ctx context.Context, id string) (*models.Enrollment, int, models.CategoryType, error) {
	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, "", appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, 0, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	switch enrollment.Status {
	case models.EnrollmentArchived, models.EnrollmentForfeited:
		return nil, 0, "", appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment is closed")
	}
	course, err := s.courses.FindByCode(ctx, enrollment.CourseCode)
	if err != nil {
		return nil, 0, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return enrollment, course.CategoryType.RequiredSessions(enrollment.TotalHours), course.CategoryType, nil
}

func (s *SessionService) checkInstructor(ctx context.Context, code string, sl slot, excludeSessionID string) error {
	instructor, err := s.instructors.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	if instructor.Status == models.InstructorStatusArchived || instructor.Status == models.InstructorStatusInactive {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "instructor cannot take sessions")
	}
	busy, err := s.repo.BusyInstructorCodes(ctx, sl.date, sl.start, sl.end, excludeSessionID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check instructor availability")
	}
	for _, b := range busy {
		if b == code {
			return appErrors.Clone(appErrors.ErrConflict, "instructor has an overlapping session")
		}
	}
	return nil
}

// checkFacility verifies the facility exists, matches the course category
// and has room in the slot. Vehicles are exclusive; classrooms admit
// concurrent sessions up to capacity.
func (s *SessionService) checkFacility(ctx context.Context, facilityID int64, category models.CategoryType, sl slot, excludeSessionID string) error {
	facility, err := s.facilities.FindByID(ctx, facilityID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "facility not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load facility")
	}
	if facility.Kind != category.FacilityKindFor() {
		return appErrors.Clone(appErrors.ErrFacilityMismatch, "")
	}

	switch facility.Kind {
	case models.FacilityKindVehicle:
		busy, err := s.repo.BusyResourceCodes(ctx, models.FacilityKindVehicle, sl.date, sl.start, sl.end, excludeSessionID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check vehicle availability")
		}
		for _, b := range busy {
			if b == facility.ResourceCode {
				return appErrors.Clone(appErrors.ErrConflict, "vehicle has an overlapping session")
			}
		}
	case models.FacilityKindClassroom:
		classroom, err := s.classrooms.FindByCode(ctx, facility.ResourceCode)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "classroom not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classroom")
		}
		overlaps, err := s.repo.ClassroomOverlapCounts(ctx, sl.date, sl.start, sl.end, excludeSessionID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check classroom availability")
		}
		if overlaps[facility.ResourceCode] >= classroom.Capacity {
			return appErrors.Clone(appErrors.ErrConflict, "classroom is at capacity for the slot")
		}
	}
	return nil
}

// applyChange runs the save cascade, records the resulting enrollment
// status and drops stale utilization reports.
func (s *SessionService) applyChange(ctx context.Context, session *models.Session, totalSessions int) error {
	var finalStatus models.EnrollmentStatus
	if _, err := s.repo.ApplySessionChange(ctx, session, func(counts models.SessionCounts) models.EnrollmentStatus {
		finalStatus = DeriveEnrollmentStatus(totalSessions, counts)
		return finalStatus
	}); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save session")
	}
	s.metrics.RecordSessionSave(string(finalStatus))
	s.invalidateReports(ctx)
	return nil
}

func (s *SessionService) invalidateReports(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, "utilization:*"); err != nil {
		s.logger.Warn("failed to invalidate utilization cache", zap.Error(err))
	}
}
