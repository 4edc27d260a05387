package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/roadready/drivemis-api/internal/models"
)

// SessionRepository provides persistence for training sessions, including the
// transactional save cascade that keeps sibling ordinals and the parent
// enrollment status consistent.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionDetailColumns = `s.session_id, s.session_nth, s.session_date, s.start_time, s.end_time, s.enrollment_id, s.instructor_code, s.facility_id, s.status, s.created_at, s.updated_at,
	e.course_code, c.course_name, cc.category_type, e.student_code, st.first_name AS student_name, e.branch_name,
	i.first_name AS instructor_name,
	COALESCE(f.facility_kind, '') AS facility_kind, COALESCE(f.resource_code, '') AS facility_code`

const sessionDetailJoins = `FROM sessions s
	JOIN enrollments e ON e.enrollment_id = s.enrollment_id
	JOIN courses c ON c.course_code = e.course_code
	JOIN course_categories cc ON cc.category_code = c.category_code
	JOIN students st ON st.student_code = e.student_code
	JOIN instructors i ON i.instructor_code = s.instructor_code
	LEFT JOIN facilities f ON f.id = s.facility_id`

// List returns non-archived sessions joined with display fields.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.SessionDetail, int, error) {
	base := sessionDetailJoins + " WHERE s.status <> 'Archived'"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("s.session_date = $%d", len(args)+1))
		args = append(args, filter.Date)
	}
	if filter.Month >= 1 && filter.Month <= 12 && filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("s.session_date LIKE $%d", len(args)+1))
		args = append(args, fmt.Sprintf("%04d-%02d-%%", filter.Year, filter.Month))
	}
	if filter.Branch != "" {
		conditions = append(conditions, fmt.Sprintf("e.branch_name = $%d", len(args)+1))
		args = append(args, filter.Branch)
	}
	if filter.EnrollmentID != "" {
		conditions = append(conditions, fmt.Sprintf("s.enrollment_id = $%d", len(args)+1))
		args = append(args, filter.EnrollmentID)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY s.session_date ASC, s.start_time ASC, s.session_id ASC LIMIT %d OFFSET %d", sessionDetailColumns, base, size, offset)
	var sessions []models.SessionDetail
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	return sessions, total, nil
}

// FindByID loads a session by id.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	const query = `SELECT session_id, session_nth, session_date, start_time, end_time, enrollment_id, instructor_code, facility_id, status, created_at, updated_at FROM sessions WHERE session_id = $1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// FindDetailByID loads a session with its joined display fields.
func (r *SessionRepository) FindDetailByID(ctx context.Context, id string) (*models.SessionDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.session_id = $1", sessionDetailColumns, sessionDetailJoins)
	var detail models.SessionDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CountsForEnrollment aggregates an enrollment's sessions by status,
// excluding archived rows.
func (r *SessionRepository) CountsForEnrollment(ctx context.Context, enrollmentID string) (models.SessionCounts, error) {
	return sessionCounts(ctx, r.db, enrollmentID)
}

func sessionCounts(ctx context.Context, q sqlx.QueryerContext, enrollmentID string) (models.SessionCounts, error) {
	const query = `SELECT
		COUNT(*) FILTER (WHERE status = 'Scheduled') AS scheduled,
		COUNT(*) FILTER (WHERE status = 'Completed') AS completed,
		COUNT(*) FILTER (WHERE status = 'Missed') AS missed,
		COUNT(*) FILTER (WHERE status = 'Cancelled') AS cancelled
	FROM sessions WHERE enrollment_id = $1 AND status <> 'Archived'`
	var counts models.SessionCounts
	if err := sqlx.GetContext(ctx, q, &counts, query, enrollmentID); err != nil {
		return models.SessionCounts{}, fmt.Errorf("count enrollment sessions: %w", err)
	}
	return counts, nil
}

// ApplySessionChange runs the save cascade in a single transaction: the
// session row is upserted, sibling ordinals are recomputed across the
// enrollment's active sessions ordered by date and start time, and the parent
// enrollment status is rewritten from the fresh counts via derive. Nothing is
// persisted if any step fails.
func (r *SessionRepository) ApplySessionChange(ctx context.Context, session *models.Session, derive func(models.SessionCounts) models.EnrollmentStatus) (models.SessionCounts, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.SessionCounts{}, fmt.Errorf("begin session change: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const upsert = `INSERT INTO sessions (session_id, session_nth, session_date, start_time, end_time, enrollment_id, instructor_code, facility_id, status, created_at, updated_at)
		VALUES (:session_id, :session_nth, :session_date, :start_time, :end_time, :enrollment_id, :instructor_code, :facility_id, :status, :created_at, :updated_at)
		ON CONFLICT (session_id) DO UPDATE SET
			session_nth = EXCLUDED.session_nth,
			session_date = EXCLUDED.session_date,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			instructor_code = EXCLUDED.instructor_code,
			facility_id = EXCLUDED.facility_id,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at`
	if _, err := tx.NamedExecContext(ctx, upsert, session); err != nil {
		return models.SessionCounts{}, fmt.Errorf("save session: %w", err)
	}

	// Extension and assessment sessions keep their marker; every other
	// active session is renumbered 1..N by chronological position.
	const renumber = `UPDATE sessions s SET session_nth = ranked.rn::text FROM (
			SELECT session_id, ROW_NUMBER() OVER (ORDER BY session_date ASC, start_time ASC, session_id ASC) AS rn
			FROM sessions
			WHERE enrollment_id = $1 AND status IN ('Scheduled', 'Completed') AND session_nth NOT IN ($2, $3)
		) ranked WHERE s.session_id = ranked.session_id`
	if _, err := tx.ExecContext(ctx, renumber, session.EnrollmentID, models.SessionNthExtension, models.SessionNthAssessment); err != nil {
		return models.SessionCounts{}, fmt.Errorf("renumber sessions: %w", err)
	}

	counts, err := sessionCounts(ctx, tx, session.EnrollmentID)
	if err != nil {
		return models.SessionCounts{}, err
	}

	status := derive(counts)
	if _, err := tx.ExecContext(ctx, `UPDATE enrollments SET status = $2, updated_at = $3 WHERE enrollment_id = $1`, session.EnrollmentID, status, now); err != nil {
		return models.SessionCounts{}, fmt.Errorf("update enrollment status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.SessionCounts{}, fmt.Errorf("commit session change: %w", err)
	}
	return counts, nil
}

// BusyResourceCodes returns the resource codes of the given facility kind
// occupied by an overlapping session on the date. Overlap is strict: touching
// boundaries do not conflict.
func (r *SessionRepository) BusyResourceCodes(ctx context.Context, kind models.FacilityKind, date, startTime, endTime, excludeSessionID string) ([]string, error) {
	const query = `SELECT DISTINCT f.resource_code FROM sessions s
		JOIN facilities f ON f.id = s.facility_id
		WHERE f.facility_kind = $1 AND s.session_date = $2
			AND s.status IN ('Scheduled', 'Completed')
			AND s.start_time < $4 AND s.end_time > $3
			AND s.session_id <> $5`
	var codes []string
	if err := r.db.SelectContext(ctx, &codes, query, kind, date, startTime, endTime, excludeSessionID); err != nil {
		return nil, fmt.Errorf("busy %s codes: %w", strings.ToLower(string(kind)), err)
	}
	return codes, nil
}

// BusyInstructorCodes returns the instructor codes occupied by an overlapping
// session on the date.
func (r *SessionRepository) BusyInstructorCodes(ctx context.Context, date, startTime, endTime, excludeSessionID string) ([]string, error) {
	const query = `SELECT DISTINCT s.instructor_code FROM sessions s
		WHERE s.session_date = $1
			AND s.status IN ('Scheduled', 'Completed')
			AND s.start_time < $3 AND s.end_time > $2
			AND s.session_id <> $4`
	var codes []string
	if err := r.db.SelectContext(ctx, &codes, query, date, startTime, endTime, excludeSessionID); err != nil {
		return nil, fmt.Errorf("busy instructor codes: %w", err)
	}
	return codes, nil
}

// ClassroomOverlapCounts maps classroom resource codes to the number of
// sessions overlapping the slot. Classrooms absent from the map are free.
func (r *SessionRepository) ClassroomOverlapCounts(ctx context.Context, date, startTime, endTime, excludeSessionID string) (map[string]int, error) {
	const query = `SELECT f.resource_code AS code, COUNT(*) AS sessions FROM sessions s
		JOIN facilities f ON f.id = s.facility_id
		WHERE f.facility_kind = $1 AND s.session_date = $2
			AND s.status IN ('Scheduled', 'Completed')
			AND s.start_time < $4 AND s.end_time > $3
			AND s.session_id <> $5
		GROUP BY f.resource_code`
	var rows []struct {
		Code     string `db:"code"`
		Sessions int    `db:"sessions"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, models.FacilityKindClassroom, date, startTime, endTime, excludeSessionID); err != nil {
		return nil, fmt.Errorf("classroom overlap counts: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Code] = row.Sessions
	}
	return counts, nil
}

// UtilizationLoad is an aggregated session count for one resource and course
// category inside a reporting window.
type UtilizationLoad struct {
	Code         string              `db:"code"`
	CategoryType models.CategoryType `db:"category_type"`
	Sessions     int                 `db:"sessions"`
}

// InstructorLoads aggregates active session counts per instructor and
// category over an inclusive date range.
func (r *SessionRepository) InstructorLoads(ctx context.Context, startDate, endDate string) ([]UtilizationLoad, error) {
	const query = `SELECT s.instructor_code AS code, cc.category_type, COUNT(*) AS sessions FROM sessions s
		JOIN enrollments e ON e.enrollment_id = s.enrollment_id
		JOIN courses c ON c.course_code = e.course_code
		JOIN course_categories cc ON cc.category_code = c.category_code
		WHERE s.status IN ('Scheduled', 'Completed')
			AND s.session_date >= $1 AND s.session_date <= $2
		GROUP BY s.instructor_code, cc.category_type`
	var loads []UtilizationLoad
	if err := r.db.SelectContext(ctx, &loads, query, startDate, endDate); err != nil {
		return nil, fmt.Errorf("instructor loads: %w", err)
	}
	return loads, nil
}

// FacilityLoads aggregates active session counts per facility resource code
// and category over an inclusive date range.
func (r *SessionRepository) FacilityLoads(ctx context.Context, kind models.FacilityKind, startDate, endDate string) ([]UtilizationLoad, error) {
	const query = `SELECT f.resource_code AS code, cc.category_type, COUNT(*) AS sessions FROM sessions s
		JOIN facilities f ON f.id = s.facility_id
		JOIN enrollments e ON e.enrollment_id = s.enrollment_id
		JOIN courses c ON c.course_code = e.course_code
		JOIN course_categories cc ON cc.category_code = c.category_code
		WHERE f.facility_kind = $1 AND s.status IN ('Scheduled', 'Completed')
			AND s.session_date >= $2 AND s.session_date <= $3
		GROUP BY f.resource_code, cc.category_type`
	var loads []UtilizationLoad
	if err := r.db.SelectContext(ctx, &loads, query, kind, startDate, endDate); err != nil {
		return nil, fmt.Errorf("facility loads: %w", err)
	}
	return loads, nil
}

// OpenTDCSlot is one scheduled theory class slot with its headcount, before
// capacity math is applied.
type OpenTDCSlot struct {
	SessionDate    string `db:"session_date"`
	StartTime      string `db:"start_time"`
	EndTime        string `db:"end_time"`
	FacilityID     int64  `db:"facility_id"`
	Classroom      string `db:"classroom"`
	Capacity       int    `db:"capacity"`
	InstructorCode string `db:"instructor_code"`
	InstructorName string `db:"instructor_name"`
	Scheduled      int    `db:"scheduled"`
}

// OpenTDCSlots returns upcoming theory class slots grouped by date, time,
// classroom and instructor, with the number of students already scheduled.
func (r *SessionRepository) OpenTDCSlots(ctx context.Context, fromDate string) ([]OpenTDCSlot, error) {
	const query = `SELECT s.session_date, s.start_time, s.end_time, f.id AS facility_id, f.resource_code AS classroom,
			cl.capacity, s.instructor_code, i.first_name AS instructor_name, COUNT(*) AS scheduled
		FROM sessions s
		JOIN facilities f ON f.id = s.facility_id AND f.facility_kind = $1
		JOIN classrooms cl ON cl.classroom_code = f.resource_code
		JOIN instructors i ON i.instructor_code = s.instructor_code
		JOIN enrollments e ON e.enrollment_id = s.enrollment_id
		JOIN courses c ON c.course_code = e.course_code
		JOIN course_categories cc ON cc.category_code = c.category_code
		WHERE cc.category_type = $2 AND s.status = 'Scheduled' AND s.session_date >= $3
		GROUP BY s.session_date, s.start_time, s.end_time, f.id, f.resource_code, cl.capacity, s.instructor_code, i.first_name
		ORDER BY s.session_date ASC, s.start_time ASC`
	var slots []OpenTDCSlot
	if err := r.db.SelectContext(ctx, &slots, query, models.FacilityKindClassroom, models.CategoryTDC, fromDate); err != nil {
		return nil, fmt.Errorf("open theory slots: %w", err)
	}
	return slots, nil
}

// ListByStudent returns a student's non-archived sessions ordered by
// enrollment then chronology, ready for grouping.
func (r *SessionRepository) ListByStudent(ctx context.Context, studentCode string) ([]models.SessionDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE s.status <> 'Archived' AND e.student_code = $1 ORDER BY s.enrollment_id ASC, s.session_date ASC, s.start_time ASC", sessionDetailColumns, sessionDetailJoins)
	var sessions []models.SessionDetail
	if err := r.db.SelectContext(ctx, &sessions, query, studentCode); err != nil {
		return nil, fmt.Errorf("list sessions by student: %w", err)
	}
	return sessions, nil
}
