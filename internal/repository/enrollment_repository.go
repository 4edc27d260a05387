package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/roadready/drivemis-api/internal/models"
)

// EnrollmentRepository provides persistence for enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository creates a new enrollment repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentDetailColumns = `e.enrollment_id, e.enrollment_date, e.branch_name, e.student_code, e.course_code, e.transmission_type, e.total_hours, e.preferred_dates, e.remarks, e.status, e.created_at, e.updated_at,
	st.first_name AS student_name, c.course_name, cc.category_type,
	(SELECT COUNT(*) FROM sessions s WHERE s.enrollment_id = e.enrollment_id AND s.status IN ('Scheduled', 'Completed')) AS booked_sessions,
	(SELECT COUNT(*) FROM sessions s WHERE s.enrollment_id = e.enrollment_id AND s.status = 'Completed') AS completed_sessions`

const enrollmentDetailJoins = `FROM enrollments e
	JOIN students st ON st.student_code = e.student_code
	JOIN courses c ON c.course_code = e.course_code
	JOIN course_categories cc ON cc.category_code = c.category_code`

// List returns non-archived enrollments joined with display fields.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := enrollmentDetailJoins + " WHERE e.status <> 'Archived'"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.CategoryType != "" {
		conditions = append(conditions, fmt.Sprintf("cc.category_type = $%d", len(args)+1))
		args = append(args, filter.CategoryType)
	}
	if filter.Branch != "" {
		conditions = append(conditions, fmt.Sprintf("e.branch_name = $%d", len(args)+1))
		args = append(args, filter.Branch)
	}
	if filter.StudentCode != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_code = $%d", len(args)+1))
		args = append(args, filter.StudentCode)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY e.enrollment_date ASC, e.enrollment_id ASC LIMIT %d OFFSET %d", enrollmentDetailColumns, base, size, offset)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}

	return enrollments, total, nil
}

// FindByID loads an enrollment by id.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT enrollment_id, enrollment_date, branch_name, student_code, course_code, transmission_type, total_hours, preferred_dates, remarks, status, created_at, updated_at FROM enrollments WHERE enrollment_id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID loads an enrollment with display fields and session counts.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE e.enrollment_id = $1", enrollmentDetailColumns, enrollmentDetailJoins)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Exists reports whether an enrollment id is already taken.
func (r *EnrollmentRepository) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.GetContext(ctx, &one, `SELECT 1 FROM enrollments WHERE enrollment_id = $1 LIMIT 1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("enrollment id exists: %w", err)
	}
	return true, nil
}

// Create stores a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	now := time.Now().UTC()
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now

	const query = `INSERT INTO enrollments (enrollment_id, enrollment_date, branch_name, student_code, course_code, transmission_type, total_hours, preferred_dates, remarks, status, created_at, updated_at) VALUES (:enrollment_id, :enrollment_date, :branch_name, :student_code, :course_code, :transmission_type, :total_hours, :preferred_dates, :remarks, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create enrollment %s: %w", enrollment.ID, ErrDuplicate)
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Update modifies enrollment fields. Status is deliberately excluded; only
// the status engine may write it, through UpdateStatus.
func (r *EnrollmentRepository) Update(ctx context.Context, enrollment *models.Enrollment) error {
	enrollment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enrollments SET enrollment_date = :enrollment_date, branch_name = :branch_name, student_code = :student_code, course_code = :course_code, transmission_type = :transmission_type, total_hours = :total_hours, preferred_dates = :preferred_dates, remarks = :remarks, updated_at = :updated_at WHERE enrollment_id = :enrollment_id`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	return nil
}

// UpdateStatus writes the derived lifecycle status.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE enrollments SET status = $2, updated_at = $3 WHERE enrollment_id = $1`, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// ListByStudent returns every non-archived enrollment for a student,
// newest first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentCode string) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE e.status <> 'Archived' AND e.student_code = $1 ORDER BY e.enrollment_date DESC, e.enrollment_id DESC", enrollmentDetailColumns, enrollmentDetailJoins)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, studentCode); err != nil {
		return nil, fmt.Errorf("list enrollments by student: %w", err)
	}
	return enrollments, nil
}

// Archive soft-deletes an enrollment.
func (r *EnrollmentRepository) Archive(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE enrollments SET status = 'Archived', updated_at = $2 WHERE enrollment_id = $1`, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("archive enrollment: %w", err)
	}
	return nil
}
