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

// InstructorRepository provides persistence for instructors.
type InstructorRepository struct {
	db *sqlx.DB
}

// NewInstructorRepository creates a new instructor repository.
func NewInstructorRepository(db *sqlx.DB) *InstructorRepository {
	return &InstructorRepository{db: db}
}

const instructorColumns = `instructor_code, first_name, last_name, user_id, is_senior, branch_name, status, created_at, updated_at`

// List returns non-archived instructors with optional filtering.
func (r *InstructorRepository) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, int, error) {
	base := "FROM instructors WHERE status <> 'Archived'"
	var conditions []string
	var args []interface{}

	if filter.Branch != "" {
		conditions = append(conditions, fmt.Sprintf("branch_name = $%d", len(args)+1))
		args = append(args, filter.Branch)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY instructor_code ASC LIMIT %d OFFSET %d", instructorColumns, base, size, offset)
	var instructors []models.Instructor
	if err := r.db.SelectContext(ctx, &instructors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list instructors: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count instructors: %w", err)
	}

	return instructors, total, nil
}

// ListTeachable returns instructors eligible for assignment (neither archived
// nor inactive), optionally scoped to a branch.
func (r *InstructorRepository) ListTeachable(ctx context.Context, branch string) ([]models.Instructor, error) {
	query := fmt.Sprintf("SELECT %s FROM instructors WHERE status NOT IN ('Archived', 'Inactive')", instructorColumns)
	var args []interface{}
	if branch != "" {
		query += " AND branch_name = $1"
		args = append(args, branch)
	}
	query += " ORDER BY instructor_code ASC"

	var instructors []models.Instructor
	if err := r.db.SelectContext(ctx, &instructors, query, args...); err != nil {
		return nil, fmt.Errorf("list teachable instructors: %w", err)
	}
	return instructors, nil
}

// FindByCode loads an instructor by code.
func (r *InstructorRepository) FindByCode(ctx context.Context, code string) (*models.Instructor, error) {
	query := fmt.Sprintf("SELECT %s FROM instructors WHERE instructor_code = $1", instructorColumns)
	var instructor models.Instructor
	if err := r.db.GetContext(ctx, &instructor, query, code); err != nil {
		return nil, err
	}
	return &instructor, nil
}

// Exists reports whether an instructor code is already taken.
func (r *InstructorRepository) Exists(ctx context.Context, code string) (bool, error) {
	var one int
	err := r.db.GetContext(ctx, &one, `SELECT 1 FROM instructors WHERE instructor_code = $1 LIMIT 1`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("instructor code exists: %w", err)
	}
	return true, nil
}

// Create stores a new instructor record.
func (r *InstructorRepository) Create(ctx context.Context, instructor *models.Instructor) error {
	now := time.Now().UTC()
	instructor.CreatedAt = now
	instructor.UpdatedAt = now

	const query = `INSERT INTO instructors (instructor_code, first_name, last_name, user_id, is_senior, branch_name, status, created_at, updated_at) VALUES (:instructor_code, :first_name, :last_name, :user_id, :is_senior, :branch_name, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, instructor); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create instructor %s: %w", instructor.Code, ErrDuplicate)
		}
		return fmt.Errorf("create instructor: %w", err)
	}
	return nil
}

// Update modifies an instructor record.
func (r *InstructorRepository) Update(ctx context.Context, instructor *models.Instructor) error {
	instructor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE instructors SET first_name = :first_name, last_name = :last_name, user_id = :user_id, is_senior = :is_senior, branch_name = :branch_name, status = :status, updated_at = :updated_at WHERE instructor_code = :instructor_code`
	if _, err := r.db.NamedExecContext(ctx, query, instructor); err != nil {
		return fmt.Errorf("update instructor: %w", err)
	}
	return nil
}

// Archive soft-deletes an instructor.
func (r *InstructorRepository) Archive(ctx context.Context, code string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE instructors SET status = 'Archived', updated_at = $2 WHERE instructor_code = $1`, code, time.Now().UTC()); err != nil {
		return fmt.Errorf("archive instructor: %w", err)
	}
	return nil
}
