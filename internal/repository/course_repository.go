package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/roadready/drivemis-api/internal/models"
)

// CourseRepository provides persistence for courses and course categories.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates a new course repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// ListCategories returns all course categories.
func (r *CourseRepository) ListCategories(ctx context.Context) ([]models.CourseCategory, error) {
	const query = `SELECT category_code, category_name, category_type FROM course_categories ORDER BY category_code ASC`
	var categories []models.CourseCategory
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list course categories: %w", err)
	}
	return categories, nil
}

// FindCategory loads a course category by code.
func (r *CourseRepository) FindCategory(ctx context.Context, code string) (*models.CourseCategory, error) {
	const query = `SELECT category_code, category_name, category_type FROM course_categories WHERE category_code = $1`
	var category models.CourseCategory
	if err := r.db.GetContext(ctx, &category, query, code); err != nil {
		return nil, err
	}
	return &category, nil
}

// CreateCategory stores a new course category.
func (r *CourseRepository) CreateCategory(ctx context.Context, category *models.CourseCategory) error {
	const query = `INSERT INTO course_categories (category_code, category_name, category_type) VALUES (:category_code, :category_name, :category_type)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create course category %s: %w", category.Code, ErrDuplicate)
		}
		return fmt.Errorf("create course category: %w", err)
	}
	return nil
}

const courseDetailColumns = `c.course_code, c.course_name, c.category_code, c.course_description, c.status, c.created_at, c.updated_at, cc.category_name, cc.category_type`

// List returns non-archived courses joined with their category.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	base := "FROM courses c JOIN course_categories cc ON cc.category_code = c.category_code WHERE c.status <> 'Archived'"
	var conditions []string
	var args []interface{}

	if filter.CategoryType != "" {
		conditions = append(conditions, fmt.Sprintf("cc.category_type = $%d", len(args)+1))
		args = append(args, filter.CategoryType)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", len(args)+1))
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY c.course_code ASC LIMIT %d OFFSET %d", courseDetailColumns, base, size, offset)
	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}

	return courses, total, nil
}

// FindByCode loads a course with its category by code.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.CourseDetail, error) {
	query := fmt.Sprintf("SELECT %s FROM courses c JOIN course_categories cc ON cc.category_code = c.category_code WHERE c.course_code = $1", courseDetailColumns)
	var course models.CourseDetail
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		return nil, err
	}
	return &course, nil
}

// Create stores a new course record.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now

	const query = `INSERT INTO courses (course_code, course_name, category_code, course_description, status, created_at, updated_at) VALUES (:course_code, :course_name, :category_code, :course_description, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create course %s: %w", course.Code, ErrDuplicate)
		}
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update modifies a course record.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET course_name = :course_name, category_code = :category_code, course_description = :course_description, status = :status, updated_at = :updated_at WHERE course_code = :course_code`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// Archive soft-deletes a course.
func (r *CourseRepository) Archive(ctx context.Context, code string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE courses SET status = 'Archived', updated_at = $2 WHERE course_code = $1`, code, time.Now().UTC()); err != nil {
		return fmt.Errorf("archive course: %w", err)
	}
	return nil
}
