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

// ClassroomRepository provides persistence for classrooms and their facility
// handles.
type ClassroomRepository struct {
	db *sqlx.DB
}

// NewClassroomRepository creates a new classroom repository.
func NewClassroomRepository(db *sqlx.DB) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

const classroomColumns = `classroom_code, capacity, branch_name, status, created_at, updated_at`

// List returns non-archived classrooms with optional filtering.
func (r *ClassroomRepository) List(ctx context.Context, filter models.ClassroomFilter) ([]models.Classroom, int, error) {
	base := "FROM classrooms WHERE status <> 'Archived'"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY classroom_code ASC LIMIT %d OFFSET %d", classroomColumns, base, size, offset)
	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classrooms: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classrooms: %w", err)
	}

	return classrooms, total, nil
}

// ListUsable returns classrooms eligible for scheduling (neither archived nor
// unavailable), optionally scoped to a branch.
func (r *ClassroomRepository) ListUsable(ctx context.Context, branch string) ([]models.Classroom, error) {
	query := fmt.Sprintf("SELECT %s FROM classrooms WHERE status NOT IN ('Archived', 'Unavailable')", classroomColumns)
	var args []interface{}
	if branch != "" {
		query += " AND branch_name = $1"
		args = append(args, branch)
	}
	query += " ORDER BY classroom_code ASC"

	var classrooms []models.Classroom
	if err := r.db.SelectContext(ctx, &classrooms, query, args...); err != nil {
		return nil, fmt.Errorf("list usable classrooms: %w", err)
	}
	return classrooms, nil
}

// FindByCode loads a classroom by code.
func (r *ClassroomRepository) FindByCode(ctx context.Context, code string) (*models.Classroom, error) {
	query := fmt.Sprintf("SELECT %s FROM classrooms WHERE classroom_code = $1", classroomColumns)
	var classroom models.Classroom
	if err := r.db.GetContext(ctx, &classroom, query, code); err != nil {
		return nil, err
	}
	return &classroom, nil
}

// Exists reports whether a classroom code is already taken.
func (r *ClassroomRepository) Exists(ctx context.Context, code string) (bool, error) {
	var one int
	err := r.db.GetContext(ctx, &one, `SELECT 1 FROM classrooms WHERE classroom_code = $1 LIMIT 1`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("classroom code exists: %w", err)
	}
	return true, nil
}

// Create stores a new classroom and its facility handle in one transaction.
func (r *ClassroomRepository) Create(ctx context.Context, classroom *models.Classroom) error {
	now := time.Now().UTC()
	classroom.CreatedAt = now
	classroom.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create classroom: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO classrooms (classroom_code, capacity, branch_name, status, created_at, updated_at) VALUES (:classroom_code, :capacity, :branch_name, :status, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, classroom); err != nil {
		if isUniqueViolation(err) {
			err = fmt.Errorf("create classroom %s: %w", classroom.Code, ErrDuplicate)
			return err
		}
		err = fmt.Errorf("create classroom: %w", err)
		return err
	}

	if err = insertFacility(ctx, tx, models.FacilityKindClassroom, classroom.Code); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create classroom: %w", err)
	}
	return nil
}

// Update modifies a classroom record.
func (r *ClassroomRepository) Update(ctx context.Context, classroom *models.Classroom) error {
	classroom.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classrooms SET capacity = :capacity, branch_name = :branch_name, status = :status, updated_at = :updated_at WHERE classroom_code = :classroom_code`
	if _, err := r.db.NamedExecContext(ctx, query, classroom); err != nil {
		return fmt.Errorf("update classroom: %w", err)
	}
	return nil
}

// Archive soft-deletes a classroom.
func (r *ClassroomRepository) Archive(ctx context.Context, code string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE classrooms SET status = 'Archived', updated_at = $2 WHERE classroom_code = $1`, code, time.Now().UTC()); err != nil {
		return fmt.Errorf("archive classroom: %w", err)
	}
	return nil
}

// Delete removes the classroom and its facility handle in one transaction.
func (r *ClassroomRepository) Delete(ctx context.Context, code string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete classroom: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = deleteFacility(ctx, tx, models.FacilityKindClassroom, code); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM classrooms WHERE classroom_code = $1`, code); err != nil {
		err = fmt.Errorf("delete classroom: %w", err)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete classroom: %w", err)
	}
	return nil
}
