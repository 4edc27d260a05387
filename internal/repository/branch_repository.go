package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/roadready/drivemis-api/internal/models"
)

// BranchRepository provides persistence for branches.
type BranchRepository struct {
	db *sqlx.DB
}

// NewBranchRepository creates a new branch repository.
func NewBranchRepository(db *sqlx.DB) *BranchRepository {
	return &BranchRepository{db: db}
}

// List returns non-archived branches with pagination.
func (r *BranchRepository) List(ctx context.Context, filter models.BranchFilter) ([]models.Branch, int, error) {
	base := "FROM branches WHERE status <> 'Archived'"
	var conditions []string
	var args []interface{}

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

	query := fmt.Sprintf("SELECT branch_name, branch_address, status, created_at, updated_at %s ORDER BY branch_name ASC LIMIT %d OFFSET %d", base, size, offset)
	var branches []models.Branch
	if err := r.db.SelectContext(ctx, &branches, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list branches: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count branches: %w", err)
	}

	return branches, total, nil
}

// FindByName loads a branch by its name key.
func (r *BranchRepository) FindByName(ctx context.Context, name string) (*models.Branch, error) {
	const query = `SELECT branch_name, branch_address, status, created_at, updated_at FROM branches WHERE branch_name = $1`
	var branch models.Branch
	if err := r.db.GetContext(ctx, &branch, query, name); err != nil {
		return nil, err
	}
	return &branch, nil
}

// Create stores a new branch record.
func (r *BranchRepository) Create(ctx context.Context, branch *models.Branch) error {
	now := time.Now().UTC()
	branch.CreatedAt = now
	branch.UpdatedAt = now

	const query = `INSERT INTO branches (branch_name, branch_address, status, created_at, updated_at) VALUES (:branch_name, :branch_address, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, branch); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create branch %s: %w", branch.Name, ErrDuplicate)
		}
		return fmt.Errorf("create branch: %w", err)
	}
	return nil
}

// Update modifies a branch record.
func (r *BranchRepository) Update(ctx context.Context, branch *models.Branch) error {
	branch.UpdatedAt = time.Now().UTC()
	const query = `UPDATE branches SET branch_address = :branch_address, status = :status, updated_at = :updated_at WHERE branch_name = :branch_name`
	if _, err := r.db.NamedExecContext(ctx, query, branch); err != nil {
		return fmt.Errorf("update branch: %w", err)
	}
	return nil
}

// Archive soft-deletes a branch.
func (r *BranchRepository) Archive(ctx context.Context, name string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE branches SET status = 'Archived', updated_at = $2 WHERE branch_name = $1`, name, time.Now().UTC()); err != nil {
		return fmt.Errorf("archive branch: %w", err)
	}
	return nil
}
