package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/db"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/dberrors"
	"github.com/yigit/attendance/internal/pkg/logger"
	"github.com/yigit/attendance/internal/pkg/validation"
)

// BranchRepository handles branch database operations
type BranchRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewBranchRepository creates a new BranchRepository
func NewBranchRepository(conn db.DBTX) *BranchRepository {
	return &BranchRepository{db: conn, sb: statementBuilder()}
}

var branchColumns = []string{"id", "name", "program_id", "created_at"}

func scanBranch(row interface{ Scan(...any) error }) (*models.Branch, error) {
	b := &models.Branch{}
	if err := row.Scan(&b.ID, &b.Name, &b.ProgramID, &b.CreatedAt); err != nil {
		return nil, err
	}
	if err := validation.Record(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Create inserts a branch. Names are unique per program.
func (r *BranchRepository) Create(ctx context.Context, b *models.Branch) error {
	sql, args, err := r.sb.Insert("branches").
		Columns("id", "name", "program_id").
		Values(b.ID, b.Name, b.ProgramID).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create branch query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&b.CreatedAt); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrBranchAlreadyExists
		}
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrProgramNotFound
		}
		logger.Error().Err(err).Str("programID", b.ProgramID).Msg("Error creating branch")
		return fmt.Errorf("error creating branch: %w", err)
	}
	return nil
}

// GetByID retrieves a branch by ID
func (r *BranchRepository) GetByID(ctx context.Context, id string) (*models.Branch, error) {
	sql, args, err := r.sb.Select(branchColumns...).From("branches").Where(squirrel.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get branch query: %w", err)
	}

	b, err := scanBranch(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrBranchNotFound
		}
		return nil, fmt.Errorf("error getting branch: %w", err)
	}
	return b, nil
}

// ListByProgram returns a program's branches ordered by name
func (r *BranchRepository) ListByProgram(ctx context.Context, programID string) ([]*models.Branch, error) {
	sql, args, err := r.sb.Select(branchColumns...).
		From("branches").
		Where(squirrel.Eq{"program_id": programID}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list branches query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying branches: %w", err)
	}
	defer rows.Close()

	branches := []*models.Branch{}
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning branch row: %w", err)
		}
		branches = append(branches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating branch rows: %w", err)
	}
	return branches, nil
}

// Update renames a branch
func (r *BranchRepository) Update(ctx context.Context, b *models.Branch) error {
	sql, args, err := r.sb.Update("branches").Set("name", b.Name).Where(squirrel.Eq{"id": b.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update branch query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrBranchAlreadyExists
		}
		return fmt.Errorf("error updating branch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrBranchNotFound
	}
	return nil
}

// Delete removes the branch; years and below cascade.
func (r *BranchRepository) Delete(ctx context.Context, id string) error {
	sql, args, err := r.sb.Delete("branches").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete branch query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting branch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrBranchNotFound
	}
	return nil
}
