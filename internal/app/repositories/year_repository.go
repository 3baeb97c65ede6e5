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

// YearRepository handles study year database operations
type YearRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewYearRepository creates a new YearRepository
func NewYearRepository(conn db.DBTX) *YearRepository {
	return &YearRepository{db: conn, sb: statementBuilder()}
}

var yearColumns = []string{"id", "year_number", "branch_id", "created_at"}

func scanYear(row interface{ Scan(...any) error }) (*models.Year, error) {
	y := &models.Year{}
	if err := row.Scan(&y.ID, &y.YearNumber, &y.BranchID, &y.CreatedAt); err != nil {
		return nil, err
	}
	if err := validation.Record(y); err != nil {
		return nil, err
	}
	return y, nil
}

// Create inserts a year. Year numbers are unique per branch.
func (r *YearRepository) Create(ctx context.Context, y *models.Year) error {
	sql, args, err := r.sb.Insert("years").
		Columns("id", "year_number", "branch_id").
		Values(y.ID, y.YearNumber, y.BranchID).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create year query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&y.CreatedAt); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrYearAlreadyExists
		}
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrBranchNotFound
		}
		logger.Error().Err(err).Str("branchID", y.BranchID).Msg("Error creating year")
		return fmt.Errorf("error creating year: %w", err)
	}
	return nil
}

// GetByID retrieves a year by ID
func (r *YearRepository) GetByID(ctx context.Context, id string) (*models.Year, error) {
	sql, args, err := r.sb.Select(yearColumns...).From("years").Where(squirrel.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get year query: %w", err)
	}

	y, err := scanYear(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrYearNotFound
		}
		return nil, fmt.Errorf("error getting year: %w", err)
	}
	return y, nil
}

// ListByBranch returns a branch's years in ascending order
func (r *YearRepository) ListByBranch(ctx context.Context, branchID string) ([]*models.Year, error) {
	sql, args, err := r.sb.Select(yearColumns...).
		From("years").
		Where(squirrel.Eq{"branch_id": branchID}).
		OrderBy("year_number ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list years query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying years: %w", err)
	}
	defer rows.Close()

	years := []*models.Year{}
	for rows.Next() {
		y, err := scanYear(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning year row: %w", err)
		}
		years = append(years, y)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating year rows: %w", err)
	}
	return years, nil
}

// Delete removes the year; its sections cascade.
func (r *YearRepository) Delete(ctx context.Context, id string) error {
	sql, args, err := r.sb.Delete("years").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete year query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting year: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrYearNotFound
	}
	return nil
}
