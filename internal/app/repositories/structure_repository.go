package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/db"
	"github.com/yigit/attendance/internal/pkg/apperrors"
)

// StructureRepository answers read-only questions about a university's
// hierarchy: the flattened tree, dashboard counters and ownership.
type StructureRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewStructureRepository creates a new StructureRepository
func NewStructureRepository(conn db.DBTX) *StructureRepository {
	return &StructureRepository{db: conn, sb: statementBuilder()}
}

// Rows returns the university tree as one row per leaf, ordered for
// tree building. Programs without branches appear with nil children.
func (r *StructureRepository) Rows(ctx context.Context, universityID string) ([]models.StructureRow, error) {
	sql, args, err := r.sb.Select("p.id", "p.name", "b.id", "b.name", "y.id", "y.year_number", "s.id", "s.name").
		From("programs p").
		LeftJoin("branches b ON b.program_id = p.id").
		LeftJoin("years y ON y.branch_id = b.id").
		LeftJoin("sections s ON s.year_id = y.id").
		Where(squirrel.Eq{"p.university_id": universityID}).
		OrderBy("p.name", "b.name", "y.year_number", "s.name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build structure query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying structure: %w", err)
	}
	defer rows.Close()

	var out []models.StructureRow
	for rows.Next() {
		var row models.StructureRow
		if err := rows.Scan(
			&row.ProgramID, &row.ProgramName,
			&row.BranchID, &row.BranchName,
			&row.YearID, &row.YearNumber,
			&row.SectionID, &row.SectionName,
		); err != nil {
			return nil, fmt.Errorf("error scanning structure row: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Stats counts the entities of a university.
func (r *StructureRepository) Stats(ctx context.Context, universityID string) (*models.DashboardStats, error) {
	sql, args, err := r.sb.Select().
		Column(squirrel.Expr("(SELECT COUNT(*) FROM programs p WHERE p.university_id = ?)", universityID)).
		Column(squirrel.Expr(`(SELECT COUNT(*) FROM branches b
			JOIN programs p ON p.id = b.program_id WHERE p.university_id = ?)`, universityID)).
		Column(squirrel.Expr(`(SELECT COUNT(*) FROM years y
			JOIN branches b ON b.id = y.branch_id
			JOIN programs p ON p.id = b.program_id WHERE p.university_id = ?)`, universityID)).
		Column(squirrel.Expr(`(SELECT COUNT(*) FROM sections s
			JOIN years y ON y.id = s.year_id
			JOIN branches b ON b.id = y.branch_id
			JOIN programs p ON p.id = b.program_id WHERE p.university_id = ?)`, universityID)).
		Column(squirrel.Expr(`(SELECT COUNT(*) FROM sections s
			JOIN years y ON y.id = s.year_id
			JOIN branches b ON b.id = y.branch_id
			JOIN programs p ON p.id = b.program_id
			WHERE p.university_id = ? AND s.enrollment_file_id IS NOT NULL)`, universityID)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build stats query: %w", err)
	}

	var st models.DashboardStats
	if err := r.db.QueryRow(ctx, sql, args...).Scan(
		&st.TotalPrograms, &st.TotalBranches, &st.TotalYears, &st.TotalSections, &st.SectionsWithEnrollment,
	); err != nil {
		return nil, fmt.Errorf("error reading dashboard stats: %w", err)
	}
	return &st, nil
}

// UniversityOf resolves the university that owns the node (scope, id).
func (r *StructureRepository) UniversityOf(ctx context.Context, scope models.Scope, id string) (string, error) {
	var (
		q        squirrel.SelectBuilder
		notFound error
	)
	switch scope {
	case models.ScopeProgram:
		q = r.sb.Select("p.university_id").From("programs p").Where(squirrel.Eq{"p.id": id})
		notFound = apperrors.ErrProgramNotFound
	case models.ScopeBranch:
		q = r.sb.Select("p.university_id").From("branches b").
			Join("programs p ON p.id = b.program_id").
			Where(squirrel.Eq{"b.id": id})
		notFound = apperrors.ErrBranchNotFound
	case models.ScopeYear:
		q = r.sb.Select("p.university_id").From("years y").
			Join("branches b ON b.id = y.branch_id").
			Join("programs p ON p.id = b.program_id").
			Where(squirrel.Eq{"y.id": id})
		notFound = apperrors.ErrYearNotFound
	case models.ScopeSection:
		q = r.sb.Select("p.university_id").From("sections s").
			Join("years y ON y.id = s.year_id").
			Join("branches b ON b.id = y.branch_id").
			Join("programs p ON p.id = b.program_id").
			Where(squirrel.Eq{"s.id": id})
		notFound = apperrors.ErrSectionNotFound
	case models.ScopeUniversity:
		return id, nil
	default:
		return "", fmt.Errorf("unknown scope %q", scope)
	}

	sql, args, err := q.Limit(1).ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build ownership query: %w", err)
	}

	var universityID string
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&universityID); err != nil {
		if isNoRows(err) {
			return "", notFound
		}
		return "", fmt.Errorf("error resolving %s owner: %w", scope, err)
	}
	return universityID, nil
}
