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

// ProgramRepository handles program database operations
type ProgramRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewProgramRepository creates a new ProgramRepository
func NewProgramRepository(conn db.DBTX) *ProgramRepository {
	return &ProgramRepository{db: conn, sb: statementBuilder()}
}

var programColumns = []string{"id", "name", "duration", "university_id", "created_at"}

func scanProgram(row interface{ Scan(...any) error }) (*models.Program, error) {
	p := &models.Program{}
	if err := row.Scan(&p.ID, &p.Name, &p.Duration, &p.UniversityID, &p.CreatedAt); err != nil {
		return nil, err
	}
	if err := validation.Record(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Create inserts a program. Names are unique per university.
func (r *ProgramRepository) Create(ctx context.Context, p *models.Program) error {
	sql, args, err := r.sb.Insert("programs").
		Columns("id", "name", "duration", "university_id").
		Values(p.ID, p.Name, p.Duration, p.UniversityID).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create program query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&p.CreatedAt); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrProgramAlreadyExists
		}
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrUniversityNotFound
		}
		logger.Error().Err(err).Str("name", p.Name).Msg("Error creating program")
		return fmt.Errorf("error creating program: %w", err)
	}
	return nil
}

// GetByID retrieves a program by ID
func (r *ProgramRepository) GetByID(ctx context.Context, id string) (*models.Program, error) {
	sql, args, err := r.sb.Select(programColumns...).From("programs").Where(squirrel.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get program query: %w", err)
	}

	p, err := scanProgram(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrProgramNotFound
		}
		return nil, fmt.Errorf("error getting program: %w", err)
	}
	return p, nil
}

// ListByUniversity returns a university's programs ordered by name
func (r *ProgramRepository) ListByUniversity(ctx context.Context, universityID string) ([]*models.Program, error) {
	sql, args, err := r.sb.Select(programColumns...).
		From("programs").
		Where(squirrel.Eq{"university_id": universityID}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list programs query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying programs: %w", err)
	}
	defer rows.Close()

	programs := []*models.Program{}
	for rows.Next() {
		p, err := scanProgram(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning program row: %w", err)
		}
		programs = append(programs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating program rows: %w", err)
	}
	return programs, nil
}

// Update changes a program's name and duration
func (r *ProgramRepository) Update(ctx context.Context, p *models.Program) error {
	sql, args, err := r.sb.Update("programs").
		SetMap(map[string]interface{}{"name": p.Name, "duration": p.Duration}).
		Where(squirrel.Eq{"id": p.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update program query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrProgramAlreadyExists
		}
		return fmt.Errorf("error updating program: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrProgramNotFound
	}
	return nil
}

// MaxYearNumber returns the highest year number used under the program, 0 if none.
func (r *ProgramRepository) MaxYearNumber(ctx context.Context, programID string) (int, error) {
	sql, args, err := r.sb.Select("COALESCE(MAX(y.year_number), 0)").
		From("years y").
		Join("branches b ON b.id = y.branch_id").
		Where(squirrel.Eq{"b.program_id": programID}).
		ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error reading max year number: %w", err)
	}
	return n, nil
}

// Delete removes the program; branches and below cascade.
func (r *ProgramRepository) Delete(ctx context.Context, id string) error {
	sql, args, err := r.sb.Delete("programs").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete program query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting program: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrProgramNotFound
	}
	return nil
}
