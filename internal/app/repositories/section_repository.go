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

// SectionRepository handles section database operations
type SectionRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewSectionRepository creates a new SectionRepository
func NewSectionRepository(conn db.DBTX) *SectionRepository {
	return &SectionRepository{db: conn, sb: statementBuilder()}
}

var sectionColumns = []string{"id", "name", "year_id", "timetable_file_id", "enrollment_file_id", "created_at"}

func scanSection(row interface{ Scan(...any) error }) (*models.Section, error) {
	s := &models.Section{}
	if err := row.Scan(&s.ID, &s.Name, &s.YearID, &s.TimetableFileID, &s.EnrollmentFileID, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := validation.Record(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a section with both file references null
func (r *SectionRepository) Create(ctx context.Context, s *models.Section) error {
	sql, args, err := r.sb.Insert("sections").
		Columns("id", "name", "year_id").
		Values(s.ID, s.Name, s.YearID).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create section query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&s.CreatedAt); err != nil {
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrYearNotFound
		}
		logger.Error().Err(err).Str("yearID", s.YearID).Msg("Error creating section")
		return fmt.Errorf("error creating section: %w", err)
	}
	s.TimetableFileID, s.EnrollmentFileID = nil, nil
	return nil
}

// GetByID retrieves a section by ID
func (r *SectionRepository) GetByID(ctx context.Context, id string) (*models.Section, error) {
	sql, args, err := r.sb.Select(sectionColumns...).From("sections").Where(squirrel.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get section query: %w", err)
	}

	s, err := scanSection(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrSectionNotFound
		}
		return nil, fmt.Errorf("error getting section: %w", err)
	}
	return s, nil
}

// ListByYear returns one page of a year's sections ordered by name, plus the total count
func (r *SectionRepository) ListByYear(ctx context.Context, yearID string, offset uint64, limit int) ([]*models.Section, int64, error) {
	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("sections").Where(squirrel.Eq{"year_id": yearID}).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count sections query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting sections: %w", err)
	}

	sql, args, err := r.sb.Select(sectionColumns...).
		From("sections").
		Where(squirrel.Eq{"year_id": yearID}).
		OrderBy("name ASC").
		Offset(offset).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list sections query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error querying sections: %w", err)
	}
	defer rows.Close()

	sections := []*models.Section{}
	for rows.Next() {
		s, err := scanSection(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning section row: %w", err)
		}
		sections = append(sections, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating section rows: %w", err)
	}
	return sections, total, nil
}

// SetFileID sets or clears (nil) the section's reference for t.
// A missing section yields ErrSectionNotFound.
func (r *SectionRepository) SetFileID(ctx context.Context, sectionID string, t models.FileType, fileID *string) error {
	sql, args, err := r.sb.Update("sections").
		Set(models.FileColumn(t), fileID).
		Where(squirrel.Eq{"id": sectionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build set file reference query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error setting %s reference: %w", t, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSectionNotFound
	}
	return nil
}

// Delete removes the section row; file records cascade.
func (r *SectionRepository) Delete(ctx context.Context, id string) error {
	sql, args, err := r.sb.Delete("sections").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete section query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting section: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrSectionNotFound
	}
	return nil
}

// ListIDs returns the ids of every section below the node (scope, id).
func (r *SectionRepository) ListIDs(ctx context.Context, scope models.Scope, id string) ([]string, error) {
	q := r.sb.Select("s.id").From("sections s")
	switch scope {
	case models.ScopeSection:
		q = q.Where(squirrel.Eq{"s.id": id})
	case models.ScopeYear:
		q = q.Where(squirrel.Eq{"s.year_id": id})
	case models.ScopeBranch:
		q = q.Join("years y ON y.id = s.year_id").Where(squirrel.Eq{"y.branch_id": id})
	case models.ScopeProgram:
		q = q.Join("years y ON y.id = s.year_id").
			Join("branches b ON b.id = y.branch_id").
			Where(squirrel.Eq{"b.program_id": id})
	case models.ScopeUniversity:
		q = q.Join("years y ON y.id = s.year_id").
			Join("branches b ON b.id = y.branch_id").
			Join("programs p ON p.id = b.program_id").
			Where(squirrel.Eq{"p.university_id": id})
	default:
		return nil, fmt.Errorf("unknown scope %q", scope)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list section ids query: %w", err)
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing section ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		ids = append(ids, sid)
	}
	return ids, rows.Err()
}
