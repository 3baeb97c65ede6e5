package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/db"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/dberrors"
	"github.com/yigit/attendance/internal/pkg/validation"
)

// FileRepository handles section document metadata
type FileRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewFileRepository creates a new FileRepository
func NewFileRepository(conn db.DBTX) *FileRepository {
	return &FileRepository{db: conn, sb: statementBuilder()}
}

var fileColumns = []string{"id", "path", "bucket", "section_id", "type"}

func scanFile(row interface{ Scan(...any) error }) (*models.FileRecord, error) {
	f := &models.FileRecord{}
	if err := row.Scan(&f.ID, &f.Path, &f.Bucket, &f.SectionID, &f.Type); err != nil {
		return nil, err
	}
	if err := validation.Record(f); err != nil {
		return nil, err
	}
	return f, nil
}

// Create inserts a file record. At most one exists per (section, type).
func (r *FileRepository) Create(ctx context.Context, f *models.FileRecord) error {
	sql, args, err := r.sb.Insert("files").
		Columns(fileColumns...).
		Values(f.ID, f.Path, f.Bucket, f.SectionID, string(f.Type)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create file query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "files_section_id_type_key") {
			return fmt.Errorf("%w: section %s already has a %s file", apperrors.ErrConflict, f.SectionID, f.Type)
		}
		if dberrors.IsForeignKeyViolation(err) {
			return apperrors.ErrSectionNotFound
		}
		return fmt.Errorf("error creating file record: %w", err)
	}
	return nil
}

// GetBySectionAndType returns the record for (sectionID, t)
func (r *FileRepository) GetBySectionAndType(ctx context.Context, sectionID string, t models.FileType) (*models.FileRecord, error) {
	sql, args, err := r.sb.Select(fileColumns...).
		From("files").
		Where(squirrel.Eq{"section_id": sectionID, "type": string(t)}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get file query: %w", err)
	}

	f, err := scanFile(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrFileNotFound
		}
		return nil, fmt.Errorf("error getting file record: %w", err)
	}
	return f, nil
}

// Delete removes a file record by ID
func (r *FileRepository) Delete(ctx context.Context, id string) error {
	sql, args, err := r.sb.Delete("files").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete file query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting file record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrFileNotFound
	}
	return nil
}
