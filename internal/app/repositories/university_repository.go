package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/db"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/helpers"
	"github.com/yigit/attendance/internal/pkg/logger"
	"github.com/yigit/attendance/internal/pkg/validation"
)

// UniversityRepository handles university database operations
type UniversityRepository struct {
	db db.DBTX
	sb squirrel.StatementBuilderType
}

// NewUniversityRepository creates a new UniversityRepository
func NewUniversityRepository(conn db.DBTX) *UniversityRepository {
	return &UniversityRepository{db: conn, sb: statementBuilder()}
}

// WithTx returns a repository bound to tx.
func (r *UniversityRepository) WithTx(tx db.DBTX) *UniversityRepository {
	return &UniversityRepository{db: tx, sb: r.sb}
}

// Create inserts a university
func (r *UniversityRepository) Create(ctx context.Context, u *models.University) error {
	sql, args, err := r.sb.Insert("universities").
		Columns("id", "name", "location").
		Values(u.ID, u.Name, helpers.NullIfEmpty(u.Location)).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create university query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&u.CreatedAt); err != nil {
		logger.Error().Err(err).Str("name", u.Name).Msg("Error creating university")
		return fmt.Errorf("error creating university: %w", err)
	}
	return nil
}

// GetByID retrieves a university by ID
func (r *UniversityRepository) GetByID(ctx context.Context, id string) (*models.University, error) {
	sql, args, err := r.sb.Select("id", "name", "location", "created_at").
		From("universities").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get university query: %w", err)
	}

	var (
		u        models.University
		location *string
	)
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&u.ID, &u.Name, &location, &u.CreatedAt); err != nil {
		if isNoRows(err) {
			return nil, apperrors.ErrUniversityNotFound
		}
		return nil, fmt.Errorf("error getting university: %w", err)
	}
	u.Location = helpers.Deref(location)
	if err := validation.Record(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Update changes name and location
func (r *UniversityRepository) Update(ctx context.Context, u *models.University) error {
	sql, args, err := r.sb.Update("universities").
		SetMap(map[string]interface{}{"name": u.Name, "location": helpers.NullIfEmpty(u.Location)}).
		Where(squirrel.Eq{"id": u.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update university query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating university: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUniversityNotFound
	}
	return nil
}

// Delete removes the university; programs and below cascade.
func (r *UniversityRepository) Delete(ctx context.Context, id string) error {
	sql, args, err := r.sb.Delete("universities").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete university query: %w", err)
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error deleting university: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUniversityNotFound
	}
	return nil
}
