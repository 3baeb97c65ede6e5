package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/idgen"
	"github.com/yigit/attendance/internal/pkg/validation"
)

// ProgramStore is the program persistence
type ProgramStore interface {
	Create(ctx context.Context, p *models.Program) error
	GetByID(ctx context.Context, id string) (*models.Program, error)
	ListByUniversity(ctx context.Context, universityID string) ([]*models.Program, error)
	Update(ctx context.Context, p *models.Program) error
	MaxYearNumber(ctx context.Context, programID string) (int, error)
	Delete(ctx context.Context, id string) error
}

// ProgramService defines program operations
type ProgramService interface {
	CreateProgram(ctx context.Context, userID, name, duration string) (*models.Program, error)
	ListPrograms(ctx context.Context, userID string) ([]*models.Program, error)
	GetProgram(ctx context.Context, userID, id string) (*models.Program, error)
	UpdateProgram(ctx context.Context, userID, id, name, duration string) (*models.Program, error)
	DeleteProgram(ctx context.Context, userID, id string) error
}

type programServiceImpl struct {
	programs ProgramStore
	authz    Authorizer
	files    FileDetacher
	ids      idgen.Generator
	logger   zerolog.Logger
}

// NewProgramService creates a new program service instance
func NewProgramService(programs ProgramStore, authz Authorizer, files FileDetacher, ids idgen.Generator, logger zerolog.Logger) ProgramService {
	return &programServiceImpl{programs: programs, authz: authz, files: files, ids: ids, logger: logger}
}

// normalizeDuration accepts "N years" (or "N year") with N in range and
// returns the stored form.
func normalizeDuration(duration string) (string, int, error) {
	n, err := models.ParseDurationYears(duration)
	if err != nil {
		return "", 0, apperrors.NewValidationError(err.Error())
	}
	return models.FormatDurationYears(n), n, nil
}

// CreateProgram adds a program to the caller's university
func (s *programServiceImpl) CreateProgram(ctx context.Context, userID, name, duration string) (*models.Program, error) {
	name, err := validation.Name("program name", name)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	duration, _, err = normalizeDuration(duration)
	if err != nil {
		return nil, err
	}

	universityID, err := s.authz.UniversityOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	id, err := s.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("error generating program id: %w", err)
	}

	program := &models.Program{ID: id, Name: name, Duration: duration, UniversityID: universityID}
	if err := s.programs.Create(ctx, program); err != nil {
		return nil, err
	}
	return program, nil
}

// ListPrograms returns the caller's programs ordered by name
func (s *programServiceImpl) ListPrograms(ctx context.Context, userID string) ([]*models.Program, error) {
	universityID, err := s.authz.UniversityOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.programs.ListByUniversity(ctx, universityID)
}

// GetProgram returns a program of the caller's university
func (s *programServiceImpl) GetProgram(ctx context.Context, userID, id string) (*models.Program, error) {
	if _, err := s.authz.Authorize(ctx, userID, models.ScopeProgram, id); err != nil {
		return nil, err
	}
	return s.programs.GetByID(ctx, id)
}

// UpdateProgram renames a program or changes its duration. The duration
// cannot drop below a year number already in use.
func (s *programServiceImpl) UpdateProgram(ctx context.Context, userID, id, name, duration string) (*models.Program, error) {
	name, err := validation.Name("program name", name)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	duration, years, err := normalizeDuration(duration)
	if err != nil {
		return nil, err
	}

	program, err := s.GetProgram(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	maxYear, err := s.programs.MaxYearNumber(ctx, id)
	if err != nil {
		return nil, err
	}
	if maxYear > years {
		return nil, apperrors.NewValidationError(fmt.Sprintf("program already has year %d, duration cannot be %s", maxYear, duration))
	}

	program.Name = name
	program.Duration = duration
	if err := s.programs.Update(ctx, program); err != nil {
		return nil, err
	}
	return program, nil
}

// DeleteProgram detaches section documents below the program and deletes it
func (s *programServiceImpl) DeleteProgram(ctx context.Context, userID, id string) error {
	if _, err := s.authz.Authorize(ctx, userID, models.ScopeProgram, id); err != nil {
		return err
	}
	if err := s.files.DetachAll(ctx, models.ScopeProgram, id); err != nil {
		return err
	}
	if err := s.programs.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("programID", id).Msg("Program deleted")
	return nil
}
