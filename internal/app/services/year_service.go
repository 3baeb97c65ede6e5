package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/idgen"
)

// YearStore is the study year persistence
type YearStore interface {
	Create(ctx context.Context, y *models.Year) error
	GetByID(ctx context.Context, id string) (*models.Year, error)
	ListByBranch(ctx context.Context, branchID string) ([]*models.Year, error)
	Delete(ctx context.Context, id string) error
}

// YearService defines study year operations
type YearService interface {
	CreateYear(ctx context.Context, userID, branchID string, yearNumber int) (*models.Year, error)
	ListYears(ctx context.Context, userID, branchID string) ([]*models.Year, error)
	GetYear(ctx context.Context, userID, id string) (*models.Year, error)
	DeleteYear(ctx context.Context, userID, id string) error
}

type yearServiceImpl struct {
	years    YearStore
	branches BranchStore
	programs ProgramStore
	authz    Authorizer
	files    FileDetacher
	ids      idgen.Generator
	logger   zerolog.Logger
}

// NewYearService creates a new year service instance
func NewYearService(
	years YearStore,
	branches BranchStore,
	programs ProgramStore,
	authz Authorizer,
	files FileDetacher,
	ids idgen.Generator,
	logger zerolog.Logger,
) YearService {
	return &yearServiceImpl{
		years:    years,
		branches: branches,
		programs: programs,
		authz:    authz,
		files:    files,
		ids:      ids,
		logger:   logger,
	}
}

// CreateYear adds a study year. The number must lie within the program's duration.
func (s *yearServiceImpl) CreateYear(ctx context.Context, userID, branchID string, yearNumber int) (*models.Year, error) {
	if _, err := s.authz.Authorize(ctx, userID, models.ScopeBranch, branchID); err != nil {
		return nil, err
	}

	branch, err := s.branches.GetByID(ctx, branchID)
	if err != nil {
		return nil, err
	}
	program, err := s.programs.GetByID(ctx, branch.ProgramID)
	if err != nil {
		return nil, err
	}
	maxYears, err := models.ParseDurationYears(program.Duration)
	if err != nil {
		// stored durations are validated on write
		return nil, fmt.Errorf("program %s has invalid duration: %w", program.ID, err)
	}
	if yearNumber < 1 || yearNumber > maxYears {
		return nil, apperrors.NewValidationError(fmt.Sprintf("year number must be between 1 and %d", maxYears))
	}

	id, err := s.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("error generating year id: %w", err)
	}

	year := &models.Year{ID: id, YearNumber: yearNumber, BranchID: branchID}
	if err := s.years.Create(ctx, year); err != nil {
		return nil, err
	}
	return year, nil
}

func (s *yearServiceImpl) ListYears(ctx context.Context, userID, branchID string) ([]*models.Year, error) {
	if _, err := s.authz.Authorize(ctx, userID, models.ScopeBranch, branchID); err != nil {
		return nil, err
	}
	return s.years.ListByBranch(ctx, branchID)
}

func (s *yearServiceImpl) GetYear(ctx context.Context, userID, id string) (*models.Year, error) {
	if _, err := s.authz.Authorize(ctx, userID, models.ScopeYear, id); err != nil {
		return nil, err
	}
	return s.years.GetByID(ctx, id)
}

// DeleteYear detaches the documents of every section in the year and
// deletes it. Sections and file records cascade in the store.
func (s *yearServiceImpl) DeleteYear(ctx context.Context, userID, id string) error {
	if _, err := s.authz.Authorize(ctx, userID, models.ScopeYear, id); err != nil {
		return err
	}
	if err := s.files.DetachAll(ctx, models.ScopeYear, id); err != nil {
		return err
	}
	if err := s.years.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("yearID", id).Msg("Year deleted")
	return nil
}
