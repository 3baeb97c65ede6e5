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

// BranchStore is the branch persistence
type BranchStore interface {
	Create(ctx context.Context, b *models.Branch) error
	GetByID(ctx context.Context, id string) (*models.Branch, error)
	ListByProgram(ctx context.Context, programID string) ([]*models.Branch, error)
	Update(ctx context.Context, b *models.Branch) error
	Delete(ctx context.Context, id string) error
}

// BranchService defines branch operations
type BranchService interface {
	CreateBranch(ctx context.Context, userID, programID, name string) (*models.Branch, error)
	ListBranches(ctx context.Context, userID, programID string) ([]*models.Branch, error)
	GetBranch(ctx context.Context, userID, id string) (*models.Branch, error)
	UpdateBranch(ctx context.Context, userID, id, name string) (*models.Branch, error)
	DeleteBranch(ctx context.Context, userID, id string) error
}

type branchServiceImpl struct {
	branches BranchStore
	authz    Authorizer
	files    FileDetacher
	ids      idgen.Generator
	logger   zerolog.Logger
}

// NewBranchService creates a new branch service instance
func NewBranchService(branches BranchStore, authz Authorizer, files FileDetacher, ids idgen.Generator, logger zerolog.Logger) BranchService {
	return &branchServiceImpl{branches: branches, authz: authz, files: files, ids: ids, logger: logger}
}

func (s *branchServiceImpl) CreateBranch(ctx context.Context, userID, programID, name string) (*models.Branch, error) {
	name, err := validation.Name("branch name", name)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	if _, err := s.authz.Authorize(ctx, userID, models.ScopeProgram, programID); err != nil {
		return nil, err
	}

	id, err := s.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("error generating branch id: %w", err)
	}

	branch := &models.Branch{ID: id, Name: name, ProgramID: programID}
	if err := s.branches.Create(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}

func (s *branchServiceImpl) ListBranches(ctx context.Context, userID, programID string) ([]*models.Branch, error) {
	if _, err := s.authz.Authorize(ctx, userID, models.ScopeProgram, programID); err != nil {
		return nil, err
	}
	return s.branches.ListByProgram(ctx, programID)
}

func (s *branchServiceImpl) GetBranch(ctx context.Context, userID, id string) (*models.Branch, error) {
	if _, err := s.authz.Authorize(ctx, userID, models.ScopeBranch, id); err != nil {
		return nil, err
	}
	return s.branches.GetByID(ctx, id)
}

func (s *branchServiceImpl) UpdateBranch(ctx context.Context, userID, id, name string) (*models.Branch, error) {
	name, err := validation.Name("branch name", name)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}
	branch, err := s.GetBranch(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	branch.Name = name
	if err := s.branches.Update(ctx, branch); err != nil {
		return nil, err
	}
	return branch, nil
}

// DeleteBranch detaches section documents below the branch and deletes it
func (s *branchServiceImpl) DeleteBranch(ctx context.Context, userID, id string) error {
	if _, err := s.authz.Authorize(ctx, userID, models.ScopeBranch, id); err != nil {
		return err
	}
	if err := s.files.DetachAll(ctx, models.ScopeBranch, id); err != nil {
		return err
	}
	if err := s.branches.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("branchID", id).Msg("Branch deleted")
	return nil
}
