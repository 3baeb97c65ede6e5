package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/attendance/internal/app/models"
	"github.com/yigit/attendance/internal/app/repositories"
	"github.com/yigit/attendance/internal/db"
	"github.com/yigit/attendance/internal/pkg/apperrors"
	"github.com/yigit/attendance/internal/pkg/idgen"
	"github.com/yigit/attendance/internal/pkg/validation"
)

// UniversityService defines operations on the caller's university
type UniversityService interface {
	CreateUniversity(ctx context.Context, userID, name, location string) (*models.University, error)
	GetMyUniversity(ctx context.Context, userID string) (*models.University, error)
	UpdateMyUniversity(ctx context.Context, userID, name, location string) (*models.University, error)
	DeleteMyUniversity(ctx context.Context, userID string) error
}

type universityServiceImpl struct {
	txs          db.TxBeginner
	universities *repositories.UniversityRepository
	users        *repositories.UserRepository
	authz        Authorizer
	files        FileDetacher
	ids          idgen.Generator
	logger       zerolog.Logger
}

// NewUniversityService creates a new university service instance
func NewUniversityService(
	txs db.TxBeginner,
	universities *repositories.UniversityRepository,
	users *repositories.UserRepository,
	authz Authorizer,
	files FileDetacher,
	ids idgen.Generator,
	logger zerolog.Logger,
) UniversityService {
	return &universityServiceImpl{
		txs:          txs,
		universities: universities,
		users:        users,
		authz:        authz,
		files:        files,
		ids:          ids,
		logger:       logger,
	}
}

// CreateUniversity creates a university and assigns it to the caller in one
// transaction. A staff member owns at most one university.
func (s *universityServiceImpl) CreateUniversity(ctx context.Context, userID, name, location string) (*models.University, error) {
	name, err := validation.Name("university name", name)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.HasUniversity() {
		return nil, apperrors.ErrUniversityAlreadyExists
	}

	id, err := s.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("error generating university id: %w", err)
	}
	university := &models.University{ID: id, Name: name, Location: location}

	err = db.WithTx(ctx, s.txs, func(ctx context.Context, tx db.DBTX) error {
		if err := s.universities.WithTx(tx).Create(ctx, university); err != nil {
			return err
		}
		return s.users.WithTx(tx).SetUniversity(ctx, userID, &university.ID)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("userID", userID).Msg("Failed to create university")
		return nil, err
	}

	s.logger.Info().Str("userID", userID).Str("universityID", university.ID).Msg("University created")
	return university, nil
}

// GetMyUniversity returns the caller's university
func (s *universityServiceImpl) GetMyUniversity(ctx context.Context, userID string) (*models.University, error) {
	universityID, err := s.authz.UniversityOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.universities.GetByID(ctx, universityID)
}

// UpdateMyUniversity renames or relocates the caller's university
func (s *universityServiceImpl) UpdateMyUniversity(ctx context.Context, userID, name, location string) (*models.University, error) {
	name, err := validation.Name("university name", name)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	university, err := s.GetMyUniversity(ctx, userID)
	if err != nil {
		return nil, err
	}
	university.Name = name
	university.Location = location

	if err := s.universities.Update(ctx, university); err != nil {
		return nil, err
	}
	return university, nil
}

// DeleteMyUniversity detaches every section document and deletes the
// university with everything below it.
func (s *universityServiceImpl) DeleteMyUniversity(ctx context.Context, userID string) error {
	universityID, err := s.authz.UniversityOf(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.files.DetachAll(ctx, models.ScopeUniversity, universityID); err != nil {
		return err
	}
	if err := s.universities.Delete(ctx, universityID); err != nil {
		return err
	}

	s.logger.Info().Str("userID", userID).Str("universityID", universityID).Msg("University deleted")
	return nil
}
